// cmd/diffwrite/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"diffwrite/internal/config"
	"diffwrite/internal/fingerprint"
	"diffwrite/internal/logging"
	"diffwrite/internal/tree"
	"diffwrite/internal/watch"
	"diffwrite/internal/writer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	v      = config.New()
	cfg    = config.Default()
	logger = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "diffwrite",
	Short: "Write files only when their content changes",
	Long: `diffwrite writes bytes, files and directory trees to a destination only
where the destination content differs, so modification times move only on
real changes and mtime-driven rebuilds stay quiet.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")

		var err error
		cfg, err = config.Load(v, path)
		if err != nil {
			return err
		}

		logger, err = logging.NewLogger(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (json, yaml or toml)")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.StringP("algorithm", "a", "xxhash", "fingerprint algorithm: xxhash, fnv64a, sha256")
	flags.Bool("atomic", false, "stage writes in a temp file and rename into place")
	flags.BoolP("dry-run", "n", false, "report what would be written without writing")
	bindFlag(v, "log_level", flags.Lookup("log-level"))
	bindFlag(v, "algorithm", flags.Lookup("algorithm"))
	bindFlag(v, "atomic", flags.Lookup("atomic"))
	bindFlag(v, "dry_run", flags.Lookup("dry-run"))

	var writeCmd = &cobra.Command{
		Use:   "write DEST",
		Short: "Write stdin to DEST if it differs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := args[0]
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}

			showDiff, _ := cmd.Flags().GetBool("diff")
			var old []byte
			if showDiff {
				old = readIfExists(dst)
			}

			w, err := newWriter(cmd.Name())
			if err != nil {
				return err
			}
			outcome, err := w.WriteBytes(dst, data)
			if err != nil {
				return fmt.Errorf("writing %s: %w", dst, err)
			}

			out := cmd.OutOrStdout()
			printOutcome(out, outcome, dst, int64(len(data)), cfg.DryRun)
			if showDiff && outcome == writer.Written {
				printPreview(out, old, data)
			}
			return nil
		},
	}
	writeCmd.Flags().Bool("diff", false, "show a line preview of the change")

	var copyCmd = &cobra.Command{
		Use:   "copy SRC DEST",
		Short: "Copy file SRC to DEST if their contents differ",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]

			showDiff, _ := cmd.Flags().GetBool("diff")
			var old []byte
			if showDiff {
				old = readIfExists(dst)
			}

			w, err := newWriter(cmd.Name())
			if err != nil {
				return err
			}
			outcome, err := w.WriteFile(src, dst)
			if err != nil {
				return fmt.Errorf("copying %s: %w", src, err)
			}

			out := cmd.OutOrStdout()
			var size int64
			if info, err := os.Stat(src); err == nil {
				size = info.Size()
			}
			printOutcome(out, outcome, dst, size, cfg.DryRun)
			if showDiff && outcome == writer.Written {
				printPreview(out, old, readIfExists(src))
			}
			return nil
		},
	}
	copyCmd.Flags().Bool("diff", false, "show a line preview of the change")

	var syncCmd = &cobra.Command{
		Use:   "sync SRC DEST",
		Short: "Overlay directory SRC onto DEST, writing only changed files",
		Long: `Recursively copies every file under SRC to the same relative path under DEST
when the content differs. Files that exist only in DEST are kept.
Symlinks to files are copied as plain files. Symlinks to directories are
not followed, so link cycles cannot make the walk loop; they are skipped
along with dangling links and special files. A DEST inside SRC is skipped
by the walk.`,
		Example: `  diffwrite sync ./generated ./out
  diffwrite sync -n --diff --ignore '**/*.tmp' ./generated ./out`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]

			showDiff, _ := cmd.Flags().GetBool("diff")
			if showDiff && !cfg.DryRun {
				return fmt.Errorf("--diff with sync requires --dry-run")
			}

			s, err := newSynchronizer(cmd)
			if err != nil {
				return err
			}

			summary, err := s.Sync(src, dst)
			out := cmd.OutOrStdout()
			verbose, _ := cmd.Flags().GetBool("verbose")
			printSummary(out, summary, verbose)
			if err != nil {
				return fmt.Errorf("syncing %s: %w", src, err)
			}

			if showDiff {
				for _, rel := range summary.WrittenPaths() {
					local := filepath.FromSlash(rel)
					color.New(color.Bold).Fprintf(out, "\n%s\n", rel)
					printPreview(out, readIfExists(filepath.Join(dst, local)), readIfExists(filepath.Join(src, local)))
				}
			}
			return nil
		},
	}
	syncCmd.Flags().StringSlice("ignore", nil, "glob patterns (doublestar) of source paths to skip")
	syncCmd.Flags().Bool("diff", false, "with --dry-run, show a line preview of every pending change")
	syncCmd.Flags().BoolP("verbose", "v", false, "also list unchanged files")

	var watchCmd = &cobra.Command{
		Use:   "watch SRC DEST",
		Short: "Sync SRC onto DEST now and again on every change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst := args[0], args[1]

			s, err := newSynchronizer(cmd)
			if err != nil {
				return err
			}

			debounce := cfg.Debounce
			if cmd.Flags().Changed("debounce") {
				debounce, _ = cmd.Flags().GetDuration("debounce")
			}

			out := cmd.OutOrStdout()
			w, err := watch.New(s, src, dst, watch.Options{
				Debounce: debounce,
				Logger:   logger.ForCommand(cmd.Name()),
				OnSync: func(summary *tree.Summary, err error) {
					if err != nil {
						color.New(color.FgRed).Fprintf(out, "sync failed: %v\n", err)
						return
					}
					if summary.Changed() {
						printSummary(out, summary, false)
					}
				},
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(out, "Watching %s (ctrl-c to stop)\n", src)
			return w.Run(ctx)
		},
	}
	watchCmd.Flags().StringSlice("ignore", nil, "glob patterns (doublestar) of source paths to skip")
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before resyncing")

	var hashCmd = &cobra.Command{
		Use:   "hash FILE...",
		Short: "Print the content fingerprint of each FILE",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alg, err := fingerprint.Lookup(cfg.Algorithm)
			if err != nil {
				return err
			}
			for _, path := range args {
				fp, err := fingerprint.FromFile(alg, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", fp, path)
			}
			return nil
		},
	}

	rootCmd.AddCommand(writeCmd, copyCmd, syncCmd, watchCmd, hashCmd)
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", key, err))
	}
}

func newWriter(command string) (*writer.Writer, error) {
	alg, err := fingerprint.Lookup(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	return writer.New(writer.Options{
		Algorithm: alg,
		Atomic:    cfg.Atomic,
		DryRun:    cfg.DryRun,
		Logger:    logger.ForCommand(command),
	}), nil
}

func newSynchronizer(cmd *cobra.Command) (*tree.Synchronizer, error) {
	w, err := newWriter(cmd.Name())
	if err != nil {
		return nil, err
	}

	ignore := append([]string(nil), cfg.Ignore...)
	extra, _ := cmd.Flags().GetStringSlice("ignore")
	ignore = append(ignore, extra...)

	return tree.New(w, tree.Options{
		Ignore: ignore,
		Logger: logger.ForCommand(cmd.Name()).With(zap.Strings("ignore", ignore)),
	})
}

// readIfExists returns nil for unreadable paths; previews treat that as empty.
func readIfExists(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
