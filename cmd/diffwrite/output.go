package main

import (
	"fmt"
	"io"
	"strings"

	"diffwrite/internal/preview"
	"diffwrite/internal/tree"
	"diffwrite/internal/writer"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

const previewContext = 3

var (
	writtenColor   = color.New(color.FgGreen)
	unchangedColor = color.New(color.Faint)
	skippedColor   = color.New(color.FgYellow)
)

func outcomeLabel(outcome writer.Outcome, dryRun bool) string {
	if outcome == writer.Written && dryRun {
		return "would write"
	}
	return outcome.String()
}

func printOutcome(out io.Writer, outcome writer.Outcome, path string, size int64, dryRun bool) {
	label := fmt.Sprintf("%-11s", outcomeLabel(outcome, dryRun))
	switch outcome {
	case writer.Written:
		writtenColor.Fprintf(out, "%s %s (%s)\n", label, path, humanize.IBytes(uint64(size)))
	case writer.Skipped:
		skippedColor.Fprintf(out, "%s %s\n", label, path)
	default:
		unchangedColor.Fprintf(out, "%s %s\n", label, path)
	}
}

// printSummary lists written and skipped entries, then a one-line total.
// Unchanged entries are listed only when verbose is set. A nil summary
// prints nothing.
func printSummary(out io.Writer, summary *tree.Summary, verbose bool) {
	if summary == nil {
		return
	}

	for _, e := range summary.Entries {
		switch e.Outcome {
		case writer.Written:
			printOutcome(out, e.Outcome, e.Path, e.Size, summary.DryRun)
		case writer.Skipped:
			skippedColor.Fprintf(out, "%-11s %s (%s)\n", e.Outcome, e.Path, e.Reason)
		case writer.Unchanged:
			if verbose {
				printOutcome(out, e.Outcome, e.Path, e.Size, summary.DryRun)
			}
		}
	}

	verb := "written"
	if summary.DryRun {
		verb = "to write"
	}
	fmt.Fprintf(out, "%s %s (%s), %s unchanged, %s skipped",
		humanize.Comma(int64(summary.Written)), verb,
		humanize.IBytes(uint64(summary.BytesWritten)),
		humanize.Comma(int64(summary.Unchanged)),
		humanize.Comma(int64(summary.Skipped)))
	if summary.DirsCreated > 0 {
		fmt.Fprintf(out, ", %s %s created", humanize.Comma(int64(summary.DirsCreated)), plural(summary.DirsCreated, "directory", "directories"))
	}
	fmt.Fprintln(out)
}

// printPreview shows the line changes that turn before into after.
func printPreview(out io.Writer, before, after []byte) {
	if preview.IsBinary(before) || preview.IsBinary(after) {
		fmt.Fprintf(out, "binary content differs (%s -> %s)\n",
			humanize.IBytes(uint64(len(before))), humanize.IBytes(uint64(len(after))))
		return
	}

	result := preview.NewEngine(previewContext).Diff(before, after)
	if result.Empty() {
		return
	}
	printColoredDiff(out, result.Format())
	fmt.Fprintf(out, "%d additions(+), %d deletions(-)\n", result.Stats.Additions, result.Stats.Deletions)
}

func printColoredDiff(out io.Writer, diff string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			header.Fprintln(out, line)
		case strings.HasPrefix(line, "+"):
			added.Fprintln(out, line)
		case strings.HasPrefix(line, "-"):
			removed.Fprintln(out, line)
		default:
			fmt.Fprintln(out, line)
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
