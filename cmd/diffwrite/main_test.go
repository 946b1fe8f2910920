package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diffwrite/internal/tree"
	"diffwrite/internal/writer"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, "", args...)
	require.NoError(t, err)
	return out
}

// resetFlags restores every flag of the shared command tree to its default
// so one test's flags do not leak into the next.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, cmd := range rootCmd.Commands() {
		cmd.Flags().VisitAll(reset)
	}
}

func TestWriteCommand(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")

	out, err := run(t, "hello world", "write", dst)
	require.NoError(t, err)
	assert.Equal(t, "written     "+dst+" (11 B)\n", out)

	out, err = run(t, "hello world", "write", dst)
	require.NoError(t, err)
	assert.Equal(t, "unchanged   "+dst+"\n", out)

	out, err = run(t, "hello rust\n", "write", "--diff", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "- hello world\n")
	assert.Contains(t, out, "+ hello rust\n")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello rust\n", string(data))
}

func TestWriteCommandDryRun(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.txt")

	out, err := run(t, "hello", "--dry-run", "write", dst)
	require.NoError(t, err)
	assert.Equal(t, "would write "+dst+" (5 B)\n", out)
	assert.NoFileExists(t, dst)
}

func TestSyncCommand(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("b\n"), 0o644))

	out := execute(t, "sync", src, dst)
	assert.Equal(t, "written     a.txt (2 B)\n"+
		"written     sub/b.txt (2 B)\n"+
		"2 written (4 B), 0 unchanged, 0 skipped, 1 directory created\n", out)

	out = execute(t, "sync", src, dst)
	assert.Equal(t, "0 written (0 B), 2 unchanged, 0 skipped\n", out)

	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("A\n"), 0o644))
	out = execute(t, "sync", "-n", "--diff", src, dst)
	assert.Contains(t, out, "would write a.txt (2 B)\n")
	assert.Contains(t, out, "1 to write (2 B), 1 unchanged, 0 skipped\n")
	assert.Contains(t, out, "- a\n+ A\n")

	data, err := os.ReadFile(filepath.Join(dst, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(data))
}

func TestSyncCommandIgnore(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "keep.txt"), []byte("k"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "drop.log"), []byte("d"), 0o644))

	out := execute(t, "sync", "--ignore", "*.log", src, dst)
	assert.Contains(t, out, "skipped     drop.log (ignored)\n")
	assert.NoFileExists(t, filepath.Join(dst, "drop.log"))
	assert.FileExists(t, filepath.Join(dst, "keep.txt"))
}

func TestSyncDiffRequiresDryRun(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("a"), 0o644))

	_, err := run(t, "", "sync", "--diff", src, dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --dry-run")
	assert.NoFileExists(t, filepath.Join(dst, "a.txt"))
}

func TestMixedCaseLogLevel(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := run(t, "", "--log-level", "Warn", "hash", file)
	assert.NoError(t, err)
}

func TestCopyCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	out := execute(t, "copy", src, dst)
	assert.Equal(t, "written     "+dst+" (5 B)\n", out)

	out = execute(t, "copy", src, dst)
	assert.Equal(t, "unchanged   "+dst+"\n", out)
}

func TestHashCommand(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("same"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("same"), 0o644))

	lines := strings.Split(strings.TrimSpace(execute(t, "hash", a, b)), "\n")
	require.Len(t, lines, 2)

	digestA, pathA, _ := strings.Cut(lines[0], "  ")
	digestB, pathB, _ := strings.Cut(lines[1], "  ")
	assert.Equal(t, a, pathA)
	assert.Equal(t, b, pathB)
	assert.Equal(t, digestA, digestB)
	assert.Len(t, digestA, 16)
}

func TestPrintSummary(t *testing.T) {
	summary := &tree.Summary{
		Entries: []tree.Entry{
			{Path: "a.txt", Outcome: writer.Written, Size: 2048},
			{Path: "b.txt", Outcome: writer.Unchanged, Size: 3},
			{Path: "link", Outcome: writer.Skipped, Reason: "symlink to directory"},
		},
		Written:      1,
		Unchanged:    1,
		Skipped:      1,
		DirsCreated:  1,
		BytesWritten: 2048,
	}

	var out bytes.Buffer
	printSummary(&out, summary, false)
	assert.Equal(t, "written     a.txt (2.0 KiB)\n"+
		"skipped     link (symlink to directory)\n"+
		"1 written (2.0 KiB), 1 unchanged, 1 skipped, 1 directory created\n", out.String())

	out.Reset()
	summary.DryRun = true
	printSummary(&out, summary, true)
	assert.Contains(t, out.String(), "would write a.txt")
	assert.Contains(t, out.String(), "unchanged   b.txt")
	assert.Contains(t, out.String(), "1 to write")

	out.Reset()
	printSummary(&out, nil, true)
	assert.Empty(t, out.String())
}

func TestPrintPreview(t *testing.T) {
	var out bytes.Buffer
	printPreview(&out, []byte("a\nb\nc\n"), []byte("a\nB\nc\n"))
	assert.Equal(t, "@@ -1,3 +1,3 @@\n"+
		"  a\n"+
		"- b\n"+
		"+ B\n"+
		"  c\n"+
		"1 additions(+), 1 deletions(-)\n", out.String())

	out.Reset()
	printPreview(&out, []byte("same"), []byte("same"))
	assert.Empty(t, out.String())

	out.Reset()
	printPreview(&out, []byte{0, 1, 2}, []byte("text"))
	assert.Equal(t, "binary content differs (3 B -> 4 B)\n", out.String())
}
