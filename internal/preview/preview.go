// internal/preview/preview.go
package preview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Line is a single line of a preview with its type and position
type Line struct {
	Type    LineType
	Content string
	OldNum  int // 1-based line in the old content, 0 for additions
	NewNum  int // 1-based line in the new content, 0 for deletions
}

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// Result holds the hunks that turn the old content into the new content
type Result struct {
	Hunks []Hunk
	Stats struct {
		Additions int
		Deletions int
	}
}

// Hunk is a continuous section of changes with surrounding context
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Engine computes line previews of a pending write
type Engine struct {
	contextLines int
}

// NewEngine creates an engine that keeps contextLines unchanged lines
// around every change
func NewEngine(contextLines int) *Engine {
	return &Engine{
		contextLines: max(0, contextLines),
	}
}

// Diff computes the line changes from oldContent to newContent. Identical
// contents produce a Result with no hunks.
func (e *Engine) Diff(oldContent, newContent []byte) *Result {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	result := &Result{}
	if len(oldLines) == 0 && len(newLines) == 0 {
		return result
	}

	matcher := difflib.NewMatcher(oldLines, newLines)
	for _, group := range matcher.GetGroupedOpCodes(e.contextLines) {
		if !hasChange(group) {
			continue
		}
		hunk := newHunk(group, oldLines, newLines)
		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				result.Stats.Additions++
			case Deletion:
				result.Stats.Deletions++
			}
		}
		result.Hunks = append(result.Hunks, hunk)
	}
	return result
}

// splitLines returns the lines of content, each still ending in '\n'. A
// missing final newline is not reported as a change.
func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return difflib.SplitLines(strings.TrimSuffix(string(content), "\n"))
}

func hasChange(group []difflib.OpCode) bool {
	for _, op := range group {
		if op.Tag != 'e' {
			return true
		}
	}
	return false
}

// newHunk turns one group of opcodes into a hunk. A replacement lists its
// deletions before its additions.
func newHunk(group []difflib.OpCode, oldLines, newLines []string) Hunk {
	first, last := group[0], group[len(group)-1]

	h := Hunk{
		OldStart: first.I1,
		OldLines: last.I2 - first.I1,
		NewStart: first.J1,
		NewLines: last.J2 - first.J1,
	}
	if h.OldLines > 0 {
		h.OldStart++
	}
	if h.NewLines > 0 {
		h.NewStart++
	}

	for _, op := range group {
		switch op.Tag {
		case 'e':
			for i, j := op.I1, op.J1; i < op.I2; i, j = i+1, j+1 {
				h.Lines = append(h.Lines, Line{Type: Context, Content: trimEOL(oldLines[i]), OldNum: i + 1, NewNum: j + 1})
			}
		case 'r', 'd', 'i':
			for i := op.I1; i < op.I2; i++ {
				h.Lines = append(h.Lines, Line{Type: Deletion, Content: trimEOL(oldLines[i]), OldNum: i + 1})
			}
			for j := op.J1; j < op.J2; j++ {
				h.Lines = append(h.Lines, Line{Type: Addition, Content: trimEOL(newLines[j]), NewNum: j + 1})
			}
		}
	}
	return h
}

func trimEOL(line string) string {
	return strings.TrimSuffix(line, "\n")
}

// Empty reports whether the contents were identical
func (r *Result) Empty() bool {
	return len(r.Hunks) == 0
}

// Format returns a string representation of the preview
func (r *Result) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				buf.WriteString("+ ")
			case Deletion:
				buf.WriteString("- ")
			case Context:
				buf.WriteString("  ")
			}
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}

// sniffLen matches the prefix git inspects when deciding a blob is binary.
const sniffLen = 8000

// IsBinary reports whether content looks binary, in which case a line
// preview is meaningless.
func IsBinary(content []byte) bool {
	return bytes.IndexByte(content[:min(len(content), sniffLen)], 0) >= 0
}
