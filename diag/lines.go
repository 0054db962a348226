package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// LineIndex maps byte offsets of one file to 1-based line and column.
type LineIndex struct {
	text   string
	starts []int // byte offset of the first character of each line
}

// NewLineIndex indexes the line starts of text.
func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// Position returns the 1-based line and byte column of offset.
func (li *LineIndex) Position(offset int) (line, col int) {
	offset = clamp(offset, 0, len(li.text))
	i := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	return i + 1, offset - li.starts[i] + 1
}

// Line returns the text of a 1-based line without its newline.
func (li *LineIndex) Line(line int) string {
	if line < 1 || line > len(li.starts) {
		return ""
	}
	start := li.starts[line-1]
	end := len(li.text)
	if line < len(li.starts) {
		end = li.starts[line] - 1
	}
	return strings.TrimSuffix(li.text[start:end], "\r")
}

// PrettyOpts controls Pretty output.
type PrettyOpts struct {
	Color bool
}

// Pretty writes each diagnostic as
//
//	<file>:<line>:<col>: <severity>: <title>
//
// followed by the source line with the span underlined by ^~~~.
// Columns under wide characters are aligned by display width.
func Pretty(w io.Writer, diags []Diagnostic, files map[string]string, opts PrettyOpts) {
	sevColor := map[Severity]*color.Color{
		SevError:   color.New(color.FgRed, color.Bold),
		SevWarning: color.New(color.FgYellow, color.Bold),
		SevInfo:    color.New(color.FgCyan),
	}
	caret := color.New(color.FgGreen, color.Bold)
	if !opts.Color {
		for _, c := range sevColor {
			c.DisableColor()
		}
		caret.DisableColor()
	}

	indexes := map[string]*LineIndex{}
	for _, d := range diags {
		text, ok := files[d.File]
		if !ok {
			fmt.Fprintf(w, "%s: %s: %s\n", d.File, sevColor[d.Severity].Sprint(d.Severity), d.Title)
			continue
		}
		li := indexes[d.File]
		if li == nil {
			li = NewLineIndex(text)
			indexes[d.File] = li
		}

		line, col := li.Position(d.Start)
		fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", d.File, line, col, sevColor[d.Severity].Sprint(d.Severity), d.Title)

		src := li.Line(line)
		fmt.Fprintf(w, "%4d | %s\n", line, src)

		prefix := src[:min(col-1, len(src))]
		width := 1
		if endLine, endCol := li.Position(d.End); endLine == line && endCol > col {
			width = max(runewidth.StringWidth(src[col-1:min(endCol-1, len(src))]), 1)
		}
		marker := "^" + strings.Repeat("~", width-1)
		fmt.Fprintf(w, "     | %s%s\n", strings.Repeat(" ", runewidth.StringWidth(prefix)), caret.Sprint(marker))
	}
}

// FormatError renders an Error with Pretty and returns the text.
func FormatError(err *Error, files map[string]string, opts PrettyOpts) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", err.Source, err.Message)
	Pretty(&sb, err.Diagnostics, files, opts)
	return sb.String()
}
