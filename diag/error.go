package diag

import (
	"fmt"
	"strings"
)

// Error is the failure reported by compile, eval and exec: the stage that
// failed, a message and the positioned diagnostics behind it. An empty
// Diagnostics slice marks a non-positional failure such as a missing file.
type Error struct {
	Source      string       `json:"source" msgpack:"source"`
	Message     string       `json:"message" msgpack:"message"`
	Diagnostics []Diagnostic `json:"diagnostics" msgpack:"diagnostics"`
}

// NewError builds an Error from a stage name and the diagnostics it raised.
// Only error-severity diagnostics are kept.
func NewError(source, message string, diags List) *Error {
	errs := diags.Errors()
	errs.Sort()
	return &Error{Source: source, Message: message, Diagnostics: errs.Dedup()}
}

// ErrorNoPos builds a non-positional Error.
func ErrorNoPos(source, format string, args ...any) *Error {
	return &Error{Source: source, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Source)
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if len(e.Diagnostics) > 0 {
		d := e.Diagnostics[0]
		fmt.Fprintf(&sb, ": %s:%d: %s", d.File, d.Start, d.Title)
		if len(e.Diagnostics) > 1 {
			fmt.Fprintf(&sb, " (and %d more)", len(e.Diagnostics)-1)
		}
	}
	return sb.String()
}

// Files returns the distinct files named by the diagnostics, in order of
// first appearance.
func (e *Error) Files() []string {
	var out []string
	seen := map[string]bool{}
	for _, d := range e.Diagnostics {
		if !seen[d.File] {
			seen[d.File] = true
			out = append(out, d.File)
		}
	}
	return out
}
