// Package diag holds positioned diagnostics, the aggregate error returned by
// every compiler stage, and the sourcemap built alongside generated text.
package diag

import (
	"fmt"

	"github.com/gogpu/wesl/wgsl"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning never fails a compilation.
	SevWarning
	// SevError fails the stage that reported it.
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// Diagnostic is a titled, half-open byte range [Start, End) in one file.
type Diagnostic struct {
	File     string   `json:"file" msgpack:"file"`
	Start    int      `json:"start" msgpack:"start"`
	End      int      `json:"end" msgpack:"end"`
	Title    string   `json:"title" msgpack:"title"`
	Severity Severity `json:"severity" msgpack:"severity"`
}

// New creates a diagnostic covering an AST span.
func New(sev Severity, span wgsl.Span, title string) Diagnostic {
	return Diagnostic{
		File:     span.Source,
		Start:    span.Start.Offset,
		End:      span.End.Offset,
		Title:    title,
		Severity: sev,
	}
}

// Errorf creates an error diagnostic covering an AST span.
func Errorf(span wgsl.Span, format string, args ...any) Diagnostic {
	return New(SevError, span, fmt.Sprintf(format, args...))
}

// Warningf creates a warning diagnostic covering an AST span.
func Warningf(span wgsl.Span, format string, args ...any) Diagnostic {
	return New(SevWarning, span, fmt.Sprintf(format, args...))
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d-%d: %s: %s", d.File, d.Start, d.End, d.Severity, d.Title)
}

// FromSourceErrors converts parser errors into error diagnostics.
func FromSourceErrors(errs wgsl.SourceErrors) List {
	out := make(List, 0, len(errs))
	for _, e := range errs {
		out = append(out, New(SevError, e.Span, e.Message))
	}
	return out
}
