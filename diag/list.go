package diag

import (
	"sort"

	"github.com/gogpu/wesl/wgsl"
)

// List accumulates diagnostics from one or more stages.
type List []Diagnostic

// Add appends a diagnostic.
func (l *List) Add(d Diagnostic) {
	*l = append(*l, d)
}

// Errorf appends an error diagnostic at span.
func (l *List) Errorf(span wgsl.Span, format string, args ...any) {
	l.Add(Errorf(span, format, args...))
}

// Warningf appends a warning diagnostic at span.
func (l *List) Warningf(span wgsl.Span, format string, args ...any) {
	l.Add(Warningf(span, format, args...))
}

// Append adds every diagnostic of other.
func (l *List) Append(other List) {
	*l = append(*l, other...)
}

// HasErrors reports whether any diagnostic has error severity.
func (l List) HasErrors() bool {
	for i := range l {
		if l[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (l List) Errors() List {
	var out List
	for _, d := range l {
		if d.Severity >= SevError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnostics.
func (l List) Warnings() List {
	var out List
	for _, d := range l {
		if d.Severity == SevWarning {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders diagnostics by file, start, end, severity (errors first) and
// title so output is deterministic.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		di, dj := l[i], l[j]
		if di.File != dj.File {
			return di.File < dj.File
		}
		if di.Start != dj.Start {
			return di.Start < dj.Start
		}
		if di.End != dj.End {
			return di.End < dj.End
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Title < dj.Title
	})
}

// Dedup drops exact repeats, keeping the first occurrence.
func (l List) Dedup() List {
	seen := make(map[Diagnostic]bool, len(l))
	out := make(List, 0, len(l))
	for _, d := range l {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// Clamp forces every span inside the bounds of its file's text.
// Diagnostics naming a file absent from files collapse to an empty span at 0.
func (l List) Clamp(files map[string]string) {
	for i := range l {
		n := len(files[l[i].File])
		l[i].Start = clamp(l[i].Start, 0, n)
		l[i].End = clamp(l[i].End, l[i].Start, n)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
