// Package mangle assigns the emitted identifier of every declaration of a
// flattened module.
//
// Declarations from different modules may share a short name, so the
// emitted name is derived from the qualified name under one of three
// strategies. Root declarations keep their short name unless MangleRoot is
// set, which lets callers refer to entrypoints and resources by the names
// they wrote.
package mangle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/ir"
)

// Strategy selects how qualified names become identifiers. The numeric
// values are part of the public options encoding.
type Strategy uint8

const (
	// StrategyEscape joins path components and escapes special characters;
	// names can be decoded with Demangle.
	StrategyEscape Strategy = iota
	// StrategyHash emits "_" followed by 16 hex digits of a SHA-256 over the
	// qualified name.
	StrategyHash
	// StrategyNone emits short names as written. Collisions are left to
	// the validator.
	StrategyNone
)

var strategyNames = [...]string{"escape", "hash", "none"}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", s)
}

// ParseStrategy parses "escape", "hash" or "none".
func ParseStrategy(s string) (Strategy, error) {
	for i, n := range strategyNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mangler %q (want escape, hash or none)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if int(s) >= len(strategyNames) {
		return nil, fmt.Errorf("invalid mangler %d", s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Options configures Mangle.
type Options struct {
	Strategy   Strategy
	MangleRoot bool
}

// Name returns the emitted identifier for d.
func Name(d *ir.Decl, opts Options) string {
	if d.ShortName == "" || d.Synthetic {
		return d.Name
	}
	if opts.Strategy == StrategyNone || (d.Root && !opts.MangleRoot) {
		if d.Instance {
			return EscapeComponent(d.ShortName)
		}
		return d.ShortName
	}
	switch opts.Strategy {
	case StrategyHash:
		return Hash(d.QualifiedName())
	default:
		return Escape(d.QualifiedName())
	}
}

// Hash returns the hash-strategy identifier of a qualified name.
func Hash(qualified string) string {
	sum := sha256.Sum256([]byte(qualified))
	return "_" + hex.EncodeToString(sum[:8])
}

// Mangle returns a copy of m whose declarations carry their emitted names.
// The AST is shared with m; names reach it when the module is lowered.
//
// Under the escape and hash strategies two declarations ending up with the
// same identifier is an error, which can only happen when an unmangled root
// name equals a mangled one. Under StrategyNone duplicates are reported by
// the validator instead.
func Mangle(m *ir.Module, opts Options) (*ir.Module, diag.List) {
	var diags diag.List
	decls := make([]*ir.Decl, len(m.Decls))
	owner := make(map[string]*ir.Decl, len(m.Decls))
	for i, d := range m.Decls {
		dc := *d
		dc.Name = Name(d, opts)
		decls[i] = &dc
		if dc.ShortName == "" || opts.Strategy == StrategyNone {
			continue
		}
		if prev, ok := owner[dc.Name]; ok {
			diags.Errorf(dc.Span(), "%s and %s both mangle to %s",
				prev.QualifiedName(), dc.QualifiedName(), dc.Name)
			continue
		}
		owner[dc.Name] = &dc
	}
	return m.Replace(decls), diags
}

// Names returns the emitted-to-qualified name table of a mangled module,
// used for sourcemaps and for reporting original names.
func Names(m *ir.Module) map[string]string {
	out := make(map[string]string, len(m.Decls))
	for _, d := range m.Decls {
		if d.ShortName != "" {
			out[d.Name] = d.QualifiedName()
		}
	}
	return out
}
