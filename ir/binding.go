package ir

import (
	"fmt"
	"strings"
)

// BindingKind describes how a caller-supplied resource is bound: the buffer
// class for buffers, the sampler flavour for samplers, the sample type for
// sampled textures and the access for storage textures.
type BindingKind uint8

const (
	BindingUniform BindingKind = iota
	BindingStorage
	BindingReadOnlyStorage
	BindingFiltering
	BindingNonFiltering
	BindingComparison
	BindingFloat
	BindingUnfilterableFloat
	BindingSint
	BindingUint
	BindingDepth
	BindingWriteOnly
	BindingReadWrite
	BindingReadOnly
)

var bindingKindNames = [...]string{
	"uniform",
	"storage",
	"read_only_storage",
	"filtering",
	"non_filtering",
	"comparison",
	"float",
	"unfilterable_float",
	"sint",
	"uint",
	"depth",
	"write_only",
	"read_write",
	"read_only",
}

func (k BindingKind) String() string {
	if int(k) < len(bindingKindNames) {
		return bindingKindNames[k]
	}
	return fmt.Sprintf("BindingKind(%d)", k)
}

// Valid reports whether k is one of the defined kinds.
func (k BindingKind) Valid() bool {
	return int(k) < len(bindingKindNames)
}

// Writable reports whether execution may write the binding's payload back.
func (k BindingKind) Writable() bool {
	return k == BindingStorage || k == BindingWriteOnly || k == BindingReadWrite
}

// IsBuffer reports whether the payload is interpreted as buffer memory.
func (k BindingKind) IsBuffer() bool {
	return k == BindingUniform || k == BindingStorage || k == BindingReadOnlyStorage
}

// ParseBindingKind parses a kind name; "-" and "_" are interchangeable.
func ParseBindingKind(s string) (BindingKind, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, n := range bindingKindNames {
		if n == norm {
			return BindingKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown binding kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k BindingKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid binding kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *BindingKind) UnmarshalText(text []byte) error {
	v, err := ParseBindingKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ResourceKinds returns the binding kinds compatible with a module-scope
// resource variable of type t declared in the given address space.
// Handle types ignore space and access.
func ResourceKinds(t Type, space AddressSpace, access AccessMode) []BindingKind {
	switch t := t.(type) {
	case SamplerType:
		if t.Comparison {
			return []BindingKind{BindingComparison}
		}
		return []BindingKind{BindingFiltering, BindingNonFiltering}

	case ImageType:
		switch t.Class {
		case ImageClassDepth:
			return []BindingKind{BindingDepth, BindingUnfilterableFloat}
		case ImageClassStorage:
			switch t.Access {
			case AccessWrite:
				return []BindingKind{BindingWriteOnly}
			case AccessRead:
				return []BindingKind{BindingReadOnly}
			}
			return []BindingKind{BindingReadWrite}
		}
		switch t.Sample.Kind {
		case ScalarSint:
			return []BindingKind{BindingSint}
		case ScalarUint:
			return []BindingKind{BindingUint}
		}
		return []BindingKind{BindingFloat, BindingUnfilterableFloat}
	}

	switch space {
	case SpaceUniform:
		return []BindingKind{BindingUniform}
	case SpaceStorage:
		if access == AccessRead {
			return []BindingKind{BindingReadOnlyStorage, BindingStorage}
		}
		return []BindingKind{BindingStorage}
	}
	return nil
}

// KindCompatible reports whether a caller-declared kind may bind to a
// resource variable of type t.
func KindCompatible(kind BindingKind, t Type, space AddressSpace, access AccessMode) bool {
	for _, k := range ResourceKinds(t, space, access) {
		if k == kind {
			return true
		}
	}
	return false
}
