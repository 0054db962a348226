package ir

import (
	"strconv"
)

// TypeHandle indexes a type in a TypeRegistry.
type TypeHandle uint32

// TypeRegistry interns resolved types so each distinct type is recorded
// once, in first-use order. A TypeResolver records every type it resolves
// in one.
type TypeRegistry struct {
	types   []Type
	typeMap map[string]TypeHandle
	keyBuf  []byte // reusable buffer for building type keys
}

// NewTypeRegistry creates an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types:   make([]Type, 0, 16),
		typeMap: make(map[string]TypeHandle, 16),
		keyBuf:  make([]byte, 0, 64),
	}
}

// GetOrCreate returns the handle of t, registering it and its component
// types when first seen.
func (r *TypeRegistry) GetOrCreate(t Type) TypeHandle {
	switch t := t.(type) {
	case VectorType:
		r.GetOrCreate(t.Scalar)
	case MatrixType:
		r.GetOrCreate(t.Scalar)
	case ArrayType:
		r.GetOrCreate(t.Base)
	case PointerType:
		r.GetOrCreate(t.Base)
	case AtomicType:
		r.GetOrCreate(t.Scalar)
	case *StructType:
		for _, m := range t.Members {
			r.GetOrCreate(m.Type)
		}
	}

	key := r.normalizeType(t)
	if handle, exists := r.typeMap[key]; exists {
		return handle
	}
	handle := TypeHandle(len(r.types))
	r.types = append(r.types, t)
	r.typeMap[key] = handle
	return handle
}

// GetTypes returns all registered types.
func (r *TypeRegistry) GetTypes() []Type {
	return r.types
}

// normalizeType creates a unique key for a type based on its structure.
// Structs are nominal and keyed by declaration.
func (r *TypeRegistry) normalizeType(t Type) string {
	b := r.keyBuf[:0]

	switch t := t.(type) {
	case ScalarType:
		b = append(b, "scalar:"...)
		b = strconv.AppendInt(b, int64(t.Kind), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Width), 10)
		r.keyBuf = b
		return string(b)

	case VectorType:
		// Recursive call clobbers keyBuf, so build with string concat.
		scalarKey := r.normalizeType(t.Scalar)
		return "vec:" + strconv.FormatUint(uint64(t.Size), 10) + ":" + scalarKey

	case MatrixType:
		scalarKey := r.normalizeType(t.Scalar)
		return "mat:" + strconv.FormatUint(uint64(t.Columns), 10) + "x" + strconv.FormatUint(uint64(t.Rows), 10) + ":" + scalarKey

	case ArrayType:
		sizeKey := "runtime"
		if !t.RuntimeSized() {
			sizeKey = strconv.FormatUint(uint64(t.Count), 10)
		}
		return "array:" + r.normalizeType(t.Base) + ":" + sizeKey + ":" + strconv.FormatUint(uint64(t.Stride), 10)

	case *StructType:
		return "struct:" + strconv.FormatUint(uint64(t.Decl), 10) + ":" + t.Name

	case PointerType:
		return "ptr:" + r.normalizeType(t.Base) + ":" + strconv.FormatInt(int64(t.Space), 10) + ":" + strconv.FormatInt(int64(t.Access), 10)

	case SamplerType:
		if t.Comparison {
			return "sampler:true"
		}
		return "sampler:false"

	case ImageType:
		return "image:" + t.String()

	case AtomicType:
		b = append(b, "atomic:"...)
		b = strconv.AppendInt(b, int64(t.Scalar.Kind), 10)
		b = append(b, ':')
		b = strconv.AppendUint(b, uint64(t.Scalar.Width), 10)
		r.keyBuf = b
		return string(b)
	}
	return "unknown"
}

// Lookup finds a type by its handle.
func (r *TypeRegistry) Lookup(handle TypeHandle) (Type, bool) {
	if int(handle) >= len(r.types) {
		return nil, false
	}
	return r.types[handle], true
}

// Count returns the number of unique types registered.
func (r *TypeRegistry) Count() int {
	return len(r.types)
}
