package ir

import "strings"

// IsPredeclaredName reports whether name is visible in every module without
// a declaration: predeclared types and type generators, builtin functions,
// texel formats, access modes and address spaces.
func IsPredeclaredName(name string) bool {
	if IsBuiltinFunction(name) || isTemplateWord(name) {
		return true
	}
	if _, ok := ParseAddressSpace(name); ok {
		return true
	}
	if _, ok := shorthandTypes[name]; ok {
		return true
	}
	switch name {
	case "bool", "i32", "u32", "f32", "f16",
		"array", "atomic", "ptr", "binding_array", "bitcast",
		"sampler", "sampler_comparison":
		return true
	}
	if len(name) == 4 && strings.HasPrefix(name, "vec") {
		return name[3] >= '2' && name[3] <= '4'
	}
	if len(name) == 6 && strings.HasPrefix(name, "mat") && name[4] == 'x' {
		return name[3] >= '2' && name[3] <= '4' && name[5] >= '2' && name[5] <= '4'
	}
	return isTextureName(name)
}

func isTextureName(name string) bool {
	rest, ok := strings.CutPrefix(name, "texture_")
	if !ok {
		return false
	}
	switch rest {
	case "external", "multisampled_2d", "depth_multisampled_2d":
		return true
	}
	rest = strings.TrimPrefix(rest, "storage_")
	rest = strings.TrimPrefix(rest, "depth_")
	_, ok = textureDims[rest]
	return ok
}
