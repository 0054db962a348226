package diag

import (
	"sort"
)

// Mapping ties a byte range of generated text to the declaration it came from.
type Mapping struct {
	GenStart int    `json:"gen_start"`
	GenEnd   int    `json:"gen_end"`
	File     string `json:"file"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Name     string `json:"name"` // original, unmangled name
}

// SourceMap maps generated text back to original files.
type SourceMap struct {
	Mappings []Mapping `json:"mappings"`
	// Names maps final (mangled) identifiers to their original names.
	Names map[string]string `json:"names"`
}

// NewSourceMap creates an empty sourcemap.
func NewSourceMap() *SourceMap {
	return &SourceMap{Names: map[string]string{}}
}

// Add records a mapping. Mappings must be added in generated-text order.
func (m *SourceMap) Add(mp Mapping) {
	m.Mappings = append(m.Mappings, mp)
}

// Lookup returns the mapping covering a byte offset of the generated text.
func (m *SourceMap) Lookup(genOffset int) (Mapping, bool) {
	i := sort.Search(len(m.Mappings), func(i int) bool { return m.Mappings[i].GenEnd > genOffset })
	if i < len(m.Mappings) && m.Mappings[i].GenStart <= genOffset {
		return m.Mappings[i], true
	}
	return Mapping{}, false
}

// Original returns the original name behind a generated identifier, or the
// identifier itself when it was not renamed.
func (m *SourceMap) Original(name string) string {
	if m == nil {
		return name
	}
	if orig, ok := m.Names[name]; ok {
		return orig
	}
	return name
}
