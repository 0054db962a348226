package resolve

import (
	"path"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Extensions are tried in order when a module path is mapped to a file.
var Extensions = []string{".wesl", ".wgsl"}

// NormalizePath converts a virtual file path to its canonical form:
// forward slashes, no leading "./", cleaned, Unicode NFC.
func NormalizePath(p string) string {
	p = norm.NFC.String(p)
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	if p == "." {
		return ""
	}
	return p
}

// SourceSet is a normalised set of virtual files.
type SourceSet struct {
	files map[string]string
	dir   string // package root: the directory of the root file
	root  string
}

// NewSourceSet normalises the keys of files. When two keys normalise to the
// same path the lexically first original key wins.
func NewSourceSet(files map[string]string, root string) *SourceSet {
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := &SourceSet{files: make(map[string]string, len(files))}
	for _, k := range keys {
		n := NormalizePath(k)
		if _, dup := s.files[n]; !dup {
			s.files[n] = files[k]
		}
	}
	s.root = NormalizePath(root)
	s.dir = path.Dir(s.root)
	if s.dir == "." {
		s.dir = ""
	}
	return s
}

// Root returns the normalised root path.
func (s *SourceSet) Root() string { return s.root }

// Source returns the text of a file.
func (s *SourceSet) Source(file string) (string, bool) {
	src, ok := s.files[file]
	return src, ok
}

// Files returns the normalised file paths, sorted.
func (s *SourceSet) Files() []string {
	out := make([]string, 0, len(s.files))
	for k := range s.files {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Map returns the normalised path to source mapping. It must not be
// modified.
func (s *SourceSet) Map() map[string]string { return s.files }

// ModuleSegments returns the module path of a file relative to the
// package root, e.g. "shaders/lib/util.wesl" -> [lib util].
func (s *SourceSet) ModuleSegments(file string) []string {
	rel := file
	if s.dir != "" {
		rel = strings.TrimPrefix(file, s.dir+"/")
	}
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	if rel == "" {
		return nil
	}
	return strings.Split(rel, "/")
}

// ModulePath returns the qualified module name of a file. The root file is
// always "package".
func (s *SourceSet) ModulePath(file string) string {
	if file == s.root {
		return "package"
	}
	return QualifiedName(s.ModuleSegments(file))
}

// QualifiedName joins package-relative segments into "package::a::b".
func QualifiedName(segments []string) string {
	return strings.Join(append([]string{"package"}, segments...), "::")
}

// FindModule maps package-relative segments to the file of the longest
// prefix naming an existing module. It returns the file and the segments
// left over after that prefix.
func (s *SourceSet) FindModule(segments []string) (file string, rest []string, ok bool) {
	for n := len(segments); n > 0; n-- {
		base := strings.Join(segments[:n], "/")
		if s.dir != "" {
			base = s.dir + "/" + base
		}
		for _, ext := range Extensions {
			if _, exists := s.files[base+ext]; exists {
				return base + ext, segments[n:], true
			}
		}
	}
	return "", nil, false
}
