package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/wesl"
)

const manifestName = "wesl.toml"

// project is everything a command needs besides its own arguments.
type project struct {
	Dir       string
	Root      string
	Files     map[string]string
	Options   wesl.CompileOptions
	Features  wesl.Features
	Keep      []string
	Overrides map[string]string
}

type manifest struct {
	Package   packageConfig       `toml:"package"`
	Options   wesl.CompileOptions `toml:"options"`
	Features  map[string]bool     `toml:"features"`
	Compile   compileConfig       `toml:"compile"`
	Overrides map[string]string   `toml:"overrides"`
}

type packageConfig struct {
	Root string `toml:"root"`
	Dir  string `toml:"dir"`
}

type compileConfig struct {
	Keep []string `toml:"keep"`
}

// loadProject reads the manifest, if any, and the sources it points at.
func loadProject(dir, config string) (*project, error) {
	p := &project{
		Dir:       dir,
		Root:      "main.wesl",
		Options:   wesl.DefaultOptions(),
		Features:  wesl.Features{},
		Overrides: map[string]string{},
	}
	if config == "" {
		candidate := filepath.Join(dir, manifestName)
		if _, err := os.Stat(candidate); err == nil {
			config = candidate
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
	}
	if config != "" {
		if err := p.applyManifest(config); err != nil {
			return nil, err
		}
	}

	files, err := loadSources(context.Background(), p.Dir)
	if err != nil {
		return nil, err
	}
	p.Files = files
	return p, nil
}

func (p *project) applyManifest(path string) error {
	m := manifest{Options: p.Options}
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if meta.IsDefined("package", "root") {
		if strings.TrimSpace(m.Package.Root) == "" {
			return fmt.Errorf("%s: [package].root is empty", path)
		}
		p.Root = m.Package.Root
	}
	if meta.IsDefined("package", "dir") {
		// Relative to the manifest.
		p.Dir = filepath.Join(filepath.Dir(path), filepath.FromSlash(m.Package.Dir))
	}
	p.Options = m.Options
	for k, v := range m.Features {
		p.Features[k] = v
	}
	p.Keep = m.Compile.Keep
	for k, v := range m.Overrides {
		p.Overrides[k] = v
	}
	return nil
}

// setFeatures applies "name" and "name=bool" flags.
func (p *project) setFeatures(args []string) error {
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		on := true
		if ok {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("--feature %s: %w", arg, err)
			}
			on = b
		}
		if name == "" {
			return fmt.Errorf("--feature %q: empty name", arg)
		}
		p.Features[name] = on
	}
	return nil
}

// setOverrides applies "name=value" flags.
func (p *project) setOverrides(args []string) error {
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return fmt.Errorf("--override %q: want name=value", arg)
		}
		p.Overrides[name] = value
	}
	return nil
}

// loadSources reads every .wesl and .wgsl file under dir. Keys are paths
// relative to dir with forward slashes.
func loadSources(ctx context.Context, dir string) (map[string]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if ext := filepath.Ext(path); ext == ".wesl" || ext == ".wgsl" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var mu sync.Mutex
	files := make(map[string]string, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading source: %w", err)
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			mu.Lock()
			files[filepath.ToSlash(rel)] = string(data)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
