// Command weslc is the WESL compiler CLI.
//
// Usage:
//
//	weslc [global options] <command> [args]
//
// Examples:
//
//	weslc compile main.wesl                         # Link and print WGSL
//	weslc compile -o out.wgsl --sourcemap out.map   # Write output and a sourcemap
//	weslc eval 'package::lib::scale * 2'            # Evaluate a constant
//	weslc exec main --resources in.msgpack          # Run an entrypoint
//
// Sources are the .wesl and .wgsl files under --dir. A wesl.toml in that
// directory supplies defaults for the root file, options, features, keep
// set and overrides; flags take precedence.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gogpu/wesl"
	"github.com/gogpu/wesl/diag"
)

// errReported marks an error whose diagnostics were already printed.
var errReported = errors.New("reported")

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// cli holds the global flags and the project loaded from them.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	dir        string
	root       string
	config     string
	mangler    string
	colorMode  string
	verbose    bool
	features   []string
	optionSets map[string]*bool

	project *project
}

// optionFlags maps each boolean flag to its CompileOptions field.
var optionFlags = []struct {
	name  string
	usage string
	field func(*wesl.CompileOptions) *bool
}{
	{"imports", "resolve import statements", func(o *wesl.CompileOptions) *bool { return &o.Imports }},
	{"condcomp", "apply @if/@elif/@else", func(o *wesl.CompileOptions) *bool { return &o.Condcomp }},
	{"generics", "instantiate generics", func(o *wesl.CompileOptions) *bool { return &o.Generics }},
	{"strip", "remove unreachable declarations", func(o *wesl.CompileOptions) *bool { return &o.Strip }},
	{"lower", "lower to plain WGSL", func(o *wesl.CompileOptions) *bool { return &o.Lower }},
	{"validate", "run semantic checks", func(o *wesl.CompileOptions) *bool { return &o.Validate }},
	{"naga", "emit WGSL naga accepts", func(o *wesl.CompileOptions) *bool { return &o.Naga }},
	{"lazy", "load imported modules on first use", func(o *wesl.CompileOptions) *bool { return &o.Lazy }},
	{"keep-root", "keep every root declaration when stripping", func(o *wesl.CompileOptions) *bool { return &o.KeepRoot }},
	{"mangle-root", "mangle root declarations", func(o *wesl.CompileOptions) *bool { return &o.MangleRoot }},
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr, optionSets: map[string]*bool{}}
	cmd := &cobra.Command{
		Use:           "weslc",
		Short:         "WESL shader compiler and interpreter",
		Version:       wesl.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.PersistentFlags()
	flags.StringVarP(&c.dir, "dir", "C", ".", "directory holding the sources")
	flags.StringVar(&c.root, "root", "", "root file relative to --dir (default from wesl.toml, else main.wesl)")
	flags.StringVar(&c.config, "config", "", "manifest path (default <dir>/wesl.toml when present)")
	flags.StringVar(&c.mangler, "mangler", "", "mangling strategy (escape|hash|none)")
	flags.StringArrayVarP(&c.features, "feature", "f", nil, "set a feature: name or name=false (repeatable)")
	flags.StringVar(&c.colorMode, "color", "auto", "colorize diagnostics (auto|on|off)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log pipeline stages")
	for _, of := range optionFlags {
		c.optionSets[of.name] = flags.Bool(of.name, false, of.usage)
	}

	cmd.AddCommand(c.compileCommand(), c.evalCommand(), c.execCommand(), c.versionCommand())
	return cmd
}

// setup loads the manifest and sources and applies the global flags.
func (c *cli) setup(cmd *cobra.Command) error {
	switch c.colorMode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			color.NoColor = true
		}
	default:
		return fmt.Errorf("invalid --color %q", c.colorMode)
	}

	if c.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		wesl.SetLogger(l)
	}

	if cmd.Name() == "version" {
		return nil
	}

	p, err := loadProject(c.dir, c.config)
	if err != nil {
		return err
	}
	if c.root != "" {
		p.Root = c.root
	}
	if c.mangler != "" {
		if err := p.Options.Mangler.UnmarshalText([]byte(c.mangler)); err != nil {
			return fmt.Errorf("--mangler: %w", err)
		}
	}
	flags := cmd.Flags()
	for _, of := range optionFlags {
		if flags.Changed(of.name) {
			*of.field(&p.Options) = *c.optionSets[of.name]
		}
	}
	if err := p.setFeatures(c.features); err != nil {
		return err
	}
	c.project = p
	return nil
}

// report prints a failed operation with source excerpts.
func (c *cli) report(err error) error {
	var de *wesl.Error
	if !errors.As(err, &de) {
		return err
	}
	fmt.Fprint(c.stderr, diag.FormatError(de, c.project.Files, diag.PrettyOpts{Color: !color.NoColor}))
	return errReported
}

// warn prints non-fatal diagnostics.
func (c *cli) warn(ws []wesl.Diagnostic) {
	if len(ws) > 0 {
		diag.Pretty(c.stderr, ws, c.project.Files, diag.PrettyOpts{Color: !color.NoColor})
	}
}
