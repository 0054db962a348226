package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gogpu/wesl"
)

func (c *cli) compileCommand() *cobra.Command {
	var (
		output    string
		sourcemap string
		keep      []string
		result    bool
	)
	cmd := &cobra.Command{
		Use:   "compile [root]",
		Short: "Link the sources into one WGSL module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.project
			if len(args) == 1 {
				p.Root = args[0]
			}
			if len(keep) > 0 {
				p.Keep = keep
			}
			if sourcemap != "" {
				p.Options.SourceMap = true
			}

			out, err := wesl.Compile(p.Files, p.Root, p.Options, p.Keep, p.Features)
			if result {
				return writeMsgpack(c, output, wesl.NewResult(out, err))
			}
			if err != nil {
				return c.report(err)
			}
			c.warn(out.Warnings)

			if sourcemap != "" {
				data, err := json.MarshalIndent(out.SourceMap, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding sourcemap: %w", err)
				}
				if err := os.WriteFile(sourcemap, data, 0o644); err != nil {
					return fmt.Errorf("writing sourcemap: %w", err)
				}
			}
			if output == "" {
				_, err = fmt.Fprint(c.stdout, out.Text)
				return err
			}
			if err := os.WriteFile(output, []byte(out.Text), 0o644); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&sourcemap, "sourcemap", "", "write a JSON sourcemap to this file")
	cmd.Flags().StringArrayVarP(&keep, "keep", "k", nil, "declaration to keep when stripping (repeatable)")
	cmd.Flags().BoolVar(&result, "result", false, "write the msgpack-encoded result instead of text")
	return cmd
}

func (c *cli) evalCommand() *cobra.Command {
	var result bool
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate a constant expression in the root module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.project
			v, err := wesl.Eval(p.Files, p.Root, args[0], p.Options, p.Features)
			if result {
				return writeMsgpack(c, "", wesl.NewEvalResult(v, err))
			}
			if err != nil {
				p.Files["<expression>"] = args[0]
				return c.report(err)
			}
			_, err = fmt.Fprintln(c.stdout, v)
			return err
		},
	}
	cmd.Flags().BoolVar(&result, "result", false, "write the msgpack-encoded result instead of text")
	return cmd
}

func (c *cli) execCommand() *cobra.Command {
	var (
		resources string
		output    string
		overrides []string
	)
	cmd := &cobra.Command{
		Use:   "exec <entrypoint>",
		Short: "Run an entrypoint against msgpack-encoded resources",
		Long: "Run an entrypoint in software. --resources names a msgpack array of\n" +
			"{group, binding, kind, data} maps. With --output the msgpack-encoded\n" +
			"result is written there; otherwise each resulting binding is printed\n" +
			"in hex.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.project
			if err := p.setOverrides(overrides); err != nil {
				return err
			}
			var in []wesl.Binding
			if resources != "" {
				data, err := os.ReadFile(resources)
				if err != nil {
					return fmt.Errorf("reading resources: %w", err)
				}
				if err := msgpack.Unmarshal(data, &in); err != nil {
					return fmt.Errorf("decoding resources: %w", err)
				}
			}

			out, err := wesl.Exec(p.Files, p.Root, args[0], p.Options, in, p.Overrides, p.Features)
			if output != "" {
				if werr := writeMsgpack(c, output, wesl.NewExecResult(out, err)); werr != nil {
					return werr
				}
			}
			if err != nil {
				return c.report(err)
			}
			if output == "" {
				for _, b := range out {
					fmt.Fprintf(c.stdout, "@group(%d) @binding(%d) %s: %s\n", b.Group, b.Binding, b.Kind, hex.EncodeToString(b.Data))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&resources, "resources", "r", "", "msgpack file holding the bindings")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the msgpack-encoded result to this file")
	cmd.Flags().StringArrayVar(&overrides, "override", nil, "override value as name=value (repeatable)")
	return cmd
}

func (c *cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the compiler version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(c.stdout, "weslc version %s\n", wesl.Version())
			return err
		},
	}
}

// writeMsgpack encodes v to path, or to stdout when path is empty.
func writeMsgpack(c *cli, path string, v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if path == "" {
		_, err = c.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}
