package wesl

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/eval"
	"github.com/gogpu/wesl/generics"
	"github.com/gogpu/wesl/interp"
	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/lower"
	"github.com/gogpu/wesl/mangle"
	"github.com/gogpu/wesl/resolve"
	"github.com/gogpu/wesl/strip"
	"github.com/gogpu/wesl/wgsl"
)

// pipeline runs the stages of one compile, eval or exec call. Each stage
// takes a module and returns a new one.
type pipeline struct {
	files    map[string]string
	root     string
	opts     CompileOptions
	features Features
	parse    resolve.ParseFunc
	log      *zap.Logger

	warnings diag.List
}

func newPipeline(files map[string]string, root string, opts CompileOptions, features Features, parse resolve.ParseFunc) *pipeline {
	return &pipeline{
		files:    files,
		root:     root,
		opts:     opts,
		features: features,
		parse:    parse,
		log:      Logger(),
	}
}

// timed runs one stage, recording its duration.
func (p *pipeline) timed(stage string, fn func() (*ir.Module, error)) (*ir.Module, error) {
	start := time.Now()
	m, err := fn()
	elapsed := time.Since(start)
	observeStage(stage, elapsed.Seconds(), err)
	if ce := p.log.Check(zap.DebugLevel, "stage"); ce != nil {
		fields := []zap.Field{zap.String("stage", stage), zap.Duration("duration", elapsed)}
		if m != nil {
			fields = append(fields, zap.Int("decls", len(m.Decls)))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		ce.Write(fields...)
	}
	return m, err
}

// transform runs a stage that reports through a diagnostic list.
func (p *pipeline) transform(stage, message string, fn func() (*ir.Module, diag.List)) (*ir.Module, error) {
	return p.timed(stage, func() (*ir.Module, error) {
		m, diags := fn()
		for _, w := range diags.Warnings() {
			p.log.Warn(w.Title, zap.String("stage", stage), zap.String("file", w.File), zap.Int("offset", w.Start))
			p.warnings.Add(w)
		}
		if diags.HasErrors() {
			return nil, diag.NewError(stage, message, diags)
		}
		return m, nil
	})
}

// front resolves the sources and runs the stages shared by every path up
// to stripping. With expr set the expression is linked as a synthetic
// declaration, which is returned.
func (p *pipeline) front(expr wgsl.Expr) (*ir.Module, *ir.Decl, error) {
	src := resolve.NewSourceSet(p.files, p.root)
	if _, ok := src.Source(src.Root()); !ok {
		return nil, nil, diag.ErrorNoPos("resolve", "root file %q not found", p.root)
	}
	p.log.Debug("resolving", zap.String("root", src.Root()), zap.Int("files", len(p.files)))

	var exprDecl *ir.Decl
	m, err := p.timed("resolve", func() (*ir.Module, error) {
		m, d, err := resolve.ResolveExpression(src, resolve.Options{
			Imports:  p.opts.Imports,
			Lazy:     p.opts.Lazy,
			Condcomp: p.opts.Condcomp,
			Features: p.features,
			Parse:    p.parse,
		}, expr)
		exprDecl = d
		return m, err
	})
	if err != nil {
		return nil, nil, err
	}

	m, err = p.transform("generics", "generic instantiation failed", func() (*ir.Module, diag.List) {
		return generics.Instantiate(m, p.opts.Generics)
	})
	if err != nil {
		return nil, nil, err
	}

	m, err = p.transform("mangle", "name collision", func() (*ir.Module, diag.List) {
		return mangle.Mangle(m, mangle.Options{Strategy: p.opts.Mangler, MangleRoot: p.opts.MangleRoot})
	})
	if err != nil {
		return nil, nil, err
	}
	return m, exprDecl, nil
}

// back validates and lowers a stripped module.
func (p *pipeline) back(m *ir.Module, resources []ir.ResourceBinding) (*ir.Module, error) {
	var err error
	if p.opts.Validate {
		m, err = p.transform("validate", "validation failed", func() (*ir.Module, diag.List) {
			return m, ir.Validate(m, ir.ValidateOptions{
				Consts:    interp.NewEvaluator(m),
				Resources: resources,
			})
		})
		if err != nil {
			return nil, err
		}
	}
	if p.opts.Lower {
		m, err = p.transform("lower", "lowering failed", func() (*ir.Module, diag.List) {
			return lower.Lower(m, lower.Options{Naga: p.opts.Naga})
		})
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (p *pipeline) compile(keep []string) (*Output, error) {
	m, _, err := p.front(nil)
	if err != nil {
		return nil, err
	}
	if p.opts.Strip {
		m, err = p.transform("strip", "stripping failed", func() (*ir.Module, diag.List) {
			return strip.Strip(m, strip.Options{Keep: keep, KeepRoot: p.opts.KeepRoot})
		})
		if err != nil {
			return nil, err
		}
	}
	if m, err = p.back(m, nil); err != nil {
		return nil, err
	}

	start := time.Now()
	text, sm := lower.Emit(m, p.opts.SourceMap)
	observeStage("emit", time.Since(start).Seconds(), nil)
	p.log.Debug("compiled", zap.Int("bytes", len(text)), zap.Int("warnings", len(p.warnings)))
	return &Output{Text: text, SourceMap: sm, Warnings: p.warnings}, nil
}

func (p *pipeline) eval(text string) (string, error) {
	expr, perr := eval.Parse(text)
	if perr != nil {
		return "", perr
	}
	m, d, err := p.front(expr)
	if err != nil {
		return "", err
	}
	id := d.ID
	if p.opts.Strip {
		m = strip.Reachable(m, []wgsl.DeclID{id})
	}
	m, err = p.back(m, nil)
	if err != nil {
		return "", expressionError(err)
	}

	var value string
	_, err = p.timed("eval", func() (*ir.Module, error) {
		v, derr := eval.Render(m, id)
		if derr != nil {
			return nil, derr
		}
		value = v
		return m, nil
	})
	return value, err
}

// expressionError reports validation errors located in the expression
// itself as an eval failure.
func expressionError(err error) error {
	var de *Error
	if !errors.As(err, &de) || de.Source != "validate" {
		return err
	}
	var own diag.List
	for _, d := range de.Diagnostics {
		if d.File == eval.File {
			own.Add(d)
		}
	}
	if len(own) == 0 {
		return err
	}
	return diag.NewError("eval", "invalid expression", own)
}

func (p *pipeline) exec(entrypoint string, resources []Binding, overrides map[string]string) ([]Binding, error) {
	m, _, err := p.front(nil)
	if err != nil {
		return nil, err
	}
	if p.opts.Strip {
		m, err = p.timed("strip", func() (*ir.Module, error) {
			sm, serr := strip.Entrypoint(m, entrypoint)
			if serr != nil {
				return nil, serr
			}
			return sm, nil
		})
		if err != nil {
			return nil, err
		}
	}
	if m, err = p.back(m, resourceBindings(resources)); err != nil {
		return nil, err
	}

	var out []interp.Resource
	_, err = p.timed("exec", func() (*ir.Module, error) {
		var rerr error
		out, rerr = interp.Run(m, entrypoint, toResources(resources), interp.Options{Overrides: overrides})
		if rerr != nil {
			return nil, faultError(rerr)
		}
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return fromResources(out), nil
}

func faultError(err error) *Error {
	var f *interp.Fault
	if errors.As(err, &f) && f.Span.Source != "" {
		return diag.NewError("exec", "execution failed", diag.List{f.Diagnostic()})
	}
	return diag.ErrorNoPos("exec", "%v", err)
}

// asError returns err as an *Error, attributing foreign errors to source.
func asError(source string, err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return diag.ErrorNoPos(source, "%v", err)
}
