package generics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/wesl/ir"
	"github.com/gogpu/wesl/wgsl"
)

// argument is one evaluated template argument.
type argument struct {
	key   string    // canonical text used for deduplication and naming
	typ   wgsl.Type // type parameters
	value *wgsl.Literal
}

func (in *instantiator) argument(p *wgsl.TemplateParam, arg wgsl.Type) (argument, error) {
	if p.Type == nil {
		return in.typeArgument(arg)
	}
	return in.constArgument(p, arg)
}

func (in *instantiator) typeArgument(arg wgsl.Type) (argument, error) {
	if _, ok := arg.(*wgsl.ConstArg); ok {
		return argument{}, fmt.Errorf("%s is not a type", wgsl.FormatType(arg))
	}
	t, err := in.types.Resolve(arg)
	if err != nil {
		return argument{}, err
	}
	return argument{key: in.typeKey(t), typ: arg}, nil
}

func (in *instantiator) constArgument(p *wgsl.TemplateParam, arg wgsl.Type) (argument, error) {
	var e wgsl.Expr
	switch a := arg.(type) {
	case *wgsl.ConstArg:
		e = a.Value
	case *wgsl.NamedType:
		if len(a.TypeParams) > 0 || a.Ref == wgsl.NoDecl {
			return argument{}, fmt.Errorf("%s is not a constant", wgsl.FormatType(arg))
		}
		e = &wgsl.Ident{Name: a.Name, Ref: a.Ref, Span: a.Span}
	default:
		return argument{}, fmt.Errorf("%s is not a constant", wgsl.FormatType(arg))
	}

	pt, err := in.types.Resolve(p.Type)
	if err != nil {
		return argument{}, err
	}
	v, err := ir.EvalConstInt(in.module, e)
	if err != nil {
		return argument{}, err
	}

	text := strconv.FormatInt(v, 10)
	switch pt {
	case ir.U32:
		if v < 0 || v > 0xFFFFFFFF {
			return argument{}, fmt.Errorf("%d does not fit in u32", v)
		}
		text += "u"
	case ir.I32:
		if v < -1<<31 || v > 1<<31-1 {
			return argument{}, fmt.Errorf("%d does not fit in i32", v)
		}
		text += "i"
	default:
		return argument{}, fmt.Errorf("const parameter %s must be i32 or u32, not %s", p.Name, pt)
	}
	lit := &wgsl.Literal{Kind: wgsl.TokenIntLiteral, Value: text, Span: arg.Pos()}
	return argument{key: strconv.FormatInt(v, 10), value: lit}, nil
}

// typeKey renders a type so that distinct types get distinct keys. Structs
// are named by module-relative path so that equally named structs of
// different modules stay apart.
func (in *instantiator) typeKey(t ir.Type) string {
	switch t := t.(type) {
	case *ir.StructType:
		if d := in.module.Decl(t.Decl); d != nil {
			return strings.TrimPrefix(d.QualifiedName(), "package::")
		}
		return t.Name
	case ir.ArrayType:
		if t.RuntimeSized() {
			return "array<" + in.typeKey(t.Base) + ">"
		}
		return fmt.Sprintf("array<%s,%d>", in.typeKey(t.Base), t.Count)
	case ir.PointerType:
		return fmt.Sprintf("ptr<%s,%s,%s>", t.Space, in.typeKey(t.Base), t.Access)
	}
	return strings.ReplaceAll(ir.TypeName(t), " ", "")
}

// substitution replaces template parameters in a cloned generic body.
func substitution(subst map[string]argument) wgsl.Rewriter {
	var rw wgsl.Rewriter
	rw.Type = func(t wgsl.Type) wgsl.Type {
		nt, ok := t.(*wgsl.NamedType)
		if !ok || !nt.TemplateParam {
			return nil
		}
		a, ok := subst[nt.Name]
		if !ok {
			return nil
		}
		if a.typ != nil {
			return wgsl.CloneType(a.typ)
		}
		return &wgsl.ConstArg{Value: wgsl.CloneExpr(a.value), Span: nt.Span}
	}
	rw.Expr = func(e wgsl.Expr) wgsl.Expr {
		switch e := e.(type) {
		case *wgsl.Ident:
			if a, ok := subst[e.Name]; ok && e.TemplateParam && a.value != nil {
				lit := *a.value
				lit.Span = e.Span
				return &lit
			}
		case *wgsl.CallExpr:
			// T(x) with a type parameter T is a conversion.
			if a, ok := subst[e.Func.Name]; ok && e.Func.TemplateParam && a.typ != nil {
				args := make([]wgsl.Expr, len(e.Args))
				for i, arg := range e.Args {
					args[i] = wgsl.CloneExprWith(arg, rw)
				}
				return &wgsl.ConstructExpr{Type: wgsl.CloneType(a.typ), Args: args, Span: e.Span}
			}
		}
		return nil
	}
	return rw
}
