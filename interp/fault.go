package interp

import (
	"fmt"

	"github.com/gogpu/wesl/diag"
	"github.com/gogpu/wesl/wgsl"
)

// FaultCode identifies the kind of runtime failure. Values are stable.
type FaultCode int

const (
	FaultOutOfBounds      FaultCode = 2001 // index outside an array, vector or matrix
	FaultDivisionByZero   FaultCode = 2002 // integer division by zero in a constant expression
	FaultOverflow         FaultCode = 2003 // constant expression overflows its type
	FaultTypeMismatch     FaultCode = 2004 // operands the validator would have rejected
	FaultNotConstant      FaultCode = 2005 // runtime state read while evaluating a constant
	FaultUnsupported      FaultCode = 2006 // operation without a software model, e.g. texel access
	FaultBarrier          FaultCode = 2007 // barrier not reached by every invocation
	FaultAssertion        FaultCode = 2008 // const_assert evaluated to false
	FaultStepLimit        FaultCode = 2009 // execution exceeded the step budget
	FaultStackOverflow    FaultCode = 2010 // call depth exceeded
	FaultUnresolved       FaultCode = 2011 // reference to something that does not exist
	FaultMissingOverride  FaultCode = 2012 // override without initializer and value
	FaultInvalidArgument  FaultCode = 2013 // builtin argument outside its domain
	FaultInvalidOperation FaultCode = 2014 // e.g. storing through a read-only reference
)

// String returns the code as "E2001".
func (c FaultCode) String() string {
	return fmt.Sprintf("E%d", c)
}

// Fault is a runtime failure of the interpreter. Faults are raised by
// panicking inside the interpreter and recovered where an invocation or
// constant evaluation starts.
type Fault struct {
	Code    FaultCode
	Message string
	Span    wgsl.Span
	// Invocation is the local invocation index that faulted, or -1.
	Invocation int
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Diagnostic returns the fault as a positioned error diagnostic.
func (f *Fault) Diagnostic() diag.Diagnostic {
	title := f.Message
	if f.Invocation >= 0 {
		title = fmt.Sprintf("%s (invocation %d)", f.Message, f.Invocation)
	}
	return diag.Errorf(f.Span, "%s: %s", f.Code, title)
}

func faultf(span wgsl.Span, code FaultCode, format string, args ...any) {
	panic(&Fault{Code: code, Message: fmt.Sprintf(format, args...), Span: span, Invocation: -1})
}

// catch converts a recovered Fault into an error and re-panics anything
// else.
func catch(err *error) {
	if r := recover(); r != nil {
		f, ok := r.(*Fault)
		if !ok {
			panic(r)
		}
		*err = f
	}
}
