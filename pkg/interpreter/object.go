package interpreter

import (
	"bcvm/pkg/bytecode"
)

// Namespace maps names to values. Frames share a globals Namespace by
// holding the same map.
type Namespace map[string]Value

// Function is a callable built by MAKE_FUNCTION.
type Function struct {
	Name       string
	QualName   string
	Code       *bytecode.Code
	Defaults   []Value
	KwDefaults *Dict
	Globals    Namespace
}

// Builtin is a callable implemented in Go.
type Builtin struct {
	Name string
	Fn   func(vm *VM, args []Value, kw []Kwarg) (Value, error)
}

// Kwarg is one keyword argument of a call, in call-site order.
type Kwarg struct {
	Name  string
	Value Value
}

// BoundMethod pairs a callable with the receiver passed as its first
// argument.
type BoundMethod struct {
	Self Value
	Fn   Value
}

// Class is a user class or an exception class.
type Class struct {
	Name    string
	Bases   []*Class
	Attrs   Namespace
	builtin bool
	exc     bool
	vm      *VM // runs special methods reached without a VM at hand
}

// Instance is an object of a user class. Exception instances also carry
// their constructor arguments and the chained cause.
type Instance struct {
	Class *Class
	Attrs Namespace
	Args  []Value
	Cause *Instance
}

func NewFunctionValue(fn *Function) Value {
	return Value{Kind: KindFunction, Ref: fn}
}

func NewBuiltin(name string, fn func(vm *VM, args []Value, kw []Kwarg) (Value, error)) Value {
	return Value{Kind: KindBuiltin, Ref: &Builtin{Name: name, Fn: fn}}
}

func newBoundMethod(self, fn Value) Value {
	return Value{Kind: KindBoundMethod, Ref: &BoundMethod{Self: self, Fn: fn}}
}

func classValue(c *Class) Value {
	if c.exc {
		return Value{Kind: KindExcClass, Ref: c}
	}
	return Value{Kind: KindClass, Ref: c}
}

// mro returns the class followed by its bases, depth first, left to right,
// each class once.
func (c *Class) mro() []*Class {
	var out []*Class
	seen := make(map[*Class]bool)
	var walk func(*Class)
	walk = func(k *Class) {
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, k)
		for _, b := range k.Bases {
			walk(b)
		}
	}
	walk(c)
	return out
}

// Lookup finds an attribute on the class or one of its bases.
func (c *Class) Lookup(name string) (Value, bool) {
	for _, k := range c.mro() {
		if v, ok := k.Attrs[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// IsSubclass reports whether c is other or derives from it.
func (c *Class) IsSubclass(other *Class) bool {
	for _, k := range c.mro() {
		if k == other {
			return true
		}
	}
	return false
}

func (c *Class) qualName() string {
	if c.builtin {
		return c.Name
	}
	return "__main__." + c.Name
}
