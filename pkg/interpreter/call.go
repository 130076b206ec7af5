package interpreter

import (
	"fmt"
	"strings"

	"bcvm/pkg/bytecode"
)

// MAKE_FUNCTION flag bits.
const (
	makeDefaults    = 0x01
	makeKwDefaults  = 0x02
	makeAnnotations = 0x04
	makeClosure     = 0x08
)

// call invokes any callable value.
func (vm *VM) call(fn Value, args []Value, kw []Kwarg) (Value, error) {
	switch fn.Kind {
	case KindFunction:
		return vm.callFunction(fn.Func(), args, kw)
	case KindBuiltin:
		return fn.Ref.(*Builtin).Fn(vm, args, kw)
	case KindBoundMethod:
		m := fn.Ref.(*BoundMethod)
		return vm.call(m.Fn, append([]Value{m.Self}, args...), kw)
	case KindClass:
		return vm.instantiate(fn.Class(), args, kw)
	case KindExcClass:
		return vm.instantiateException(fn.Class(), args, kw)
	case KindInstance:
		if m, ok := fn.Instance().Class.Lookup("__call__"); ok {
			return vm.call(m, append([]Value{fn}, args...), kw)
		}
	}
	return Value{}, newTypeError("'%s' object is not callable", fn.TypeName())
}

// callFunction binds arguments and runs the function body in a new frame.
// The callee shares the caller's globals rather than the ones captured by
// MAKE_FUNCTION.
func (vm *VM) callFunction(fn *Function, args []Value, kw []Kwarg) (Value, error) {
	locals, err := bindArguments(fn, args, kw)
	if err != nil {
		return Value{}, err
	}
	return vm.runFrame(newFrame(fn.Code, vm.frame(), vm.currentGlobals(fn.Globals), locals, vm.builtins))
}

// bindArguments maps call arguments onto the parameters of fn: positionals
// first, then keywords, then defaults. Parameters with nothing bound are an
// error; non-parameter locals start out unbound.
func bindArguments(fn *Function, args []Value, kw []Kwarg) (Namespace, error) {
	code := fn.Code
	locals := Namespace{}
	positional := code.PositionalNames()
	kwOnly := code.KwOnlyNames()

	for i, a := range args {
		if i < len(positional) {
			locals[positional[i]] = a
		}
	}
	if name, ok := code.VarArgsName(); ok {
		locals[name] = NewTuple(args[min(len(positional), len(args)):]...)
	} else if len(args) > len(positional) {
		return nil, tooManyPositional(fn, len(args))
	}

	var extra *Dict
	if name, ok := code.VarKeywordsName(); ok {
		extra = NewDict()
		locals[name] = NewDictValue(extra)
	}
	for _, k := range kw {
		if contains(positional, k.Name) || contains(kwOnly, k.Name) {
			if _, bound := locals[k.Name]; bound {
				return nil, newTypeError("%s() got multiple values for argument '%s'", fn.Name, k.Name)
			}
			locals[k.Name] = k.Value
			continue
		}
		if extra == nil {
			return nil, newTypeError("%s() got an unexpected keyword argument '%s'", fn.Name, k.Name)
		}
		if err := extra.Set(NewStr(k.Name), k.Value); err != nil {
			return nil, err
		}
	}

	firstDefault := len(positional) - len(fn.Defaults)
	var missing []string
	for i, name := range positional {
		if _, bound := locals[name]; bound {
			continue
		}
		if i >= firstDefault {
			locals[name] = fn.Defaults[i-firstDefault]
			continue
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return nil, missingArguments(fn, "positional", missing)
	}

	for _, name := range kwOnly {
		if _, bound := locals[name]; bound {
			continue
		}
		if fn.KwDefaults != nil {
			if v, ok, _ := fn.KwDefaults.Get(NewStr(name)); ok {
				locals[name] = v
				continue
			}
		}
		missing = append(missing, name)
	}
	if len(missing) > 0 {
		return nil, missingArguments(fn, "keyword-only", missing)
	}
	return locals, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func tooManyPositional(fn *Function, given int) error {
	n := fn.Code.ArgCount
	takes := plural(n, "positional argument")
	if len(fn.Defaults) > 0 {
		takes = fmt.Sprintf("from %d to %s", n-len(fn.Defaults), plural(n, "positional argument"))
	}
	was := "were"
	if given == 1 {
		was = "was"
	}
	return newTypeError("%s() takes %s but %d %s given", fn.Name, takes, given, was)
}

func missingArguments(fn *Function, kind string, names []string) error {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	var list string
	switch len(quoted) {
	case 1:
		list = quoted[0]
	case 2:
		list = quoted[0] + " and " + quoted[1]
	default:
		list = strings.Join(quoted[:len(quoted)-1], ", ") + ", and " + quoted[len(quoted)-1]
	}
	return newTypeError("%s() missing %s: %s", fn.Name,
		plural(len(names), "required "+kind+" argument"), list)
}

// instantiate creates an instance of a user class and runs __init__.
func (vm *VM) instantiate(cls *Class, args []Value, kw []Kwarg) (Value, error) {
	self := Value{Kind: KindInstance, Ref: &Instance{Class: cls, Attrs: Namespace{}}}
	init, ok := cls.Lookup("__init__")
	if !ok {
		if len(args) > 0 || len(kw) > 0 {
			return Value{}, newTypeError("%s() takes no arguments", cls.Name)
		}
		return self, nil
	}
	r, err := vm.call(init, append([]Value{self}, args...), kw)
	if err != nil {
		return Value{}, err
	}
	if r.Kind != KindNone {
		return Value{}, newTypeError("__init__() should return None, not '%s'", r.TypeName())
	}
	return self, nil
}

// instantiateException creates an exception instance. The arguments are
// always recorded; a user __init__ runs afterwards and may replace them.
func (vm *VM) instantiateException(cls *Class, args []Value, kw []Kwarg) (Value, error) {
	exc := Value{Kind: KindException, Ref: &Instance{
		Class: cls,
		Attrs: Namespace{},
		Args:  append([]Value(nil), args...),
	}}
	init, ok := cls.Lookup("__init__")
	if !ok {
		if len(kw) > 0 {
			return Value{}, newTypeError("%s does not take keyword arguments", cls.Name)
		}
		return exc, nil
	}
	if _, err := vm.call(init, append([]Value{exc}, args...), kw); err != nil {
		return Value{}, err
	}
	return exc, nil
}

// makeFunction implements MAKE_FUNCTION. The qualified name and code are on
// top, followed by whichever optional parts the flags announce.
func (vm *VM) makeFunction(flags int) (Value, error) {
	qualname := vm.stack.Pop()
	code := vm.stack.Pop()
	if flags&makeClosure != 0 {
		vm.stack.Pop()
	}
	if flags&makeAnnotations != 0 {
		vm.stack.Pop()
	}
	var kwDefaults Value
	if flags&makeKwDefaults != 0 {
		kwDefaults = vm.stack.Pop()
	}
	var defaults Value
	if flags&makeDefaults != 0 {
		defaults = vm.stack.Pop()
	}

	if code.Kind != KindCode {
		return Value{}, newTypeError("MAKE_FUNCTION expects a code object, not %s", code.TypeName())
	}
	c := code.Ref.(*bytecode.Code)
	fn := &Function{
		Name:     c.Name,
		QualName: c.Name,
		Code:     c,
		Globals:  vm.currentGlobals(nil),
	}
	if qualname.Kind == KindStr {
		fn.QualName = qualname.Str
	}
	if flags&makeDefaults != 0 {
		items, ok := defaults.items()
		if !ok {
			return Value{}, newTypeError("defaults must be a tuple, not %s", defaults.TypeName())
		}
		fn.Defaults = append([]Value(nil), items...)
	}
	if flags&makeKwDefaults != 0 {
		if kwDefaults.Kind != KindDict {
			return Value{}, newTypeError("keyword defaults must be a dict, not %s", kwDefaults.TypeName())
		}
		fn.KwDefaults = kwDefaults.Dict()
	}
	return NewFunctionValue(fn), nil
}

// buildClass implements __build_class__(func, name, *bases). The body
// function runs with a fresh local namespace that becomes the class
// attributes.
func (vm *VM) buildClass(args []Value, kw []Kwarg) (Value, error) {
	if len(args) < 2 {
		return Value{}, newTypeError("__build_class__: not enough arguments")
	}
	body, name := args[0], args[1]
	if body.Kind != KindFunction {
		return Value{}, newTypeError("__build_class__: func must be a function")
	}
	if name.Kind != KindStr {
		return Value{}, newTypeError("__build_class__: name is not a string")
	}
	if len(kw) > 0 {
		return Value{}, unsupported("class keyword " + kw[0].Name)
	}

	cls := &Class{Name: name.Str, vm: vm}
	for _, b := range args[2:] {
		if b.Kind != KindClass && b.Kind != KindExcClass {
			return Value{}, newTypeError("bases must be types")
		}
		cls.Bases = append(cls.Bases, b.Class())
		cls.exc = cls.exc || b.Class().exc
	}

	attrs := Namespace{
		"__module__":   NewStr("__main__"),
		"__qualname__": name,
	}
	f := newFrame(body.Func().Code, vm.frame(), vm.currentGlobals(body.Func().Globals), attrs, vm.builtins)
	if _, err := vm.runFrame(f); err != nil {
		return Value{}, err
	}
	cls.Attrs = attrs
	return classValue(cls), nil
}

// kwargsFromDict converts a **kwargs mapping into call keywords.
func kwargsFromDict(v Value) ([]Kwarg, error) {
	if v.Kind != KindDict {
		return nil, newTypeError("argument after ** must be a mapping, not %s", v.TypeName())
	}
	d := v.Dict()
	kw := make([]Kwarg, d.Len())
	values := d.Values()
	for i, k := range d.Keys() {
		if k.Kind != KindStr {
			return nil, newTypeError("keywords must be strings")
		}
		kw[i] = Kwarg{Name: k.Str, Value: values[i]}
	}
	return kw, nil
}

// callWithStack implements CALL_FUNCTION: the operand is divmod(arg, 256)
// with the keyword pair count in the high byte. Keyword pairs sit on top of
// the positionals, which sit on top of the callable. extra is appended to
// the positionals.
func (vm *VM) callWithStack(arg int, extra []Value) error {
	named, positional := arg/256, arg%256
	pairs := vm.stack.PopN(2 * named)
	args := vm.stack.PopN(positional)
	fn := vm.stack.Pop()

	kw := make([]Kwarg, named)
	for i := range named {
		k := pairs[2*i]
		if k.Kind != KindStr {
			return newTypeError("keywords must be strings")
		}
		kw[i] = Kwarg{Name: k.Str, Value: pairs[2*i+1]}
	}
	return vm.push(vm.call(fn, append(args, extra...), kw))
}

// callFunctionKw implements CALL_FUNCTION_KW. A tuple of strings on top
// names the trailing arguments; any other value is collected and passed as
// extra positionals.
func (vm *VM) callFunctionKw(arg int) error {
	top := vm.stack.Pop()
	if names, ok := keywordNames(top); ok {
		if len(names) > arg {
			return newTypeError("CALL_FUNCTION_KW names %d keywords but has %d arguments", len(names), arg)
		}
		args := vm.stack.PopN(arg)
		fn := vm.stack.Pop()
		split := len(args) - len(names)
		kw := make([]Kwarg, len(names))
		for i, name := range names {
			kw[i] = Kwarg{Name: name, Value: args[split+i]}
		}
		return vm.push(vm.call(fn, args[:split], kw))
	}

	extra, err := vm.collect(top)
	if err != nil {
		return err
	}
	return vm.callWithStack(arg, extra)
}

func keywordNames(v Value) ([]string, bool) {
	if v.Kind != KindTuple {
		return nil, false
	}
	items := v.Tuple().Items
	names := make([]string, len(items))
	for i, item := range items {
		if item.Kind != KindStr {
			return nil, false
		}
		names[i] = item.Str
	}
	return names, true
}

// callFunctionEx implements CALL_FUNCTION_EX. Bit 0 of arg says a keyword
// mapping sits above the positional iterable.
func (vm *VM) callFunctionEx(arg int) error {
	var kw []Kwarg
	if arg&1 != 0 {
		var err error
		if kw, err = kwargsFromDict(vm.stack.Pop()); err != nil {
			return err
		}
	}
	iterable := vm.stack.Pop()
	fn := vm.stack.Pop()
	args, err := vm.collect(iterable)
	if err != nil {
		return newTypeError("argument after * must be an iterable, not %s", iterable.TypeName())
	}
	return vm.push(vm.call(fn, args, kw))
}

// callMethod implements CALL_METHOD over the pair LOAD_METHOD left: either
// (method, self) or (Null, callable).
func (vm *VM) callMethod(n int) error {
	args := vm.stack.PopN(n)
	upper := vm.stack.Pop()
	lower := vm.stack.Pop()
	if lower.Kind == KindNull {
		return vm.push(vm.call(upper, args, nil))
	}
	return vm.push(vm.call(lower, append([]Value{upper}, args...), nil))
}

// push pushes the result of a call that succeeded.
func (vm *VM) push(v Value, err error) error {
	if err != nil {
		return err
	}
	vm.stack.Push(v)
	return nil
}
