package interpreter

import "strings"

// The builders pop their operands in push order, so the deepest value
// becomes the first element.

func (vm *VM) buildMap(n int) (Value, error) {
	flat := vm.stack.PopN(2 * n)
	d := NewDict()
	for i := 0; i < len(flat); i += 2 {
		if err := d.Set(flat[i], flat[i+1]); err != nil {
			return Value{}, err
		}
	}
	return NewDictValue(d), nil
}

// buildConstKeyMap pops a tuple of keys and then one value per key.
func (vm *VM) buildConstKeyMap(n int) (Value, error) {
	keys := vm.stack.Pop()
	values := vm.stack.PopN(n)
	if keys.Kind != KindTuple || len(keys.Tuple().Items) != n {
		return Value{}, newTypeError("BUILD_CONST_KEY_MAP expects a tuple of %d keys, got %s", n, keys.TypeName())
	}
	d := NewDict()
	for i, k := range keys.Tuple().Items {
		if err := d.Set(k, values[i]); err != nil {
			return Value{}, err
		}
	}
	return NewDictValue(d), nil
}

func (vm *VM) buildSet(n int) (Value, error) {
	s := NewSet()
	for _, v := range vm.stack.PopN(n) {
		if err := s.Add(v); err != nil {
			return Value{}, err
		}
	}
	return NewSetValue(s), nil
}

func (vm *VM) buildString(n int) (Value, error) {
	var b strings.Builder
	for _, v := range vm.stack.PopN(n) {
		if v.Kind != KindStr {
			return Value{}, newTypeError("sequence item: expected str instance, %s found", v.TypeName())
		}
		b.WriteString(v.Str)
	}
	return NewStr(b.String()), nil
}

func (vm *VM) buildSlice(n int) (Value, error) {
	if n != 2 && n != 3 {
		return Value{}, newTypeError("BUILD_SLICE expects 2 or 3 values, got %d", n)
	}
	parts := vm.stack.PopN(n)
	s := &Slice{Start: parts[0], Stop: parts[1], Step: None}
	if n == 3 {
		s.Step = parts[2]
	}
	return Value{Kind: KindSlice, Ref: s}, nil
}

// listAppend implements LIST_APPEND: pop a value and append it to the list
// found i slots down once the value is gone. The list stays on the stack.
func (vm *VM) listAppend(i int) error {
	v := vm.stack.Pop()
	target := vm.stack.PeekN(i)
	if target.Kind != KindList {
		return newTypeError("LIST_APPEND target is %s, not list", target.TypeName())
	}
	l := target.List()
	l.Items = append(l.Items, v)
	return nil
}

func (vm *VM) setAdd(i int) error {
	v := vm.stack.Pop()
	target := vm.stack.PeekN(i)
	if target.Kind != KindSet {
		return newTypeError("SET_ADD target is %s, not set", target.TypeName())
	}
	return target.Set().Add(v)
}

// mapAdd implements MAP_ADD with the key on top and the value below it.
func (vm *VM) mapAdd(i int) error {
	key := vm.stack.Pop()
	value := vm.stack.Pop()
	target := vm.stack.PeekN(i)
	if target.Kind != KindDict {
		return newTypeError("MAP_ADD target is %s, not dict", target.TypeName())
	}
	return target.Dict().Set(key, value)
}

// unpackSequence pushes the items of the value on top so that the first
// item ends up on top.
func (vm *VM) unpackSequence(n int) error {
	v := vm.stack.Pop()
	it, err := vm.iterate(v)
	if err != nil {
		return newTypeError("cannot unpack non-iterable %s object", v.TypeName())
	}
	items, err := vm.collect(iteratorValue(it))
	if err != nil {
		return err
	}
	switch {
	case len(items) < n:
		return newExc(ExcValueError, "not enough values to unpack (expected %d, got %d)", n, len(items))
	case len(items) > n:
		return newExc(ExcValueError, "too many values to unpack (expected %d)", n)
	}
	for i := len(items) - 1; i >= 0; i-- {
		vm.stack.Push(items[i])
	}
	return nil
}
