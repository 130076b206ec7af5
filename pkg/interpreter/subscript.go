package interpreter

// getItem implements BINARY_SUBSCR.
func (vm *VM) getItem(container, key Value) (Value, error) {
	switch container.Kind {
	case KindList, KindTuple:
		items, _ := container.items()
		if key.Kind == KindSlice {
			out, err := sliceItems(items, key.Slice())
			if err != nil {
				return Value{}, err
			}
			if container.Kind == KindList {
				return NewList(out...), nil
			}
			return NewTuple(out...), nil
		}
		i, err := indexOf(key, container.TypeName())
		if err != nil {
			return Value{}, err
		}
		i, ok := normalizeIndex(i, len(items))
		if !ok {
			return Value{}, newExc(ExcIndexError, "%s index out of range", container.TypeName())
		}
		return items[i], nil

	case KindStr:
		runes := []rune(container.Str)
		if key.Kind == KindSlice {
			start, stop, step, err := sliceIndices(key.Slice(), len(runes))
			if err != nil {
				return Value{}, err
			}
			var out []rune
			for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
				out = append(out, runes[i])
			}
			return NewStr(string(out)), nil
		}
		if key.Kind != KindInt && key.Kind != KindBool {
			return Value{}, newTypeError("string indices must be integers")
		}
		i, err := indexOf(key, "string")
		if err != nil {
			return Value{}, err
		}
		i, ok := normalizeIndex(i, len(runes))
		if !ok {
			return Value{}, newExc(ExcIndexError, "string index out of range")
		}
		return NewStr(string(runes[i])), nil

	case KindDict:
		v, ok, err := container.Dict().Get(key)
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, newKeyError(key)
		}
		return v, nil

	case KindRange:
		r := container.Range()
		n := int(r.Len())
		if key.Kind == KindSlice {
			start, stop, step, err := sliceIndices(key.Slice(), n)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindRange, Ref: &Range{
				Start: r.At(int64(start)),
				Stop:  r.At(int64(stop)),
				Step:  r.Step * int64(step),
			}}, nil
		}
		i, err := indexOf(key, "range")
		if err != nil {
			return Value{}, err
		}
		i, ok := normalizeIndex(i, n)
		if !ok {
			return Value{}, newExc(ExcIndexError, "range object index out of range")
		}
		return NewInt(r.At(int64(i))), nil

	case KindInstance:
		if fn, ok := container.Instance().Class.Lookup("__getitem__"); ok {
			return vm.call(fn, []Value{container, key}, nil)
		}
	}
	return Value{}, newTypeError("'%s' object is not subscriptable", container.TypeName())
}

// setItem implements STORE_SUBSCR.
func (vm *VM) setItem(container, key, value Value) error {
	switch container.Kind {
	case KindList:
		l := container.List()
		if key.Kind == KindSlice {
			return vm.setSlice(l, key.Slice(), value)
		}
		i, err := indexOf(key, "list")
		if err != nil {
			return err
		}
		i, ok := normalizeIndex(i, len(l.Items))
		if !ok {
			return newExc(ExcIndexError, "list assignment index out of range")
		}
		l.Items[i] = value
		return nil

	case KindDict:
		return container.Dict().Set(key, value)

	case KindInstance:
		if fn, ok := container.Instance().Class.Lookup("__setitem__"); ok {
			_, err := vm.call(fn, []Value{container, key, value}, nil)
			return err
		}
	}
	return newTypeError("'%s' object does not support item assignment", container.TypeName())
}

func (vm *VM) setSlice(l *List, s *Slice, value Value) error {
	repl, err := vm.collect(value)
	if err != nil {
		return newTypeError("can only assign an iterable")
	}
	start, stop, step, err := sliceIndices(s, len(l.Items))
	if err != nil {
		return err
	}

	if step == 1 {
		if stop < start {
			stop = start
		}
		items := append([]Value(nil), l.Items[:start]...)
		items = append(items, repl...)
		l.Items = append(items, l.Items[stop:]...)
		return nil
	}

	var idx []int
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		idx = append(idx, i)
	}
	if len(idx) != len(repl) {
		return newExc(ExcValueError, "attempt to assign sequence of size %d to extended slice of size %d",
			len(repl), len(idx))
	}
	for j, i := range idx {
		l.Items[i] = repl[j]
	}
	return nil
}

// delItem implements DELETE_SUBSCR.
func (vm *VM) delItem(container, key Value) error {
	switch container.Kind {
	case KindList:
		l := container.List()
		if key.Kind == KindSlice {
			start, stop, step, err := sliceIndices(key.Slice(), len(l.Items))
			if err != nil {
				return err
			}
			drop := make(map[int]bool)
			for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
				drop[i] = true
			}
			kept := l.Items[:0:0]
			for i, v := range l.Items {
				if !drop[i] {
					kept = append(kept, v)
				}
			}
			l.Items = kept
			return nil
		}
		i, err := indexOf(key, "list")
		if err != nil {
			return err
		}
		i, ok := normalizeIndex(i, len(l.Items))
		if !ok {
			return newExc(ExcIndexError, "list assignment index out of range")
		}
		l.Items = append(l.Items[:i], l.Items[i+1:]...)
		return nil

	case KindDict:
		_, ok, err := container.Dict().Delete(key)
		if err != nil {
			return err
		}
		if !ok {
			return newKeyError(key)
		}
		return nil

	case KindInstance:
		if fn, ok := container.Instance().Class.Lookup("__delitem__"); ok {
			_, err := vm.call(fn, []Value{container, key}, nil)
			return err
		}
	}
	return newTypeError("'%s' object doesn't support item deletion", container.TypeName())
}
