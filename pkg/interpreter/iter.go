package interpreter

// Iterator is the handle GET_ITER leaves on the stack. next reports false
// once the underlying sequence is exhausted.
type Iterator struct {
	name string
	next func() (Value, bool, error)
}

// Next advances the iterator.
func (it *Iterator) Next() (Value, bool, error) {
	return it.next()
}

func newIterator(name string, next func() (Value, bool, error)) *Iterator {
	return &Iterator{name: name, next: next}
}

func iteratorValue(it *Iterator) Value {
	return Value{Kind: KindIterator, Ref: it}
}

// sliceIterator walks a fixed slice.
func sliceIterator(name string, items []Value) *Iterator {
	i := 0
	return newIterator(name, func() (Value, bool, error) {
		if i >= len(items) {
			return Value{}, false, nil
		}
		i++
		return items[i-1], true, nil
	})
}

// iterate implements GET_ITER and iter().
func (vm *VM) iterate(v Value) (*Iterator, error) {
	switch v.Kind {
	case KindIterator:
		return v.Ref.(*Iterator), nil

	case KindList:
		// Lists are walked live so appends during iteration are seen.
		l, i := v.List(), 0
		return newIterator("list_iterator", func() (Value, bool, error) {
			if i >= len(l.Items) {
				return Value{}, false, nil
			}
			i++
			return l.Items[i-1], true, nil
		}), nil

	case KindTuple:
		return sliceIterator("tuple_iterator", v.Tuple().Items), nil

	case KindStr:
		runes := []rune(v.Str)
		i := 0
		return newIterator("str_iterator", func() (Value, bool, error) {
			if i >= len(runes) {
				return Value{}, false, nil
			}
			i++
			return NewStr(string(runes[i-1])), true, nil
		}), nil

	case KindDict:
		d, i, n := v.Dict(), 0, v.Dict().Len()
		return newIterator("dict_keyiterator", func() (Value, bool, error) {
			if d.Len() != n {
				return Value{}, false, newExc(ExcRuntimeError, "dictionary changed size during iteration")
			}
			if i >= n {
				return Value{}, false, nil
			}
			i++
			return d.Keys()[i-1], true, nil
		}), nil

	case KindSet:
		s, i, n := v.Set(), 0, v.Set().Len()
		return newIterator("set_iterator", func() (Value, bool, error) {
			if s.Len() != n {
				return Value{}, false, newExc(ExcRuntimeError, "Set changed size during iteration")
			}
			if i >= n {
				return Value{}, false, nil
			}
			i++
			return s.Items()[i-1], true, nil
		}), nil

	case KindRange:
		r, i := v.Range(), int64(0)
		return newIterator("range_iterator", func() (Value, bool, error) {
			if i >= r.Len() {
				return Value{}, false, nil
			}
			i++
			return NewInt(r.At(i - 1)), true, nil
		}), nil

	case KindInstance:
		if fn, ok := v.Instance().Class.Lookup("__iter__"); ok {
			r, err := vm.call(fn, []Value{v}, nil)
			if err != nil {
				return nil, err
			}
			return vm.instanceIterator(r)
		}
	}
	return nil, newTypeError("'%s' object is not iterable", v.TypeName())
}

// instanceIterator adapts an object returned by __iter__. Objects with a
// __next__ method are driven until it raises StopIteration.
func (vm *VM) instanceIterator(v Value) (*Iterator, error) {
	if v.Kind != KindInstance {
		return vm.iterate(v)
	}
	next, ok := v.Instance().Class.Lookup("__next__")
	if !ok {
		return nil, newTypeError("iter() returned non-iterator of type '%s'", v.TypeName())
	}
	return newIterator(v.Instance().Class.Name, func() (Value, bool, error) {
		r, err := vm.call(next, []Value{v}, nil)
		if isStopIteration(err) {
			return Value{}, false, nil
		}
		if err != nil {
			return Value{}, false, err
		}
		return r, true, nil
	}), nil
}

// collect drains an iterable into a new slice.
func (vm *VM) collect(v Value) ([]Value, error) {
	if items, ok := v.items(); ok {
		return append([]Value(nil), items...), nil
	}
	it, err := vm.iterate(v)
	if err != nil {
		return nil, err
	}
	var out []Value
	for {
		item, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}
