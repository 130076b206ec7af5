package interpreter

func attributeError(v Value, name string) error {
	switch v.Kind {
	case KindClass, KindExcClass:
		return newExc(ExcAttributeError, "type object '%s' has no attribute '%s'", v.Class().Name, name)
	}
	return newExc(ExcAttributeError, "'%s' object has no attribute '%s'", v.TypeName(), name)
}

// getAttr implements LOAD_ATTR.
func (vm *VM) getAttr(v Value, name string) (Value, error) {
	if r, ok := vm.lookupAttr(v, name); ok {
		return r, nil
	}
	return Value{}, attributeError(v, name)
}

func (vm *VM) lookupAttr(v Value, name string) (Value, bool) {
	switch v.Kind {
	case KindInstance, KindException:
		inst := v.Instance()
		if r, ok := inst.Attrs[name]; ok {
			return r, true
		}
		switch name {
		case "__class__":
			return classValue(inst.Class), true
		case "__dict__":
			return namespaceDict(inst.Attrs), true
		}
		if v.Kind == KindException {
			switch name {
			case "args":
				return NewTuple(append([]Value(nil), inst.Args...)...), true
			case "__cause__":
				if inst.Cause == nil {
					return None, true
				}
				return Value{Kind: KindException, Ref: inst.Cause}, true
			}
		}
		if r, ok := inst.Class.Lookup(name); ok {
			if r.Kind == KindFunction {
				return newBoundMethod(v, r), true
			}
			return r, true
		}

	case KindClass, KindExcClass:
		c := v.Class()
		if r, ok := c.Lookup(name); ok {
			return r, true
		}
		switch name {
		case "__name__", "__qualname__":
			return NewStr(c.Name), true
		case "__bases__":
			bases := make([]Value, len(c.Bases))
			for i, b := range c.Bases {
				bases[i] = classValue(b)
			}
			return NewTuple(bases...), true
		case "__dict__":
			return namespaceDict(c.Attrs), true
		}

	case KindFunction:
		fn := v.Func()
		switch name {
		case "__name__":
			return NewStr(fn.Name), true
		case "__qualname__":
			return NewStr(fn.QualName), true
		case "__defaults__":
			if fn.Defaults == nil {
				return None, true
			}
			return NewTuple(fn.Defaults...), true
		case "__kwdefaults__":
			if fn.KwDefaults == nil {
				return None, true
			}
			return NewDictValue(fn.KwDefaults), true
		case "__code__":
			return Value{Kind: KindCode, Ref: fn.Code}, true
		}

	case KindBuiltin:
		if name == "__name__" || name == "__qualname__" {
			return NewStr(v.Ref.(*Builtin).Name), true
		}

	case KindBoundMethod:
		m := v.Ref.(*BoundMethod)
		switch name {
		case "__self__":
			return m.Self, true
		case "__func__":
			return m.Fn, true
		}
		return vm.lookupAttr(m.Fn, name)

	case KindSlice:
		s := v.Slice()
		switch name {
		case "start":
			return s.Start, true
		case "stop":
			return s.Stop, true
		case "step":
			return s.Step, true
		}

	case KindRange:
		r := v.Range()
		switch name {
		case "start":
			return NewInt(r.Start), true
		case "stop":
			return NewInt(r.Stop), true
		case "step":
			return NewInt(r.Step), true
		}
	}

	return vm.lookupMethod(v, name)
}

func namespaceDict(ns Namespace) Value {
	d := NewDict()
	for _, k := range sortedNames(ns) {
		_ = d.Set(NewStr(k), ns[k])
	}
	return NewDictValue(d)
}

// setAttr implements STORE_ATTR.
func (vm *VM) setAttr(v Value, name string, value Value) error {
	switch v.Kind {
	case KindInstance, KindException:
		inst := v.Instance()
		if v.Kind == KindException {
			switch name {
			case "args":
				items, err := vm.collect(value)
				if err != nil {
					return err
				}
				inst.Args = items
				return nil
			case "__cause__":
				switch value.Kind {
				case KindNone:
					inst.Cause = nil
				case KindException:
					inst.Cause = value.Instance()
				default:
					return newTypeError("exception cause must be None or derive from BaseException")
				}
				return nil
			}
		}
		inst.Attrs[name] = value
		return nil

	case KindClass, KindExcClass:
		c := v.Class()
		if c.builtin {
			return newTypeError("can't set attributes of built-in/extension type '%s'", c.Name)
		}
		c.Attrs[name] = value
		return nil

	case KindFunction:
		fn := v.Func()
		switch name {
		case "__name__", "__qualname__":
			if value.Kind != KindStr {
				return newTypeError("%s must be set to a string object", name)
			}
			if name == "__name__" {
				fn.Name = value.Str
			} else {
				fn.QualName = value.Str
			}
			return nil
		case "__defaults__":
			switch value.Kind {
			case KindNone:
				fn.Defaults = nil
				return nil
			case KindTuple:
				fn.Defaults = append([]Value(nil), value.Tuple().Items...)
				return nil
			}
			return newTypeError("__defaults__ must be set to a tuple object")
		}
	}
	return attributeError(v, name)
}

// delAttr implements DELETE_ATTR.
func (vm *VM) delAttr(v Value, name string) error {
	var ns Namespace
	switch v.Kind {
	case KindInstance, KindException:
		ns = v.Instance().Attrs
	case KindClass, KindExcClass:
		if v.Class().builtin {
			return newTypeError("can't set attributes of built-in/extension type '%s'", v.Class().Name)
		}
		ns = v.Class().Attrs
	default:
		return attributeError(v, name)
	}
	if _, ok := ns[name]; !ok {
		return newExc(ExcAttributeError, "%s", name)
	}
	delete(ns, name)
	return nil
}

// loadMethod implements LOAD_METHOD. It returns the two values to push,
// lower first: a function defined on the instance's class and the instance
// itself, or Null and the attribute.
func (vm *VM) loadMethod(v Value, name string) (Value, Value, error) {
	if v.Kind == KindInstance || v.Kind == KindException {
		inst := v.Instance()
		if _, shadowed := inst.Attrs[name]; !shadowed {
			if fn, ok := inst.Class.Lookup(name); ok && fn.Kind == KindFunction {
				return fn, v, nil
			}
		}
	}
	attr, err := vm.getAttr(v, name)
	if err != nil {
		return Value{}, Value{}, err
	}
	return Null, attr, nil
}
