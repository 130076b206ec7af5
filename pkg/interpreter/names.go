package interpreter

import (
	"maps"
	"slices"
)

func sortedNames(ns Namespace) []string {
	return slices.Sorted(maps.Keys(ns))
}

// loadName resolves a name through locals, globals and builtins, in that
// order. LOAD_GLOBAL uses the same chain.
func (f *Frame) loadName(name string) (Value, error) {
	if v, ok := f.Locals[name]; ok {
		return v, nil
	}
	if v, ok := f.Globals[name]; ok {
		return v, nil
	}
	if v, ok := f.Builtins[name]; ok {
		return v, nil
	}
	return Value{}, newNameError(name)
}

// deleteName removes a name from the first namespace holding it.
func (f *Frame) deleteName(name string) error {
	for _, ns := range []Namespace{f.Locals, f.Globals, f.Builtins} {
		if _, ok := ns[name]; ok {
			delete(ns, name)
			return nil
		}
	}
	return newNameError(name)
}

func (f *Frame) deleteGlobal(name string) error {
	if _, ok := f.Globals[name]; !ok {
		return newExc(ExcNameError, "name '%s' is not defined", name)
	}
	delete(f.Globals, name)
	return nil
}

// loadFast reads a local slot without falling back to other namespaces.
func (f *Frame) loadFast(name string) (Value, error) {
	if v, ok := f.Locals[name]; ok {
		return v, nil
	}
	return Value{}, newExc(ExcUnboundLocalError, "local variable '%s' referenced before assignment", name)
}

func (f *Frame) deleteFast(name string) error {
	if _, ok := f.Locals[name]; !ok {
		return newExc(ExcUnboundLocalError, "local variable '%s' referenced before assignment", name)
	}
	delete(f.Locals, name)
	return nil
}
