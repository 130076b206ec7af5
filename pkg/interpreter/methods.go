package interpreter

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// methodFunc implements a method of a built-in type. self is the receiver.
type methodFunc func(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error)

var (
	listMethods map[string]methodFunc
	dictMethods map[string]methodFunc
	strMethods  map[string]methodFunc
	setMethods  map[string]methodFunc
)

func init() {
	listMethods = map[string]methodFunc{
		"append":  listAppend,
		"extend":  listExtend,
		"insert":  listInsert,
		"pop":     listPop,
		"remove":  listRemove,
		"index":   listIndex,
		"count":   listCount,
		"reverse": listReverse,
		"sort":    listSort,
		"copy":    listCopy,
		"clear":   listClear,
	}
	dictMethods = map[string]methodFunc{
		"keys":       dictKeys,
		"values":     dictValues,
		"items":      dictItems,
		"get":        dictGet,
		"pop":        dictPop,
		"update":     dictUpdate,
		"setdefault": dictSetDefault,
		"copy":       dictCopy,
		"clear":      dictClear,
	}
	strMethods = map[string]methodFunc{
		"upper":      strUpper,
		"lower":      strLower,
		"strip":      strStrip,
		"lstrip":     strLstrip,
		"rstrip":     strRstrip,
		"split":      strSplit,
		"join":       strJoin,
		"replace":    strReplace,
		"startswith": strStartsWith,
		"endswith":   strEndsWith,
		"find":       strFind,
		"count":      strCount,
		"format":     strFormatMethod,
		"isdigit":    strIsDigit,
		"isalpha":    strIsAlpha,
		"title":      strTitle,
		"capitalize": strCapitalize,
	}
	setMethods = map[string]methodFunc{
		"add":          setAdd,
		"remove":       setRemove,
		"discard":      setDiscard,
		"update":       setUpdate,
		"union":        setUnion,
		"intersection": setIntersection,
		"difference":   setDifference,
		"copy":         setCopy,
		"clear":        setClear,
	}
}

// lookupMethod binds a built-in method to its receiver.
func (vm *VM) lookupMethod(v Value, name string) (Value, bool) {
	var table map[string]methodFunc
	switch v.Kind {
	case KindList:
		table = listMethods
	case KindDict:
		table = dictMethods
	case KindStr:
		table = strMethods
	case KindSet:
		table = setMethods
	default:
		return Value{}, false
	}
	m, ok := table[name]
	if !ok {
		return Value{}, false
	}
	fn := NewBuiltin(name, func(vm *VM, args []Value, kw []Kwarg) (Value, error) {
		return m(vm, args[0], args[1:], kw)
	})
	return newBoundMethod(v, fn), true
}

// arity checks a positional argument count and rejects keywords.
func arity(name string, args []Value, kw []Kwarg, lo, hi int) error {
	if len(kw) > 0 {
		return newTypeError("%s() takes no keyword arguments", name)
	}
	switch {
	case lo == hi && len(args) != lo:
		if lo == 0 {
			return newTypeError("%s() takes no arguments (%d given)", name, len(args))
		}
		return newTypeError("%s() takes exactly %s (%d given)", name, plural(lo, "argument"), len(args))
	case len(args) < lo:
		return newTypeError("%s() takes at least %s (%d given)", name, plural(lo, "argument"), len(args))
	case len(args) > hi:
		return newTypeError("%s() takes at most %s (%d given)", name, plural(hi, "argument"), len(args))
	}
	return nil
}

// keywords splits kw into the allowed names, rejecting any other.
func keywords(name string, kw []Kwarg, allowed ...string) (map[string]Value, error) {
	out := make(map[string]Value, len(kw))
	for _, k := range kw {
		if !slices.Contains(allowed, k.Name) {
			return nil, newTypeError("'%s' is an invalid keyword argument for %s()", k.Name, name)
		}
		out[k.Name] = k.Value
	}
	return out, nil
}

func listAppend(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("append", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	l := self.List()
	l.Items = append(l.Items, args[0])
	return None, nil
}

func listExtend(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("extend", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	items, err := vm.collect(args[0])
	if err != nil {
		return Value{}, err
	}
	l := self.List()
	l.Items = append(l.Items, items...)
	return None, nil
}

func listInsert(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("insert", args, kw, 2, 2); err != nil {
		return Value{}, err
	}
	i, err := indexOf(args[0], "list")
	if err != nil {
		return Value{}, err
	}
	l := self.List()
	n := len(l.Items)
	if i < 0 {
		i = max(i+n, 0)
	}
	i = min(i, n)
	l.Items = slices.Insert(l.Items, i, args[1])
	return None, nil
}

func listPop(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("pop", args, kw, 0, 1); err != nil {
		return Value{}, err
	}
	l := self.List()
	if len(l.Items) == 0 {
		return Value{}, newExc(ExcIndexError, "pop from empty list")
	}
	i := len(l.Items) - 1
	if len(args) == 1 {
		j, err := indexOf(args[0], "list")
		if err != nil {
			return Value{}, err
		}
		var ok bool
		if i, ok = normalizeIndex(j, len(l.Items)); !ok {
			return Value{}, newExc(ExcIndexError, "pop index out of range")
		}
	}
	v := l.Items[i]
	l.Items = slices.Delete(l.Items, i, i+1)
	return v, nil
}

// find returns the index of the first item equal to v.
func (vm *VM) find(items []Value, v Value) (int, error) {
	for i, item := range items {
		if Is(item, v) {
			return i, nil
		}
		eq, err := vm.equal(item, v)
		if err != nil {
			return -1, err
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

func listRemove(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("remove", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	l := self.List()
	i, err := vm.find(l.Items, args[0])
	if err != nil {
		return Value{}, err
	}
	if i < 0 {
		return Value{}, newExc(ExcValueError, "list.remove(x): x not in list")
	}
	l.Items = slices.Delete(l.Items, i, i+1)
	return None, nil
}

func listIndex(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("index", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	i, err := vm.find(self.List().Items, args[0])
	if err != nil {
		return Value{}, err
	}
	if i < 0 {
		s, _ := vm.repr(args[0])
		return Value{}, newExc(ExcValueError, "%s is not in list", s)
	}
	return NewInt(int64(i)), nil
}

func listCount(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("count", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	n := 0
	for _, item := range self.List().Items {
		eq, err := vm.equal(item, args[0])
		if err != nil {
			return Value{}, err
		}
		if eq {
			n++
		}
	}
	return NewInt(int64(n)), nil
}

func listReverse(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("reverse", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	slices.Reverse(self.List().Items)
	return None, nil
}

func listSort(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if len(args) > 0 {
		return Value{}, newTypeError("sort() takes no positional arguments")
	}
	opts, err := keywords("sort", kw, "key", "reverse")
	if err != nil {
		return Value{}, err
	}
	l := self.List()
	sorted, err := vm.sortValues(l.Items, opts["key"], opts["reverse"].Truthy())
	if err != nil {
		return Value{}, err
	}
	l.Items = sorted
	return None, nil
}

// sortValues returns a stably sorted copy of items using only `<`, the way
// list.sort does. Reverse sorting keeps equal items in their original order.
func (vm *VM) sortValues(items []Value, key Value, reverse bool) ([]Value, error) {
	type entry struct{ key, item Value }
	entries := make([]entry, len(items))
	for i, item := range items {
		entries[i] = entry{item, item}
		if key.Kind != KindNone {
			k, err := vm.call(key, []Value{item}, nil)
			if err != nil {
				return nil, err
			}
			entries[i].key = k
		}
	}

	if reverse {
		slices.Reverse(entries)
	}
	var sortErr error
	slices.SortStableFunc(entries, func(a, b entry) int {
		if sortErr != nil {
			return 0
		}
		if lt, err := vm.ordered("<", a.key, b.key); err != nil {
			sortErr = err
		} else if lt {
			return -1
		}
		if lt, err := vm.ordered("<", b.key, a.key); err != nil {
			sortErr = err
		} else if lt {
			return 1
		}
		return 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	if reverse {
		slices.Reverse(entries)
	}

	out := make([]Value, len(entries))
	for i, e := range entries {
		out[i] = e.item
	}
	return out, nil
}

func listCopy(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("copy", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	return NewList(slices.Clone(self.List().Items)...), nil
}

func listClear(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("clear", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	self.List().Items = nil
	return None, nil
}

func dictKeys(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("keys", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	return NewList(slices.Clone(self.Dict().Keys())...), nil
}

func dictValues(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("values", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	return NewList(slices.Clone(self.Dict().Values())...), nil
}

func dictItems(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("items", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	d := self.Dict()
	items := make([]Value, d.Len())
	for i, k := range d.Keys() {
		items[i] = NewTuple(k, d.Values()[i])
	}
	return NewList(items...), nil
}

func dictGet(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("get", args, kw, 1, 2); err != nil {
		return Value{}, err
	}
	v, ok, err := self.Dict().Get(args[0])
	if err != nil {
		return Value{}, err
	}
	if ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return None, nil
}

func dictPop(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("pop", args, kw, 1, 2); err != nil {
		return Value{}, err
	}
	v, ok, err := self.Dict().Delete(args[0])
	if err != nil {
		return Value{}, err
	}
	if ok {
		return v, nil
	}
	if len(args) == 2 {
		return args[1], nil
	}
	return Value{}, newKeyError(args[0])
}

// updateDict merges a mapping or an iterable of pairs into d.
func (vm *VM) updateDict(d *Dict, src Value) error {
	if src.Kind == KindDict {
		s := src.Dict()
		for i, k := range s.Keys() {
			if err := d.Set(k, s.Values()[i]); err != nil {
				return err
			}
		}
		return nil
	}
	items, err := vm.collect(src)
	if err != nil {
		return err
	}
	for i, item := range items {
		pair, err := vm.collect(item)
		if err != nil {
			return newTypeError("cannot convert dictionary update sequence element #%d to a sequence", i)
		}
		if len(pair) != 2 {
			return newExc(ExcValueError, "dictionary update sequence element #%d has length %d; 2 is required", i, len(pair))
		}
		if err := d.Set(pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

func dictUpdate(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("update", args, nil, 0, 1); err != nil {
		return Value{}, err
	}
	d := self.Dict()
	if len(args) == 1 {
		if err := vm.updateDict(d, args[0]); err != nil {
			return Value{}, err
		}
	}
	for _, k := range kw {
		if err := d.Set(NewStr(k.Name), k.Value); err != nil {
			return Value{}, err
		}
	}
	return None, nil
}

func dictSetDefault(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("setdefault", args, kw, 1, 2); err != nil {
		return Value{}, err
	}
	d := self.Dict()
	v, ok, err := d.Get(args[0])
	if err != nil || ok {
		return v, err
	}
	def := None
	if len(args) == 2 {
		def = args[1]
	}
	return def, d.Set(args[0], def)
}

func dictCopy(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("copy", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	return NewDictValue(self.Dict().Copy()), nil
}

func dictClear(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("clear", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	self.Dict().Clear()
	return None, nil
}

func strUpper(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("upper", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	return NewStr(strings.ToUpper(self.Str)), nil
}

func strLower(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("lower", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	return NewStr(strings.ToLower(self.Str)), nil
}

// stripper builds strip, lstrip and rstrip.
func stripper(name string, trim func(s, cutset string) string, space func(string) string) methodFunc {
	return func(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
		if err := arity(name, args, kw, 0, 1); err != nil {
			return Value{}, err
		}
		if len(args) == 0 || args[0].Kind == KindNone {
			return NewStr(space(self.Str)), nil
		}
		if args[0].Kind != KindStr {
			return Value{}, newTypeError("%s arg must be None or str", name)
		}
		return NewStr(trim(self.Str, args[0].Str)), nil
	}
}

var (
	strStrip  = stripper("strip", strings.Trim, strings.TrimSpace)
	strLstrip = stripper("lstrip", strings.TrimLeft, func(s string) string {
		return strings.TrimLeftFunc(s, unicode.IsSpace)
	})
	strRstrip = stripper("rstrip", strings.TrimRight, func(s string) string {
		return strings.TrimRightFunc(s, unicode.IsSpace)
	})
)

// splitSpace splits on runs of whitespace, at most maxsplit times.
func splitSpace(s string, maxsplit int) []string {
	var out []string
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	for s != "" {
		if maxsplit >= 0 && len(out) == maxsplit {
			out = append(out, s)
			break
		}
		i := strings.IndexFunc(s, unicode.IsSpace)
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i])
		s = strings.TrimLeftFunc(s[i:], unicode.IsSpace)
	}
	return out
}

func strSplit(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	opts, err := keywords("split", kw, "sep", "maxsplit")
	if err != nil {
		return Value{}, err
	}
	if err := arity("split", args, nil, 0, 2); err != nil {
		return Value{}, err
	}
	sep, maxsplit := None, -1
	if len(args) > 0 {
		sep = args[0]
	}
	if v, ok := opts["sep"]; ok {
		sep = v
	}
	if len(args) > 1 {
		opts["maxsplit"] = args[1]
	}
	if v, ok := opts["maxsplit"]; ok {
		if maxsplit, err = indexOf(v, "maxsplit"); err != nil {
			return Value{}, err
		}
	}

	var parts []string
	switch {
	case sep.Kind == KindNone:
		parts = splitSpace(self.Str, maxsplit)
	case sep.Kind != KindStr:
		return Value{}, newTypeError("must be str or None, not %s", sep.TypeName())
	case sep.Str == "":
		return Value{}, newExc(ExcValueError, "empty separator")
	case maxsplit < 0:
		parts = strings.Split(self.Str, sep.Str)
	default:
		parts = strings.SplitN(self.Str, sep.Str, maxsplit+1)
	}

	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = NewStr(p)
	}
	return NewList(items...), nil
}

func strJoin(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("join", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	items, err := vm.collect(args[0])
	if err != nil {
		return Value{}, newTypeError("can only join an iterable")
	}
	parts := make([]string, len(items))
	for i, item := range items {
		if item.Kind != KindStr {
			return Value{}, newTypeError("sequence item %d: expected str instance, %s found", i, item.TypeName())
		}
		parts[i] = item.Str
	}
	return NewStr(strings.Join(parts, self.Str)), nil
}

func strArg(name string, v Value) (string, error) {
	if v.Kind != KindStr {
		return "", newTypeError("%s() argument must be str, not %s", name, v.TypeName())
	}
	return v.Str, nil
}

func strReplace(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("replace", args, kw, 2, 3); err != nil {
		return Value{}, err
	}
	old, err := strArg("replace", args[0])
	if err != nil {
		return Value{}, err
	}
	repl, err := strArg("replace", args[1])
	if err != nil {
		return Value{}, err
	}
	n := -1
	if len(args) == 3 {
		if n, err = indexOf(args[2], "count"); err != nil {
			return Value{}, err
		}
	}
	return NewStr(strings.Replace(self.Str, old, repl, n)), nil
}

// affix builds startswith and endswith, which accept a string or a tuple of
// strings.
func affix(name string, test func(s, affix string) bool) methodFunc {
	return func(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
		if err := arity(name, args, kw, 1, 1); err != nil {
			return Value{}, err
		}
		candidates := []Value{args[0]}
		if args[0].Kind == KindTuple {
			candidates = args[0].Tuple().Items
		}
		for _, c := range candidates {
			if c.Kind != KindStr {
				return Value{}, newTypeError("%s first arg must be str or a tuple of str, not %s", name, c.TypeName())
			}
			if test(self.Str, c.Str) {
				return True, nil
			}
		}
		return False, nil
	}
}

var (
	strStartsWith = affix("startswith", strings.HasPrefix)
	strEndsWith   = affix("endswith", strings.HasSuffix)
)

// window narrows a string to the optional start and end arguments, counted
// in runes, and returns the rune offset of the window.
func window(s string, args []Value) (string, int, error) {
	runes := []rune(s)
	sl := &Slice{Start: None, Stop: None, Step: None}
	if len(args) > 0 {
		sl.Start = args[0]
	}
	if len(args) > 1 {
		sl.Stop = args[1]
	}
	start, stop, _, err := sliceIndices(sl, len(runes))
	if err != nil {
		return "", 0, err
	}
	if stop < start {
		return "", start, nil
	}
	return string(runes[start:stop]), start, nil
}

func strFind(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("find", args, kw, 1, 3); err != nil {
		return Value{}, err
	}
	sub, err := strArg("find", args[0])
	if err != nil {
		return Value{}, err
	}
	w, offset, err := window(self.Str, args[1:])
	if err != nil {
		return Value{}, err
	}
	i := strings.Index(w, sub)
	if i < 0 {
		return NewInt(-1), nil
	}
	return NewInt(int64(offset + utf8.RuneCountInString(w[:i]))), nil
}

func strCount(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("count", args, kw, 1, 3); err != nil {
		return Value{}, err
	}
	sub, err := strArg("count", args[0])
	if err != nil {
		return Value{}, err
	}
	w, _, err := window(self.Str, args[1:])
	if err != nil {
		return Value{}, err
	}
	return NewInt(int64(strings.Count(w, sub))), nil
}

func strFormatMethod(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	s, err := vm.strFormat(self.Str, args, kw)
	if err != nil {
		return Value{}, err
	}
	return NewStr(s), nil
}

// classify builds the is* predicates, which are false for the empty string.
func classify(name string, pred func(rune) bool) methodFunc {
	return func(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
		if err := arity(name, args, kw, 0, 0); err != nil {
			return Value{}, err
		}
		if self.Str == "" {
			return False, nil
		}
		for _, r := range self.Str {
			if !pred(r) {
				return False, nil
			}
		}
		return True, nil
	}
}

var (
	strIsDigit = classify("isdigit", unicode.IsDigit)
	strIsAlpha = classify("isalpha", unicode.IsLetter)
)

func strTitle(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("title", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	var b strings.Builder
	prevCased := false
	for _, r := range self.Str {
		if prevCased {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToTitle(r))
		}
		prevCased = unicode.IsLetter(r)
	}
	return NewStr(b.String()), nil
}

func strCapitalize(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("capitalize", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	if self.Str == "" {
		return self, nil
	}
	r, n := utf8.DecodeRuneInString(self.Str)
	return NewStr(string(unicode.ToUpper(r)) + strings.ToLower(self.Str[n:])), nil
}

func setAdd(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("add", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	return None, self.Set().Add(args[0])
}

func setRemove(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("remove", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	ok, err := self.Set().Remove(args[0])
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, newKeyError(args[0])
	}
	return None, nil
}

func setDiscard(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("discard", args, kw, 1, 1); err != nil {
		return Value{}, err
	}
	_, err := self.Set().Remove(args[0])
	return None, err
}

// setOf collects an iterable into a new set.
func (vm *VM) setOf(v Value) (*Set, error) {
	s := NewSet()
	if err := vm.addAll(s, v); err != nil {
		return nil, err
	}
	return s, nil
}

// addAll adds the members of an iterable in iteration order; a set is
// merged table to table.
func (vm *VM) addAll(s *Set, v Value) error {
	if v.Kind == KindSet {
		s.merge(v.Set())
		return nil
	}
	items, err := vm.collect(v)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := s.Add(item); err != nil {
			return err
		}
	}
	return nil
}

// removeAll discards the members of an iterable from s.
func (vm *VM) removeAll(s *Set, v Value) error {
	items, err := vm.collect(v)
	if err != nil {
		return err
	}
	for _, item := range items {
		if _, err := s.Remove(item); err != nil {
			return err
		}
	}
	return nil
}

func setUpdate(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("update", args, kw, 0, len(args)); err != nil {
		return Value{}, err
	}
	for _, a := range args {
		if err := vm.addAll(self.Set(), a); err != nil {
			return Value{}, err
		}
	}
	return None, nil
}

func setUnion(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("union", args, kw, 0, len(args)); err != nil {
		return Value{}, err
	}
	out := self.Set().Copy()
	for _, a := range args {
		if err := vm.addAll(out, a); err != nil {
			return Value{}, err
		}
	}
	return NewSetValue(out), nil
}

func setIntersection(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("intersection", args, kw, 0, len(args)); err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		return NewSetValue(self.Set().Copy()), nil
	}
	out := self.Set()
	for _, a := range args {
		if a.Kind == KindSet {
			out = out.intersection(a.Set())
			continue
		}
		items, err := vm.collect(a)
		if err != nil {
			return Value{}, err
		}
		next := NewSet()
		for _, item := range items {
			ok, err := out.Contains(item)
			if err != nil {
				return Value{}, err
			}
			if ok {
				if err := next.Add(item); err != nil {
					return Value{}, err
				}
			}
		}
		out = next
	}
	return NewSetValue(out), nil
}

func setDifference(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("difference", args, kw, 0, len(args)); err != nil {
		return Value{}, err
	}
	if len(args) == 0 {
		return NewSetValue(self.Set().Copy()), nil
	}
	var out *Set
	if first := args[0]; first.Kind == KindSet {
		out = self.Set().difference(first.Set())
	} else {
		out = self.Set().Copy()
		if err := vm.removeAll(out, first); err != nil {
			return Value{}, err
		}
	}
	for _, a := range args[1:] {
		if err := vm.removeAll(out, a); err != nil {
			return Value{}, err
		}
	}
	return NewSetValue(out), nil
}

func setCopy(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("copy", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	return NewSetValue(self.Set().Copy()), nil
}

func setClear(vm *VM, self Value, args []Value, kw []Kwarg) (Value, error) {
	if err := arity("clear", args, kw, 0, 0); err != nil {
		return Value{}, err
	}
	self.Set().Clear()
	return None, nil
}
