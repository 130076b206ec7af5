package interpreter

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// hashKey maps a hashable value to a string that is equal for values that
// compare equal, so 1, 1.0 and True share a key.
func hashKey(v Value) (string, error) {
	switch v.Kind {
	case KindNone:
		return "N", nil
	case KindBool:
		if v.Bool {
			return "i1", nil
		}
		return "i0", nil
	case KindInt:
		return "i" + v.Int.String(), nil
	case KindFloat:
		if !math.IsInf(v.Float, 0) && !math.IsNaN(v.Float) && v.Float == math.Trunc(v.Float) {
			i, _ := big.NewFloat(v.Float).Int(nil)
			return "i" + i.String(), nil
		}
		return "f" + strconv.FormatFloat(v.Float, 'g', -1, 64), nil
	case KindStr:
		return "s" + v.Str, nil
	case KindTuple:
		var b strings.Builder
		b.WriteString("t")
		for _, item := range v.Tuple().Items {
			k, err := hashKey(item)
			if err != nil {
				return "", err
			}
			b.WriteString(strconv.Itoa(len(k)))
			b.WriteByte(':')
			b.WriteString(k)
		}
		return b.String(), nil
	case KindRange:
		r := v.Range()
		return fmt.Sprintf("r%d:%d:%d", r.Start, r.Stop, r.Step), nil
	case KindList, KindDict, KindSet, KindSlice:
		return "", newTypeError("unhashable type: '%s'", v.TypeName())
	case KindInstance, KindException:
		h, ok, err := instanceHash(v)
		if err != nil {
			return "", err
		}
		if ok {
			return "h" + strconv.FormatInt(h, 10), nil
		}
		return fmt.Sprintf("p%p", v.Ref), nil
	default:
		return fmt.Sprintf("p%p", v.Ref), nil
	}
}

// Dict is an insertion-ordered mapping. Entries are bucketed by hashKey;
// keys whose key comes from a user __hash__ share a bucket until __eq__
// tells them apart.
type Dict struct {
	keys  []Value
	vals  []Value
	slots []string
	index map[string][]int
}

func NewDict() *Dict {
	return &Dict{index: make(map[string][]int)}
}

func (d *Dict) Len() int {
	return len(d.keys)
}

func (d *Dict) Keys() []Value {
	return d.keys
}

func (d *Dict) Values() []Value {
	return d.vals
}

// find returns the bucket key of k and the position of the entry holding
// it, or -1.
func (d *Dict) find(k Value) (string, int, error) {
	slot, err := hashKey(k)
	if err != nil {
		return "", -1, err
	}
	for _, i := range d.index[slot] {
		eq, err := sameKey(d.keys[i], k)
		if err != nil {
			return "", -1, err
		}
		if eq {
			return slot, i, nil
		}
	}
	return slot, -1, nil
}

// sameKey decides between keys that landed in the same bucket. Only keys
// hashed by user code can collide without being equal.
func sameKey(a, b Value) (bool, error) {
	if Is(a, b) {
		return true, nil
	}
	vm := keyVM(b)
	if vm == nil {
		vm = keyVM(a)
	}
	if vm == nil {
		return true, nil
	}
	return vm.equal(a, b)
}

// keyVM returns the interpreter owning a user object inside a key.
func keyVM(v Value) *VM {
	switch v.Kind {
	case KindInstance, KindException:
		return v.Instance().Class.vm
	case KindTuple:
		for _, item := range v.Tuple().Items {
			if vm := keyVM(item); vm != nil {
				return vm
			}
		}
	}
	return nil
}

func (d *Dict) Get(k Value) (Value, bool, error) {
	_, i, err := d.find(k)
	if err != nil || i < 0 {
		return Value{}, false, err
	}
	return d.vals[i], true, nil
}

// Set inserts or replaces a value. Replacing keeps the original key object
// and its position.
func (d *Dict) Set(k, v Value) error {
	slot, i, err := d.find(k)
	if err != nil {
		return err
	}
	if i >= 0 {
		d.vals[i] = v
		return nil
	}
	d.index[slot] = append(d.index[slot], len(d.keys))
	d.keys = append(d.keys, k)
	d.vals = append(d.vals, v)
	d.slots = append(d.slots, slot)
	return nil
}

func (d *Dict) Delete(k Value) (Value, bool, error) {
	slot, i, err := d.find(k)
	if err != nil || i < 0 {
		return Value{}, false, err
	}
	v := d.vals[i]
	d.unindex(slot, i)
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	d.slots = append(d.slots[:i], d.slots[i+1:]...)
	for j := i; j < len(d.slots); j++ {
		bucket := d.index[d.slots[j]]
		for n, pos := range bucket {
			if pos == j+1 {
				bucket[n] = j
			}
		}
	}
	return v, true, nil
}

func (d *Dict) unindex(slot string, i int) {
	bucket := d.index[slot]
	for n, pos := range bucket {
		if pos == i {
			bucket = append(bucket[:n], bucket[n+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(d.index, slot)
		return
	}
	d.index[slot] = bucket
}

func (d *Dict) Clear() {
	d.keys, d.vals, d.slots = nil, nil, nil
	d.index = make(map[string][]int)
}

func (d *Dict) Copy() *Dict {
	c := &Dict{
		keys:  append([]Value(nil), d.keys...),
		vals:  append([]Value(nil), d.vals...),
		slots: append([]string(nil), d.slots...),
		index: make(map[string][]int, len(d.index)),
	}
	for k, bucket := range d.index {
		c.index[k] = append([]int(nil), bucket...)
	}
	return c
}

// Set is a hash set. Membership goes through a Dict; a second, open
// addressed table mirrors CPython's layout so iteration order matches
// Python for numbers and tuples of numbers.
type Set struct {
	d     *Dict
	table []setEntry
	fill  int     // active and dummy slots
	order []Value // iteration order, rebuilt after a change
}

type setEntry struct {
	key   Value
	hash  uint64
	state uint8
}

const (
	slotEmpty uint8 = iota
	slotActive
	slotDummy
)

const (
	setMinSize   = 8
	linearProbes = 9
	perturbShift = 5
)

func NewSet() *Set {
	return &Set{d: NewDict(), table: make([]setEntry, setMinSize)}
}

func (s *Set) Len() int { return s.d.Len() }

// Items returns the members in table order.
func (s *Set) Items() []Value {
	if s.order == nil {
		s.order = make([]Value, 0, s.Len())
		for _, e := range s.table {
			if e.state == slotActive {
				s.order = append(s.order, e.key)
			}
		}
	}
	return s.order
}

func (s *Set) Add(v Value) error {
	slot, i, err := s.d.find(v)
	if err != nil || i >= 0 {
		return err
	}
	h, err := hashFromKey(v, slot)
	if err != nil {
		return err
	}
	s.addHashed(v, uint64(h))
	return nil
}

// addHashed inserts a member known to be absent.
func (s *Set) addHashed(v Value, hash uint64) {
	_ = s.d.Set(v, None)
	s.order = nil

	mask := uint64(len(s.table) - 1)
	perturb := hash
	i := hash & mask
	free, target := -1, -1
	if s.table[i].state == slotEmpty {
		target = int(i)
	}
probe:
	for target < 0 {
		if s.table[i].state == slotDummy && free < 0 {
			free = int(i)
		}
		if i+linearProbes <= mask {
			for j := uint64(1); j <= linearProbes; j++ {
				switch s.table[i+j].state {
				case slotEmpty:
					target = int(i + j)
					break probe
				case slotDummy:
					if free < 0 {
						free = int(i + j)
					}
				}
			}
		}
		perturb >>= perturbShift
		i = (i*5 + 1 + perturb) & mask
		if s.table[i].state == slotEmpty {
			target = int(i)
		}
	}

	if free >= 0 {
		s.table[free] = setEntry{key: v, hash: hash, state: slotActive}
		return
	}
	s.table[target] = setEntry{key: v, hash: hash, state: slotActive}
	s.fill++
	if uint64(s.fill)*5 >= mask*3 {
		used := s.Len()
		if used > 50000 {
			s.resize(used * 2)
		} else {
			s.resize(used * 4)
		}
	}
}

func (s *Set) resize(minUsed int) {
	size := setMinSize
	for size <= minUsed {
		size <<= 1
	}
	old := s.table
	s.table = make([]setEntry, size)
	s.fill = 0
	for _, e := range old {
		if e.state == slotActive {
			s.insertClean(e)
			s.fill++
		}
	}
	s.order = nil
}

// insertClean places an entry in a table without dummies.
func (s *Set) insertClean(e setEntry) {
	mask := uint64(len(s.table) - 1)
	perturb := e.hash
	i := e.hash & mask
	for {
		if s.table[i].state == slotEmpty {
			s.table[i] = e
			return
		}
		if i+linearProbes <= mask {
			for j := uint64(1); j <= linearProbes; j++ {
				if s.table[i+j].state == slotEmpty {
					s.table[i+j] = e
					return
				}
			}
		}
		perturb >>= perturbShift
		i = (i*5 + 1 + perturb) & mask
	}
}

// slotOf finds the table slot holding the stored key object.
func (s *Set) slotOf(key Value, hash uint64) int {
	mask := uint64(len(s.table) - 1)
	perturb := hash
	i := hash & mask
	for {
		e := s.table[i]
		if e.state == slotEmpty {
			return -1
		}
		if e.state == slotActive && Is(e.key, key) {
			return int(i)
		}
		if i+linearProbes <= mask {
			for j := uint64(1); j <= linearProbes; j++ {
				e := s.table[i+j]
				if e.state == slotEmpty {
					return -1
				}
				if e.state == slotActive && Is(e.key, key) {
					return int(i + j)
				}
			}
		}
		perturb >>= perturbShift
		i = (i*5 + 1 + perturb) & mask
	}
}

func (s *Set) Clear() {
	s.d.Clear()
	s.table = make([]setEntry, setMinSize)
	s.fill = 0
	s.order = nil
}

func (s *Set) Copy() *Set {
	out := NewSet()
	out.merge(s)
	return out
}

// merge adds every member of o, walking o's table in order.
func (s *Set) merge(o *Set) {
	if o == s || o.Len() == 0 {
		return
	}
	if uint64(s.fill+o.Len())*5 >= uint64(len(s.table)-1)*3 {
		s.resize((s.Len() + o.Len()) * 2)
	}
	s.order = nil

	switch {
	case s.fill == 0 && len(s.table) == len(o.table) && o.fill == o.Len():
		copy(s.table, o.table)
		s.fill = o.fill
		s.d = o.d.Copy()
	case s.fill == 0:
		for _, e := range o.table {
			if e.state == slotActive {
				s.insertClean(e)
			}
		}
		s.fill = o.Len()
		s.d = o.d.Copy()
	default:
		for _, e := range o.table {
			if e.state != slotActive {
				continue
			}
			if ok, _ := s.Contains(e.key); !ok {
				s.addHashed(e.key, e.hash)
			}
		}
	}
}

func (s *Set) Remove(v Value) (bool, error) {
	slot, i, err := s.d.find(v)
	if err != nil || i < 0 {
		return false, err
	}
	stored := s.d.keys[i]
	n := -1
	if h, err := hashFromKey(stored, slot); err == nil {
		n = s.slotOf(stored, uint64(h))
	}
	if n < 0 {
		for j, e := range s.table {
			if e.state == slotActive && Is(e.key, stored) {
				n = j
				break
			}
		}
	}
	if n >= 0 {
		s.table[n] = setEntry{state: slotDummy}
	}
	_, _, err = s.d.Delete(stored)
	s.order = nil
	return true, err
}

func (s *Set) Contains(v Value) (bool, error) {
	_, i, err := s.d.find(v)
	return i >= 0, err
}

// active calls fn for each member with its hash, in table order.
func (s *Set) active(fn func(e setEntry)) {
	for _, e := range s.table {
		if e.state == slotActive {
			fn(e)
		}
	}
}

func (s *Set) union(o *Set) *Set {
	out := s.Copy()
	out.merge(o)
	return out
}

func (s *Set) intersection(o *Set) *Set {
	larger, smaller := s, o
	if smaller.Len() > larger.Len() {
		larger, smaller = smaller, larger
	}
	out := NewSet()
	smaller.active(func(e setEntry) {
		if ok, _ := larger.Contains(e.key); ok {
			out.addHashed(e.key, e.hash)
		}
	})
	return out
}

func (s *Set) difference(o *Set) *Set {
	if s.Len()>>2 > o.Len() {
		out := s.Copy()
		o.active(func(e setEntry) {
			_, _ = out.Remove(e.key)
		})
		return out
	}
	out := NewSet()
	s.active(func(e setEntry) {
		if ok, _ := o.Contains(e.key); !ok {
			out.addHashed(e.key, e.hash)
		}
	})
	return out
}

func (s *Set) symmetricDifference(o *Set) *Set {
	out := o.Copy()
	out.symmetricUpdate(s)
	return out
}

// symmetricUpdate toggles the membership of every member of o.
func (s *Set) symmetricUpdate(o *Set) {
	if o == s {
		s.Clear()
		return
	}
	o.active(func(e setEntry) {
		if ok, _ := s.Contains(e.key); ok {
			_, _ = s.Remove(e.key)
		} else {
			s.addHashed(e.key, e.hash)
		}
	})
}

func (s *Set) subsetOf(o *Set) bool {
	for _, v := range s.Items() {
		if ok, _ := o.Contains(v); !ok {
			return false
		}
	}
	return true
}

// normalizeIndex resolves a possibly negative index against length n.
func normalizeIndex(i, n int) (int, bool) {
	if i < 0 {
		i += n
	}
	return i, i >= 0 && i < n
}

// indexOf converts an index operand to int.
func indexOf(v Value, what string) (int, error) {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case KindInt:
		if !v.Int.IsInt64() {
			return 0, newExc(ExcIndexError, "cannot fit 'int' into an index-sized integer")
		}
		return int(v.Int.Int64()), nil
	default:
		return 0, newTypeError("%s indices must be integers or slices, not %s", what, v.TypeName())
	}
}

// sliceIndices resolves a slice against a sequence of length n, following
// Python's clamping rules.
func sliceIndices(s *Slice, n int) (start, stop, step int, err error) {
	step = 1
	if s.Step.Kind != KindNone {
		if step, err = indexOf(s.Step, "slice"); err != nil {
			return
		}
		if step == 0 {
			err = newExc(ExcValueError, "slice step cannot be zero")
			return
		}
	}

	lower, upper := 0, n
	if step < 0 {
		lower, upper = -1, n-1
	}
	clamp := func(v Value, def int) (int, error) {
		if v.Kind == KindNone {
			return def, nil
		}
		i, err := indexOf(v, "slice")
		if err != nil {
			return 0, err
		}
		if i < 0 {
			i += n
			if i < lower {
				i = lower
			}
		} else if i > upper {
			i = upper
		}
		return i, nil
	}

	if step > 0 {
		start, err = clamp(s.Start, lower)
		if err == nil {
			stop, err = clamp(s.Stop, upper)
		}
	} else {
		start, err = clamp(s.Start, upper)
		if err == nil {
			stop, err = clamp(s.Stop, lower)
		}
	}
	return
}

func sliceItems(items []Value, s *Slice) ([]Value, error) {
	start, stop, step, err := sliceIndices(s, len(items))
	if err != nil {
		return nil, err
	}
	var out []Value
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, items[i])
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, items[i])
		}
	}
	return out, nil
}
