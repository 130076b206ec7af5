package interpreter

import (
	"hash/fnv"
	"math"
	"math/big"
	"strconv"
)

// Numeric hashes follow Python's reduction modulo the Mersenne prime
// 2**61 - 1, so equal numbers of any type hash alike.
const (
	hashBits    = 61
	hashModulus = 1<<hashBits - 1
	hashInf     = 314159
)

var bigHashModulus = big.NewInt(hashModulus)

// pyHash returns hash(v). Ints, floats, bools and tuples of them hash as in
// CPython; strings and identity hashes are only stable within a process.
func pyHash(v Value) (int64, error) {
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case KindInt:
		return intHash(v.Int), nil
	case KindFloat:
		return floatHash(v.Float), nil
	case KindTuple:
		return tupleHash(v.Tuple().Items)
	case KindInstance, KindException:
		h, ok, err := instanceHash(v)
		if err != nil || ok {
			return h, err
		}
	}
	key, err := hashKey(v)
	if err != nil {
		return 0, err
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return fixHash(int64(h.Sum64())), nil
}

// fixHash keeps -1 free, as CPython reserves it for errors.
func fixHash(h int64) int64 {
	if h == -1 {
		return -2
	}
	return h
}

func intHash(i *big.Int) int64 {
	var h int64
	if i.IsInt64() && i.Int64() > -hashModulus && i.Int64() < hashModulus {
		h = i.Int64()
	} else {
		m := new(big.Int).Abs(i)
		h = m.Mod(m, bigHashModulus).Int64()
		if i.Sign() < 0 {
			h = -h
		}
	}
	return fixHash(h)
}

func floatHash(f float64) int64 {
	switch {
	case math.IsInf(f, 1):
		return hashInf
	case math.IsInf(f, -1):
		return -hashInf
	case math.IsNaN(f):
		return 0
	}

	m, e := math.Frexp(f)
	sign := int64(1)
	if m < 0 {
		sign, m = -1, -m
	}
	var x uint64
	for m != 0 {
		x = ((x << 28) & hashModulus) | x>>(hashBits-28)
		m *= 1 << 28
		e -= 28
		y := uint64(m)
		m -= float64(y)
		x += y
		if x >= hashModulus {
			x -= hashModulus
		}
	}
	if e >= 0 {
		e %= hashBits
	} else {
		e = hashBits - 1 - ((-1 - e) % hashBits)
	}
	x = ((x << uint(e)) & hashModulus) | x>>uint(hashBits-e)
	return fixHash(int64(x) * sign)
}

func tupleHash(items []Value) (int64, error) {
	x := uint64(0x345678)
	mult := uint64(1000003)
	for i, item := range items {
		y, err := pyHash(item)
		if err != nil {
			return 0, err
		}
		x = (x ^ uint64(y)) * mult
		mult += uint64(82520 + 2*(len(items)-1-i))
	}
	x += 97531
	return fixHash(int64(x)), nil
}

// instanceHash runs a user __hash__. ok is false when the object keeps
// identity hashing. A class that defines __eq__ without __hash__ is
// unhashable.
func instanceHash(v Value) (int64, bool, error) {
	cls := v.Instance().Class
	for _, k := range cls.mro() {
		if fn, ok := k.Attrs["__hash__"]; ok {
			if fn.Kind == KindNone {
				return 0, false, newTypeError("unhashable type: '%s'", cls.Name)
			}
			if cls.vm == nil {
				return 0, false, nil
			}
			r, err := cls.vm.call(fn, []Value{v}, nil)
			if err != nil {
				return 0, false, err
			}
			i, ok := asInt(r)
			if !ok {
				return 0, false, newTypeError("__hash__ method should return an integer")
			}
			return intHash(i), true, nil
		}
		if _, ok := k.Attrs["__eq__"]; ok {
			return 0, false, newTypeError("unhashable type: '%s'", cls.Name)
		}
	}
	return 0, false, nil
}

// hashFromKey recovers the hash a user __hash__ produced from its key so
// it is not called twice.
func hashFromKey(v Value, key string) (int64, error) {
	if len(key) > 1 && key[0] == 'h' {
		if h, err := strconv.ParseInt(key[1:], 10, 64); err == nil {
			return h, nil
		}
	}
	return pyHash(v)
}
