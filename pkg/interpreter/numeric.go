package interpreter

import (
	"math"
	"math/big"
)

// asInt returns the integer value of an int or bool.
func asInt(v Value) (*big.Int, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindBool:
		if v.Bool {
			return big.NewInt(1), true
		}
		return big.NewInt(0), true
	default:
		return nil, false
	}
}

// asFloat returns the float value of an int, bool or float.
func asFloat(v Value) (float64, bool, error) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true, nil
	case KindInt, KindBool:
		i, _ := asInt(v)
		f, _ := new(big.Float).SetInt(i).Float64()
		if math.IsInf(f, 0) {
			return 0, true, newExc(ExcOverflowError, "int too large to convert to float")
		}
		return f, true, nil
	default:
		return 0, false, nil
	}
}

func isNumber(v Value) bool {
	return v.Kind == KindInt || v.Kind == KindBool || v.Kind == KindFloat
}

// numericOp applies intOp when both operands are integral and floatOp when
// either is a float. handled is false when either operand is not a number.
func numericOp(a, b Value,
	intOp func(x, y *big.Int) (Value, error),
	floatOp func(x, y float64) (Value, error),
) (v Value, handled bool, err error) {
	if !isNumber(a) || !isNumber(b) {
		return Value{}, false, nil
	}
	if a.Kind != KindFloat && b.Kind != KindFloat {
		x, _ := asInt(a)
		y, _ := asInt(b)
		v, err = intOp(x, y)
		return v, true, err
	}
	x, _, err := asFloat(a)
	if err != nil {
		return Value{}, true, err
	}
	y, _, err := asFloat(b)
	if err != nil {
		return Value{}, true, err
	}
	v, err = floatOp(x, y)
	return v, true, err
}

func intAdd(x, y *big.Int) (Value, error) { return NewBigInt(new(big.Int).Add(x, y)), nil }
func intSub(x, y *big.Int) (Value, error) { return NewBigInt(new(big.Int).Sub(x, y)), nil }
func intMul(x, y *big.Int) (Value, error) { return NewBigInt(new(big.Int).Mul(x, y)), nil }

func floatAdd(x, y float64) (Value, error) { return NewFloat(x + y), nil }
func floatSub(x, y float64) (Value, error) { return NewFloat(x - y), nil }
func floatMul(x, y float64) (Value, error) { return NewFloat(x * y), nil }

func intTrueDiv(x, y *big.Int) (Value, error) {
	if y.Sign() == 0 {
		return Value{}, newExc(ExcZeroDivisionError, "division by zero")
	}
	f, _ := new(big.Rat).SetFrac(x, y).Float64()
	if math.IsInf(f, 0) {
		return Value{}, newExc(ExcOverflowError, "integer division result too large for a float")
	}
	return NewFloat(f), nil
}

func floatTrueDiv(x, y float64) (Value, error) {
	if y == 0 {
		return Value{}, newExc(ExcZeroDivisionError, "float division by zero")
	}
	return NewFloat(x / y), nil
}

// floorDivMod divides rounding toward negative infinity, so the remainder
// takes the sign of the divisor.
func floorDivMod(x, y *big.Int) (*big.Int, *big.Int) {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && r.Sign() != y.Sign() {
		q.Sub(q, big.NewInt(1))
		r.Add(r, y)
	}
	return q, r
}

func intFloorDiv(x, y *big.Int) (Value, error) {
	if y.Sign() == 0 {
		return Value{}, newExc(ExcZeroDivisionError, "integer division or modulo by zero")
	}
	q, _ := floorDivMod(x, y)
	return NewBigInt(q), nil
}

func intMod(x, y *big.Int) (Value, error) {
	if y.Sign() == 0 {
		return Value{}, newExc(ExcZeroDivisionError, "integer division or modulo by zero")
	}
	_, r := floorDivMod(x, y)
	return NewBigInt(r), nil
}

func floatFloorDiv(x, y float64) (Value, error) {
	if y == 0 {
		return Value{}, newExc(ExcZeroDivisionError, "float divmod()")
	}
	return NewFloat(math.Floor(x / y)), nil
}

func floatMod(x, y float64) (Value, error) {
	if y == 0 {
		return Value{}, newExc(ExcZeroDivisionError, "float modulo")
	}
	m := math.Mod(x, y)
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	return NewFloat(m), nil
}

func intPow(x, y *big.Int) (Value, error) {
	if y.Sign() < 0 {
		fx, _ := new(big.Float).SetInt(x).Float64()
		fy, _ := new(big.Float).SetInt(y).Float64()
		return floatPow(fx, fy)
	}
	return NewBigInt(new(big.Int).Exp(x, y, nil)), nil
}

func floatPow(x, y float64) (Value, error) {
	if x == 0 && y < 0 {
		return Value{}, newExc(ExcZeroDivisionError, "0.0 cannot be raised to a negative power")
	}
	if x < 0 && y != math.Trunc(y) {
		return Value{}, newExc(ExcValueError, "math domain error")
	}
	r := math.Pow(x, y)
	if math.IsInf(r, 0) && !math.IsInf(x, 0) && !math.IsInf(y, 0) {
		return Value{}, newExc(ExcOverflowError, "(34, 'Numerical result out of range')")
	}
	return NewFloat(r), nil
}

func shiftCount(y *big.Int) (uint, error) {
	if y.Sign() < 0 {
		return 0, newExc(ExcValueError, "negative shift count")
	}
	if !y.IsInt64() || y.Int64() > math.MaxInt32 {
		return 0, newExc(ExcOverflowError, "too many digits in integer")
	}
	return uint(y.Int64()), nil
}

func intLshift(x, y *big.Int) (Value, error) {
	n, err := shiftCount(y)
	if err != nil {
		return Value{}, err
	}
	return NewBigInt(new(big.Int).Lsh(x, n)), nil
}

func intRshift(x, y *big.Int) (Value, error) {
	n, err := shiftCount(y)
	if err != nil {
		return Value{}, err
	}
	return NewBigInt(new(big.Int).Rsh(x, n)), nil
}

// compareNumbers orders two numbers, comparing ints against floats exactly.
// ok is false when either side is NaN.
func compareNumbers(a, b Value) (c int, ok bool) {
	if a.Kind != KindFloat && b.Kind != KindFloat {
		x, _ := asInt(a)
		y, _ := asInt(b)
		return x.Cmp(y), true
	}
	toBig := func(v Value) (*big.Float, bool) {
		if v.Kind == KindFloat {
			if math.IsNaN(v.Float) {
				return nil, false
			}
			return big.NewFloat(v.Float), true
		}
		i, _ := asInt(v)
		return new(big.Float).SetInt(i), true
	}
	x, okx := toBig(a)
	y, oky := toBig(b)
	if !okx || !oky {
		return 0, false
	}
	return x.Cmp(y), true
}

// roundHalfEven rounds f to n decimal places the way round() does.
func roundHalfEven(f float64, n int) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return f
	}
	p := math.Pow(10, float64(n))
	r := math.RoundToEven(f * p)
	if math.IsInf(r, 0) {
		return f
	}
	return r / p
}
