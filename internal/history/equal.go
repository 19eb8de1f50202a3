package history

import (
	"math"
	"reflect"
)

// Equal reports whether a and b are structurally equal.
//
// Numbers compare by value regardless of their Go type, NaN equals NaN and
// +0 differs from -0. Slices and arrays compare element-wise in order; maps
// and structs compare by their own key set and then per key. A nil slice
// or map equals an empty one; a nil pointer only equals another nil. Values
// of different shapes (list vs keyed, string vs number) are never equal.
// Funcs and channels are only equal when both are nil, so two live values
// holding the same func differ; the controller compares copies, in which
// such members are already dropped. The inputs must be acyclic.
func Equal(a, b any) bool {
	return equalValues(reflect.ValueOf(a), reflect.ValueOf(b))
}

type shape int

const (
	shapeNull shape = iota
	shapeBool
	shapeNumber
	shapeComplex
	shapeString
	shapePointer
	shapeList
	shapeMap
	shapeStruct
	shapeOpaque
)

func shapeOf(v reflect.Value) shape {
	if !v.IsValid() {
		return shapeNull
	}
	switch v.Kind() {
	case reflect.Bool:
		return shapeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return shapeNumber
	case reflect.Complex64, reflect.Complex128:
		return shapeComplex
	case reflect.String:
		return shapeString
	case reflect.Pointer:
		if v.IsNil() {
			return shapeNull
		}
		return shapePointer
	case reflect.Slice, reflect.Array:
		return shapeList
	case reflect.Map:
		return shapeMap
	case reflect.Struct:
		return shapeStruct
	default:
		return shapeOpaque
	}
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func equalValues(a, b reflect.Value) bool {
	a, b = unwrap(a), unwrap(b)

	sa, sb := shapeOf(a), shapeOf(b)
	if sa != sb {
		return false
	}

	switch sa {
	case shapeNull:
		return true
	case shapeBool:
		return a.Bool() == b.Bool()
	case shapeNumber:
		return sameNumber(a, b)
	case shapeComplex:
		ca, cb := a.Complex(), b.Complex()
		return sameFloat(real(ca), real(cb)) && sameFloat(imag(ca), imag(cb))
	case shapeString:
		return a.String() == b.String()
	case shapePointer:
		if a.Type() == b.Type() && a.Pointer() == b.Pointer() {
			return true
		}
		return equalValues(a.Elem(), b.Elem())
	case shapeList:
		return equalLists(a, b)
	case shapeMap:
		return equalMaps(a, b)
	case shapeStruct:
		return equalStructs(a, b)
	default:
		// funcs, chans and unsafe pointers only equal themselves when nil
		return a.Type() == b.Type() && a.IsNil() && b.IsNil()
	}
}

func equalLists(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	if a.Kind() == reflect.Slice && b.Kind() == reflect.Slice &&
		a.Type() == b.Type() && a.Len() > 0 && a.Pointer() == b.Pointer() {
		return true
	}
	for i := 0; i < a.Len(); i++ {
		if !equalValues(a.Index(i), b.Index(i)) {
			return false
		}
	}
	return true
}

func equalMaps(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	if a.Type().Key() != b.Type().Key() {
		return a.Len() == 0
	}
	iter := a.MapRange()
	for iter.Next() {
		bv := b.MapIndex(iter.Key())
		if !bv.IsValid() {
			return false
		}
		if !equalValues(iter.Value(), bv) {
			return false
		}
	}
	return true
}

func equalStructs(a, b reflect.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	for i := 0; i < a.NumField(); i++ {
		if !equalValues(a.Field(i), b.Field(i)) {
			return false
		}
	}
	return true
}

func sameNumber(a, b reflect.Value) bool {
	switch {
	case isInt(a) && isInt(b):
		return a.Int() == b.Int()
	case isUint(a) && isUint(b):
		return a.Uint() == b.Uint()
	case isInt(a) && isUint(b):
		return a.Int() >= 0 && uint64(a.Int()) == b.Uint()
	case isUint(a) && isInt(b):
		return b.Int() >= 0 && a.Uint() == uint64(b.Int())
	default:
		return sameFloat(toFloat(a), toFloat(b))
	}
}

// sameFloat treats NaN as equal to itself and distinguishes signed zeros.
func sameFloat(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y)
	}
	return x == y && math.Signbit(x) == math.Signbit(y)
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v):
		return float64(v.Int())
	case isUint(v):
		return float64(v.Uint())
	default:
		return v.Float()
	}
}
