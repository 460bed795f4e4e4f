package barewire

import (
	"cmp"
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/speakez-llc/barewire/pkg/schema"
	"github.com/speakez-llc/barewire/pkg/wire"
)

func isIntKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUintKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// asUint reads any Go integer that is not negative.
func asUint(rv reflect.Value) (uint64, error) {
	switch {
	case isUintKind(rv.Kind()):
		return rv.Uint(), nil
	case isIntKind(rv.Kind()):
		if n := rv.Int(); n >= 0 {
			return uint64(n), nil
		}
		return 0, &MappingError{Err: fmt.Errorf("%w: %d is negative", ErrRange, rv.Int())}
	}
	return 0, &MappingError{Err: fmt.Errorf("%w: %s is not an integer", ErrUnsupported, rv.Type())}
}

func asInt(rv reflect.Value) (int64, error) {
	switch {
	case isIntKind(rv.Kind()):
		return rv.Int(), nil
	case isUintKind(rv.Kind()):
		if n := rv.Uint(); n <= math.MaxInt64 {
			return int64(n), nil
		}
		return 0, &MappingError{Err: fmt.Errorf("%w: %d", ErrRange, rv.Uint())}
	}
	return 0, &MappingError{Err: fmt.Errorf("%w: %s is not an integer", ErrUnsupported, rv.Type())}
}

func uintIn(rv reflect.Value, max uint64) (uint64, error) {
	n, err := asUint(rv)
	if err != nil {
		return 0, err
	}
	if n > max {
		return 0, &MappingError{Err: fmt.Errorf("%w: %d exceeds %d", ErrRange, n, max)}
	}
	return n, nil
}

func intIn(rv reflect.Value, min, max int64) (int64, error) {
	n, err := asInt(rv)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, &MappingError{Err: fmt.Errorf("%w: %d outside [%d, %d]", ErrRange, n, min, max)}
	}
	return n, nil
}

// bytesOf accepts []byte and [N]byte.
func bytesOf(rv reflect.Value) ([]byte, bool) {
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), true
		}
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			return b, true
		}
	}
	return nil, false
}

func primitiveValue(t schema.Primitive, rv reflect.Value) (wire.Value, error) {
	switch t.Kind {
	case schema.KindUInt:
		n, err := asUint(rv)
		return wire.UInt(n), err
	case schema.KindInt:
		n, err := asInt(rv)
		return wire.Int(n), err
	case schema.KindU8:
		n, err := uintIn(rv, math.MaxUint8)
		return wire.U8(n), err
	case schema.KindU16:
		n, err := uintIn(rv, math.MaxUint16)
		return wire.U16(n), err
	case schema.KindU32:
		n, err := uintIn(rv, math.MaxUint32)
		return wire.U32(n), err
	case schema.KindU64:
		n, err := asUint(rv)
		return wire.U64(n), err
	case schema.KindI8:
		n, err := intIn(rv, math.MinInt8, math.MaxInt8)
		return wire.I8(n), err
	case schema.KindI16:
		n, err := intIn(rv, math.MinInt16, math.MaxInt16)
		return wire.I16(n), err
	case schema.KindI32:
		n, err := intIn(rv, math.MinInt32, math.MaxInt32)
		return wire.I32(n), err
	case schema.KindI64:
		n, err := asInt(rv)
		return wire.I64(n), err
	case schema.KindF32:
		if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
			return wire.F32(rv.Float()), nil
		}
	case schema.KindF64:
		if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
			return wire.F64(rv.Float()), nil
		}
	case schema.KindBool:
		if rv.Kind() == reflect.Bool {
			return wire.Bool(rv.Bool()), nil
		}
	case schema.KindString:
		if rv.Kind() == reflect.String {
			return wire.String(rv.String()), nil
		}
	case schema.KindData:
		if b, ok := bytesOf(rv); ok {
			return wire.Data(b), nil
		}
	case schema.KindVoid:
		return wire.Void{}, nil
	}
	return nil, unsupported(t, rv)
}

// enumValue accepts the numeric value or the member name.
func enumValue(t schema.Enum, rv reflect.Value) (wire.Value, error) {
	if rv.Kind() == reflect.String {
		ev, ok := t.ByName(rv.String())
		if !ok {
			return nil, &MappingError{Err: fmt.Errorf("%w: %q", wire.ErrInvalidEnum, rv.String())}
		}
		return wire.Enum(ev.Value), nil
	}
	n, err := asUint(rv)
	if err != nil {
		return nil, err
	}
	return wire.Enum(n), nil
}

// sortedKeys orders map keys so that encoding a Go map is deterministic.
func sortedKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		switch {
		case a.Kind() == reflect.String:
			return cmp.Compare(a.String(), b.String())
		case isIntKind(a.Kind()):
			return cmp.Compare(a.Int(), b.Int())
		case isUintKind(a.Kind()):
			return cmp.Compare(a.Uint(), b.Uint())
		case a.Kind() == reflect.Float32 || a.Kind() == reflect.Float64:
			return cmp.Compare(a.Float(), b.Float())
		case a.Kind() == reflect.Bool:
			return cmp.Compare(boolInt(a.Bool()), boolInt(b.Bool()))
		}
		return cmp.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
	})
	return keys
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func setPrimitive(t schema.Primitive, val wire.Value, rv reflect.Value) error {
	switch v := val.(type) {
	case wire.UInt:
		return setUint(uint64(v), rv)
	case wire.U8:
		return setUint(uint64(v), rv)
	case wire.U16:
		return setUint(uint64(v), rv)
	case wire.U32:
		return setUint(uint64(v), rv)
	case wire.U64:
		return setUint(uint64(v), rv)
	case wire.Int:
		return setInt(int64(v), rv)
	case wire.I8:
		return setInt(int64(v), rv)
	case wire.I16:
		return setInt(int64(v), rv)
	case wire.I32:
		return setInt(int64(v), rv)
	case wire.I64:
		return setInt(int64(v), rv)
	case wire.F32:
		return setFloat(float64(v), rv)
	case wire.F64:
		return setFloat(float64(v), rv)
	case wire.Bool:
		if rv.Kind() == reflect.Bool {
			rv.SetBool(bool(v))
			return nil
		}
	case wire.String:
		if rv.Kind() == reflect.String {
			rv.SetString(string(v))
			return nil
		}
	case wire.Data:
		return setBytes(v, rv, t)
	case wire.Void:
		return nil
	}
	return unsupported(t, rv)
}

func setUint(n uint64, rv reflect.Value) error {
	switch {
	case isUintKind(rv.Kind()):
		if rv.OverflowUint(n) {
			return &MappingError{Err: fmt.Errorf("%w: %d overflows %s", ErrRange, n, rv.Type())}
		}
		rv.SetUint(n)
		return nil
	case isIntKind(rv.Kind()):
		if n > math.MaxInt64 || rv.OverflowInt(int64(n)) {
			return &MappingError{Err: fmt.Errorf("%w: %d overflows %s", ErrRange, n, rv.Type())}
		}
		rv.SetInt(int64(n))
		return nil
	}
	return &MappingError{Err: fmt.Errorf("%w: integer into %s", ErrUnsupported, rv.Type())}
}

func setInt(n int64, rv reflect.Value) error {
	switch {
	case isIntKind(rv.Kind()):
		if rv.OverflowInt(n) {
			return &MappingError{Err: fmt.Errorf("%w: %d overflows %s", ErrRange, n, rv.Type())}
		}
		rv.SetInt(n)
		return nil
	case isUintKind(rv.Kind()):
		if n < 0 || rv.OverflowUint(uint64(n)) {
			return &MappingError{Err: fmt.Errorf("%w: %d overflows %s", ErrRange, n, rv.Type())}
		}
		rv.SetUint(uint64(n))
		return nil
	}
	return &MappingError{Err: fmt.Errorf("%w: integer into %s", ErrUnsupported, rv.Type())}
}

func setFloat(f float64, rv reflect.Value) error {
	if rv.Kind() != reflect.Float32 && rv.Kind() != reflect.Float64 {
		return &MappingError{Err: fmt.Errorf("%w: float into %s", ErrUnsupported, rv.Type())}
	}
	rv.SetFloat(f)
	return nil
}

func setBytes(b []byte, rv reflect.Value, t schema.Type) error {
	switch {
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		rv.SetBytes(b)
		return nil
	case rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8:
		if rv.Len() != len(b) {
			return &MappingError{Err: fmt.Errorf("%w: %d bytes into %s", wire.ErrFixedLength, len(b), rv.Type())}
		}
		reflect.Copy(rv, reflect.ValueOf(b))
		return nil
	}
	return unsupported(t, rv)
}

// setEnum stores the member value into integer targets and the member name
// into string targets.
func setEnum(t schema.Enum, val wire.Value, rv reflect.Value) error {
	e, ok := val.(wire.Enum)
	if !ok {
		return &MappingError{Err: fmt.Errorf("%w: %T", wire.ErrShapeMismatch, val)}
	}
	if rv.Kind() == reflect.String {
		ev, ok := t.ByValue(uint64(e))
		if !ok {
			return &MappingError{Err: fmt.Errorf("%w: %d", wire.ErrInvalidEnum, uint64(e))}
		}
		rv.SetString(ev.Name)
		return nil
	}
	return setUint(uint64(e), rv)
}
