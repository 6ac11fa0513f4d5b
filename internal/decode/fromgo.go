package decode

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/roach88/qnorm/internal/ir"
)

// FromGo converts plain Go values into an ir tree.
//
// Supported: nil, bool, signed and unsigned integers, float32/float64,
// string, time.Time, ir.IRValue, and slices and maps built from those.
// Map keys must be strings or integers (stringified).
func FromGo(v any) (ir.IRValue, error) {
	return fromGo(reflect.ValueOf(v), "")
}

var timeType = reflect.TypeOf(time.Time{})
var irValueType = reflect.TypeOf((*ir.IRValue)(nil)).Elem()

func fromGo(rv reflect.Value, path string) (ir.IRValue, error) {
	if !rv.IsValid() {
		return ir.IRNull{}, nil
	}
	if rv.Kind() != reflect.Pointer && rv.Type().Implements(irValueType) {
		if rv.Kind() == reflect.Interface && rv.IsNil() {
			return ir.IRNull{}, nil
		}
		return rv.Interface().(ir.IRValue), nil
	}
	if rv.Type() == timeType {
		return ir.NewIRTimestamp(rv.Interface().(time.Time)), nil
	}

	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return ir.IRNull{}, nil
		}
		return fromGo(rv.Elem(), path)
	case reflect.Bool:
		return ir.IRBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ir.IRInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("%s: integer %d overflows int64", displayPath(path), u)
		}
		return ir.IRInt(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%s: NaN and Inf are not supported", displayPath(path))
		}
		return ir.IRFloat(f), nil
	case reflect.String:
		return ir.IRString(rv.String()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return ir.IRNull{}, nil
		}
		arr := make(ir.IRArray, rv.Len())
		for i := range arr {
			elem, err := fromGo(rv.Index(i), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			arr[i] = elem
		}
		return arr, nil
	case reflect.Map:
		if rv.IsNil() {
			return ir.IRNull{}, nil
		}
		return mapFromGo(rv, path)
	default:
		return nil, fmt.Errorf("%s: unsupported type %s", displayPath(path), rv.Type())
	}
}

func mapFromGo(rv reflect.Value, path string) (ir.IRValue, error) {
	keys := rv.MapKeys()
	names := make([]string, len(keys))
	for i, k := range keys {
		for k.Kind() == reflect.Interface && !k.IsNil() {
			k = k.Elem()
		}
		switch k.Kind() {
		case reflect.String:
			names[i] = k.String()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			names[i] = fmt.Sprint(k.Interface())
		default:
			return nil, fmt.Errorf("%s: unsupported map key type %s", displayPath(path), k.Type())
		}
	}

	// Visit keys in order so errors are reported deterministically.
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return names[order[a]] < names[order[b]] })

	obj := make(ir.IRObject, len(keys))
	for _, i := range order {
		name := names[i]
		if _, dup := obj[name]; dup {
			return nil, fmt.Errorf("%s: duplicate key %q", displayPath(path), name)
		}
		v, err := fromGo(rv.MapIndex(keys[i]), path+"."+name)
		if err != nil {
			return nil, err
		}
		obj[name] = v
	}
	return obj, nil
}

func displayPath(path string) string {
	if path == "" {
		return "value"
	}
	return "value" + path
}
