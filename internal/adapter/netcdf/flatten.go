package netcdf

import (
	"errors"
	"fmt"
	"reflect"
)

var errRagged = errors.New("ragged array")

// flatten turns the nested slices returned by the NetCDF reader into a flat
// row-major slice and its shape. Scalars become one-element slices with an
// empty shape; char data is already folded into strings by the reader.
func flatten(values any) (any, []int, error) {
	if values == nil {
		return nil, nil, errors.New("no values")
	}
	if s, ok := values.(string); ok {
		return []string{s}, []int{}, nil
	}

	rv := reflect.ValueOf(values)
	if rv.Kind() != reflect.Slice {
		out := reflect.MakeSlice(reflect.SliceOf(rv.Type()), 1, 1)
		out.Index(0).Set(rv)
		return out.Interface(), []int{}, nil
	}

	var shape []int
	t, probe := rv.Type(), rv
	for t.Kind() == reflect.Slice {
		shape = append(shape, probe.Len())
		t = t.Elem()
		if probe.Len() > 0 {
			probe = probe.Index(0)
		} else {
			probe = reflect.Zero(t)
		}
	}
	if !leafType(t.Kind()) {
		return nil, nil, fmt.Errorf("unsupported element type %s", t)
	}

	// One-dimensional data is already flat.
	if len(shape) == 1 {
		return values, shape, nil
	}

	n := 1
	for _, d := range shape {
		n *= d
	}
	flat := reflect.MakeSlice(reflect.SliceOf(t), 0, n)
	var walk func(v reflect.Value, depth int) error
	walk = func(v reflect.Value, depth int) error {
		if v.Len() != shape[depth] {
			return fmt.Errorf("%w: dimension %d has %d and %d elements", errRagged, depth, shape[depth], v.Len())
		}
		if depth == len(shape)-1 {
			flat = reflect.AppendSlice(flat, v)
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := walk(v.Index(i), depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(rv, 0); err != nil {
		return nil, nil, err
	}
	return flat.Interface(), shape, nil
}

func leafType(k reflect.Kind) bool {
	switch k {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	}
	return false
}
