package domain

import (
	"fmt"
	"math"
	"strings"
)

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func widen[T number](s []T) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = float64(v)
	}
	return out
}

// encoding is the packing declared by a variable's attributes.
type encoding struct {
	scale    float64
	offset   float64
	unsigned bool
	fill     any
	hasFill  bool
}

// readEncoding validates scale_factor, add_offset, _Unsigned and _FillValue.
func readEncoding(v Variable) (encoding, error) {
	enc := encoding{scale: 1}

	if raw, ok := v.Attributes.Get(AttrScaleFactor); ok {
		s, ok := scalarFloat(raw)
		if !ok || s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			return enc, unsupportedEncoding(v.Name, fmt.Sprintf("scale_factor %v cannot be applied", raw))
		}
		enc.scale = s
	}
	if raw, ok := v.Attributes.Get(AttrAddOffset); ok {
		o, ok := scalarFloat(raw)
		if !ok || math.IsNaN(o) || math.IsInf(o, 0) {
			return enc, unsupportedEncoding(v.Name, fmt.Sprintf("add_offset %v cannot be applied", raw))
		}
		enc.offset = o
	}
	if u, ok := v.Attributes.String(AttrUnsigned); ok && strings.EqualFold(strings.TrimSpace(u), "true") {
		switch v.Values.(type) {
		case []float32, []float64:
			return enc, unsupportedEncoding(v.Name, "_Unsigned declared on floating point storage")
		}
		enc.unsigned = true
	}
	if raw, ok := v.Attributes.Get(AttrFillValue); ok {
		if _, isText := raw.(string); isText {
			return enc, unsupportedEncoding(v.Name, "_FillValue is not numeric")
		}
		enc.fill, enc.hasFill = raw, true
	}
	return enc, nil
}

// decodeValues unpacks a numeric buffer. mask[i] is true where the raw
// stored value equals _FillValue; that comparison happens on the native
// storage type before _Unsigned, scale_factor and add_offset are applied.
func decodeValues(v Variable, enc encoding) ([]float64, []bool, error) {
	switch raw := v.Values.(type) {
	case []int8:
		conv := func(x int8) float64 { return float64(x) }
		if enc.unsigned {
			conv = func(x int8) float64 { return float64(uint8(x)) }
		}
		return decodeTyped(v.Name, raw, enc, conv)
	case []int16:
		conv := func(x int16) float64 { return float64(x) }
		if enc.unsigned {
			conv = func(x int16) float64 { return float64(uint16(x)) }
		}
		return decodeTyped(v.Name, raw, enc, conv)
	case []int32:
		conv := func(x int32) float64 { return float64(x) }
		if enc.unsigned {
			conv = func(x int32) float64 { return float64(uint32(x)) }
		}
		return decodeTyped(v.Name, raw, enc, conv)
	case []int64:
		conv := func(x int64) float64 { return float64(x) }
		if enc.unsigned {
			conv = func(x int64) float64 { return float64(uint64(x)) }
		}
		return decodeTyped(v.Name, raw, enc, conv)
	case []uint8:
		return decodeTyped(v.Name, raw, enc, func(x uint8) float64 { return float64(x) })
	case []uint16:
		return decodeTyped(v.Name, raw, enc, func(x uint16) float64 { return float64(x) })
	case []uint32:
		return decodeTyped(v.Name, raw, enc, func(x uint32) float64 { return float64(x) })
	case []uint64:
		return decodeTyped(v.Name, raw, enc, func(x uint64) float64 { return float64(x) })
	case []float32:
		return decodeTyped(v.Name, raw, enc, func(x float32) float64 { return float64(x) })
	case []float64:
		return decodeTyped(v.Name, raw, enc, func(x float64) float64 { return x })
	case []string:
		return nil, nil, unsupportedEncoding(v.Name, "char data where numbers are required")
	}
	return nil, nil, unsupportedEncoding(v.Name, fmt.Sprintf("storage type %T (%s)", v.Values, v.DType))
}

func decodeTyped[T number](name string, raw []T, enc encoding, conv func(T) float64) ([]float64, []bool, error) {
	var (
		fill      T
		useFill   bool
		fillIsNaN bool
	)
	if enc.hasFill {
		f, ok, err := castFill[T](enc.fill)
		if err != nil {
			return nil, nil, unsupportedEncoding(name, err.Error())
		}
		// A fill value the storage type cannot hold can never match.
		fill, useFill = f, ok
		fillIsNaN = ok && f != f
	}

	vals := make([]float64, len(raw))
	mask := make([]bool, len(raw))
	for i, x := range raw {
		if useFill && (x == fill || (fillIsNaN && x != x)) {
			mask[i] = true
			continue
		}
		vals[i] = conv(x)*enc.scale + enc.offset
	}
	return vals, mask, nil
}

// castFill converts a _FillValue attribute to the storage type. ok is false
// when the value is numeric but not exactly representable in T.
func castFill[T number](v any) (T, bool, error) {
	var zero T
	switch x := v.(type) {
	case T:
		return x, true, nil
	case []T:
		if len(x) != 1 {
			return zero, false, fmt.Errorf("_FillValue has %d elements", len(x))
		}
		return x[0], true, nil
	}
	f, ok := scalarFloat(v)
	if !ok {
		return zero, false, fmt.Errorf("_FillValue %v is not a numeric scalar", v)
	}
	t := T(f)
	if math.IsNaN(f) {
		return t, t != t, nil
	}
	if float64(t) != f {
		return zero, false, nil
	}
	return t, true, nil
}

// trimChars strips the NUL and space padding of fixed-width char data.
func trimChars(s string) string {
	return strings.TrimRight(s, "\x00 ")
}
