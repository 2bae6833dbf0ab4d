package domain

// Attributes is an ordered attribute map. The zero value is empty and ready
// to use.
type Attributes struct {
	keys   []string
	values map[string]any
}

// NewAttributes builds Attributes from alternating key/value pairs.
// It panics on an odd argument count.
func NewAttributes(kv ...any) Attributes {
	if len(kv)%2 != 0 {
		panic("domain: NewAttributes needs key/value pairs")
	}
	var a Attributes
	for i := 0; i < len(kv); i += 2 {
		a.Set(kv[i].(string), kv[i+1])
	}
	return a
}

// Set adds or replaces a value, keeping the original key position.
func (a *Attributes) Set(key string, value any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the raw value stored under key.
func (a Attributes) Get(key string) (any, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Keys returns attribute names in source order.
func (a Attributes) Keys() []string {
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of attributes.
func (a Attributes) Len() int { return len(a.keys) }

// String returns a text attribute.
func (a Attributes) String(key string) (string, bool) {
	v, ok := a.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns a numeric attribute as float64. Numeric attributes are
// stored as one-element slices by NetCDF readers; both shapes are accepted.
func (a Attributes) Float(key string) (float64, bool) {
	v, ok := a.values[key]
	if !ok {
		return 0, false
	}
	return scalarFloat(v)
}

// scalarFloat converts a numeric scalar or one-element numeric slice.
func scalarFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	s, ok := numericSlice(v)
	if !ok || len(s) != 1 {
		return 0, false
	}
	return s[0], true
}

// numericSlice widens any numeric slice to []float64.
func numericSlice(v any) ([]float64, bool) {
	switch x := v.(type) {
	case []int8:
		return widen(x), true
	case []int16:
		return widen(x), true
	case []int32:
		return widen(x), true
	case []int64:
		return widen(x), true
	case []uint8:
		return widen(x), true
	case []uint16:
		return widen(x), true
	case []uint32:
		return widen(x), true
	case []uint64:
		return widen(x), true
	case []float32:
		return widen(x), true
	case []float64:
		return widen(x), true
	}
	return nil, false
}

// collapse turns one-element numeric slices into scalars so global metadata
// reads the way users expect ("1" rather than "[1]"). Integer values become
// int64 and floating point values float64.
func collapse(v any) any {
	if s, ok := numericSlice(v); ok {
		if len(s) != 1 {
			return v
		}
		if isFloat(v) {
			return s[0]
		}
		return int64(s[0])
	}
	if f, ok := scalarFloat(v); ok {
		if isFloat(v) {
			return f
		}
		return int64(f)
	}
	return v
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64, []float32, []float64:
		return true
	}
	return false
}
