package domain

// Variable is one named array read from the container.
type Variable struct {
	Name string
	// DType is the CDL base type: byte, char, short, int, int64, float,
	// double, ubyte, ushort, uint, uint64.
	DType string
	Shape []int
	// Values is a flat row-major slice of the native element type
	// ([]int8, []int16, []int32, []int64, []uint8, []uint16, []uint32,
	// []uint64, []float32, []float64). Char arrays arrive as []string with
	// the last dimension folded into each string.
	Values     any
	Attributes Attributes
}

// Len returns the number of elements described by Shape.
func (v Variable) Len() int {
	n := 1
	for _, d := range v.Shape {
		n *= d
	}
	return n
}

// VariableStore is an opened CDM container.
type VariableStore interface {
	// Lookup returns the named variable. ok is false when the container does
	// not declare it; err reports a failure to read a declared variable.
	Lookup(name string) (v Variable, ok bool, err error)

	// VariableAttributes returns a variable's attributes without reading its
	// data.
	VariableAttributes(name string) (Attributes, bool)

	// Variables lists declared variable names in container order.
	Variables() []string

	// GlobalAttributes returns the file-level attributes.
	GlobalAttributes() Attributes

	Close() error
}

// Opener opens the container at path.
type Opener func(path string) (VariableStore, error)
