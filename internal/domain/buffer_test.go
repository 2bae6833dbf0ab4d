package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeVar(t *testing.T, v Variable) ([]float64, []bool) {
	t.Helper()
	enc, err := readEncoding(v)
	require.NoError(t, err)
	vals, mask, err := decodeValues(v, enc)
	require.NoError(t, err)
	return vals, mask
}

func TestDecodeValues_MaskBeforeScale(t *testing.T) {
	// Raw 2 unpacks to -32, which is also the declared fill. Only the raw
	// value 2 in storage is compared with the fill, so nothing here is
	// masked except the raw -32.
	v := Variable{
		Name:   "reflectivity",
		Values: []int16{2, -32, 10},
		Attributes: NewAttributes(
			AttrFillValue, []int16{-32},
			AttrScaleFactor, []float32{0.5},
			AttrAddOffset, []float32{-33},
		),
	}

	vals, mask := decodeVar(t, v)
	assert.Equal(t, []bool{false, true, false}, mask)
	assert.Equal(t, -32.0, vals[0])
	assert.Equal(t, -28.0, vals[2])
}

func TestDecodeValues_Unsigned(t *testing.T) {
	v := Variable{
		Name:       "differential_phase",
		Values:     []int8{-1, 0, 127, -128},
		Attributes: NewAttributes(AttrUnsigned, "true"),
	}

	vals, mask := decodeVar(t, v)
	assert.Equal(t, []float64{255, 0, 127, 128}, vals)
	assert.Equal(t, []bool{false, false, false, false}, mask)
}

func TestDecodeValues_UnsignedFillComparedRaw(t *testing.T) {
	v := Variable{
		Name:       "velocity",
		Values:     []int16{-1, 5},
		Attributes: NewAttributes(AttrUnsigned, "true", AttrFillValue, []int16{-1}),
	}

	vals, mask := decodeVar(t, v)
	assert.Equal(t, []bool{true, false}, mask)
	assert.Equal(t, 5.0, vals[1])
}

func TestDecodeValues_FillNotRepresentable(t *testing.T) {
	v := Variable{
		Name:       "spectrum_width",
		Values:     []int8{44, 100},
		Attributes: NewAttributes(AttrFillValue, 300.0),
	}

	_, mask := decodeVar(t, v)
	assert.Equal(t, []bool{false, false}, mask)
}

func TestDecodeValues_ScalarFillOfOtherType(t *testing.T) {
	v := Variable{
		Name:       "reflectivity",
		Values:     []uint8{0, 1, 2},
		Attributes: NewAttributes(AttrFillValue, []int32{0}),
	}

	_, mask := decodeVar(t, v)
	assert.Equal(t, []bool{true, false, false}, mask)
}

func TestDecodeValues_NaNFill(t *testing.T) {
	nan32 := float32(math.NaN())
	v := Variable{
		Name:       "correlation_coefficient",
		Values:     []float32{0.98, nan32},
		Attributes: NewAttributes(AttrFillValue, []float32{nan32}),
	}

	vals, mask := decodeVar(t, v)
	assert.Equal(t, []bool{false, true}, mask)
	assert.InDelta(t, 0.98, vals[0], 1e-6)
}

func TestDecodeValues_NoPacking(t *testing.T) {
	v := Variable{Name: "range", Values: []float64{2125, 2375}}

	vals, mask := decodeVar(t, v)
	assert.Equal(t, []float64{2125, 2375}, vals)
	assert.Equal(t, []bool{false, false}, mask)
}

func TestReadEncoding_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		value any
		attrs Attributes
	}{
		{"NaN scale", []int16{1}, NewAttributes(AttrScaleFactor, math.NaN())},
		{"infinite offset", []int16{1}, NewAttributes(AttrAddOffset, math.Inf(1))},
		{"multi-element scale", []int16{1}, NewAttributes(AttrScaleFactor, []float32{1, 2})},
		{"unsigned double", []float64{1}, NewAttributes(AttrUnsigned, "true")},
		{"text fill", []int16{1}, NewAttributes(AttrFillValue, "-32768")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readEncoding(Variable{Name: "x", Values: tt.value, Attributes: tt.attrs})
			assert.ErrorIs(t, err, ErrUnsupportedEncoding)
		})
	}
}

func TestDecodeValues_MultiElementFill(t *testing.T) {
	v := Variable{Name: "x", Values: []int16{1}, Attributes: NewAttributes(AttrFillValue, []int16{1, 2})}
	enc, err := readEncoding(v)
	require.NoError(t, err)

	_, _, err = decodeValues(v, enc)
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestTrimChars(t *testing.T) {
	assert.Equal(t, "azimuth_surveillance", trimChars("azimuth_surveillance\x00\x00\x00"))
	assert.Equal(t, "rhi", trimChars("rhi   "))
	assert.Equal(t, "", trimChars("\x00\x00"))
}

func TestAttributes_Order(t *testing.T) {
	a := NewAttributes("b", 1, "a", 2)
	a.Set("b", 3)
	a.Set("c", "x")

	assert.Equal(t, []string{"b", "a", "c"}, a.Keys())
	v, _ := a.Get("b")
	assert.Equal(t, 3, v)
	f, ok := a.Float("a")
	assert.True(t, ok)
	assert.Equal(t, 2.0, f)
	_, ok = a.Float("c")
	assert.False(t, ok)
	s, ok := a.String("c")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	assert.Panics(t, func() { NewAttributes("odd") })
}

func TestMaskedArray(t *testing.T) {
	m := NewMaskedArray(2, 3, []float64{1, 2, 3, 4, 5, 6}, []bool{false, true, false, false, false, true})

	rays, gates := m.Shape()
	assert.Equal(t, 2, rays)
	assert.Equal(t, 3, gates)
	assert.Equal(t, 2, m.MaskedCount())

	v, ok := m.At(1, 0)
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
	_, ok = m.At(0, 1)
	assert.False(t, ok)

	vals, mask := m.Row(0)
	assert.Equal(t, []float64{1, 0, 3}, vals, "masked elements hold zero")
	assert.Equal(t, []bool{false, true, false}, mask)

	assert.Panics(t, func() { NewMaskedArray(2, 2, []float64{1}, []bool{false}) })
}
