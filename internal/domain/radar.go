package domain

import "sort"

// CF attribute names understood by Metadata.
const (
	AttrStandardName              = "standard_name"
	AttrLongName                  = "long_name"
	AttrUnits                     = "units"
	AttrComment                   = "comment"
	AttrCalendar                  = "calendar"
	AttrFillValue                 = "_FillValue"
	AttrCoordinates               = "coordinates"
	AttrPositive                  = "positive"
	AttrSpacingIsConstant         = "spacing_is_constant"
	AttrAxis                      = "axis"
	AttrMetersToCenterOfFirstGate = "meters_to_center_of_first_gate"
	AttrMetersBetweenGates        = "meters_between_gates"
	AttrScaleFactor               = "scale_factor"
	AttrAddOffset                 = "add_offset"
	AttrUnsigned                  = "_Unsigned"
	AttrMetaGroup                 = "meta_group"
)

// Metadata holds the descriptive attributes of one field. A nil member means
// the source did not declare that attribute. Attributes outside the known set
// are kept in Extra.
type Metadata struct {
	StandardName              *string  `json:"standard_name,omitempty"`
	LongName                  *string  `json:"long_name,omitempty"`
	Units                     *string  `json:"units,omitempty"`
	Comment                   *string  `json:"comment,omitempty"`
	Calendar                  *string  `json:"calendar,omitempty"`
	FillValue                 *float64 `json:"_FillValue,omitempty"`
	Coordinates               *string  `json:"coordinates,omitempty"`
	Positive                  *string  `json:"positive,omitempty"`
	SpacingIsConstant         *string  `json:"spacing_is_constant,omitempty"`
	Axis                      *string  `json:"axis,omitempty"`
	MetersToCenterOfFirstGate *float64 `json:"meters_to_center_of_first_gate,omitempty"`
	MetersBetweenGates        *float64 `json:"meters_between_gates,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// Has reports whether the attribute named key was supplied by the source.
func (m Metadata) Has(key string) bool {
	switch key {
	case AttrStandardName:
		return m.StandardName != nil
	case AttrLongName:
		return m.LongName != nil
	case AttrUnits:
		return m.Units != nil
	case AttrComment:
		return m.Comment != nil
	case AttrCalendar:
		return m.Calendar != nil
	case AttrFillValue:
		return m.FillValue != nil
	case AttrCoordinates:
		return m.Coordinates != nil
	case AttrPositive:
		return m.Positive != nil
	case AttrSpacingIsConstant:
		return m.SpacingIsConstant != nil
	case AttrAxis:
		return m.Axis != nil
	case AttrMetersToCenterOfFirstGate:
		return m.MetersToCenterOfFirstGate != nil
	case AttrMetersBetweenGates:
		return m.MetersBetweenGates != nil
	}
	_, ok := m.Extra[key]
	return ok
}

// UnitsOr returns the units attribute, or def when it is absent.
func (m Metadata) UnitsOr(def string) string {
	if m.Units == nil {
		return def
	}
	return *m.Units
}

// Array is a dense numeric array.
type Array struct {
	Shape  []int     `json:"shape"`
	Values []float64 `json:"values"`
}

// Len returns the number of elements.
func (a Array) Len() int { return len(a.Values) }

// Field is a coordinate or scalar field: attributes plus numeric data.
type Field struct {
	Metadata
	Data Array `json:"data"`
}

// StringField is a field whose data is one string per element.
type StringField struct {
	Metadata
	Data []string `json:"data"`
}

// MaskedArray is a rays x gates grid whose elements are either a value or
// missing. Missing elements hold 0 in the dense buffer and are only
// reachable through the mask.
type MaskedArray struct {
	Rays  int
	Gates int
	data  []float64
	mask  []bool
}

// NewMaskedArray wraps a dense buffer and its mask. Both must hold
// rays*gates elements.
func NewMaskedArray(rays, gates int, data []float64, mask []bool) MaskedArray {
	if len(data) != rays*gates || len(mask) != rays*gates {
		panic("domain: masked array buffer does not match shape")
	}
	for i, m := range mask {
		if m {
			data[i] = 0
		}
	}
	return MaskedArray{Rays: rays, Gates: gates, data: data, mask: mask}
}

// Shape returns (rays, gates).
func (m MaskedArray) Shape() (int, int) { return m.Rays, m.Gates }

// At returns the value at (ray, gate); ok is false when the element is missing.
func (m MaskedArray) At(ray, gate int) (value float64, ok bool) {
	i := ray*m.Gates + gate
	if m.mask[i] {
		return 0, false
	}
	return m.data[i], true
}

// Masked reports whether the element at (ray, gate) is missing.
func (m MaskedArray) Masked(ray, gate int) bool {
	return m.mask[ray*m.Gates+gate]
}

// Row returns a copy of one ray's values and mask.
func (m MaskedArray) Row(ray int) ([]float64, []bool) {
	lo, hi := ray*m.Gates, (ray+1)*m.Gates
	vals := make([]float64, m.Gates)
	mask := make([]bool, m.Gates)
	copy(vals, m.data[lo:hi])
	copy(mask, m.mask[lo:hi])
	return vals, mask
}

// MaskedCount returns the number of missing elements.
func (m MaskedArray) MaskedCount() int {
	n := 0
	for _, v := range m.mask {
		if v {
			n++
		}
	}
	return n
}

// MomentField is one measurement quantity sampled over rays x gates.
type MomentField struct {
	Metadata
	Data MaskedArray `json:"-"`
}

// ParameterGroup is a named set of auxiliary fields such as
// instrument_parameters or radar_calibration.
type ParameterGroup struct {
	Name   string
	Fields map[string]Field
	Text   map[string]StringField
}

// Radar is a decoded volume scan.
type Radar struct {
	Time               Field
	Range              Field
	Latitude           Field
	Longitude          Field
	Altitude           Field
	AltitudeAGL        *Field
	SweepNumber        Field
	SweepMode          StringField
	FixedAngle         Field
	SweepStartRayIndex Field
	SweepEndRayIndex   Field
	TargetScanRate     *Field
	Azimuth            Field
	Elevation          Field
	ScanRate           *Field
	AntennaTransition  *Field

	InstrumentParameters *ParameterGroup
	RadarCalibration     *ParameterGroup

	Metadata map[string]any
	ScanType string
	Fields   map[string]MomentField

	NGates  int
	NRays   int
	NSweeps int
}

// FieldNames returns the moment names in sorted order.
func (r *Radar) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SweepRays returns the inclusive ray span of sweep i.
func (r *Radar) SweepRays(i int) (start, end int) {
	return int(r.SweepStartRayIndex.Data.Values[i]), int(r.SweepEndRayIndex.Data.Values[i])
}
