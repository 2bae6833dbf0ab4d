package domain

import (
	"math"
	"strings"
)

// memStore is an in-memory VariableStore.
type memStore struct {
	vars      []Variable
	global    Attributes
	lookupErr map[string]error
	closeErr  error
	closed    int
}

func (s *memStore) Lookup(name string) (Variable, bool, error) {
	if err := s.lookupErr[name]; err != nil {
		return Variable{}, false, err
	}
	for _, v := range s.vars {
		if v.Name == name {
			return v, true, nil
		}
	}
	return Variable{}, false, nil
}

func (s *memStore) VariableAttributes(name string) (Attributes, bool) {
	for _, v := range s.vars {
		if v.Name == name {
			return v.Attributes, true
		}
	}
	return Attributes{}, false
}

func (s *memStore) Variables() []string {
	names := make([]string, len(s.vars))
	for i, v := range s.vars {
		names[i] = v.Name
	}
	return names
}

func (s *memStore) GlobalAttributes() Attributes { return s.global }

func (s *memStore) Close() error {
	s.closed++
	return s.closeErr
}

// put adds v or replaces the variable of the same name in place.
func (s *memStore) put(v Variable) *memStore {
	for i := range s.vars {
		if s.vars[i].Name == v.Name {
			s.vars[i] = v
			return s
		}
	}
	s.vars = append(s.vars, v)
	return s
}

func (s *memStore) remove(name string) *memStore {
	for i := range s.vars {
		if s.vars[i].Name == name {
			s.vars = append(s.vars[:i], s.vars[i+1:]...)
			return s
		}
	}
	return s
}

// get returns a copy of the named variable for modification and put.
func (s *memStore) get(name string) Variable {
	v, _, _ := s.Lookup(name)
	return v
}

// Reference volume dimensions. The layout follows a KATX volume from
// 2013-07-17 with fewer rays per sweep and fewer gates.
const (
	refSweeps       = 16
	refRaysPerSweep = 45
	refRays         = refSweeps * refRaysPerSweep
	refGates        = 12
	refTimeUnits    = "seconds since 2013-07-17T19:50:21Z"
)

func grid[T any](rays, gates int, f func(ray, gate int) T) []T {
	out := make([]T, rays*gates)
	for r := 0; r < rays; r++ {
		for g := 0; g < gates; g++ {
			out[r*gates+g] = f(r, g)
		}
	}
	return out
}

func series[T any](n int, f func(i int) T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func momentAttrs(standardName, units string, kv ...any) Attributes {
	a := NewAttributes(
		AttrStandardName, standardName,
		AttrLongName, standardName,
		AttrUnits, units,
		AttrCoordinates, "elevation azimuth range",
	)
	for i := 0; i+1 < len(kv); i += 2 {
		a.Set(kv[i].(string), kv[i+1])
	}
	return a
}

// referenceStore builds a complete CDM volume. Every call returns fresh
// buffers.
func referenceStore() *memStore {
	s := &memStore{
		global: NewAttributes(
			"Conventions", "CF/Radial",
			"instrument_name", "KATX",
			"source", "NOAA NWS NEXRAD Level-II",
			"title", "TDWR",
			"volume_number", []int32{42},
			"version", []float32{1},
		),
	}
	rays := []int{refRays}

	s.put(Variable{
		Name: VarTime, DType: "double", Shape: rays,
		Values: series(refRays, func(i int) float64 { return float64(i) * 0.677 }),
		Attributes: NewAttributes(
			AttrStandardName, "time",
			AttrLongName, "time_in_seconds_since_volume_start",
			AttrUnits, refTimeUnits,
			AttrCalendar, "gregorian",
		),
	})
	s.put(Variable{
		Name: VarRange, DType: "float", Shape: []int{refGates},
		Values: series(refGates, func(i int) float32 { return 2125 + 250*float32(i) }),
		Attributes: NewAttributes(
			AttrStandardName, "projection_range_coordinate",
			AttrUnits, "meters",
			AttrSpacingIsConstant, "true",
			AttrAxis, "radial_range_coordinate",
			AttrMetersToCenterOfFirstGate, []float32{2125},
			AttrMetersBetweenGates, []float32{250},
		),
	})
	s.put(Variable{
		Name: VarLatitude, DType: "double", Shape: []int{},
		Values:     []float64{48.1946},
		Attributes: NewAttributes(AttrStandardName, "latitude", AttrUnits, "degrees_north"),
	})
	s.put(Variable{
		Name: VarLongitude, DType: "double", Shape: []int{},
		Values:     []float64{-122.4957},
		Attributes: NewAttributes(AttrStandardName, "longitude", AttrUnits, "degrees_east"),
	})
	s.put(Variable{
		Name: VarAltitude, DType: "double", Shape: []int{},
		Values:     []float64{151.0},
		Attributes: NewAttributes(AttrStandardName, "altitude", AttrUnits, "meters", AttrPositive, "up"),
	})
	s.put(Variable{
		Name: VarSweepNumber, DType: "int", Shape: []int{refSweeps},
		Values:     series(refSweeps, func(i int) int32 { return int32(i) }),
		Attributes: NewAttributes(AttrStandardName, "sweep_number", AttrUnits, "count"),
	})
	s.put(Variable{
		Name: VarSweepMode, DType: "char", Shape: []int{refSweeps, 32},
		Values: series(refSweeps, func(int) string {
			return "azimuth_surveillance" + strings.Repeat("\x00", 12)
		}),
		Attributes: NewAttributes(AttrStandardName, "sweep_mode", AttrUnits, "unitless"),
	})
	s.put(Variable{
		Name: VarFixedAngle, DType: "float", Shape: []int{refSweeps},
		Values:     series(refSweeps, func(i int) float32 { return 0.53 + 0.9*float32(i) }),
		Attributes: NewAttributes(AttrStandardName, "beam_target_fixed_angle", AttrUnits, "degrees"),
	})
	s.put(Variable{
		Name: VarSweepStartRayIndex, DType: "int", Shape: []int{refSweeps},
		Values:     series(refSweeps, func(i int) int32 { return int32(i * refRaysPerSweep) }),
		Attributes: NewAttributes(AttrLongName, "index_of_first_ray_in_sweep", AttrUnits, "count"),
	})
	s.put(Variable{
		Name: VarSweepEndRayIndex, DType: "int", Shape: []int{refSweeps},
		Values:     series(refSweeps, func(i int) int32 { return int32((i+1)*refRaysPerSweep - 1) }),
		Attributes: NewAttributes(AttrLongName, "index_of_last_ray_in_sweep", AttrUnits, "count"),
	})
	s.put(Variable{
		Name: VarAzimuth, DType: "float", Shape: rays,
		Values: series(refRays, func(i int) float32 {
			return float32(math.Mod(350+0.5*float64(i%refRaysPerSweep), 360))
		}),
		Attributes: NewAttributes(AttrStandardName, "beam_azimuth_angle", AttrUnits, "degrees"),
	})
	s.put(Variable{
		Name: VarElevation, DType: "float", Shape: rays,
		Values: series(refRays, func(i int) float32 {
			return 0.75 + 0.9*float32(i/refRaysPerSweep)
		}),
		Attributes: NewAttributes(AttrStandardName, "beam_elevation_angle", AttrUnits, "degrees"),
	})

	moment := []int{refRays, refGates}
	s.put(Variable{
		Name: FieldReflectivity, DType: "short", Shape: moment,
		Values: grid(refRays, refGates, func(ray, gate int) int16 { return int16(2 + gate) }),
		Attributes: momentAttrs("equivalent_reflectivity_factor", "dBZ",
			AttrFillValue, []int16{-32768},
			AttrScaleFactor, []float32{0.5},
			AttrAddOffset, []float32{-33},
		),
	})
	s.put(Variable{
		Name: FieldVelocity, DType: "short", Shape: moment,
		Values: grid(refRays, refGates, func(ray, gate int) int16 {
			if ray == 0 {
				return 0
			}
			return 130
		}),
		Attributes: momentAttrs("radial_velocity_of_scatterers_away_from_instrument", "meters_per_second",
			AttrFillValue, []int16{0},
			AttrScaleFactor, []float32{0.5},
			AttrAddOffset, []float32{-64.5},
		),
	})
	s.put(Variable{
		Name: FieldSpectrumWidth, DType: "short", Shape: moment,
		Values: grid(refRays, refGates, func(ray, gate int) int16 {
			if gate == 0 {
				return -1
			}
			return 20
		}),
		Attributes: momentAttrs("doppler_spectrum_width", "meters_per_second",
			AttrFillValue, []int16{-1},
			AttrScaleFactor, []float32{0.5},
			AttrAddOffset, []float32{0},
		),
	})
	s.put(Variable{
		Name: FieldDifferentialPhase, DType: "byte", Shape: moment,
		Values: grid(refRays, refGates, func(int, int) int8 { return int8(-75) }),
		Attributes: momentAttrs("differential_phase_hv", "degrees",
			AttrFillValue, []int8{0},
			AttrUnsigned, "true",
		),
	})
	s.put(Variable{
		Name: FieldDifferentialReflectivity, DType: "short", Shape: moment,
		Values: grid(refRays, refGates, func(int, int) int16 { return 0 }),
		Attributes: momentAttrs("log_differential_reflectivity_hv", "dB",
			AttrFillValue, []int16{-32768},
			AttrScaleFactor, []float32{0.0625},
			AttrAddOffset, []float32{-8},
		),
	})
	s.put(Variable{
		Name: FieldCorrelationCoefficient, DType: "float", Shape: moment,
		Values: grid(refRays, refGates, func(int, int) float32 { return 0 }),
		Attributes: momentAttrs("cross_correlation_ratio_hv", "ratio",
			AttrFillValue, []float32{-9999},
		),
	})

	s.put(Variable{
		Name: "nyquist_velocity", DType: "float", Shape: rays,
		Values:     series(refRays, func(int) float32 { return 26.5 }),
		Attributes: NewAttributes(AttrUnits, "meters_per_second", AttrMetaGroup, GroupInstrumentParameters),
	})
	s.put(Variable{
		Name: "prt_mode", DType: "char", Shape: []int{refSweeps, 8},
		Values:     series(refSweeps, func(int) string { return "fixed   " }),
		Attributes: NewAttributes(AttrUnits, "unitless", AttrMetaGroup, GroupInstrumentParameters),
	})
	s.put(Variable{
		Name: "site_chooser", DType: "int", Shape: []int{},
		Values:     []int32{7},
		Attributes: NewAttributes(AttrMetaGroup, GroupInstrumentParameters),
	})
	return s
}
