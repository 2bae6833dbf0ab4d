package domain

import (
	"log/slog"
	"reflect"
)

// Variable names read by the decoder.
const (
	VarTime               = "time"
	VarRange              = "range"
	VarLatitude           = "latitude"
	VarLongitude          = "longitude"
	VarAltitude           = "altitude"
	VarAltitudeAGL        = "altitude_agl"
	VarSweepNumber        = "sweep_number"
	VarSweepMode          = "sweep_mode"
	VarFixedAngle         = "fixed_angle"
	VarSweepStartRayIndex = "sweep_start_ray_index"
	VarSweepEndRayIndex   = "sweep_end_ray_index"
	VarTargetScanRate     = "target_scan_rate"
	VarAzimuth            = "azimuth"
	VarElevation          = "elevation"
	VarScanRate           = "scan_rate"
	VarAntennaTransition  = "antenna_transition"
)

// Canonical moment names.
const (
	FieldReflectivity             = "reflectivity"
	FieldVelocity                 = "velocity"
	FieldSpectrumWidth            = "spectrum_width"
	FieldDifferentialPhase        = "differential_phase"
	FieldDifferentialReflectivity = "differential_reflectivity"
	FieldCorrelationCoefficient   = "correlation_coefficient"
)

// RequiredVariables must all be present for a decode to succeed.
var RequiredVariables = []string{
	VarTime, VarRange, VarLatitude, VarLongitude, VarAltitude,
	VarSweepNumber, VarSweepMode, VarFixedAngle,
	VarSweepStartRayIndex, VarSweepEndRayIndex,
	VarAzimuth, VarElevation,
}

// MomentNames is the default set of recognized measurement variables.
var MomentNames = []string{
	FieldReflectivity,
	FieldVelocity,
	FieldSpectrumWidth,
	FieldDifferentialPhase,
	FieldDifferentialReflectivity,
	FieldCorrelationCoefficient,
}

// Decoder turns CDM containers into Radar values. A Decoder holds no
// per-file state and is safe for concurrent use.
type Decoder struct {
	open    Opener
	logger  *slog.Logger
	moments map[string]string // source variable name -> field name
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithFieldAliases maps additional source variable names onto field names,
// e.g. {"Reflectivity": "reflectivity"}. A target outside the canonical set
// extends the recognized moments.
func WithFieldAliases(aliases map[string]string) Option {
	return func(d *Decoder) {
		for src, dst := range aliases {
			d.moments[src] = dst
		}
	}
}

// NewDecoder creates a Decoder that opens containers with open.
func NewDecoder(open Opener, logger *slog.Logger, opts ...Option) *Decoder {
	d := &Decoder{
		open:    open,
		logger:  logger,
		moments: make(map[string]string, len(MomentNames)),
	}
	for _, name := range MomentNames {
		d.moments[name] = name
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeFile opens the decompressed archive at path and decodes it. Open
// failures are returned unchanged. The store is closed on every path.
func (d *Decoder) DecodeFile(path string) (*Radar, error) {
	store, err := d.open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			d.logger.Warn("close variable store failed", "path", path, "error", cerr)
		}
	}()

	radar, err := d.Decode(store)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("radar volume decoded",
		"path", path,
		"nrays", radar.NRays,
		"ngates", radar.NGates,
		"nsweeps", radar.NSweeps,
		"fields", len(radar.Fields),
	)
	return radar, nil
}

// Decode builds a Radar from an already opened store. It does not close the
// store.
func (d *Decoder) Decode(store VariableStore) (*Radar, error) {
	required := make(map[string]Variable, len(RequiredVariables))
	for _, name := range RequiredVariables {
		v, ok, err := store.Lookup(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, missingVariable(name)
		}
		required[name] = v
	}

	r := &Radar{}
	var err error
	numeric := []struct {
		name string
		dst  *Field
	}{
		{VarTime, &r.Time},
		{VarRange, &r.Range},
		{VarLatitude, &r.Latitude},
		{VarLongitude, &r.Longitude},
		{VarAltitude, &r.Altitude},
		{VarSweepNumber, &r.SweepNumber},
		{VarFixedAngle, &r.FixedAngle},
		{VarSweepStartRayIndex, &r.SweepStartRayIndex},
		{VarSweepEndRayIndex, &r.SweepEndRayIndex},
		{VarAzimuth, &r.Azimuth},
		{VarElevation, &r.Elevation},
	}
	for _, n := range numeric {
		if *n.dst, err = readField(required[n.name]); err != nil {
			return nil, err
		}
	}
	if r.SweepMode, err = readStringField(required[VarSweepMode]); err != nil {
		return nil, err
	}

	optional := []struct {
		name string
		dst  **Field
	}{
		{VarAltitudeAGL, &r.AltitudeAGL},
		{VarTargetScanRate, &r.TargetScanRate},
		{VarScanRate, &r.ScanRate},
		{VarAntennaTransition, &r.AntennaTransition},
	}
	for _, o := range optional {
		if *o.dst, err = lookupOptional(store, o.name); err != nil {
			return nil, err
		}
	}

	if err := countDimensions(r, required); err != nil {
		return nil, err
	}
	if err := validateOptional(r); err != nil {
		return nil, err
	}
	if err := validateSweeps(r); err != nil {
		return nil, err
	}

	if r.Fields, err = d.readMoments(store, r.NRays, r.NGates); err != nil {
		return nil, err
	}
	if r.InstrumentParameters, err = readGroup(store, GroupInstrumentParameters); err != nil {
		return nil, err
	}
	if r.RadarCalibration, err = readGroup(store, GroupRadarCalibration); err != nil {
		return nil, err
	}

	r.ScanType = ScanTypeOf(r.SweepMode.Data)
	r.Metadata = globalMetadata(store.GlobalAttributes())
	return r, nil
}

// countDimensions derives nrays, ngates and nsweeps and checks every
// required coordinate against them.
func countDimensions(r *Radar, vars map[string]Variable) error {
	timeShape := vars[VarTime].Shape
	if len(timeShape) != 1 {
		return shapeMismatch(VarTime, "rank 1", timeShape)
	}
	r.NRays = timeShape[0]
	for _, name := range []string{VarAzimuth, VarElevation} {
		if shape := vars[name].Shape; !reflect.DeepEqual(shape, []int{r.NRays}) {
			return shapeMismatch(name, []int{r.NRays}, shape)
		}
	}

	rangeShape := vars[VarRange].Shape
	if len(rangeShape) != 1 {
		return shapeMismatch(VarRange, "rank 1", rangeShape)
	}
	r.NGates = rangeShape[0]

	sweepShape := vars[VarSweepNumber].Shape
	if len(sweepShape) != 1 {
		return shapeMismatch(VarSweepNumber, "rank 1", sweepShape)
	}
	r.NSweeps = sweepShape[0]
	for _, name := range []string{VarFixedAngle, VarSweepStartRayIndex, VarSweepEndRayIndex} {
		if shape := vars[name].Shape; !reflect.DeepEqual(shape, []int{r.NSweeps}) {
			return shapeMismatch(name, []int{r.NSweeps}, shape)
		}
	}
	if n := len(r.SweepMode.Data); n != r.NSweeps {
		return shapeMismatch(VarSweepMode, []int{r.NSweeps}, []int{n})
	}

	for _, name := range []string{VarLatitude, VarLongitude, VarAltitude} {
		if vars[name].Len() < 1 {
			return shapeMismatch(name, "at least 1 element", vars[name].Shape)
		}
	}
	return nil
}

func validateOptional(r *Radar) error {
	checks := []struct {
		name string
		f    *Field
		want int
	}{
		{VarScanRate, r.ScanRate, r.NRays},
		{VarAntennaTransition, r.AntennaTransition, r.NRays},
		{VarTargetScanRate, r.TargetScanRate, r.NSweeps},
	}
	for _, c := range checks {
		if c.f == nil {
			continue
		}
		if !reflect.DeepEqual(c.f.Data.Shape, []int{c.want}) {
			return shapeMismatch(c.name, []int{c.want}, c.f.Data.Shape)
		}
	}
	if r.AltitudeAGL != nil && r.AltitudeAGL.Data.Len() < 1 {
		return shapeMismatch(VarAltitudeAGL, "at least 1 element", r.AltitudeAGL.Data.Shape)
	}
	return nil
}

func lookupOptional(store VariableStore, name string) (*Field, error) {
	v, ok, err := store.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	f, err := readField(v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// readMoments decodes every recognized measurement variable in store order.
func (d *Decoder) readMoments(store VariableStore, nrays, ngates int) (map[string]MomentField, error) {
	fields := make(map[string]MomentField)
	for _, name := range store.Variables() {
		fieldName, known := d.moments[name]
		if !known {
			continue
		}
		if _, dup := fields[fieldName]; dup {
			d.logger.Warn("duplicate moment variable ignored", "variable", name, "field", fieldName)
			continue
		}
		v, ok, err := store.Lookup(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		m, err := readMoment(v, nrays, ngates)
		if err != nil {
			return nil, err
		}
		fields[fieldName] = m
	}
	return fields, nil
}

func readMoment(v Variable, nrays, ngates int) (MomentField, error) {
	if !reflect.DeepEqual(v.Shape, []int{nrays, ngates}) {
		return MomentField{}, shapeMismatch(v.Name, []int{nrays, ngates}, v.Shape)
	}
	enc, err := readEncoding(v)
	if err != nil {
		return MomentField{}, err
	}
	vals, mask, err := decodeValues(v, enc)
	if err != nil {
		return MomentField{}, err
	}
	if len(vals) != nrays*ngates {
		return MomentField{}, shapeMismatch(v.Name, nrays*ngates, len(vals))
	}
	return MomentField{
		Metadata: metadataFrom(v.Attributes),
		Data:     NewMaskedArray(nrays, ngates, vals, mask),
	}, nil
}

// readField decodes a numeric coordinate. Elements equal to _FillValue
// become NaN; the sentinel itself survives only as metadata.
func readField(v Variable) (Field, error) {
	enc, err := readEncoding(v)
	if err != nil {
		return Field{}, err
	}
	vals, mask, err := decodeValues(v, enc)
	if err != nil {
		return Field{}, err
	}
	if len(vals) != v.Len() {
		return Field{}, shapeMismatch(v.Name, v.Len(), len(vals))
	}
	for i, m := range mask {
		if m {
			vals[i] = nan
		}
	}
	return Field{
		Metadata: metadataFrom(v.Attributes),
		Data:     Array{Shape: copyShape(v.Shape), Values: vals},
	}, nil
}

func readStringField(v Variable) (StringField, error) {
	raw, ok := v.Values.([]string)
	if !ok {
		return StringField{}, unsupportedEncoding(v.Name, "expected char data")
	}
	data := make([]string, len(raw))
	for i, s := range raw {
		data[i] = trimChars(s)
	}
	return StringField{Metadata: metadataFrom(v.Attributes), Data: data}, nil
}

func copyShape(shape []int) []int {
	out := make([]int, len(shape))
	copy(out, shape)
	return out
}

// globalMetadata copies file-level attributes, collapsing one-element
// numeric attributes to scalars.
func globalMetadata(attrs Attributes) map[string]any {
	md := make(map[string]any, attrs.Len())
	for _, key := range attrs.Keys() {
		v, _ := attrs.Get(key)
		md[key] = collapse(v)
	}
	return md
}
