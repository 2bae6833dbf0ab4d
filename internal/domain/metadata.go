package domain

import "math"

var nan = math.NaN()

// metadataFrom sorts source attributes into the tagged record. Known keys
// with an unexpected type are kept verbatim in Extra rather than dropped.
func metadataFrom(attrs Attributes) Metadata {
	var m Metadata
	strs := map[string]**string{
		AttrStandardName:      &m.StandardName,
		AttrLongName:          &m.LongName,
		AttrUnits:             &m.Units,
		AttrComment:           &m.Comment,
		AttrCalendar:          &m.Calendar,
		AttrCoordinates:       &m.Coordinates,
		AttrPositive:          &m.Positive,
		AttrSpacingIsConstant: &m.SpacingIsConstant,
		AttrAxis:              &m.Axis,
	}
	nums := map[string]**float64{
		AttrFillValue:                 &m.FillValue,
		AttrMetersToCenterOfFirstGate: &m.MetersToCenterOfFirstGate,
		AttrMetersBetweenGates:        &m.MetersBetweenGates,
	}

	for _, key := range attrs.Keys() {
		raw, _ := attrs.Get(key)
		if dst, ok := strs[key]; ok {
			if s, ok := raw.(string); ok {
				*dst = &s
				continue
			}
		}
		if dst, ok := nums[key]; ok {
			if f, ok := scalarFloat(raw); ok {
				*dst = &f
				continue
			}
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any)
		}
		m.Extra[key] = collapse(raw)
	}
	return m
}

// Auxiliary group names.
const (
	GroupInstrumentParameters = "instrument_parameters"
	GroupRadarCalibration     = "radar_calibration"
)

// groupMembers lists the variables that belong to each auxiliary group even
// when they carry no meta_group attribute.
var groupMembers = map[string][]string{
	GroupInstrumentParameters: {
		"frequency", "follow_mode", "pulse_width", "prt_mode", "prt",
		"prt_ratio", "polarization_mode", "nyquist_velocity",
		"unambiguous_range", "n_samples", "sampling_ratio",
		"radar_antenna_gain_h", "radar_antenna_gain_v",
		"radar_beam_width_h", "radar_beam_width_v",
		"radar_receiver_bandwidth",
		"radar_measured_transmit_power_h", "radar_measured_transmit_power_v",
	},
	GroupRadarCalibration: {
		"r_calib_time", "r_calib_pulse_width",
		"r_calib_antenna_gain_h", "r_calib_antenna_gain_v",
		"r_calib_xmit_power_h", "r_calib_xmit_power_v",
		"r_calib_radar_constant_h", "r_calib_radar_constant_v",
		"r_calib_noise_hc", "r_calib_noise_vc",
		"r_calib_receiver_gain_hc", "r_calib_receiver_gain_vc",
		"r_calib_base_dbz_1km_hc", "r_calib_base_dbz_1km_vc",
		"r_calib_sun_power_hc", "r_calib_zdr_correction",
		"r_calib_system_phidp",
	},
}

// readGroup collects the members of an auxiliary group. It returns nil when
// the container has none, so callers can tell absence from emptiness.
func readGroup(store VariableStore, group string) (*ParameterGroup, error) {
	members := make(map[string]bool)
	for _, name := range groupMembers[group] {
		members[name] = true
	}

	var g *ParameterGroup
	for _, name := range store.Variables() {
		if !members[name] {
			attrs, ok := store.VariableAttributes(name)
			if !ok {
				continue
			}
			if tag, _ := attrs.String(AttrMetaGroup); tag != group {
				continue
			}
		}
		v, ok, err := store.Lookup(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if g == nil {
			g = &ParameterGroup{Name: group, Fields: make(map[string]Field)}
		}
		if _, isText := v.Values.([]string); isText {
			sf, err := readStringField(v)
			if err != nil {
				return nil, err
			}
			if g.Text == nil {
				g.Text = make(map[string]StringField)
			}
			g.Text[name] = sf
			continue
		}
		f, err := readField(v)
		if err != nil {
			return nil, err
		}
		g.Fields[name] = f
	}
	return g, nil
}
