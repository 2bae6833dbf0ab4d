package netcdf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
)

// Volume describes a synthetic CF/Radial volume written by WriteVolume.
// It is used for fixtures and local runs when no real archive is at hand.
type Volume struct {
	Station      string
	Start        time.Time
	Sweeps       int
	RaysPerSweep int
	Gates        int
	Lat          float64
	Lon          float64
	Alt          float64
}

// ReferenceVolume mirrors the layout of the KATX volume from
// 2013-07-17T19:50:21Z with fewer rays per sweep and fewer gates.
func ReferenceVolume() Volume {
	return Volume{
		Station:      "KATX",
		Start:        time.Date(2013, time.July, 17, 19, 50, 21, 0, time.UTC),
		Sweeps:       16,
		RaysPerSweep: 45,
		Gates:        12,
		Lat:          48.1946,
		Lon:          -122.4957,
		Alt:          151,
	}
}

// Rays returns the total number of rays.
func (v Volume) Rays() int { return v.Sweeps * v.RaysPerSweep }

const sweepModeLen = 32

type namedVar struct {
	name string
	api.Variable
}

// WriteVolume writes v as a classic CDF file at path.
//
// Moments are packed the way NEXRAD CDM files are: reflectivity is
// 0.5*raw - 33 so raw 2 reads -32 dBZ at the first gate, velocity is missing
// for the whole first ray, spectrum width is missing at the first gate of
// every ray, and differential phase is stored as unsigned bytes.
func WriteVolume(path string, v Volume) error {
	if v.Sweeps < 1 || v.RaysPerSweep < 1 || v.Gates < 1 {
		return fmt.Errorf("write volume: sweeps, rays per sweep and gates must be positive")
	}
	vars, err := volumeVariables(v)
	if err != nil {
		return fmt.Errorf("write volume: %w", err)
	}
	global, err := attrs(
		"Conventions", "CF/Radial",
		"instrument_name", v.Station,
		"source", "NOAA NWS NEXRAD Level-II (synthetic)",
		"title", "synthetic volume",
		"volume_number", int32(1),
	)
	if err != nil {
		return fmt.Errorf("write volume: %w", err)
	}
	if err := writeCDF(path, global, vars); err != nil {
		return fmt.Errorf("write volume %s: %w", path, err)
	}
	if err := restoreReservedNames(path, vars); err != nil {
		return fmt.Errorf("write volume %s: %w", path, err)
	}
	return nil
}

func writeCDF(path string, global api.AttributeMap, vars []namedVar) (err error) {
	w, err := cdf.OpenWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()

	if err := w.AddAttributes(global); err != nil {
		return fmt.Errorf("global attributes: %w", err)
	}
	for _, nv := range vars {
		if err := w.AddVar(nv.name, nv.Variable); err != nil {
			return fmt.Errorf("variable %q: %w", nv.name, err)
		}
	}
	return nil
}

// The CDF writer only accepts names that start with a letter or digit, which
// rules out the reserved attributes (_FillValue, _Unsigned). They are written
// under a placeholder of the same length and renamed in the closed file's
// header, so no offset changes.
const reservedMark = "X"

func placeholder(name string) string {
	if strings.HasPrefix(name, "_") {
		return reservedMark + name[1:]
	}
	return name
}

// restoreReservedNames renames every placeholder attribute written for vars.
// The header precedes the data section, so replacing the first n encoded
// names only touches the header.
func restoreReservedNames(path string, vars []namedVar) error {
	counts := make(map[string]int)
	for _, nv := range vars {
		if nv.Attributes == nil {
			continue
		}
		for _, k := range nv.Attributes.Keys() {
			if strings.HasPrefix(k, reservedMark) {
				counts[k]++
			}
		}
	}
	if len(counts) == 0 {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for name, n := range counts {
		from := encodedName(name)
		if got := bytes.Count(buf, from); got < n {
			return fmt.Errorf("header has %d %q attributes, want %d", got, name, n)
		}
		buf = bytes.Replace(buf, from, encodedName("_"+name[len(reservedMark):]), n)
	}
	return os.WriteFile(path, buf, info.Mode().Perm())
}

// encodedName is a header name as the CDF format stores it: a big-endian
// length followed by the bytes. Version 5 headers use 8-byte lengths whose
// low four bytes match.
func encodedName(name string) []byte {
	return append(binary.BigEndian.AppendUint32(nil, uint32(len(name))), name...)
}

func volumeVariables(v Volume) ([]namedVar, error) {
	nrays := v.Rays()
	var out []namedVar
	var firstErr error
	add := func(name string, values any, dims []string, kv ...any) {
		a, err := attrs(kv...)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s attributes: %w", name, err)
		}
		out = append(out, namedVar{name: name, Variable: api.Variable{Values: values, Dimensions: dims, Attributes: a}})
	}

	ray := []string{"time"}
	sweep := []string{"sweep"}
	grid := []string{"time", "range"}

	times := make([]float64, nrays)
	azimuth := make([]float32, nrays)
	elevation := make([]float32, nrays)
	nyquist := make([]float32, nrays)
	for i := range times {
		times[i] = float64(i) * 0.677
		azimuth[i] = float32(math.Mod(350+0.5*float64(i%v.RaysPerSweep), 360))
		elevation[i] = 0.75 + 0.9*float32(i/v.RaysPerSweep)
		nyquist[i] = 26.5
	}
	ranges := make([]float32, v.Gates)
	for g := range ranges {
		ranges[g] = 2125 + 250*float32(g)
	}

	numbers := make([]int32, v.Sweeps)
	starts := make([]int32, v.Sweeps)
	ends := make([]int32, v.Sweeps)
	angles := make([]float32, v.Sweeps)
	modes := make([]string, v.Sweeps)
	for s := range numbers {
		numbers[s] = int32(s)
		starts[s] = int32(s * v.RaysPerSweep)
		ends[s] = int32((s+1)*v.RaysPerSweep - 1)
		angles[s] = 0.53 + 0.9*float32(s)
		modes[s] = padChars("azimuth_surveillance", sweepModeLen)
	}

	add("time", times, ray,
		"standard_name", "time",
		"long_name", "time_in_seconds_since_volume_start",
		"units", "seconds since "+v.Start.UTC().Format("2006-01-02T15:04:05Z"),
		"calendar", "gregorian")
	add("range", ranges, []string{"range"},
		"standard_name", "projection_range_coordinate",
		"units", "meters",
		"spacing_is_constant", "true",
		"axis", "radial_range_coordinate",
		"meters_to_center_of_first_gate", float32(2125),
		"meters_between_gates", float32(250))
	add("latitude", v.Lat, nil, "standard_name", "latitude", "units", "degrees_north")
	add("longitude", v.Lon, nil, "standard_name", "longitude", "units", "degrees_east")
	add("altitude", v.Alt, nil, "standard_name", "altitude", "units", "meters", "positive", "up")
	add("sweep_number", numbers, sweep, "standard_name", "sweep_number", "units", "count")
	add("sweep_mode", modes, []string{"sweep", "string_length"}, "standard_name", "sweep_mode", "units", "unitless")
	add("fixed_angle", angles, sweep, "standard_name", "beam_target_fixed_angle", "units", "degrees")
	add("sweep_start_ray_index", starts, sweep, "long_name", "index_of_first_ray_in_sweep", "units", "count")
	add("sweep_end_ray_index", ends, sweep, "long_name", "index_of_last_ray_in_sweep", "units", "count")
	add("azimuth", azimuth, ray, "standard_name", "beam_azimuth_angle", "units", "degrees")
	add("elevation", elevation, ray, "standard_name", "beam_elevation_angle", "units", "degrees")

	coords := "elevation azimuth range"
	add("reflectivity", gridOf(nrays, v.Gates, func(_, g int) int16 { return int16(2 + g) }), grid,
		"standard_name", "equivalent_reflectivity_factor", "long_name", "reflectivity", "units", "dBZ",
		"coordinates", coords, "_FillValue", int16(-32768), "scale_factor", float32(0.5), "add_offset", float32(-33))
	add("velocity", gridOf(nrays, v.Gates, func(r, _ int) int16 {
		if r == 0 {
			return 0
		}
		return 130
	}), grid,
		"standard_name", "radial_velocity_of_scatterers_away_from_instrument", "long_name", "velocity",
		"units", "meters_per_second", "coordinates", coords,
		"_FillValue", int16(0), "scale_factor", float32(0.5), "add_offset", float32(-64.5))
	add("spectrum_width", gridOf(nrays, v.Gates, func(_, g int) int16 {
		if g == 0 {
			return -1
		}
		return 20
	}), grid,
		"standard_name", "doppler_spectrum_width", "long_name", "spectrum_width",
		"units", "meters_per_second", "coordinates", coords,
		"_FillValue", int16(-1), "scale_factor", float32(0.5), "add_offset", float32(0))
	add("differential_phase", gridOf(nrays, v.Gates, func(_, _ int) int8 { return -75 }), grid,
		"standard_name", "differential_phase_hv", "long_name", "differential_phase",
		"units", "degrees", "coordinates", coords, "_FillValue", int8(0), "_Unsigned", "true")
	add("differential_reflectivity", gridOf(nrays, v.Gates, func(_, _ int) int16 { return 0 }), grid,
		"standard_name", "log_differential_reflectivity_hv", "long_name", "differential_reflectivity",
		"units", "dB", "coordinates", coords,
		"_FillValue", int16(-32768), "scale_factor", float32(0.0625), "add_offset", float32(-8))
	add("correlation_coefficient", gridOf(nrays, v.Gates, func(_, _ int) float32 { return 0 }), grid,
		"standard_name", "cross_correlation_ratio_hv", "long_name", "correlation_coefficient",
		"units", "ratio", "coordinates", coords, "_FillValue", float32(-9999))

	add("nyquist_velocity", nyquist, ray, "units", "meters_per_second", "meta_group", "instrument_parameters")

	return out, firstErr
}

func gridOf[T any](rays, gates int, f func(ray, gate int) T) [][]T {
	out := make([][]T, rays)
	for r := range out {
		row := make([]T, gates)
		for g := range row {
			row[g] = f(r, g)
		}
		out[r] = row
	}
	return out
}

func padChars(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat("\x00", n-len(s))
}

func attrs(kv ...any) (*util.OrderedMap, error) {
	keys := make([]string, 0, len(kv)/2)
	values := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k := placeholder(kv[i].(string))
		keys = append(keys, k)
		values[k] = kv[i+1]
	}
	return util.NewOrderedMap(keys, values)
}
