package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// Site is the radar antenna location.
type Site struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`

	// Geocoding enrichment fields.
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceName        string  `json:"place_name,omitempty"`
	GeoConfidence    float64 `json:"geo_confidence,omitempty"`
	GeoSource        string  `json:"geo_source,omitempty"` // "reverse", "original", "failed"
}

// SweepSummary describes one sweep of a volume.
type SweepSummary struct {
	Number     int      `json:"number"`
	Mode       string   `json:"mode"`
	FixedAngle *float64 `json:"fixed_angle,omitempty"`
	StartRay   int      `json:"start_ray"`
	EndRay     int      `json:"end_ray"`
	Rays       int      `json:"rays"`
}

// FieldSummary describes one moment over the whole volume.
type FieldSummary struct {
	Name         string   `json:"name"`
	Units        string   `json:"units,omitempty"`
	StandardName string   `json:"standard_name,omitempty"`
	Valid        int      `json:"valid"`
	Masked       int      `json:"masked"`
	Min          *float64 `json:"min,omitempty"`
	Max          *float64 `json:"max,omitempty"`
}

// ScanSummary is the compact, serializable description of a decoded volume
// published to the sink topic.
type ScanSummary struct {
	ID             string         `json:"id"`
	Station        string         `json:"station,omitempty"`
	InstrumentName string         `json:"instrument_name,omitempty"`
	Source         string         `json:"source,omitempty"`
	SourcePath     string         `json:"source_path"`
	Site           Site           `json:"site"`
	TimeUnits      string         `json:"time_units"`
	VolumeStart    time.Time      `json:"volume_start"`
	VolumeEnd      time.Time      `json:"volume_end"`
	ScanType       string         `json:"scan_type"`
	NRays          int            `json:"nrays"`
	NGates         int            `json:"ngates"`
	NSweeps        int            `json:"nsweeps"`
	FirstGateM     *float64       `json:"first_gate_m,omitempty"`
	GateSpacingM   *float64       `json:"gate_spacing_m,omitempty"`
	Sweeps         []SweepSummary `json:"sweeps"`
	Fields         []FieldSummary `json:"fields"`
	ProcessedAt    time.Time      `json:"processed_at"`
}

// Summarize reduces a Radar to a ScanSummary. A time units string that
// cannot be parsed leaves VolumeStart and VolumeEnd zero.
func Summarize(r *Radar, req ArchiveRequest) ScanSummary {
	s := ScanSummary{
		Station:      req.Station,
		SourcePath:   req.Path,
		TimeUnits:    r.Time.UnitsOr(""),
		ScanType:     r.ScanType,
		NRays:        r.NRays,
		NGates:       r.NGates,
		NSweeps:      r.NSweeps,
		FirstGateM:   r.Range.MetersToCenterOfFirstGate,
		GateSpacingM: r.Range.MetersBetweenGates,
		Site: Site{
			Lat: first(r.Latitude),
			Lon: first(r.Longitude),
			Alt: first(r.Altitude),
		},
	}
	if v, ok := r.Metadata["instrument_name"].(string); ok {
		s.InstrumentName = strings.TrimSpace(v)
	}
	if v, ok := r.Metadata["source"].(string); ok {
		s.Source = v
	}
	if s.Station == "" {
		s.Station = strings.ToUpper(s.InstrumentName)
	}

	if epoch, err := ParseTimeUnits(s.TimeUnits); err == nil {
		if lo, hi := minMax(r.Time.Data.Values); lo <= hi {
			s.VolumeStart = epoch.Add(seconds(lo))
			s.VolumeEnd = epoch.Add(seconds(hi))
		}
	}

	s.Sweeps = make([]SweepSummary, r.NSweeps)
	for i := range s.Sweeps {
		start, end := r.SweepRays(i)
		s.Sweeps[i] = SweepSummary{
			Number:     int(r.SweepNumber.Data.Values[i]),
			Mode:       r.SweepMode.Data[i],
			FixedAngle: finite(r.FixedAngle.Data.Values[i]),
			StartRay:   start,
			EndRay:     end,
			Rays:       end - start + 1,
		}
	}

	for _, name := range r.FieldNames() {
		s.Fields = append(s.Fields, summarizeField(name, r.Fields[name]))
	}

	s.ID = generateID(s.Station, s.TimeUnits, s.NRays, filepath.Base(req.Path))
	s.ProcessedAt = clock.Now()
	return s
}

func summarizeField(name string, f MomentField) FieldSummary {
	fs := FieldSummary{Name: name, Units: f.UnitsOr("")}
	if f.StandardName != nil {
		fs.StandardName = *f.StandardName
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for ray := 0; ray < f.Data.Rays; ray++ {
		for gate := 0; gate < f.Data.Gates; gate++ {
			v, ok := f.Data.At(ray, gate)
			if !ok {
				fs.Masked++
				continue
			}
			fs.Valid++
			if finite(v) == nil {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo <= hi {
		fs.Min, fs.Max = &lo, &hi
	}
	return fs
}

// ParseTimeUnits parses a CF time units string of the form
// "seconds since <timestamp>" and returns the epoch.
func ParseTimeUnits(units string) (time.Time, error) {
	unit, ref, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return time.Time{}, fmt.Errorf("time units %q: missing \"since\"", units)
	}
	if u := strings.ToLower(strings.TrimSpace(unit)); u != "seconds" && u != "second" && u != "s" {
		return time.Time{}, fmt.Errorf("time units %q: unsupported unit %q", units, unit)
	}
	ref = strings.TrimSpace(ref)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05Z", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, ref); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("time units %q: unparseable reference time", units)
}

// SerializeSummary marshals a ScanSummary into an OutputEvent keyed by ID.
func SerializeSummary(s ScanSummary) (OutputEvent, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize scan summary: %w", err)
	}
	return OutputEvent{
		Key:   []byte(s.ID),
		Value: data,
		Headers: map[string]string{
			"scan_type":    s.ScanType,
			"station":      s.Station,
			"processed_at": s.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// generateID produces a deterministic ID from the volume's identifying
// fields so replays of the same archive produce the same key.
func generateID(station, timeUnits string, nrays int, file string) string {
	input := fmt.Sprintf("%s|%s|%d|%s", station, timeUnits, nrays, file)
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if station == "" {
		return short
	}
	return strings.ToLower(station) + "-" + short
}

// first returns the leading element, or 0 when it is absent or missing.
func first(f Field) float64 {
	if f.Data.Len() == 0 || math.IsNaN(f.Data.Values[0]) {
		return 0
	}
	return f.Data.Values[0]
}

// finite returns nil for NaN and infinities, which JSON cannot encode.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func minMax(vals []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
