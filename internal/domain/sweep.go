package domain

import (
	"fmt"
	"math"
	"sort"
)

// Scan types.
const (
	ScanPPI    = "ppi"
	ScanRHI    = "rhi"
	ScanSector = "sector"
	ScanVPT    = "vpt"
	ScanOther  = "other"
)

var sweepModeScanTypes = map[string]string{
	"azimuth_surveillance":   ScanPPI,
	"manual_ppi":             ScanPPI,
	"sector":                 ScanSector,
	"rhi":                    ScanRHI,
	"manual_rhi":             ScanRHI,
	"elevation_surveillance": ScanRHI,
	"vertical_pointing":      ScanVPT,
}

// ScanTypeOf classifies a volume from its sweep modes. Mixed or unknown
// modes yield ScanOther.
func ScanTypeOf(modes []string) string {
	if len(modes) == 0 {
		return ScanOther
	}
	first := modes[0]
	for _, m := range modes[1:] {
		if m != first {
			return ScanOther
		}
	}
	if st, ok := sweepModeScanTypes[first]; ok {
		return st
	}
	return ScanOther
}

// validateSweeps checks that sweep ray spans are integral, ordered within
// each sweep, inside [0, nrays), and together cover every ray exactly once.
func validateSweeps(r *Radar) error {
	starts := r.SweepStartRayIndex.Data.Values
	ends := r.SweepEndRayIndex.Data.Values

	type span struct{ start, end int }
	spans := make([]span, len(starts))
	for i := range starts {
		s, e := starts[i], ends[i]
		if s != math.Trunc(s) || math.IsNaN(s) {
			return shapeMismatch(VarSweepStartRayIndex, "integral ray index", fmt.Sprintf("%v at sweep %d", s, i))
		}
		if e != math.Trunc(e) || math.IsNaN(e) {
			return shapeMismatch(VarSweepEndRayIndex, "integral ray index", fmt.Sprintf("%v at sweep %d", e, i))
		}
		if s < 0 || s > e {
			return shapeMismatch(VarSweepStartRayIndex,
				fmt.Sprintf("0 <= start <= end (%v) at sweep %d", e, i), s)
		}
		if int(e) >= r.NRays {
			return shapeMismatch(VarSweepEndRayIndex,
				fmt.Sprintf("end < nrays (%d) at sweep %d", r.NRays, i), e)
		}
		spans[i] = span{int(s), int(e)}
	}

	sort.Slice(spans, func(a, b int) bool { return spans[a].start < spans[b].start })
	next := 0
	for _, sp := range spans {
		if sp.start != next {
			return shapeMismatch(VarSweepStartRayIndex, fmt.Sprintf("sweep starting at ray %d", next), sp.start)
		}
		next = sp.end + 1
	}
	if next != r.NRays {
		return shapeMismatch(VarSweepEndRayIndex, fmt.Sprintf("last sweep ending at ray %d", r.NRays-1), next-1)
	}
	return nil
}
