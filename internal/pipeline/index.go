package pipeline

import (
	"sort"
	"sync"

	"github.com/couchcryptid/nexrad-cdm-etl/internal/domain"
)

// ScanIndex keeps the most recent decoded scan per station. It is safe for
// concurrent use.
type ScanIndex struct {
	mu     sync.RWMutex
	latest map[string]domain.ScanSummary
}

func NewScanIndex() *ScanIndex {
	return &ScanIndex{latest: make(map[string]domain.ScanSummary)}
}

// Record stores s unless the station already has a scan with a later
// volume start. Summaries without a station are ignored.
func (i *ScanIndex) Record(s domain.ScanSummary) {
	if s.Station == "" {
		return
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if cur, ok := i.latest[s.Station]; ok && cur.VolumeStart.After(s.VolumeStart) {
		return
	}
	i.latest[s.Station] = s
}

// Latest returns the most recent scan recorded for station.
func (i *ScanIndex) Latest(station string) (domain.ScanSummary, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	s, ok := i.latest[station]
	return s, ok
}

// Stations lists stations with a recorded scan, sorted.
func (i *ScanIndex) Stations() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]string, 0, len(i.latest))
	for st := range i.latest {
		out = append(out, st)
	}
	sort.Strings(out)
	return out
}
