// Command validate decodes radar archives with the same staging and decoding
// path as the service and checks each volume's structural integrity: ray and
// gate counts, sweep partitioning, moment shapes and mask counts, and that
// the published summary survives a JSON round trip.
//
// Usage:
//
//	go run ./cmd/validate data/mock/*.nc.gz
//	go run ./cmd/validate -aliases Reflectivity:reflectivity archive.nc
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/nexrad-cdm-etl/internal/adapter/netcdf"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/archive"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	aliases := flag.String("aliases", "", "comma-separated source:canonical moment name aliases")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	opts, err := aliasOptions(*aliases)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	os.Exit(run(flag.Args(), opts))
}

func aliasOptions(spec string) ([]domain.Option, error) {
	if spec == "" {
		return nil, nil
	}
	m := make(map[string]string)
	for _, pair := range strings.Split(spec, ",") {
		src, dst, ok := strings.Cut(pair, ":")
		if !ok || src == "" || dst == "" {
			return nil, fmt.Errorf("invalid alias %q (want source:canonical)", pair)
		}
		m[src] = dst
	}
	return []domain.Option{domain.WithFieldAliases(m)}, nil
}

func run(paths []string, opts []domain.Option) int {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stager := archive.NewStager("", logger)
	decoder := domain.NewDecoder(netcdf.Open, logger, opts...)

	fmt.Println("=== Radar Volume Integrity Validation ===")
	fmt.Println()

	stage := &phase{name: "Archive staging"}
	decode := &phase{name: "Container decode"}
	structure := &phase{name: "Volume structure"}
	summary := &phase{name: "Summary round trip"}

	var decoded, rays int
	for _, path := range paths {
		staged, err := stager.Stage(context.Background(), path)
		if err != nil {
			stage.errorf("%s: %v", path, err)
			continue
		}
		r, err := decoder.DecodeFile(staged.Path)
		staged.Cleanup()
		if err != nil {
			decode.errorf("%s: [%s] %v", path, domain.ErrorKindOf(err), err)
			continue
		}
		decoded++
		rays += r.NRays
		checkStructure(structure, path, r)
		checkSummary(summary, path, r)
		fmt.Printf("  %-48s %s %4d rays %4d gates %2d sweeps %d fields\n",
			path, r.ScanType, r.NRays, r.NGates, r.NSweeps, len(r.Fields))
	}

	phases := []*phase{stage, decode, structure, summary}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Volumes: %d given, %d decoded, %d rays\n", len(paths), decoded, rays)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func checkStructure(p *phase, path string, r *domain.Radar) {
	coords := map[string]int{
		"time":      r.Time.Data.Len(),
		"azimuth":   r.Azimuth.Data.Len(),
		"elevation": r.Elevation.Data.Len(),
	}
	for name, n := range coords {
		if n != r.NRays {
			p.errorf("%s: %s has %d values, want %d", path, name, n, r.NRays)
		}
	}
	if n := r.Range.Data.Len(); n != r.NGates {
		p.errorf("%s: range has %d values, want %d", path, n, r.NGates)
	}

	covered := 0
	for i := range r.NSweeps {
		start, end := r.SweepRays(i)
		covered += end - start + 1
	}
	if covered != r.NRays {
		p.errorf("%s: sweeps cover %d rays, want %d", path, covered, r.NRays)
	}

	if len(r.Fields) == 0 {
		p.errorf("%s: no moment fields", path)
	}
	for _, name := range r.FieldNames() {
		f := r.Fields[name]
		rows, cols := f.Data.Shape()
		if rows != r.NRays || cols != r.NGates {
			p.errorf("%s: field %s is %dx%d, want %dx%d", path, name, rows, cols, r.NRays, r.NGates)
		}
		if f.Data.MaskedCount() == rows*cols {
			p.errorf("%s: field %s is fully masked", path, name)
		}
	}
}

func checkSummary(p *phase, path string, r *domain.Radar) {
	s := domain.Summarize(r, domain.ArchiveRequest{Path: path})
	out, err := domain.SerializeSummary(s)
	if err != nil {
		p.errorf("%s: %v", path, err)
		return
	}
	var back domain.ScanSummary
	if err := json.Unmarshal(out.Value, &back); err != nil {
		p.errorf("%s: unmarshal summary: %v", path, err)
		return
	}
	if back.ID != s.ID || string(out.Key) != s.ID {
		p.errorf("%s: summary id %q does not match key %q", path, back.ID, out.Key)
	}
	if back.NRays != r.NRays || len(back.Sweeps) != r.NSweeps || len(back.Fields) != len(r.Fields) {
		p.errorf("%s: summary counts differ from decoded volume", path)
	}
	if back.VolumeStart.IsZero() {
		p.errorf("%s: volume start not derived from time units %q", path, s.TimeUnits)
	}
}
