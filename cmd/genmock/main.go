// Command genmock writes synthetic NEXRAD CDM volumes and a matching list of
// archive requests for local runs and the integration suite. Volumes use the
// same layout and packing as the netcdf adapter fixtures.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir data/mock \
//	  -station KATX \
//	  -count 3 \
//	  -compress gzip \
//	  -requests data/mock/requests.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/couchcryptid/nexrad-cdm-etl/internal/adapter/netcdf"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/domain"
)

// volumeInterval separates consecutive generated volumes.
const volumeInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ref := netcdf.ReferenceVolume()

	outDir := flag.String("out-dir", "", "directory for generated volumes")
	station := flag.String("station", ref.Station, "four-letter station identifier")
	count := flag.Int("count", 1, "number of consecutive volumes")
	sweeps := flag.Int("sweeps", ref.Sweeps, "sweeps per volume")
	rays := flag.Int("rays", ref.RaysPerSweep, "rays per sweep")
	gates := flag.Int("gates", ref.Gates, "gates per ray")
	compress := flag.String("compress", "none", "wrap volumes with none, gzip or zstd")
	requests := flag.String("requests", "", "optional output path for the JSON archive request list")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	if *count < 1 {
		return fmt.Errorf("-count must be positive, got %d", *count)
	}
	ext, err := compressExt(*compress)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	vol := ref
	vol.Station = strings.ToUpper(*station)
	vol.Sweeps, vol.RaysPerSweep, vol.Gates = *sweeps, *rays, *gates

	reqs := make([]domain.ArchiveRequest, 0, *count)
	for i := range *count {
		vol.Start = ref.Start.Add(time.Duration(i) * volumeInterval)
		name := fmt.Sprintf("%s%s_V06.nc", vol.Station, vol.Start.Format("20060102_150405"))
		path := filepath.Join(*outDir, name)

		if err := netcdf.WriteVolume(path, vol); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		if ext != "" {
			if path, err = wrap(path, *compress, ext); err != nil {
				return fmt.Errorf("compress %s: %w", name, err)
			}
		}
		reqs = append(reqs, domain.ArchiveRequest{Path: path, Station: vol.Station})
		log.Printf("%s: %d rays x %d gates", filepath.Base(path), vol.Rays(), vol.Gates)
	}

	if *requests != "" {
		if err := writeJSON(*requests, reqs); err != nil {
			return err
		}
		log.Printf("requests: %d -> %s", len(reqs), *requests)
	}
	return nil
}

func compressExt(format string) (string, error) {
	switch format {
	case "none", "":
		return "", nil
	case "gzip":
		return ".gz", nil
	case "zstd":
		return ".zst", nil
	default:
		return "", fmt.Errorf("unknown -compress %q (want none, gzip or zstd)", format)
	}
}

// wrap compresses path into path+ext and removes the original.
func wrap(path, format, ext string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dstPath := path + ext
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	var zw io.WriteCloser
	switch format {
	case "gzip":
		zw = gzip.NewWriter(dst)
	case "zstd":
		if zw, err = zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
			return "", err
		}
	}
	if _, err := io.Copy(zw, src); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return dstPath, os.Remove(path)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // fixture output
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
