package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/nexrad-cdm-etl/internal/archive"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/domain"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/observability"
)

// Stager makes an archive readable as a plain container file.
type Stager interface {
	Stage(ctx context.Context, path string) (archive.Staged, error)
}

// VolumeDecoder decodes a container file into a Radar.
type VolumeDecoder interface {
	DecodeFile(path string) (*domain.Radar, error)
}

// Transform steps, used as decode error kinds when the failure is not a
// DecodeError.
const (
	stepParse     = "parse"
	stepStage     = "stage"
	stepSerialize = "serialize"
)

type transformError struct {
	step string
	err  error
}

func (e *transformError) Error() string { return e.step + ": " + e.err.Error() }
func (e *transformError) Unwrap() error { return e.err }

// failureKind labels a transform failure for the decode error metric.
func failureKind(err error) string {
	var te *transformError
	if errors.As(err, &te) {
		return te.step
	}
	return domain.ErrorKindOf(err)
}

// ScanTransformer turns an archive request into a published scan summary.
type ScanTransformer struct {
	stager   Stager
	decoder  VolumeDecoder
	geocoder domain.SiteGeocoder
	index    *ScanIndex
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTransformer creates a ScanTransformer. A nil geocoder disables site
// enrichment and a nil index skips recording.
func NewTransformer(stager Stager, decoder VolumeDecoder, geocoder domain.SiteGeocoder, index *ScanIndex, logger *slog.Logger, metrics *observability.Metrics) *ScanTransformer {
	return &ScanTransformer{
		stager:   stager,
		decoder:  decoder,
		geocoder: geocoder,
		index:    index,
		logger:   logger,
		metrics:  metrics,
	}
}

func (t *ScanTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.OutputEvent{}, &transformError{step: stepParse, err: err}
	}

	staged, err := t.stager.Stage(ctx, req.Path)
	if err != nil {
		return domain.OutputEvent{}, &transformError{step: stepStage, err: err}
	}
	defer staged.Cleanup()

	start := time.Now()
	radar, err := t.decoder.DecodeFile(staged.Path)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	t.metrics.DecodeDuration.Observe(time.Since(start).Seconds())

	summary := domain.Summarize(radar, req)
	summary = domain.EnrichWithGeocoding(ctx, summary, t.geocoder, t.logger)

	out, err := domain.SerializeSummary(summary)
	if err != nil {
		return domain.OutputEvent{}, &transformError{step: stepSerialize, err: err}
	}

	t.logger.Debug("volume decoded",
		"id", summary.ID,
		"path", req.Path,
		"format", staged.Format,
		"scan_type", summary.ScanType,
		"nrays", summary.NRays,
		"ngates", summary.NGates,
		"fields", len(summary.Fields),
	)
	if t.index != nil {
		t.index.Record(summary)
	}
	return out, nil
}
