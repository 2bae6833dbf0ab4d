package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/nexrad-cdm-etl/internal/adapter/http"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/domain"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/observability"
	"github.com/couchcryptid/nexrad-cdm-etl/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, nil, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func newScanServer(t *testing.T) *httpadapter.Server {
	t.Helper()
	idx := pipeline.NewScanIndex()
	idx.Record(domain.ScanSummary{
		ID:          "katx-0011223344556677",
		Station:     "KATX",
		ScanType:    domain.ScanPPI,
		NRays:       720,
		VolumeStart: time.Date(2013, time.July, 17, 19, 50, 21, 0, time.UTC),
	})
	idx.Record(domain.ScanSummary{ID: "krtx-1", Station: "KRTX"})
	return httpadapter.NewServer(":0", &mockReadiness{}, idx, slog.Default())
}

func TestScansListsStations(t *testing.T) {
	srv := newScanServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"KATX", "KRTX"}, body["stations"])
}

func TestScansLatestByStation(t *testing.T) {
	srv := newScanServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans/katx", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var s domain.ScanSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "katx-0011223344556677", s.ID)
	assert.Equal(t, 720, s.NRays)
	assert.Equal(t, domain.ScanPPI, s.ScanType)
}

func TestScansUnknownStationReturns404(t *testing.T) {
	srv := newScanServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans/KLGX", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "KLGX")
}

func TestScansNotServedWithoutIndex(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scans", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

var _ sharedobs.ReadinessChecker = (*pipeline.Pipeline)(nil)

func TestReadyzReportsPipelineNotStarted(t *testing.T) {
	p := pipeline.New(nil, nil, nil, slog.Default(), observability.NewMetricsForTesting(), 1, 1)
	srv := httpadapter.NewServer(":0", p, nil, slog.Default())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Contains(t, body["error"], "has not processed")
}
