package domain

import (
	"context"
	"log/slog"
)

// Geo source values recorded on Site.
const (
	GeoSourceReverse  = "reverse"
	GeoSourceOriginal = "original"
	GeoSourceFailed   = "failed"
)

// EnrichWithGeocoding attempts to attach place details to the summary's
// site. If geocoder is nil the summary is returned untouched; a failed
// lookup only sets GeoSource.
func EnrichWithGeocoding(ctx context.Context, s ScanSummary, geocoder SiteGeocoder, logger *slog.Logger) ScanSummary {
	if geocoder == nil {
		return s
	}

	if s.Site.Lat == 0 && s.Site.Lon == 0 {
		s.Site.GeoSource = GeoSourceOriginal
		return s
	}

	result, err := geocoder.ReverseGeocode(ctx, s.Site.Lat, s.Site.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"scan_id", s.ID,
			"station", s.Station,
			"lat", s.Site.Lat,
			"lon", s.Site.Lon,
			"error", err,
		)
		s.Site.GeoSource = GeoSourceFailed
		return s
	}
	if result.FormattedAddress == "" {
		s.Site.GeoSource = GeoSourceOriginal
		return s
	}
	s.Site.FormattedAddress = result.FormattedAddress
	s.Site.PlaceName = result.PlaceName
	s.Site.GeoConfidence = result.Confidence
	s.Site.GeoSource = GeoSourceReverse
	return s
}
