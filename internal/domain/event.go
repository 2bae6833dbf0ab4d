package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ArchiveRequest asks the service to decode one radar archive. Producers may
// send the JSON object or a bare path string.
type ArchiveRequest struct {
	Path    string `json:"path"`
	Station string `json:"station,omitempty"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ParseRawEvent extracts the archive request carried by a source message.
func ParseRawEvent(raw RawEvent) (ArchiveRequest, error) {
	body := strings.TrimSpace(string(raw.Value))
	if body == "" {
		return ArchiveRequest{}, errors.New("parse raw event: empty message")
	}

	var req ArchiveRequest
	if strings.HasPrefix(body, "{") {
		if err := json.Unmarshal(raw.Value, &req); err != nil {
			return ArchiveRequest{}, fmt.Errorf("parse raw event: %w", err)
		}
	} else {
		req.Path = body
	}

	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" {
		return ArchiveRequest{}, errors.New("parse raw event: path is required")
	}
	if req.Station == "" {
		req.Station = raw.Headers["station"]
	}
	req.Station = strings.ToUpper(strings.TrimSpace(req.Station))
	return req, nil
}
