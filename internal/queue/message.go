package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cisearch/ingest/internal/fault"
)

// WorkItem is the strongly-typed unit of ingestion work, produced by
// validating and converting the event payload at the queue boundary.
// Malformed payloads never enter the worker's state machine.
type WorkItem struct {
	ID            string
	SourceLocator string
	SizeBytes     int64
	ContentType   string
	ReceivedAt    time.Time
	AttemptCount  int
}

// eventPayload is the wire shape of an ingestion event, as produced by
// the storage notification fan-out.
type eventPayload struct {
	EventType     string `json:"eventType"`
	SourceLocator string `json:"sourceLocator"`
	SizeBytes     int64  `json:"sizeBytes"`
	ReceivedAt    string `json:"receivedAt"`
	Metadata      struct {
		MimeType string `json:"mimeType"`
	} `json:"metadata"`
}

// decodeWorkItem converts a raw message body into a WorkItem, rejecting
// malformed input with an Invalid fault before it reaches the state
// machine.
func decodeWorkItem(messageID string, body []byte, attempt int) (WorkItem, error) {
	var p eventPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return WorkItem{}, fault.New(fault.Invalid, "receiving", fmt.Errorf("malformed event payload: %w", err))
	}
	if p.SourceLocator == "" {
		return WorkItem{}, fault.Newf(fault.Invalid, "receiving", "event payload missing sourceLocator")
	}
	if p.SizeBytes < 0 {
		return WorkItem{}, fault.Newf(fault.Invalid, "receiving", "event payload has negative sizeBytes %d", p.SizeBytes)
	}

	receivedAt := time.Now().UTC()
	if p.ReceivedAt != "" {
		if ts, err := time.Parse(time.RFC3339, p.ReceivedAt); err == nil {
			receivedAt = ts
		}
	}

	id := messageID
	if id == "" {
		id = uuid.NewString()
	}

	return WorkItem{
		ID:            id,
		SourceLocator: p.SourceLocator,
		SizeBytes:     p.SizeBytes,
		ContentType:   p.Metadata.MimeType,
		ReceivedAt:    receivedAt,
		AttemptCount:  attempt,
	}, nil
}
