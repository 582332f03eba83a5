package audit

import (
	"context"
	"time"

	"github.com/vshulcz/Telemetra/internal/domain"
)

// Event records one accepted ingestion batch: when, what and from whom.
type Event struct {
	BatchID   string   `json:"batch_id,omitempty"`
	IPAddress string   `json:"ip_address"`
	Subject   string   `json:"subject,omitempty"`
	Metrics   []string `json:"metrics"`
	Timestamp int64    `json:"ts"`
	Points    int      `json:"points"`
}

// NewEvent describes points accepted at now, taking caller details from ctx.
func NewEvent(ctx context.Context, points []domain.Point, now time.Time) Event {
	b := domain.Batch{Points: points}
	return Event{
		BatchID:   BatchIDFromContext(ctx),
		IPAddress: ClientIPFromContext(ctx),
		Subject:   SubjectFromContext(ctx),
		Metrics:   b.Metrics(),
		Timestamp: now.Unix(),
		Points:    b.Len(),
	}
}
