package publishers

import (
	"encoding/json"
	"time"

	"github.com/samvad-hq/osrm-kit/internal/domain"
)

// Event represents the payload published downstream.
type Event struct {
	JobID       string          `json:"job_id"`
	Kind        string          `json:"kind"`
	Fingerprint string          `json:"fingerprint"`
	Result      json.RawMessage `json:"result"`
	ComputedAt  time.Time       `json:"computed_at"`
}

// NewEvent constructs an Event for the given job result.
func NewEvent(res domain.Result) Event {
	return Event{
		JobID:       res.JobID,
		Kind:        res.Kind,
		Fingerprint: res.Fingerprint,
		Result:      res.Payload,
		ComputedAt:  time.Now().UTC(),
	}
}
