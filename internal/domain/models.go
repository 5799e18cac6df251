package domain

import "encoding/json"

// Domain contains the models shared between the batch runner and publishers.

// Job kinds, one per routing service operation.
const (
	KindRoute   = "route"
	KindTable   = "table"
	KindNearest = "nearest"
	KindTrip    = "trip"
	KindMatch   = "match"
)

// Result is the outcome of one routing job, ready for publishing.
type Result struct {
	JobID       string          `json:"job_id"`
	Kind        string          `json:"kind"`
	Fingerprint string          `json:"fingerprint"`
	Payload     json.RawMessage `json:"payload"`
}
