// v0
// internal/public/record.go
package public

import "modelmarket/internal/models"

const (
	// EventTypeRecordCommitted labels every published ledger record.
	EventTypeRecordCommitted = "ledger.record.committed"
	// SchemaVersionV1 is the current payload schema.
	SchemaVersionV1 = "v1"
)

// RecordEvent is the JSON value published for each committed record.
type RecordEvent struct {
	Type          string             `json:"type"`
	SchemaVersion string             `json:"schemaVersion"`
	Index         int                `json:"index"`
	Hash          string             `json:"hash"`
	Record        models.Transaction `json:"record"`
}
