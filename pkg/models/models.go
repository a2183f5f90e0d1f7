package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// TermNamespace is the UUIDv5 namespace term ids are derived in.
var TermNamespace = uuid.NewV5(uuid.NamespaceURL, "termcheck/terms")

type Term struct {
	ID           uuid.UUID `bson:"_id" json:"id"`
	Surface      string    `bson:"term" json:"term"`
	Language     string    `bson:"language" json:"language"`
	Description  string    `bson:"description" json:"description,omitempty"`
	Translations []string  `bson:"translations" json:"translations,omitempty"`
}

// NewTermID returns the stable id of a term, derived from its language and surface form.
func NewTermID(language, surface string) uuid.UUID {
	return uuid.NewV5(TermNamespace, language+":"+surface)
}

// LogEntry is a single request record published by the API and indexed by the logkeeper.
type LogEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	IP           string    `json:"ip"`
	StatusCode   int       `json:"status_code"`
	RequestID    string    `json:"request_id"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	Duration     float64   `json:"duration_sec"`
	Service      string    `json:"service"`
	BytesWritten int       `json:"bytes_written"`
}
