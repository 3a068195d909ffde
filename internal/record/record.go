package record

import (
	"encoding/json"
	"time"
)

// Kind discriminates the two upstream record families.
type Kind string

const (
	KindTestResult Kind = "test_result"
	KindWorkItem   Kind = "work_item"
)

// Record is the canonical shape every fetched item is normalized into.
// Raw carries the original upstream structure for detail/deep-link rendering
// and is never interpreted by the aggregator or the filter engine.
type Record struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Title       string          `json:"title"`
	State       string          `json:"state"`
	ItemType    string          `json:"itemType"`
	Tags        TagSet          `json:"tags"`
	Priority    string          `json:"priority,omitempty"`
	Severity    string          `json:"severity,omitempty"`
	AssignedTo  string          `json:"assignedTo,omitempty"`
	Description string          `json:"description,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	ChangedAt   *time.Time      `json:"changedAt,omitempty"`
	ResolvedAt  *time.Time      `json:"resolvedAt,omitempty"`
	Outcome     string          `json:"outcome,omitempty"`
	Duration    time.Duration   `json:"duration,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// IsResolved reports whether the record's state indicates closure.
func (r Record) IsResolved() bool {
	return r.ResolvedAt != nil
}
