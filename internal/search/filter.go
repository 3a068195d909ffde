package search

import (
	"strings"

	"ado-pulse/internal/record"
)

// Criteria describes a multi-criteria filter. All provided fields combine
// with logical AND. An empty field means "no constraint on that field",
// never "match records with an empty field".
type Criteria struct {
	// Text matches case-insensitively as a substring over title and
	// description.
	Text string `json:"text,omitempty"`
	// ItemTypes keeps a record when its itemType is a member, or the set
	// is empty. States and Priorities follow the same semantics.
	ItemTypes  []string `json:"itemTypes,omitempty"`
	States     []string `json:"states,omitempty"`
	Priorities []string `json:"priorities,omitempty"`
	// Assignee matches case-insensitively as a substring of the display name.
	Assignee string `json:"assignee,omitempty"`
}

// IsZero reports whether the criteria constrain anything at all.
func (c Criteria) IsZero() bool {
	return c.Text == "" && c.Assignee == "" &&
		len(c.ItemTypes) == 0 && len(c.States) == 0 && len(c.Priorities) == 0
}

// Filter applies the criteria over the collection, preserving the original
// relative order. The input is never mutated; the result is a fresh slice.
func Filter(records []record.Record, c Criteria) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if matches(r, c) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r record.Record, c Criteria) bool {
	if !memberOf(r.ItemType, c.ItemTypes) {
		return false
	}
	if !memberOf(r.State, c.States) {
		return false
	}
	if !memberOf(r.Priority, c.Priorities) {
		return false
	}
	if c.Assignee != "" && !containsFold(r.AssignedTo, c.Assignee) {
		return false
	}
	if c.Text != "" && !containsFold(r.Title, c.Text) && !containsFold(r.Description, c.Text) {
		return false
	}
	return true
}

// memberOf treats an empty allowlist as "no restriction".
func memberOf(value string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
