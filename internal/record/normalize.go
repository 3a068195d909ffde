package record

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MalformedRecordError reports a single record that could not be normalized.
// The refresh cycle collects these and continues with the remaining records.
type MalformedRecordError struct {
	Kind   Kind
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: %s", e.Kind, e.Reason)
}

// ClosedStates is the set of tracker states that indicate resolution/closure.
// Lookups are case-insensitive.
type ClosedStates map[string]bool

// DefaultClosedStates covers the states the upstream tracker uses out of the box.
func DefaultClosedStates() ClosedStates {
	return NewClosedStates([]string{"Resolved", "Closed", "Done", "Completed"})
}

// NewClosedStates builds the set from configured state names.
func NewClosedStates(states []string) ClosedStates {
	cs := make(ClosedStates, len(states))
	for _, s := range states {
		s = strings.TrimSpace(s)
		if s != "" {
			cs[strings.ToLower(s)] = true
		}
	}
	return cs
}

// IsClosed reports whether the given state name indicates closure.
func (cs ClosedStates) IsClosed(state string) bool {
	return cs[strings.ToLower(strings.TrimSpace(state))]
}

// workItemDTO is the envelope of a work-item detail response. Fields is kept
// dynamic: the upstream nests everything under reference names like
// "System.Title" and several values shift shape between deployments
// (AssignedTo as object vs string, Priority as number vs string).
type workItemDTO struct {
	ID     json.Number    `json:"id"`
	Fields map[string]any `json:"fields"`
}

// testResultDTO mirrors a single test-result entry of a run results response.
type testResultDTO struct {
	ID                json.Number `json:"id"`
	TestCaseTitle     string      `json:"testCaseTitle"`
	AutomatedTestName string      `json:"automatedTestName"`
	AutomatedTestType string      `json:"automatedTestType"`
	Outcome           string      `json:"outcome"`
	State             string      `json:"state"`
	Priority          any         `json:"priority"`
	DurationInMs      float64     `json:"durationInMs"`
	StartedDate       string      `json:"startedDate"`
	CompletedDate     string      `json:"completedDate"`
	ErrorMessage      string      `json:"errorMessage"`
	Owner             any         `json:"owner"`
	Tags              any         `json:"tags"`
}

// NormalizeWorkItem maps a raw work-item structure into a canonical Record.
// A missing id is the only fatal condition; unparseable optional fields are
// dropped rather than failing the record.
func NormalizeWorkItem(raw json.RawMessage, closed ClosedStates) (Record, error) {
	var dto workItemDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return Record{}, &MalformedRecordError{Kind: KindWorkItem, Reason: err.Error()}
	}

	id := dto.ID.String()
	if id == "" || id == "0" {
		// Some responses only carry the id inside the field map.
		id = anyToString(dto.Fields["System.Id"])
	}
	if id == "" || id == "0" {
		return Record{}, &MalformedRecordError{Kind: KindWorkItem, Reason: "missing id"}
	}

	rec := Record{
		ID:          id,
		Kind:        KindWorkItem,
		Title:       anyToString(dto.Fields["System.Title"]),
		State:       anyToString(dto.Fields["System.State"]),
		ItemType:    anyToString(dto.Fields["System.WorkItemType"]),
		Tags:        tagsFromAny(dto.Fields["System.Tags"]),
		Priority:    anyToString(dto.Fields["System.Priority"]),
		Severity:    anyToString(dto.Fields["Microsoft.VSTS.Common.Severity"]),
		AssignedTo:  displayName(dto.Fields["System.AssignedTo"]),
		Description: anyToString(dto.Fields["System.Description"]),
		CreatedAt:   parseTime(anyToString(dto.Fields["System.CreatedDate"])),
		ChangedAt:   parseTime(anyToString(dto.Fields["System.ChangedDate"])),
		Raw:         raw,
	}

	// ResolvedAt only when the state actually indicates closure; a stale
	// resolved date on a reopened item must not count as a resolution.
	if closed.IsClosed(rec.State) {
		rec.ResolvedAt = parseTime(anyToString(dto.Fields["Microsoft.VSTS.Common.ResolvedDate"]))
		if rec.ResolvedAt == nil {
			rec.ResolvedAt = rec.ChangedAt
		}
	}

	return rec, nil
}

// NormalizeTestResult maps a raw test-result structure into a canonical Record.
func NormalizeTestResult(raw json.RawMessage, closed ClosedStates) (Record, error) {
	var dto testResultDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return Record{}, &MalformedRecordError{Kind: KindTestResult, Reason: err.Error()}
	}

	id := dto.ID.String()
	if id == "" || id == "0" {
		return Record{}, &MalformedRecordError{Kind: KindTestResult, Reason: "missing id"}
	}

	title := dto.TestCaseTitle
	if title == "" {
		title = dto.AutomatedTestName
	}

	itemType := dto.AutomatedTestType
	if itemType == "" {
		itemType = "Test Case"
	}

	rec := Record{
		ID:          id,
		Kind:        KindTestResult,
		Title:       title,
		State:       dto.State,
		ItemType:    itemType,
		Tags:        tagsFromAny(dto.Tags),
		Priority:    anyToString(dto.Priority),
		AssignedTo:  displayName(dto.Owner),
		Description: dto.ErrorMessage,
		CreatedAt:   parseTime(dto.StartedDate),
		ChangedAt:   parseTime(dto.CompletedDate),
		Outcome:     dto.Outcome,
		Duration:    time.Duration(dto.DurationInMs * float64(time.Millisecond)),
		Raw:         raw,
	}

	if closed.IsClosed(rec.State) {
		rec.ResolvedAt = parseTime(dto.CompletedDate)
	}

	return rec, nil
}

// parseTime accepts the upstream ISO-8601/UTC timestamp variants. Unparseable
// input yields nil; timestamp problems never fail a whole record.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// tagsFromAny normalizes the two observed tag shapes (delimited string,
// list of strings) into one token set.
func tagsFromAny(v any) TagSet {
	switch tags := v.(type) {
	case string:
		return SplitTags(tags)
	case []any:
		tokens := make([]string, 0, len(tags))
		for _, t := range tags {
			tokens = append(tokens, anyToString(t))
		}
		return NewTagSet(tokens)
	case []string:
		return NewTagSet(tags)
	default:
		return TagSet{}
	}
}

// displayName extracts an identity field that arrives either as an object
// with a displayName or as a plain string.
func displayName(v any) string {
	if m, ok := v.(map[string]any); ok {
		return anyToString(m["displayName"])
	}
	return anyToString(v)
}

func anyToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		// JSON numbers decode as float64; priorities are small integers.
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}
