package azdo

import (
	"fmt"
	"strings"
	"time"

	"ado-pulse/internal/record"
)

// QueryError reports invalid caller-supplied query input. It is raised before
// any fetch is attempted.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return "invalid query: " + e.Reason
}

// QuerySpec is the ephemeral value object describing one refresh's fetch:
// the tag predicate plus optional item-type and date-window restrictions.
// It is built once per cycle and never persisted.
type QuerySpec struct {
	Tag       string
	MatchMode record.MatchMode
	ItemTypes []string
	Since     time.Time
}

// QueryOptions narrows a QuerySpec beyond the tag predicate.
type QueryOptions struct {
	MatchMode record.MatchMode
	ItemTypes []string
	Since     time.Time
}

// BuildQuerySpec validates the tag predicate and produces the spec both
// record-family fetches are derived from. Pure construction, no side effects.
func BuildQuerySpec(tag string, opts QueryOptions) (QuerySpec, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return QuerySpec{}, &QueryError{Reason: "tag must not be empty"}
	}
	mode := opts.MatchMode
	if mode == "" {
		mode = record.MatchExact
	}
	return QuerySpec{
		Tag:       tag,
		MatchMode: mode,
		ItemTypes: opts.ItemTypes,
		Since:     opts.Since,
	}, nil
}

// WIQL renders the structured work-item query for the spec. The tracker's
// CONTAINS operator matches against the raw delimited tag string, so the
// normalizer re-applies the configured token semantics client-side.
func (q QuerySpec) WIQL() string {
	var b strings.Builder
	b.WriteString("SELECT [System.Id], [System.Title], [System.State], [System.WorkItemType], ")
	b.WriteString("[System.Tags], [System.CreatedDate], [System.ChangedDate], ")
	b.WriteString("[System.AssignedTo], [System.Priority], [Microsoft.VSTS.Common.Severity], ")
	b.WriteString("[System.Description], [Microsoft.VSTS.Common.ResolvedDate] ")
	b.WriteString("FROM WorkItems WHERE [System.Tags] CONTAINS '")
	b.WriteString(escapeWIQL(q.Tag))
	b.WriteString("'")

	if len(q.ItemTypes) > 0 {
		quoted := make([]string, len(q.ItemTypes))
		for i, t := range q.ItemTypes {
			quoted[i] = "'" + escapeWIQL(t) + "'"
		}
		fmt.Fprintf(&b, " AND [System.WorkItemType] IN (%s)", strings.Join(quoted, ", "))
	}

	if !q.Since.IsZero() {
		fmt.Fprintf(&b, " AND [System.CreatedDate] >= '%s'", q.Since.Format("2006-01-02"))
	}

	b.WriteString(" ORDER BY [System.ChangedDate] DESC")
	return b.String()
}

func escapeWIQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
