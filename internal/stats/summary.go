package stats

import (
	"math"
	"strings"
	"time"

	"ado-pulse/internal/record"
)

// DefaultRecentWindowDays is the trailing window used for the summary's
// recent-activity count.
const DefaultRecentWindowDays = 30

// Summary holds the derived metrics over one record collection.
type Summary struct {
	Total      int            `json:"total"`
	ByKind     map[string]int `json:"byKind"`
	ByType     map[string]int `json:"byType"`
	ByState    map[string]int `json:"byState"`
	ByPriority map[string]int `json:"byPriority"`
	BySeverity map[string]int `json:"bySeverity"`

	Resolved          int      `json:"resolved"`
	Open              int      `json:"open"`
	ResolutionRate    float64  `json:"resolutionRate"`
	AvgResolutionDays *float64 `json:"avgResolutionDays,omitempty"`
	RecentCount       int      `json:"recentCount"`

	TestsPassed       int     `json:"testsPassed"`
	TestsFailed       int     `json:"testsFailed"`
	TestsWithOutcome  int     `json:"testsWithOutcome"`
	PassRate          float64 `json:"passRate"`
	RecentWindowDays  int     `json:"recentWindowDays"`
}

// Summarize computes the summary metrics over the given collection, typically
// the full dataset or a filtered subset. It is a pure function: it never
// touches the dataset store and carries its own reference time, so fixtures
// test it directly.
func Summarize(records []record.Record, now time.Time) Summary {
	s := Summary{
		Total:            len(records),
		ByKind:           make(map[string]int),
		ByType:           make(map[string]int),
		ByState:          make(map[string]int),
		ByPriority:       make(map[string]int),
		BySeverity:       make(map[string]int),
		RecentWindowDays: DefaultRecentWindowDays,
	}

	var resolutionDaysSum float64
	var resolutionDaysN int

	for _, r := range records {
		s.ByKind[string(r.Kind)]++
		countInto(s.ByType, r.ItemType)
		countInto(s.ByState, r.State)
		countInto(s.ByPriority, r.Priority)
		countInto(s.BySeverity, r.Severity)

		if r.ResolvedAt != nil {
			s.Resolved++
			if r.CreatedAt != nil {
				resolutionDaysSum += r.ResolvedAt.Sub(*r.CreatedAt).Hours() / 24.0
				resolutionDaysN++
			}
		}

		if r.Kind == record.KindTestResult && r.Outcome != "" {
			s.TestsWithOutcome++
			switch strings.ToLower(r.Outcome) {
			case "passed":
				s.TestsPassed++
			case "failed":
				s.TestsFailed++
			}
		}
	}

	s.Open = s.Total - s.Resolved
	if s.Total > 0 {
		s.ResolutionRate = round2(float64(s.Resolved) / float64(s.Total) * 100)
	}
	if resolutionDaysN > 0 {
		avg := round2(resolutionDaysSum / float64(resolutionDaysN))
		s.AvgResolutionDays = &avg
	}
	if s.TestsWithOutcome > 0 {
		s.PassRate = round2(float64(s.TestsPassed) / float64(s.TestsWithOutcome) * 100)
	}
	s.RecentCount = RecentCount(records, DefaultRecentWindowDays, now)

	return s
}

// RecentCount counts records created within the trailing window from now.
func RecentCount(records []record.Record, windowDays int, now time.Time) int {
	cutoff := now.AddDate(0, 0, -windowDays)
	count := 0
	for _, r := range records {
		if r.CreatedAt != nil && r.CreatedAt.After(cutoff) {
			count++
		}
	}
	return count
}

// countInto buckets empty categorical values under "Unknown" so distribution
// totals always add up to the record count.
func countInto(m map[string]int, key string) {
	if key == "" {
		key = "Unknown"
	}
	m[key]++
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
