package stats

import (
	"time"

	"ado-pulse/internal/record"
)

// Direction classifies the activity trend of one bucketed series.
type Direction string

const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// DefaultTrendTolerance is the band around equality within which a series
// counts as stable (second-half mean within ±10% of first-half mean).
const DefaultTrendTolerance = 0.10

// Point is one calendar-day bucket of the trend series.
type Point struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Created  int    `json:"created"`
	Resolved int    `json:"resolved"`
}

// Series is a contiguous daily trend over the trailing window: exactly Days
// buckets, zero-filled where no activity fell, plus a per-series direction.
type Series struct {
	Days          int       `json:"days"`
	Points        []Point   `json:"points"`
	CreatedTrend  Direction `json:"createdTrend"`
	ResolvedTrend Direction `json:"resolvedTrend"`
}

// Trend buckets CreatedAt and ResolvedAt independently into calendar-day
// buckets across the trailing days window ending at now. Missing days are
// filled with zero, never omitted. tolerance <= 0 falls back to the default.
func Trend(records []record.Record, days int, now time.Time, tolerance float64) Series {
	if days < 1 {
		days = 1
	}
	if tolerance <= 0 {
		tolerance = DefaultTrendTolerance
	}

	// Buckets run from (today - days + 1) through today, inclusive.
	end := snapToDay(now)
	start := end.AddDate(0, 0, -(days - 1))

	points := make([]Point, days)
	for i := range points {
		points[i].Date = start.AddDate(0, 0, i).Format("2006-01-02")
	}

	bucketIndex := func(t *time.Time) int {
		if t == nil {
			return -1
		}
		idx := int(snapToDay(t.UTC()).Sub(start).Hours() / 24)
		if idx < 0 || idx >= days {
			return -1
		}
		return idx
	}

	for _, r := range records {
		if idx := bucketIndex(r.CreatedAt); idx >= 0 {
			points[idx].Created++
		}
		if idx := bucketIndex(r.ResolvedAt); idx >= 0 {
			points[idx].Resolved++
		}
	}

	created := make([]int, days)
	resolved := make([]int, days)
	for i, p := range points {
		created[i] = p.Created
		resolved[i] = p.Resolved
	}

	return Series{
		Days:          days,
		Points:        points,
		CreatedTrend:  classify(created, tolerance),
		ResolvedTrend: classify(resolved, tolerance),
	}
}

// classify compares the mean of the first half of the window against the mean
// of the second half. A second-half mean within the tolerance band around the
// first-half mean reads as stable.
func classify(counts []int, tolerance float64) Direction {
	if len(counts) < 2 {
		return DirectionStable
	}

	half := len(counts) / 2
	firstMean := mean(counts[:half])
	secondMean := mean(counts[len(counts)-half:])

	switch {
	case secondMean > firstMean*(1+tolerance):
		return DirectionIncreasing
	case secondMean < firstMean*(1-tolerance):
		return DirectionDecreasing
	default:
		return DirectionStable
	}
}

func mean(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	return float64(sum) / float64(len(counts))
}

// snapToDay normalizes a timestamp to the start of its UTC calendar day.
func snapToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
