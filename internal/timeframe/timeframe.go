// Package timeframe maps the named analytics ranges onto concrete time
// windows and bucket granularities, and builds dense zero-filled time series
// from sparse aggregation results.
package timeframe

import (
	"fmt"
	"time"
)

// DateStat is one bucket of an aggregated series.
type DateStat struct {
	Date  string
	Count int
}

// BucketSize is the granularity of a time bucket.
type BucketSize string

const (
	BucketSizeHour BucketSize = "hour"
	BucketSizeDay  BucketSize = "day"
)

// Range is a named lookback window accepted by the analytics surface.
type Range string

const (
	Range24H Range = "24h"
	Range7D  Range = "7d"
	Range30D Range = "30d"
	RangeAll Range = "all"
)

// allTimeLookbackDays bounds the "all" range so its queries stay scan-friendly.
const allTimeLookbackDays = 90

// RangeSpec pairs a lookback duration with the bucket granularity used to
// chart it. The mapping is defined here once and consumed by both the
// timeline and the overall-stats filters.
type RangeSpec struct {
	Lookback time.Duration
	Bucket   BucketSize
}

// ParseRange validates a range label, defaulting empty input to RangeAll.
func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case Range24H, Range7D, Range30D, RangeAll:
		return Range(s), nil
	case "":
		return RangeAll, nil
	default:
		return "", fmt.Errorf("unknown range: %q", s)
	}
}

// SpecForRange returns the lookback/granularity pair for a named range.
func SpecForRange(r Range) RangeSpec {
	switch r {
	case Range24H:
		return RangeSpec{Lookback: 24 * time.Hour, Bucket: BucketSizeHour}
	case Range7D:
		return RangeSpec{Lookback: 7 * 24 * time.Hour, Bucket: BucketSizeDay}
	case Range30D:
		return RangeSpec{Lookback: 30 * 24 * time.Hour, Bucket: BucketSizeDay}
	default:
		return RangeSpec{Lookback: allTimeLookbackDays * 24 * time.Hour, Bucket: BucketSizeDay}
	}
}

// TimeFrame represents a concrete query window with a bucket granularity.
// From is aligned to a bucket boundary so the generated sequence always
// starts on a full bucket.
type TimeFrame struct {
	From   time.Time
	To     time.Time
	Bucket BucketSize
}

// NewFromRange builds the time frame for a named range, anchored at now.
func NewFromRange(r Range, now time.Time) TimeFrame {
	spec := SpecForRange(r)
	nowUTC := now.UTC()
	return TimeFrame{
		From:   truncateToBucket(nowUTC, spec.Bucket).Add(-spec.Lookback),
		To:     nowUTC,
		Bucket: spec.Bucket,
	}
}

// GoFormat returns the Go time layout for this frame's bucket labels.
func (tf TimeFrame) GoFormat() string {
	if tf.Bucket == BucketSizeHour {
		return "2006-01-02 15:00"
	}
	return "2006-01-02"
}

// SQLiteBucketExpression returns the strftime expression that formats the
// given column into this frame's bucket labels. The expression must agree
// with GoFormat so grouped rows join onto generated points.
func (tf TimeFrame) SQLiteBucketExpression(column string) string {
	if tf.Bucket == BucketSizeHour {
		return fmt.Sprintf("strftime('%%Y-%%m-%%d %%H:00', %s)", column)
	}
	return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
}

// FormatBucket formats a timestamp as its bucket label.
func (tf TimeFrame) FormatBucket(t time.Time) string {
	return t.UTC().Format(tf.GoFormat())
}

// GeneratePoints returns the complete ordered sequence of bucket labels
// spanning the frame, both boundary buckets included. The sequence has a
// label for every bucket whether or not any events fall into it.
func (tf TimeFrame) GeneratePoints() []string {
	points := []string{}
	current := truncateToBucket(tf.From, tf.Bucket)
	end := truncateToBucket(tf.To, tf.Bucket)

	step := time.Hour
	if tf.Bucket == BucketSizeDay {
		step = 24 * time.Hour
	}

	// Bounded to keep a malformed frame from looping forever.
	maxPoints := 1000
	for i := 0; i < maxPoints && !current.After(end); i++ {
		points = append(points, tf.FormatBucket(current))
		current = current.Add(step)
	}

	return points
}

// BuildTimeSeriesPoints left-joins sparse grouped counts onto the dense
// generated bucket sequence so every bucket reports a count, zero when the
// store had no matching rows. Output length always equals the generated
// sequence length.
func (tf TimeFrame) BuildTimeSeriesPoints(groupedResults []DateStat) []DateStat {
	points := tf.GeneratePoints()

	resultsMap := make(map[string]int, len(groupedResults))
	for _, result := range groupedResults {
		resultsMap[result.Date] = result.Count
	}

	series := make([]DateStat, len(points))
	for i, point := range points {
		series[i] = DateStat{Date: point, Count: resultsMap[point]}
	}

	return series
}

// SQLiteTimestampLayout is the layout produced by wrapping a timestamp
// aggregate in strftime('%Y-%m-%d %H:%M:%S', ...). Expression columns carry
// no declared type, so the driver hands them back as strings; normalizing
// through strftime gives one layout to parse instead of every storage
// variant.
const SQLiteTimestampLayout = "2006-01-02 15:04:05"

// SQLiteTimestampExpression wraps a timestamp expression so it scans back
// as a SQLiteTimestampLayout string in UTC.
func SQLiteTimestampExpression(expr string) string {
	return fmt.Sprintf("strftime('%%Y-%%m-%%d %%H:%%M:%%S', %s)", expr)
}

// ParseSQLiteTimestamp parses a timestamp produced by
// SQLiteTimestampExpression. Stored timestamps are UTC, so the result is too.
func ParseSQLiteTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(SQLiteTimestampLayout, s, time.UTC)
}

func truncateToBucket(t time.Time, bucket BucketSize) time.Time {
	utc := t.UTC()
	if bucket == BucketSizeHour {
		return time.Date(utc.Year(), utc.Month(), utc.Day(), utc.Hour(), 0, 0, 0, time.UTC)
	}
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
