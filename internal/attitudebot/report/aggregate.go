// Package report aggregates labels into a daily trend and renders it.
package report

import (
	"sort"
	"time"

	"github.com/RobinCoderZhao/attitudebot/internal/attitudebot/runner"
)

// DailyPoint is the mean label of all articles published on one day.
type DailyPoint struct {
	Date  time.Time `json:"date"`
	Mean  float64   `json:"mean"`
	Count int       `json:"count"`
}

// Aggregate groups results by calendar day and averages their labels.
// Points are returned in chronological order.
func Aggregate(results []runner.Result) []DailyPoint {
	type acc struct {
		sum   int
		count int
	}
	byDay := make(map[time.Time]*acc)
	for _, r := range results {
		day := time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), 0, 0, 0, 0, time.UTC)
		a, ok := byDay[day]
		if !ok {
			a = &acc{}
			byDay[day] = a
		}
		a.sum += int(r.Label)
		a.count++
	}

	points := make([]DailyPoint, 0, len(byDay))
	for day, a := range byDay {
		points = append(points, DailyPoint{
			Date:  day,
			Mean:  float64(a.sum) / float64(a.count),
			Count: a.count,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}

// Overall returns the mean label across all points, weighted by count.
func Overall(points []DailyPoint) (mean float64, count int) {
	var sum float64
	for _, p := range points {
		sum += p.Mean * float64(p.Count)
		count += p.Count
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), count
}
