// Package pipeline merges fetched traffic into the store and reshapes
// stored rows for display.
package pipeline

import (
	"sort"

	"github.com/theirongolddev/ghtraffic/internal/github"
)

// DayTraffic is one calendar day of merged views and clones for a repository.
type DayTraffic struct {
	Date         string
	Views        int64
	Visitors     int64
	Clones       int64
	CloneUniques int64

	// HasViews is false when only the clones series reported this date.
	HasViews bool
}

// MergeSeries joins the views and clones series on calendar date. Every date
// present in either series yields exactly one entry; the side with no data
// for that date is zero. The result is sorted by date.
func MergeSeries(views, clones []github.TrafficPoint) []DayTraffic {
	dayMap := make(map[string]*DayTraffic, len(views)+len(clones))

	get := func(date string) *DayTraffic {
		d, ok := dayMap[date]
		if !ok {
			d = &DayTraffic{Date: date}
			dayMap[date] = d
		}
		return d
	}

	for _, v := range views {
		d := get(github.DateOf(v.Timestamp))
		d.Views = v.Count
		d.Visitors = v.Uniques
		d.HasViews = true
	}
	for _, c := range clones {
		d := get(github.DateOf(c.Timestamp))
		d.Clones = c.Count
		d.CloneUniques = c.Uniques
	}

	days := make([]DayTraffic, 0, len(dayMap))
	for _, d := range dayMap {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date < days[j].Date
	})
	return days
}
