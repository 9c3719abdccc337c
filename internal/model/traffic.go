// Package model defines domain types for ghtraffic traffic metrics.
package model

// DailyTraffic is one repository's activity on one calendar day.
// (Repo, Date) is unique in storage.
type DailyTraffic struct {
	Repo         string `json:"repo"`
	Date         string `json:"date"` // YYYY-MM-DD
	Views        int64  `json:"views"`
	Visitors     int64  `json:"visitors"`
	Clones       int64  `json:"clones"`
	CloneUniques int64  `json:"cloneUniques"`
}

// ReferrerRow is the traffic attributed to one referring source on one day.
// (Repo, Date, Referrer) is unique in storage.
type ReferrerRow struct {
	Repo     string `json:"repo"`
	Date     string `json:"date"`
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
	Uniques  int64  `json:"uniques"`
}

// Referrer is a referring source with its counts over some window.
type Referrer struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
	Uniques  int64  `json:"uniques"`
}

// ReferrerTotal is a Referrer summed across days for one repository.
type ReferrerTotal struct {
	Repo string
	Referrer
}

// TrafficPoint is one day of a views or clones series.
type TrafficPoint struct {
	Timestamp string `json:"timestamp"` // YYYY-MM-DDT00:00:00Z
	Count     int64  `json:"count"`
	Uniques   int64  `json:"uniques"`
}

// TrafficSeries is a running total plus the per-day points it was summed from.
type TrafficSeries struct {
	Count   int64          `json:"count"`
	Uniques int64          `json:"uniques"`
	Points  []TrafficPoint `json:"points"`
}

// RepoTraffic summarizes one repository over the summary window.
type RepoTraffic struct {
	Repo      string        `json:"repo"`
	Views     TrafficSeries `json:"views"`
	Clones    TrafficSeries `json:"clones"`
	Referrers []Referrer    `json:"referrers"`
}

// DailyTotal holds traffic summed across repositories for one date.
type DailyTotal struct {
	Date     string `json:"date"`
	Views    int64  `json:"views"`
	Visitors int64  `json:"visitors"`
	Clones   int64  `json:"clones"`
}

// TotalStats holds dashboard-wide totals.
type TotalStats struct {
	Repos    int
	Views    int64
	Visitors int64
	Clones   int64
}
