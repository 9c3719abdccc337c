package github

import "time"

// Repository is the subset of the repository listing the collector needs.
type Repository struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Private  bool   `json:"private"`
	Fork     bool   `json:"fork"`
	Stars    int    `json:"stargazers_count"`
}

// TrafficPoint is one day of views or clones as reported by the traffic API.
// Timestamp is an ISO 8601 instant at midnight UTC.
type TrafficPoint struct {
	Timestamp string `json:"timestamp"`
	Count     int64  `json:"count"`
	Uniques   int64  `json:"uniques"`
}

// ViewsResponse is the raw response of /repos/{repo}/traffic/views.
type ViewsResponse struct {
	Count   int64          `json:"count"`
	Uniques int64          `json:"uniques"`
	Views   []TrafficPoint `json:"views"`
}

// ClonesResponse is the raw response of /repos/{repo}/traffic/clones.
type ClonesResponse struct {
	Count   int64          `json:"count"`
	Uniques int64          `json:"uniques"`
	Clones  []TrafficPoint `json:"clones"`
}

// Referrer is one entry of /repos/{repo}/traffic/popular/referrers.
type Referrer struct {
	Referrer string `json:"referrer"`
	Count    int64  `json:"count"`
	Uniques  int64  `json:"uniques"`
}

// RepoTraffic bundles the three traffic series fetched for one repository.
type RepoTraffic struct {
	Views     ViewsResponse
	Clones    ClonesResponse
	Referrers []Referrer
}

// RateStatus is the core API quota as of the most recent response.
type RateStatus struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// Known reports whether any response has carried rate limit headers yet.
func (r RateStatus) Known() bool {
	return r.Limit > 0
}

// Used returns the fraction of the quota consumed, in [0, 1].
func (r RateStatus) Used() float64 {
	if r.Limit <= 0 {
		return 0
	}
	used := float64(r.Limit-r.Remaining) / float64(r.Limit)
	switch {
	case used < 0:
		return 0
	case used > 1:
		return 1
	}
	return used
}
