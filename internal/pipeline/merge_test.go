package pipeline

import (
	"testing"

	"github.com/theirongolddev/ghtraffic/internal/github"
)

func pt(date string, count, uniques int64) github.TrafficPoint {
	return github.TrafficPoint{Timestamp: date + "T00:00:00Z", Count: count, Uniques: uniques}
}

func TestMergeSeries_UnionOfDates(t *testing.T) {
	views := []github.TrafficPoint{pt("2024-01-02", 5, 3), pt("2024-01-01", 4, 2)}
	clones := []github.TrafficPoint{pt("2024-01-02", 1, 1), pt("2024-01-03", 7, 6)}

	days := MergeSeries(views, clones)
	if len(days) != 3 {
		t.Fatalf("days = %d, want 3", len(days))
	}

	want := []DayTraffic{
		{Date: "2024-01-01", Views: 4, Visitors: 2, HasViews: true},
		{Date: "2024-01-02", Views: 5, Visitors: 3, Clones: 1, CloneUniques: 1, HasViews: true},
		{Date: "2024-01-03", Clones: 7, CloneUniques: 6},
	}
	for i, w := range want {
		if days[i] != w {
			t.Errorf("days[%d] = %+v, want %+v", i, days[i], w)
		}
	}
}

func TestMergeSeries_CloneOnlySeries(t *testing.T) {
	days := MergeSeries(nil, []github.TrafficPoint{pt("2024-05-01", 3, 2)})
	if len(days) != 1 {
		t.Fatalf("days = %d, want 1", len(days))
	}
	if days[0].HasViews {
		t.Error("clone-only date reported HasViews")
	}
	if days[0].Views != 0 || days[0].Visitors != 0 {
		t.Errorf("views = %d/%d, want 0/0", days[0].Views, days[0].Visitors)
	}
}

func TestMergeSeries_Empty(t *testing.T) {
	if days := MergeSeries(nil, nil); len(days) != 0 {
		t.Errorf("days = %d, want 0", len(days))
	}
}
