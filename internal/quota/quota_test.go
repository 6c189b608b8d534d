package quota_test

import (
	"testing"
	"time"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/quota"
)

func TestAllow(t *testing.T) {
	cases := []struct {
		name    string
		premium bool
		used    int
		limit   int
		want    bool
	}{
		{"premium ignores the count", true, 100, 3, true},
		{"fresh month passes", false, 0, 3, true},
		{"below the limit passes", false, 2, 3, true},
		{"at the limit blocks", false, 3, 3, false},
		{"over the limit blocks", false, 4, 3, false},
		{"zero limit blocks free users", false, 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := quota.Allow(tc.premium, tc.used, tc.limit); got != tc.want {
				t.Fatalf("Allow(%v, %d, %d) = %v, want %v", tc.premium, tc.used, tc.limit, got, tc.want)
			}
		})
	}
}

func TestMonthKeyUsesUTC(t *testing.T) {
	// 2026-08-31 23:30 in Bangkok is already September in local time, but
	// still August in UTC. The bucket follows UTC.
	bangkok := time.FixedZone("ICT", 7*3600)
	ts := time.Date(2026, time.September, 1, 2, 30, 0, 0, bangkok)

	if got := quota.MonthKey(ts); got != "2026-08" {
		t.Fatalf("MonthKey = %q, want 2026-08", got)
	}

	if got := quota.MonthKey(time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)); got != "2026-01" {
		t.Fatalf("MonthKey = %q, want 2026-01", got)
	}
}
