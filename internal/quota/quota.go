// Package quota implements the monthly attempt gate: a pure predicate over
// a user's premium flag and their usage count for one subject in the
// current calendar month. The predicate holds no state and is re-evaluated
// at the moment of consumption, so concurrent tabs may observe a stale
// count for one request.
package quota

import "time"

// DefaultMonthlyLimit is the observed free-tier cap: attempts per subject
// per calendar month.
const DefaultMonthlyLimit = 3

// MonthKey returns the UTC calendar-month bucket ("2026-08") used to key
// usage counters.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Allow reports whether a new attempt (or result reveal) is permitted.
// Premium users always pass; everyone else passes while their count for
// the month is below the limit.
func Allow(premium bool, usageCount, monthlyLimit int) bool {
	if premium {
		return true
	}
	return usageCount < monthlyLimit
}
