package model

// UsageCounter is the per-user, per-subject, per-calendar-month attempt
// count consumed by the quota gate. Month is a UTC "YYYY-MM" bucket.
type UsageCounter struct {
	UserID       int    `json:"user_id"`
	SubjectID    int    `json:"subject_id"`
	Month        string `json:"month"`
	AttemptCount int    `json:"attempt_count"`
}

// QuotaStatus is the user-facing view of their quota for one subject.
type QuotaStatus struct {
	SubjectID int    `json:"subject_id"`
	Month     string `json:"month"`
	Used      int    `json:"used"`
	Limit     int    `json:"limit"`
	Premium   bool   `json:"premium"`
	Allowed   bool   `json:"allowed"`
}
