// Package domain contains the per-client request limit model.
package domain

import "time"

// Record is the call count of one client inside its current window.
type Record struct {
	CallCount        int       `json:"callCount"`
	WindowExpiration time.Time `json:"windowExpiration"`
}

// Expired reports whether the window has elapsed at now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.WindowExpiration)
}

// Limit is the outcome of counting one call. Only IsLimitReached is set once
// the limit has been exceeded.
type Limit struct {
	IsLimitReached         bool
	RemainingLimit         int
	LimitPerHour           int
	CurrentLimitExpiration time.Time
}
