package models

import "time"

// MaxResolutionAttempts is the number of failed fetches after which a bet is forced to error
const MaxResolutionAttempts = 5

// RetryRecord is the worklist entry for a bet whose observation fetch failed
type RetryRecord struct {
	BetID         string    `json:"bet_id"`
	AttemptCount  int       `json:"attempt_count"`
	LastError     string    `json:"last_error"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

// Exhausted reports whether the record reached the retry bound
func (r *RetryRecord) Exhausted() bool {
	return r.AttemptCount >= MaxResolutionAttempts
}
