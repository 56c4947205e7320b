package models

import "time"

// CounterWindow is the rate-limit state of one category group
type CounterWindow struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// RateLimitState holds every group counter for one owner
type RateLimitState struct {
	Owner    string                          `json:"owner"`
	Counters map[CategoryGroup]CounterWindow `json:"counters"`
}

// NewRateLimitState creates an empty state for an owner
func NewRateLimitState(owner string) *RateLimitState {
	return &RateLimitState{
		Owner:    owner,
		Counters: make(map[CategoryGroup]CounterWindow),
	}
}

// Window returns the stored counter for a group
func (s *RateLimitState) Window(group CategoryGroup) CounterWindow {
	if s.Counters == nil {
		return CounterWindow{}
	}
	return s.Counters[group]
}

// SetWindow stores the counter for a group
func (s *RateLimitState) SetWindow(group CategoryGroup, w CounterWindow) {
	if s.Counters == nil {
		s.Counters = make(map[CategoryGroup]CounterWindow)
	}
	s.Counters[group] = w
}
