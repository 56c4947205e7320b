package infrastructure

import (
	"weatherbet/events"
)

const (
	// BetEventStream is the JetStream stream holding every bet event
	BetEventStream = "weatherbet_bets"

	subjectPrefix = "weatherbet.bets."
)

// SubjectFor maps an event type to its NATS subject
func SubjectFor(eventType events.EventType) string {
	return subjectPrefix + string(eventType)
}

// EventTypeFor maps a NATS subject back to its event type
func EventTypeFor(subject string) (events.EventType, bool) {
	for _, t := range events.AllEventTypes {
		if SubjectFor(t) == subject {
			return t, true
		}
	}
	return "", false
}

// AllSubjects returns every subject this service publishes to
func AllSubjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		subjects = append(subjects, SubjectFor(t))
	}
	return subjects
}
