package odds

import "time"

// Season is a calendar bucket used to adjust odds
type Season string

const (
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
	Spring Season = "spring"
)

// SeasonFor derives the season from the calendar month only
func SeasonFor(t time.Time) Season {
	switch t.Month() {
	case time.June, time.July, time.August, time.September:
		return Summer
	case time.October, time.November:
		return Autumn
	case time.December, time.January, time.February:
		return Winter
	default:
		return Spring
	}
}
