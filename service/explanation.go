package service

import (
	"fmt"

	"weatherbet/models"
)

// ExhaustedExplanation is shown on bets forced to error
const ExhaustedExplanation = "This bet could not be resolved after multiple attempts. Please contact support."

// PendingRetryExplanation is attached to a bet whose observation fetch failed
func PendingRetryExplanation(attempt int) string {
	return fmt.Sprintf("Weather data unavailable (attempt %d of %d). The bet will be retried automatically.",
		attempt, models.MaxResolutionAttempts)
}

// ExplainOutcome renders the settlement rationale. The text depends only on
// the category, predicted value, observed value and margin or range.
func ExplainOutcome(o models.Outcome) string {
	verdict := "Bet lost."
	if o.Won {
		verdict = "Bet won."
	}

	switch o.Rule {
	case models.RuleOccurrence:
		return explainOccurrence(o, verdict)
	case models.RuleRange:
		return explainRange(o, verdict)
	default:
		return explainMargin(o, verdict)
	}
}

func explainOccurrence(o models.Outcome, verdict string) string {
	predicted := "rain"
	if o.Category == models.CategoryRainNo {
		predicted = "no rain"
	}
	observed := "it did not rain"
	if o.Observed > 0 {
		observed = "it rained"
	}
	return fmt.Sprintf("Predicted %s, observed %.1f mm: %s. %s", predicted, o.Observed, observed, verdict)
}

func explainMargin(o models.Outcome, verdict string) string {
	unit := o.Category.Unit()
	relation := "exceeds"
	if o.Won {
		relation = "is within"
	}
	return fmt.Sprintf("%s: predicted %.1f %s, observed %.1f %s, difference %.1f %s %s the ±%.1f %s margin. %s",
		o.Category.Label(), predictedValue(o), unit, o.Observed, unit, o.Difference, unit, relation, o.Margin, unit, verdict)
}

func explainRange(o models.Outcome, verdict string) string {
	unit := o.Category.Unit()
	relation := "outside"
	if o.Won {
		relation = "inside"
	}
	return fmt.Sprintf("%s: predicted %.1f %s, observed %.1f %s is %s the range [%.1f, %.1f] %s. %s",
		o.Category.Label(), predictedValue(o), unit, o.Observed, unit, relation, o.Range.Min, o.Range.Max, unit, verdict)
}

func predictedValue(o models.Outcome) float64 {
	if o.Predicted == nil {
		return 0
	}
	return *o.Predicted
}
