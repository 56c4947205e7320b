package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"weatherbet/bot/common"
	"weatherbet/events"
	"weatherbet/models"
)

// Discord color constants
const (
	ColorPrimary = 0x5865F2 // Discord blurple
	ColorSuccess = 0x57F287 // Green
	ColorDanger  = 0xED4245 // Red
	ColorWarning = 0xFEE75C // Yellow
)

// buildPlacedEmbed announces a new bet and when it will be checked
func buildPlacedEmbed(e events.BetPlacedEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("🌦️ New bet: %s", e.Category.Label()),
		Description: fmt.Sprintf("**%s** bet **%s coins** at %s", e.Owner, common.FormatBalance(e.Stake), common.FormatOdds(e.Odds)),
		Color:       ColorPrimary,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Prediction",
				Value:  predictionText(e.Category, e.PredictedValue),
				Inline: true,
			},
			{
				Name:   "Mode",
				Value:  modeLabel(e.Mode),
				Inline: true,
			},
			{
				Name:   "Verified",
				Value:  common.FormatDiscordTimestamp(e.VerificationDeadline, "R"),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Bet " + e.BetID},
	}
}

// buildSettledEmbed reports the outcome of a settled bet
func buildSettledEmbed(e events.BetSettledEvent) *discordgo.MessageEmbed {
	var title string
	var color int
	switch e.Status {
	case models.StatusWon:
		title = "🎉 **WINNER!** 🎉"
		color = ColorSuccess
	case models.StatusLost:
		title = "😔 Bet lost"
		color = ColorDanger
	default:
		title = "⚠️ Bet could not be resolved"
		color = ColorWarning
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Prediction",
			Value:  predictionText(e.Category, e.PredictedValue),
			Inline: true,
		},
		{
			Name:   "Observed",
			Value:  common.FormatMeasurement(e.Result, e.Category.Unit()),
			Inline: true,
		},
	}

	switch e.Status {
	case models.StatusWon:
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Payout",
			Value:  fmt.Sprintf("+%s coins", common.FormatBalance(e.Payout)),
			Inline: true,
		})
	case models.StatusLost:
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Lost",
			Value:  fmt.Sprintf("-%s coins", common.FormatBalance(e.Stake)),
			Inline: true,
		})
	case models.StatusError:
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Refunded",
			Value:  fmt.Sprintf("%s coins", common.FormatBalance(e.Payout)),
			Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("**%s** · %s\n%s", e.Owner, e.Category.Label(), e.Explanation),
		Color:       color,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Bet " + e.BetID},
	}
}

func predictionText(category models.Category, value *float64) string {
	switch category {
	case models.CategoryRainYes:
		return "It will rain"
	case models.CategoryRainNo:
		return "It will stay dry"
	}
	return common.FormatMeasurement(value, category.Unit())
}

func modeLabel(mode models.Mode) string {
	if mode == models.ModePro {
		return "Pro"
	}
	return "Simple"
}
