package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"weatherbet/events"
)

// Config holds bot configuration
type Config struct {
	Token     string
	ChannelID string
}

// MessageSender is the part of a discord session the notifier needs
type MessageSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts bet placements and settlements to a Discord channel
type Notifier struct {
	channelID string
	sender    MessageSender
	session   *discordgo.Session
}

// New opens a Discord session for the notifier
func New(config Config) (*Notifier, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	log.WithField("channelID", config.ChannelID).Info("Discord notifier connected")

	n := NewWithSender(dg, config.ChannelID)
	n.session = dg
	return n, nil
}

// NewWithSender creates a notifier on an existing sender
func NewWithSender(sender MessageSender, channelID string) *Notifier {
	return &Notifier{
		channelID: channelID,
		sender:    sender,
	}
}

// Attach subscribes the notifier to bet events
func (n *Notifier) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBetPlaced, n.handleEvent)
	bus.Subscribe(events.EventTypeBetSettled, n.handleEvent)
}

func (n *Notifier) handleEvent(ctx context.Context, event events.Event) {
	var embed *discordgo.MessageEmbed
	var betID string
	switch e := event.(type) {
	case events.BetPlacedEvent:
		embed = buildPlacedEmbed(e)
		betID = e.BetID
	case events.BetSettledEvent:
		embed = buildSettledEmbed(e)
		betID = e.BetID
	default:
		return
	}

	if _, err := n.sender.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		log.WithFields(log.Fields{
			"betID":     betID,
			"eventType": event.Type(),
			"channelID": n.channelID,
		}).WithError(err).Error("Failed to post bet notification")
	}
}

// Close closes the Discord session if the notifier owns one
func (n *Notifier) Close() error {
	if n.session == nil {
		return nil
	}
	return n.session.Close()
}
