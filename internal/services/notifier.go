package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/RamanArcStudios/CulturePassAU-sub003/models"
	"github.com/RamanArcStudios/CulturePassAU-sub003/utils"
	pubnub "github.com/pubnub/go/v7"
)

// Notifier hears about every accepted transition. It must not block the
// caller or fail the transition.
type Notifier interface {
	TicketChanged(ctx context.Context, ticket *models.Ticket, entry models.HistoryEntry)
}

type NoopNotifier struct{}

func (NoopNotifier) TicketChanged(context.Context, *models.Ticket, models.HistoryEntry) {}

type Publisher interface {
	Publish(channel string, message any) error
}

type pubnubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) Publisher {
	return &pubnubPublisher{pn: pn}
}

func (p *pubnubPublisher) Publish(channel string, message any) error {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	return err
}

// RealtimeNotifier pushes ticket changes to the owner's user channel, the
// same channel the app already listens on for payment results.
type RealtimeNotifier struct {
	publisher Publisher
	breaker   *utils.CircuitBreaker
}

func NewRealtimeNotifier(publisher Publisher) *RealtimeNotifier {
	return &RealtimeNotifier{
		publisher: publisher,
		breaker:   utils.NewCircuitBreaker("pubnub", utils.DefaultSettings()),
	}
}

func (n *RealtimeNotifier) TicketChanged(_ context.Context, ticket *models.Ticket, entry models.HistoryEntry) {
	go n.publish(ticket, entry)
}

func (n *RealtimeNotifier) publish(ticket *models.Ticket, entry models.HistoryEntry) error {
	channel := fmt.Sprintf("user-%s", ticket.UserID)
	err := n.breaker.Execute(func() error {
		return n.publisher.Publish(channel, ticketMessage(ticket, entry))
	})
	if err != nil {
		slog.Warn("Failed to publish ticket change", "ticket_id", ticket.ID, "channel", channel, "error", err)
	}
	return err
}

func ticketMessage(ticket *models.Ticket, entry models.HistoryEntry) map[string]any {
	return map[string]any{
		"type":       "ticket_" + string(entry.ToState),
		"ticket_id":  ticket.ID,
		"code":       ticket.Code,
		"event_id":   ticket.EventID,
		"from_state": entry.FromState,
		"to_state":   entry.ToState,
		"version":    ticket.Version,
	}
}
