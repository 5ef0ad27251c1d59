package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RamanArcStudios/CulturePassAU-sub003/models"
	"github.com/RamanArcStudios/CulturePassAU-sub003/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	err      error
	channels []string
	messages []any
}

func (p *fakePublisher) Publish(channel string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, message)
	return p.err
}

func (p *fakePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

func sampleChange() (*models.Ticket, models.HistoryEntry) {
	ticket := &models.Ticket{
		ID:      "tkt123456789012",
		Code:    "ABCDEFGHJKLMNPQRSTUVWXYZ23",
		UserID:  "user-1",
		EventID: "event-1",
		State:   models.StateScanned,
		Version: 2,
	}
	entry := models.HistoryEntry{
		TicketID:  ticket.ID,
		FromState: models.StateActive,
		ToState:   models.StateScanned,
		Actor:     "gate-1",
		At:        time.Now(),
		Version:   2,
	}
	return ticket, entry
}

func TestRealtimeNotifier_PublishesToUserChannel(t *testing.T) {
	publisher := &fakePublisher{}
	notifier := NewRealtimeNotifier(publisher)
	ticket, entry := sampleChange()

	require.NoError(t, notifier.publish(ticket, entry))

	require.Equal(t, []string{"user-user-1"}, publisher.channels)
	message, ok := publisher.messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ticket_scanned", message["type"])
	assert.Equal(t, ticket.ID, message["ticket_id"])
	assert.Equal(t, ticket.Code, message["code"])
	assert.Equal(t, models.StateActive, message["from_state"])
	assert.Equal(t, int64(2), message["version"])
}

func TestRealtimeNotifier_TicketChangedIsAsync(t *testing.T) {
	publisher := &fakePublisher{}
	notifier := NewRealtimeNotifier(publisher)
	ticket, entry := sampleChange()

	notifier.TicketChanged(t.Context(), ticket, entry)

	assert.Eventually(t, func() bool { return publisher.published() == 1 }, time.Second, 10*time.Millisecond)
}

func TestRealtimeNotifier_BreakerOpensOnRepeatedFailures(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("pubnub unavailable")}
	notifier := NewRealtimeNotifier(publisher)
	ticket, entry := sampleChange()

	minRequests := int(utils.DefaultSettings().MinRequests)
	for i := 0; i < minRequests; i++ {
		assert.Error(t, notifier.publish(ticket, entry))
	}

	err := notifier.publish(ticket, entry)
	assert.ErrorIs(t, err, utils.ErrOpenState)
	assert.Equal(t, minRequests, publisher.published())
}
