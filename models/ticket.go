package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type State string

const (
	StatePending   State = "pending"
	StateActive    State = "active"
	StateScanned   State = "scanned"
	StateCancelled State = "cancelled"
	StateRefunded  State = "refunded"
	StateExpired   State = "expired"
)

// Terminal states have no outgoing transitions.
func (s State) Terminal() bool {
	switch s {
	case StateScanned, StateCancelled, StateRefunded, StateExpired:
		return true
	}
	return false
}

type Ticket struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	UserID          string     `json:"userId"`
	EventID         string     `json:"eventId"`
	Quantity        int        `json:"quantity"`
	TotalPriceCents int64      `json:"totalPriceCents"`
	State           State      `json:"state"`
	ScannedAt       *time.Time `json:"scannedAt,omitempty"`
	ScannedBy       string     `json:"scannedBy,omitempty"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TotalPrice returns the minor-unit amount as a two-place decimal.
func (t *Ticket) TotalPrice() decimal.Decimal {
	return decimal.New(t.TotalPriceCents, -2)
}

// MarshalJSON adds the display-only totalPrice, e.g. "25.00".
func (t Ticket) MarshalJSON() ([]byte, error) {
	type ticketJSON Ticket
	return json.Marshal(struct {
		ticketJSON
		TotalPrice string `json:"totalPrice"`
	}{ticketJSON(t), t.TotalPrice().StringFixed(2)})
}

type HistoryEntry struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	FromState State     `json:"fromState"`
	ToState   State     `json:"toState"`
	Actor     string    `json:"actor"`
	At        time.Time `json:"at"`
	Version   int64     `json:"version"` // ticket version produced by the transition
}
