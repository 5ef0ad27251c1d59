package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

// PaymentNotification is the body a payment provider posts once a ticket's
// hold is paid for or abandoned.
type PaymentNotification struct {
	TicketID  string          `json:"ticketId"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

func (n PaymentNotification) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.TicketID, validation.Required),
		validation.Field(&n.Status, validation.Required, validation.In(PaymentStatusSuccess, PaymentStatusFailed)),
		validation.Field(&n.Reference, validation.Length(0, 128)),
	)
}
