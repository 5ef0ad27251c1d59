package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/services"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/status"
	"github.com/RamanArcStudios/CulturePassAU-sub003/models"
	"github.com/pocketbase/pocketbase/core"
)

type PaymentHandler struct {
	ticketService *services.TicketService
	webhookToken  string
}

// NewPaymentHandler builds the webhook handler. When webhookToken is set,
// notifications must carry it as a bearer token.
func NewPaymentHandler(ticketService *services.TicketService, webhookToken string) *PaymentHandler {
	return &PaymentHandler{ticketService: ticketService, webhookToken: webhookToken}
}

// PaymentWebhook - POST /api/payments/webhook
func (h *PaymentHandler) PaymentWebhook(e *core.RequestEvent) error {
	if !h.authorized(e.Request) {
		slog.Warn("Rejected payment notification", "error", "missing or invalid webhook token", "remote_addr", e.Request.RemoteAddr)
		return writeError(e, status.ErrUnauthorized)
	}

	var req models.PaymentNotification
	if err := decodeBody(e, &req); err != nil {
		slog.Warn("Rejected payment notification", "error", err)
		return writeError(e, err)
	}
	slog.Info("=> PaymentWebhook", "ticket_id", req.TicketID, "status", req.Status, "amount", req.Amount.StringFixed(2), "reference", req.Reference)

	ticket, err := h.ticketService.ConfirmPayment(e.Request.Context(), req)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, ticket)
}

func (h *PaymentHandler) authorized(r *http.Request) bool {
	if h.webhookToken == "" {
		return true
	}
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.webhookToken)) == 1
}
