package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/services"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/status"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/store"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/store/storetest"
	"github.com/RamanArcStudios/CulturePassAU-sub003/models"
	"github.com/pocketbase/pocketbase/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestHandlers(t *testing.T, opts ...services.Option) (*TicketHandler, *PaymentHandler, *AdminHandler, *services.TicketService) {
	ticketService := services.NewTicketService(store.NewTicketStore(storetest.NewDB(t)), nil, nil, opts...)
	return NewTicketHandler(ticketService), NewPaymentHandler(ticketService, ""), NewAdminHandler(ticketService, 2), ticketService
}

func newRequestEvent(method, target, body string) (*core.RequestEvent, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec
	return e, rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.OK)
	return body
}

func createTicket(t *testing.T, h *TicketHandler, body string) models.Ticket {
	t.Helper()
	e, rec := newRequestEvent(http.MethodPost, "/api/tickets", body)
	require.NoError(t, h.CreateTicket(e))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ticket models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticket))
	return ticket
}

func scan(t *testing.T, h *TicketHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e, rec := newRequestEvent(http.MethodPost, "/api/tickets/scan", body)
	require.NoError(t, h.ScanTicket(e))
	return rec
}

func TestTicketHandler_SmokeFlow(t *testing.T) {
	h, _, _, _ := setupTestHandlers(t)

	ticket := createTicket(t, h, `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":2500}`)
	assert.Equal(t, models.StateActive, ticket.State)
	assert.NotEmpty(t, ticket.Code)
	assert.Equal(t, int64(2500), ticket.TotalPriceCents)

	rec := scan(t, h, `{"ticketCode":"`+ticket.Code+`","scannedBy":"staff-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var scanned models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scanned))
	assert.Equal(t, models.StateScanned, scanned.State)
	assert.NotNil(t, scanned.ScannedAt)
	assert.Equal(t, "staff-1", scanned.ScannedBy)

	rec = scan(t, h, `{"ticketCode":"`+ticket.Code+`","scannedBy":"staff-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, status.CodeAlreadyScanned, decodeError(t, rec).Error)
}

func TestTicketHandler_CreateRejectsBadBodies(t *testing.T) {
	h, _, _, _ := setupTestHandlers(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"malformed json", `{"userId":`},
		{"unknown field", `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":0,"seat":"A1"}`},
		{"zero quantity", `{"userId":"u1","eventId":"e1","quantity":0,"totalPriceCents":0}`},
		{"missing price", `{"userId":"u1","eventId":"e1","quantity":1}`},
		{"trailing data", `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":0}{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newRequestEvent(http.MethodPost, "/api/tickets", tt.body)

			require.NoError(t, h.CreateTicket(e))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, status.CodeInvalidInput, decodeError(t, rec).Error)
		})
	}
}

func TestTicketHandler_ScanErrors(t *testing.T) {
	h, _, _, service := setupTestHandlers(t)
	ctx := context.Background()

	rec := scan(t, h, `{"ticketCode":"NOPE","scannedBy":"staff-1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, status.CodeNotFound, decodeError(t, rec).Error)

	rec = scan(t, h, `{"ticketCode":"","scannedBy":"staff-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ticket := createTicket(t, h, `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":0}`)
	_, err := service.Transition(ctx, ticket.ID, "cancel", "ops")
	require.NoError(t, err)

	rec = scan(t, h, `{"ticketCode":"`+ticket.Code+`","scannedBy":"staff-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, status.CodeTicketCancelled, decodeError(t, rec).Error)
}

func TestTicketHandler_ScanDefaultsToAuthRecord(t *testing.T) {
	h, _, _, _ := setupTestHandlers(t)
	ticket := createTicket(t, h, `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":0}`)

	e, rec := newRequestEvent(http.MethodPost, "/api/tickets/scan", `{"ticketCode":"`+ticket.Code+`"}`)
	e.Auth = &core.Record{}
	e.Auth.Id = "staffrecord0001"
	require.NoError(t, h.ScanTicket(e))

	require.Equal(t, http.StatusOK, rec.Code)
	var scanned models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scanned))
	assert.Equal(t, "staffrecord0001", scanned.ScannedBy)
}

func TestTicketHandler_ListAndHistory(t *testing.T) {
	h, _, _, _ := setupTestHandlers(t)
	ticket := createTicket(t, h, `{"userId":"u1","eventId":"e1","quantity":2,"totalPriceCents":5000}`)
	require.Equal(t, http.StatusOK, scan(t, h, `{"ticketCode":"`+ticket.Code+`","scannedBy":"gate"}`).Code)

	e, rec := newRequestEvent(http.MethodGet, "/api/tickets/u1", "")
	e.Request.SetPathValue("userId", "u1")
	require.NoError(t, h.ListUserTickets(e))
	require.Equal(t, http.StatusOK, rec.Code)
	var tickets []models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, ticket.ID, tickets[0].ID)

	e, rec = newRequestEvent(http.MethodGet, "/api/tickets/"+ticket.ID+"/history", "")
	e.Request.SetPathValue("id", ticket.ID)
	require.NoError(t, h.GetHistory(e))
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, models.StateScanned, history[0].ToState)

	e, rec = newRequestEvent(http.MethodGet, "/api/tickets/missing/history", "")
	e.Request.SetPathValue("id", "missing")
	require.NoError(t, h.GetHistory(e))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTicketHandler_ApplyTransition(t *testing.T) {
	h, _, _, _ := setupTestHandlers(t)
	ticket := createTicket(t, h, `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":0}`)

	transition := func(body string) *httptest.ResponseRecorder {
		e, rec := newRequestEvent(http.MethodPost, "/api/tickets/"+ticket.ID+"/transitions", body)
		e.Request.SetPathValue("id", ticket.ID)
		e.Auth = &core.Record{}
		e.Auth.Id = "supportrecord01"
		require.NoError(t, h.ApplyTransition(e))
		return rec
	}

	rec := transition(`{"transition":"teleport"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = transition(`{"transition":"scan"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, status.CodeInvalidTransition, decodeError(t, rec).Error)

	rec = transition(`{"transition":"refund","actor":"support-2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var refunded models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refunded))
	assert.Equal(t, models.StateRefunded, refunded.State)

	rec = transition(`{"transition":"cancel"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, status.CodeInvalidTransition, decodeError(t, rec).Error)
}

func TestTicketHandler_ApplyTransitionRequiresAuth(t *testing.T) {
	h, _, _, ticketService := setupTestHandlers(t)
	ticket := createTicket(t, h, `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":0}`)

	e, rec := newRequestEvent(http.MethodPost, "/api/tickets/"+ticket.ID+"/transitions", `{"transition":"refund","actor":"anyone"}`)
	e.Request.SetPathValue("id", ticket.ID)
	require.NoError(t, h.ApplyTransition(e))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, status.CodeUnauthorized, decodeError(t, rec).Error)

	current, err := ticketService.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, current.State)
	assert.Equal(t, ticket.Version, current.Version)
}

func TestTicketHandler_ApplyTransitionDefaultsActorToAuthRecord(t *testing.T) {
	h, _, _, ticketService := setupTestHandlers(t)
	ticket := createTicket(t, h, `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":0}`)

	e, rec := newRequestEvent(http.MethodPost, "/api/tickets/"+ticket.ID+"/transitions", `{"transition":"cancel"}`)
	e.Request.SetPathValue("id", ticket.ID)
	e.Auth = &core.Record{}
	e.Auth.Id = "supportrecord02"
	require.NoError(t, h.ApplyTransition(e))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	history, err := ticketService.History(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "supportrecord02", history[0].Actor)
}

func TestPaymentHandler_Webhook(t *testing.T) {
	h, payments, _, _ := setupTestHandlers(t, services.WithPaymentConfirmation(true))
	ticket := createTicket(t, h, `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":2500}`)
	require.Equal(t, models.StatePending, ticket.State)

	webhook := func(body string) *httptest.ResponseRecorder {
		e, rec := newRequestEvent(http.MethodPost, "/api/payments/webhook", body)
		require.NoError(t, payments.PaymentWebhook(e))
		return rec
	}

	rec := webhook(`{"ticketId":"` + ticket.ID + `","status":"success","amount":"24.00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, status.CodeAmountMismatch, decodeError(t, rec).Error)

	rec = webhook(`{"ticketId":"` + ticket.ID + `","status":"success","amount":25,"reference":"TX-9"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var activated models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &activated))
	assert.Equal(t, models.StateActive, activated.State)

	rec = webhook(`{"ticketId":"missing","status":"failed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = webhook(`{"ticketId":"` + ticket.ID + `","status":"refunded"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, status.CodeInvalidInput, decodeError(t, rec).Error)
}

func TestPaymentHandler_WebhookToken(t *testing.T) {
	ticketService := services.NewTicketService(store.NewTicketStore(storetest.NewDB(t)), nil, nil, services.WithPaymentConfirmation(true))
	h := NewTicketHandler(ticketService)
	payments := NewPaymentHandler(ticketService, "whk-secret")
	ticket := createTicket(t, h, `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":2500}`)
	body := `{"ticketId":"` + ticket.ID + `","status":"failed"}`

	tests := []struct {
		name   string
		header string
	}{
		{"missing token", ""},
		{"wrong token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newRequestEvent(http.MethodPost, "/api/payments/webhook", body)
			if tt.header != "" {
				e.Request.Header.Set("Authorization", tt.header)
			}
			require.NoError(t, payments.PaymentWebhook(e))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, status.CodeUnauthorized, decodeError(t, rec).Error)
		})
	}

	current, err := ticketService.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, current.State)

	e, rec := newRequestEvent(http.MethodPost, "/api/payments/webhook", body)
	e.Request.Header.Set("Authorization", "Bearer whk-secret")
	require.NoError(t, payments.PaymentWebhook(e))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cancelled models.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, models.StateCancelled, cancelled.State)
}

func TestAdminHandler_ExpireEventTickets(t *testing.T) {
	h, _, admin, _ := setupTestHandlers(t)
	for i := 0; i < 3; i++ {
		createTicket(t, h, `{"userId":"u1","eventId":"e1","quantity":1,"totalPriceCents":0}`)
	}

	e, rec := newRequestEvent(http.MethodPost, "/api/events/e1/expire-tickets", "")
	e.Request.SetPathValue("eventId", "e1")
	require.NoError(t, admin.ExpireEventTickets(e))

	require.Equal(t, http.StatusOK, rec.Code)
	var result services.ExpireResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, services.ExpireResult{Expired: 3}, result)
}
