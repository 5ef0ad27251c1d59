package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/lifecycle"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/services"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/status"
	"github.com/pocketbase/pocketbase/core"
)

type TicketHandler struct {
	ticketService *services.TicketService
}

func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

type ScanRequest struct {
	TicketCode string `json:"ticketCode"`
	ScannedBy  string `json:"scannedBy"`
}

type TransitionRequest struct {
	Transition string `json:"transition"`
	Actor      string `json:"actor"`
}

// CreateTicket - POST /api/tickets
func (h *TicketHandler) CreateTicket(e *core.RequestEvent) error {
	var req services.IssueRequest
	if err := decodeBody(e, &req); err != nil {
		return writeError(e, err)
	}

	ticket, err := h.ticketService.Issue(e.Request.Context(), req)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusCreated, ticket)
}

// ListUserTickets - GET /api/tickets/{userId}
func (h *TicketHandler) ListUserTickets(e *core.RequestEvent) error {
	tickets, err := h.ticketService.ListByUser(e.Request.Context(), e.Request.PathValue("userId"))
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, tickets)
}

// GetHistory - GET /api/tickets/{id}/history
func (h *TicketHandler) GetHistory(e *core.RequestEvent) error {
	history, err := h.ticketService.History(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, history)
}

// ScanTicket - POST /api/tickets/scan
func (h *TicketHandler) ScanTicket(e *core.RequestEvent) error {
	var req ScanRequest
	if err := decodeBody(e, &req); err != nil {
		return writeError(e, err)
	}
	if strings.TrimSpace(req.ScannedBy) == "" && e.Auth != nil {
		req.ScannedBy = e.Auth.Id
	}

	ticket, err := h.ticketService.Scan(e.Request.Context(), req.TicketCode, req.ScannedBy)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, ticket)
}

// ApplyTransition - POST /api/tickets/{id}/transitions
func (h *TicketHandler) ApplyTransition(e *core.RequestEvent) error {
	if e.Auth == nil {
		return writeError(e, fmt.Errorf("%w: sign in to change ticket state", status.ErrUnauthorized))
	}

	var req TransitionRequest
	if err := decodeBody(e, &req); err != nil {
		return writeError(e, err)
	}

	transition, err := lifecycle.ParseTransition(req.Transition)
	if err != nil {
		return writeError(e, err)
	}

	actor := req.Actor
	if strings.TrimSpace(actor) == "" {
		actor = e.Auth.Id
	}

	ticket, err := h.ticketService.Transition(e.Request.Context(), e.Request.PathValue("id"), transition, actor)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, ticket)
}
