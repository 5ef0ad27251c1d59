package handlers

import (
	"log/slog"
	"net/http"

	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/services"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	ticketService *services.TicketService
	expireWorkers int
}

func NewAdminHandler(ticketService *services.TicketService, expireWorkers int) *AdminHandler {
	return &AdminHandler{ticketService: ticketService, expireWorkers: expireWorkers}
}

// ExpireEventTickets - POST /api/events/{eventId}/expire-tickets
func (h *AdminHandler) ExpireEventTickets(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	actor := services.SystemActor
	if e.Auth != nil {
		actor = e.Auth.Id
	}
	slog.Info("Admin expiring event tickets", "event_id", eventID, "actor", actor)

	result, err := h.ticketService.ExpireEvent(e.Request.Context(), eventID, actor, h.expireWorkers)
	if err != nil {
		return writeError(e, err)
	}
	return e.JSON(http.StatusOK, result)
}
