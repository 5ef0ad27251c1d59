package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/lifecycle"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/status"
	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/store"
	"github.com/RamanArcStudios/CulturePassAU-sub003/models"
	"github.com/RamanArcStudios/CulturePassAU-sub003/monitoring"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultCodeAttempts = 5
	SystemActor         = "system"

	// States only move forward, so a conflicting writer can force at most
	// one extra read before the ticket settles.
	maxReconcileRounds = 3
)

type TicketStore interface {
	Create(ctx context.Context, t *models.Ticket) (*models.Ticket, error)
	GetByID(ctx context.Context, id string) (*models.Ticket, error)
	GetByCode(ctx context.Context, code string) (*models.Ticket, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Ticket, error)
	ListByEventAndState(ctx context.Context, eventID string, state models.State) ([]*models.Ticket, error)
	ApplyTransition(ctx context.Context, code string, expected models.State, f store.TransitionFields) (*models.Ticket, error)
	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, ticketID string) ([]models.HistoryEntry, error)
}

type IssueRequest struct {
	UserID          string `json:"userId"`
	EventID         string `json:"eventId"`
	Quantity        int    `json:"quantity"`
	TotalPriceCents *int64 `json:"totalPriceCents"`
}

func (r IssueRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.EventID, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1)),
		validation.Field(&r.TotalPriceCents, validation.NotNil, validation.Min(int64(0))),
	)
}

type ExpireResult struct {
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
}

type Option func(*TicketService)

func WithClock(now func() time.Time) Option {
	return func(s *TicketService) { s.now = now }
}

func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *TicketService) { s.codes = g }
}

func WithCodeAttempts(n int) Option {
	return func(s *TicketService) {
		if n > 0 {
			s.codeAttempts = n
		}
	}
}

// WithPaymentConfirmation issues tickets as pending until a payment
// notification activates them.
func WithPaymentConfirmation(required bool) Option {
	return func(s *TicketService) {
		if required {
			s.initialState = models.StatePending
		} else {
			s.initialState = models.StateActive
		}
	}
}

// TicketService issues tickets and drives every lifecycle change. Scan is the
// only way a ticket reaches the scanned state.
type TicketService struct {
	store        TicketStore
	guard        PurchaseGuard
	notifier     Notifier
	codes        CodeGenerator
	now          func() time.Time
	initialState models.State
	codeAttempts int
}

func NewTicketService(ticketStore TicketStore, guard PurchaseGuard, notifier Notifier, opts ...Option) *TicketService {
	s := &TicketService{
		store:        ticketStore,
		guard:        guard,
		notifier:     notifier,
		codes:        NewRandomCodeGenerator(),
		now:          time.Now,
		initialState: models.StateActive,
		codeAttempts: DefaultCodeAttempts,
	}
	if s.guard == nil {
		s.guard = NoopPurchaseGuard{}
	}
	if s.notifier == nil {
		s.notifier = NoopNotifier{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TicketService) Issue(ctx context.Context, req IssueRequest) (*models.Ticket, error) {
	ctx = context.WithoutCancel(ctx)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrInvalidInput, err)
	}

	if err := s.guard.Acquire(ctx, req.UserID, req.EventID); err != nil {
		return nil, err
	}

	ticket, err := s.create(ctx, req)
	if err != nil {
		s.guard.Release(ctx, req.UserID, req.EventID)
		slog.Error("Failed to issue ticket", "user_id", req.UserID, "event_id", req.EventID, "error", err)
		return nil, err
	}

	monitoring.TrackIssued(string(ticket.State))
	slog.Info("Ticket issued", "ticket_id", ticket.ID, "user_id", ticket.UserID, "event_id", ticket.EventID, "state", ticket.State)
	return ticket, nil
}

func (s *TicketService) create(ctx context.Context, req IssueRequest) (*models.Ticket, error) {
	createdAt := s.now()
	for attempt := 1; attempt <= s.codeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate ticket code: %w", err)
		}

		ticket, err := s.store.Create(ctx, &models.Ticket{
			Code:            code,
			UserID:          req.UserID,
			EventID:         req.EventID,
			Quantity:        req.Quantity,
			TotalPriceCents: *req.TotalPriceCents,
			State:           s.initialState,
			CreatedAt:       createdAt,
		})
		if err == nil {
			return ticket, nil
		}
		if !errors.Is(err, status.ErrDuplicateCode) {
			return nil, err
		}

		monitoring.TrackCodeCollision()
		slog.Warn("Ticket code collision, regenerating", "attempt", attempt)
	}
	return nil, fmt.Errorf("%w: %d attempts", status.ErrCodeGenerationExhausted, s.codeAttempts)
}

func (s *TicketService) Get(ctx context.Context, id string) (*models.Ticket, error) {
	return s.store.GetByID(ctx, id)
}

func (s *TicketService) ListByUser(ctx context.Context, userID string) ([]*models.Ticket, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", status.ErrInvalidInput)
	}
	return s.store.ListByUser(ctx, userID)
}

// History returns the accepted transitions of a ticket, oldest first.
func (s *TicketService) History(ctx context.Context, ticketID string) ([]models.HistoryEntry, error) {
	if _, err := s.store.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, ticketID)
}

// Scan checks a ticket in. Of any number of concurrent scans of one code,
// exactly one succeeds and the rest get ErrAlreadyScanned. Once issued the
// scan runs to completion even if ctx is cancelled.
func (s *TicketService) Scan(ctx context.Context, code, scannedBy string) (*models.Ticket, error) {
	start := time.Now()
	ticket, err := s.scan(context.WithoutCancel(ctx), strings.TrimSpace(code), strings.TrimSpace(scannedBy))

	result := "success"
	if err != nil {
		result = status.Code(err)
	}
	monitoring.TrackScan(result, time.Since(start))
	return ticket, err
}

func (s *TicketService) scan(ctx context.Context, code, scannedBy string) (*models.Ticket, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: ticketCode is required", status.ErrInvalidInput)
	}
	if scannedBy == "" {
		return nil, fmt.Errorf("%w: scannedBy is required", status.ErrInvalidInput)
	}

	for round := 0; round < maxReconcileRounds; round++ {
		ticket, err := s.store.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}

		if err := scanRejection(ticket.State); err != nil {
			slog.Info("Scan rejected", "code", code, "state", ticket.State, "reason", status.Code(err))
			return nil, err
		}

		now := s.now()
		updated, err := s.store.ApplyTransition(ctx, code, models.StateActive, store.TransitionFields{
			State:     models.StateScanned,
			ScannedAt: now,
			ScannedBy: scannedBy,
			UpdatedAt: now,
		})
		if errors.Is(err, status.ErrConflict) {
			slog.Debug("Scan lost a race, re-reading ticket", "code", code, "round", round)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.record(ctx, updated, models.StateActive, scannedBy, now)
		return updated, nil
	}
	return nil, fmt.Errorf("%w: scan of %s did not settle", status.ErrStorageUnavailable, code)
}

func scanRejection(state models.State) error {
	switch state {
	case models.StateActive:
		return nil
	case models.StateScanned:
		return status.ErrAlreadyScanned
	case models.StateCancelled:
		return status.ErrTicketCancelled
	case models.StateRefunded:
		return status.ErrTicketRefunded
	case models.StateExpired:
		return status.ErrTicketExpired
	default:
		return status.ErrTicketNotActive
	}
}

// Transition applies any non-scan lifecycle change, e.g. activation after
// payment, cancellation, refund or expiry.
func (s *TicketService) Transition(ctx context.Context, ticketID string, t lifecycle.Transition, actor string) (*models.Ticket, error) {
	if t == lifecycle.Scan {
		return nil, fmt.Errorf("%w: tickets are scanned by code", status.ErrInvalidTransition)
	}
	ctx = context.WithoutCancel(ctx)
	if actor = strings.TrimSpace(actor); actor == "" {
		actor = SystemActor
	}

	for round := 0; round < maxReconcileRounds; round++ {
		ticket, err := s.store.GetByID(ctx, ticketID)
		if err != nil {
			return nil, err
		}

		to, err := lifecycle.Next(ticket.State, t)
		if err != nil {
			return nil, err
		}

		now := s.now()
		updated, err := s.store.ApplyTransition(ctx, ticket.Code, ticket.State, store.TransitionFields{
			State:     to,
			UpdatedAt: now,
		})
		if errors.Is(err, status.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.record(ctx, updated, ticket.State, actor, now)
		return updated, nil
	}
	return nil, fmt.Errorf("%w: %s of %s did not settle", status.ErrStorageUnavailable, t, ticketID)
}

// ConfirmPayment moves a pending ticket to active on a successful payment
// whose amount matches the ticket total, and cancels it on a failed one.
// Tickets in any other state are rejected.
func (s *TicketService) ConfirmPayment(ctx context.Context, n models.PaymentNotification) (*models.Ticket, error) {
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrInvalidInput, err)
	}

	ticket, err := s.store.GetByID(ctx, n.TicketID)
	if err != nil {
		return nil, err
	}

	// Payment results only settle a held ticket; a late or replayed failure
	// must not cancel one that is already paid.
	if ticket.State != models.StatePending {
		slog.Warn("Payment notification for settled ticket", "ticket_id", ticket.ID, "state", ticket.State, "status", n.Status)
		return nil, fmt.Errorf("%w: ticket %s is %s, not pending", status.ErrInvalidTransition, ticket.ID, ticket.State)
	}

	actor := "payments"
	if n.Reference != "" {
		actor = "payment:" + n.Reference
	}

	if n.Status == models.PaymentStatusFailed {
		return s.Transition(ctx, ticket.ID, lifecycle.Cancel, actor)
	}

	if !n.Amount.Equal(ticket.TotalPrice()) {
		slog.Warn("Payment amount mismatch", "ticket_id", ticket.ID, "paid", n.Amount.StringFixed(2), "expected", ticket.TotalPrice().StringFixed(2))
		return nil, fmt.Errorf("%w: paid %s, expected %s", status.ErrAmountMismatch, n.Amount.StringFixed(2), ticket.TotalPrice().StringFixed(2))
	}
	return s.Transition(ctx, ticket.ID, lifecycle.Activate, actor)
}

// ExpireEvent expires every active ticket of an event, running at most
// workers transitions at once. Tickets that leave active meanwhile are skipped.
func (s *TicketService) ExpireEvent(ctx context.Context, eventID, actor string, workers int) (ExpireResult, error) {
	if strings.TrimSpace(eventID) == "" {
		return ExpireResult{}, fmt.Errorf("%w: eventId is required", status.ErrInvalidInput)
	}
	if workers < 1 {
		workers = 1
	}

	tickets, err := s.store.ListByEventAndState(ctx, eventID, models.StateActive)
	if err != nil {
		return ExpireResult{}, err
	}

	var expired, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, ticket := range tickets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := s.Transition(gctx, ticket.ID, lifecycle.Expire, actor)
			switch {
			case err == nil:
				expired.Add(1)
			case errors.Is(err, status.ErrInvalidTransition):
				skipped.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	err = g.Wait()

	result := ExpireResult{Expired: int(expired.Load()), Skipped: int(skipped.Load())}
	slog.Info("Event tickets expired", "event_id", eventID, "expired", result.Expired, "skipped", result.Skipped, "error", err)
	return result, err
}

// record writes the history entry for an accepted transition. The transition
// is already durable, so a failed append is logged and not returned.
func (s *TicketService) record(ctx context.Context, ticket *models.Ticket, from models.State, actor string, at time.Time) {
	entry := models.HistoryEntry{
		TicketID:  ticket.ID,
		FromState: from,
		ToState:   ticket.State,
		Actor:     actor,
		At:        at,
		Version:   ticket.Version,
	}
	if err := s.store.AppendHistory(ctx, &entry); err != nil {
		slog.Error("Failed to append ticket history", "ticket_id", ticket.ID, "from", from, "to", ticket.State, "error", err)
	}

	monitoring.TrackTransition(string(from), string(ticket.State))
	s.notifier.TicketChanged(ctx, ticket, entry)
}
