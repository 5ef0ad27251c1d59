package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/status"
	"github.com/RamanArcStudios/CulturePassAU-sub003/models"
	"github.com/RamanArcStudios/CulturePassAU-sub003/utils"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/tools/types"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	TicketsTable = "tickets"
	HistoryTable = "ticket_history"
)

var ticketColumns = []string{
	"id", "code", "user_id", "event_id", "quantity", "total_price_cents",
	"state", "scanned_at", "scanned_by", "version", "created", "updated",
}

var historyColumns = []string{
	"id", "ticket_id", "from_state", "to_state", "actor", "at", "version",
}

type ticketRow struct {
	ID              string         `db:"id"`
	Code            string         `db:"code"`
	UserID          string         `db:"user_id"`
	EventID         string         `db:"event_id"`
	Quantity        int            `db:"quantity"`
	TotalPriceCents int64          `db:"total_price_cents"`
	State           string         `db:"state"`
	ScannedAt       types.DateTime `db:"scanned_at"`
	ScannedBy       string         `db:"scanned_by"`
	Version         int64          `db:"version"`
	Created         types.DateTime `db:"created"`
	Updated         types.DateTime `db:"updated"`
}

func (r *ticketRow) toModel() *models.Ticket {
	t := &models.Ticket{
		ID:              r.ID,
		Code:            r.Code,
		UserID:          r.UserID,
		EventID:         r.EventID,
		Quantity:        r.Quantity,
		TotalPriceCents: r.TotalPriceCents,
		State:           models.State(r.State),
		ScannedBy:       r.ScannedBy,
		Version:         r.Version,
		CreatedAt:       r.Created.Time(),
		UpdatedAt:       r.Updated.Time(),
	}
	if !r.ScannedAt.IsZero() {
		at := r.ScannedAt.Time()
		t.ScannedAt = &at
	}
	return t
}

type historyRow struct {
	ID        string         `db:"id"`
	TicketID  string         `db:"ticket_id"`
	FromState string         `db:"from_state"`
	ToState   string         `db:"to_state"`
	Actor     string         `db:"actor"`
	At        types.DateTime `db:"at"`
	Version   int64          `db:"version"`
}

func (r *historyRow) toModel() models.HistoryEntry {
	return models.HistoryEntry{
		ID:        r.ID,
		TicketID:  r.TicketID,
		FromState: models.State(r.FromState),
		ToState:   models.State(r.ToState),
		Actor:     r.Actor,
		At:        r.At.Time(),
		Version:   r.Version,
	}
}

// TransitionFields are the columns a conditional update writes besides the
// version bump.
type TransitionFields struct {
	State     models.State
	ScannedAt time.Time
	ScannedBy string
	UpdatedAt time.Time
}

// TicketStore persists tickets and their history in the PocketBase database.
// The unique index on code and the conditional update in ApplyTransition are
// its only serialization points.
type TicketStore struct {
	db dbx.Builder
}

func NewTicketStore(db dbx.Builder) *TicketStore {
	return &TicketStore{db: db}
}

func (s *TicketStore) Create(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	if t.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", status.ErrInvalidInput)
	}
	if t.TotalPriceCents < 0 {
		return nil, fmt.Errorf("%w: totalPriceCents must not be negative", status.ErrInvalidInput)
	}
	if t.Code == "" {
		return nil, fmt.Errorf("%w: code is required", status.ErrInvalidInput)
	}

	created := *t
	if created.ID == "" {
		created.ID = utils.NewRecordID()
	}
	if created.Version == 0 {
		created.Version = 1
	}
	created.CreatedAt = created.CreatedAt.UTC().Truncate(time.Millisecond)
	created.UpdatedAt = created.CreatedAt
	created.ScannedAt = nil
	created.ScannedBy = ""

	_, err := s.db.Insert(TicketsTable, dbx.Params{
		"id":                created.ID,
		"code":              created.Code,
		"user_id":           created.UserID,
		"event_id":          created.EventID,
		"quantity":          created.Quantity,
		"total_price_cents": created.TotalPriceCents,
		"state":             string(created.State),
		"scanned_at":        "",
		"scanned_by":        "",
		"version":           created.Version,
		"created":           toDateTime(created.CreatedAt),
		"updated":           toDateTime(created.UpdatedAt),
	}).WithContext(ctx).Execute()
	if err != nil {
		if isUniqueViolation(err, "code") {
			return nil, fmt.Errorf("%w: %s", status.ErrDuplicateCode, created.Code)
		}
		return nil, storageError("create ticket", err)
	}

	return &created, nil
}

func (s *TicketStore) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	return s.getOne(ctx, dbx.HashExp{"id": id})
}

func (s *TicketStore) GetByCode(ctx context.Context, code string) (*models.Ticket, error) {
	return s.getOne(ctx, dbx.HashExp{"code": code})
}

func (s *TicketStore) getOne(ctx context.Context, where dbx.Expression) (*models.Ticket, error) {
	var row ticketRow
	err := s.db.Select(ticketColumns...).
		From(TicketsTable).
		Where(where).
		Limit(1).
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrNotFound
	}
	if err != nil {
		return nil, storageError("get ticket", err)
	}
	return row.toModel(), nil
}

// ListByUser returns the user's tickets, newest first. Tickets created in the
// same instant come back in reverse insertion order.
func (s *TicketStore) ListByUser(ctx context.Context, userID string) ([]*models.Ticket, error) {
	return s.list(ctx, dbx.HashExp{"user_id": userID}, "created DESC", "rowid DESC")
}

func (s *TicketStore) ListByEventAndState(ctx context.Context, eventID string, state models.State) ([]*models.Ticket, error) {
	return s.list(ctx, dbx.HashExp{"event_id": eventID, "state": string(state)}, "created ASC", "rowid ASC")
}

func (s *TicketStore) list(ctx context.Context, where dbx.Expression, orderBy ...string) ([]*models.Ticket, error) {
	rows := []ticketRow{}
	err := s.db.Select(ticketColumns...).
		From(TicketsTable).
		Where(where).
		OrderBy(orderBy...).
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, storageError("list tickets", err)
	}

	tickets := make([]*models.Ticket, len(rows))
	for i := range rows {
		tickets[i] = rows[i].toModel()
	}
	return tickets, nil
}

// ApplyTransition updates the ticket identified by code only if it is still
// in expected. A single statement does the compare and the write, so among
// concurrent callers with the same expected state exactly one succeeds. The
// others get ErrConflict and nothing is changed.
func (s *TicketStore) ApplyTransition(ctx context.Context, code string, expected models.State, f TransitionFields) (*models.Ticket, error) {
	sets := []string{
		"state = {:to}",
		"version = version + 1",
		"updated = {:updated}",
	}
	params := dbx.Params{
		"code":     code,
		"expected": string(expected),
		"to":       string(f.State),
		"updated":  toDateTime(f.UpdatedAt),
	}
	if !f.ScannedAt.IsZero() {
		sets = append(sets, "scanned_at = {:scanned_at}", "scanned_by = {:scanned_by}")
		params["scanned_at"] = toDateTime(f.ScannedAt)
		params["scanned_by"] = f.ScannedBy
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE code = {:code} AND state = {:expected} RETURNING %s",
		TicketsTable,
		strings.Join(sets, ", "),
		strings.Join(ticketColumns, ", "),
	)

	var row ticketRow
	err := s.db.NewQuery(query).Bind(params).WithContext(ctx).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetByCode(ctx, code); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: ticket %s is no longer %s", status.ErrConflict, code, expected)
	}
	if err != nil {
		return nil, storageError("apply transition", err)
	}
	return row.toModel(), nil
}

func (s *TicketStore) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = utils.NewRecordID()
	}
	_, err := s.db.Insert(HistoryTable, dbx.Params{
		"id":         entry.ID,
		"ticket_id":  entry.TicketID,
		"from_state": string(entry.FromState),
		"to_state":   string(entry.ToState),
		"actor":      entry.Actor,
		"at":         toDateTime(entry.At),
		"version":    entry.Version,
	}).WithContext(ctx).Execute()
	if err != nil {
		return storageError("append history", err)
	}
	return nil
}

// ListHistory returns a ticket's history oldest first.
func (s *TicketStore) ListHistory(ctx context.Context, ticketID string) ([]models.HistoryEntry, error) {
	rows := []historyRow{}
	err := s.db.Select(historyColumns...).
		From(HistoryTable).
		Where(dbx.HashExp{"ticket_id": ticketID}).
		OrderBy("at ASC", "version ASC").
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, storageError("list history", err)
	}

	entries := make([]models.HistoryEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].toModel()
	}
	return entries, nil
}

// Ping checks that the database answers a trivial query.
func (s *TicketStore) Ping(ctx context.Context) error {
	if _, err := s.db.NewQuery("SELECT 1").WithContext(ctx).Execute(); err != nil {
		return storageError("ping", err)
	}
	return nil
}

func toDateTime(t time.Time) types.DateTime {
	if t.IsZero() {
		return types.DateTime{}
	}
	dt, _ := types.ParseDateTime(t.UTC())
	return dt
}

func isUniqueViolation(err error, column string) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "."+column)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", status.ErrStorageUnavailable, op, err)
}
