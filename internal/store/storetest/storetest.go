// Package storetest opens a throwaway SQLite database with the same tickets
// and ticket_history tables the migrations create.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/pocketbase/dbx"
	_ "modernc.org/sqlite"
)

// Column types mirror what PocketBase generates for the collection fields.
const schema = `
CREATE TABLE tickets (
	id                TEXT PRIMARY KEY NOT NULL,
	code              TEXT DEFAULT '' NOT NULL,
	user_id           TEXT DEFAULT '' NOT NULL,
	event_id          TEXT DEFAULT '' NOT NULL,
	quantity          NUMERIC DEFAULT 0 NOT NULL,
	total_price_cents NUMERIC DEFAULT 0 NOT NULL,
	state             TEXT DEFAULT '' NOT NULL,
	scanned_at        TEXT DEFAULT '' NOT NULL,
	scanned_by        TEXT DEFAULT '' NOT NULL,
	version           NUMERIC DEFAULT 0 NOT NULL,
	created           TEXT DEFAULT '' NOT NULL,
	updated           TEXT DEFAULT '' NOT NULL
);
CREATE UNIQUE INDEX idx_tickets_code ON tickets (code);
CREATE INDEX idx_tickets_user_created ON tickets (user_id, created);
CREATE INDEX idx_tickets_event_state ON tickets (event_id, state);

CREATE TABLE ticket_history (
	id         TEXT PRIMARY KEY NOT NULL,
	ticket_id  TEXT DEFAULT '' NOT NULL,
	from_state TEXT DEFAULT '' NOT NULL,
	to_state   TEXT DEFAULT '' NOT NULL,
	actor      TEXT DEFAULT '' NOT NULL,
	at         TEXT DEFAULT '' NOT NULL,
	version    NUMERIC DEFAULT 0 NOT NULL
);
CREATE INDEX idx_ticket_history_ticket ON ticket_history (ticket_id, at);
`

// NewDB returns a migrated database that is closed when the test ends.
func NewDB(t testing.TB) *dbx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "data.db") + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)"
	db, err := dbx.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection keeps concurrent test writers from tripping SQLITE_BUSY.
	db.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.NewQuery(schema).Execute(); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}
