package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
)

// countingConnector wraps the sqlite driver and counts every statement sent
// to the database, so tests can assert how many round-trips an operation
// costs.
type countingConnector struct {
	dsn     string
	drv     driver.Driver
	queries *atomic.Int64
}

func (c countingConnector) Connect(context.Context) (driver.Conn, error) {
	conn, err := c.drv.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	return &countingConn{Conn: conn, queries: c.queries}, nil
}

func (c countingConnector) Driver() driver.Driver { return c.drv }

type countingConn struct {
	driver.Conn
	queries *atomic.Int64
}

func (c *countingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	q, ok := c.Conn.(driver.QueryerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	c.queries.Add(1)
	return q.QueryContext(ctx, query, args)
}

func (c *countingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	e, ok := c.Conn.(driver.ExecerContext)
	if !ok {
		return nil, driver.ErrSkip
	}
	c.queries.Add(1)
	return e.ExecContext(ctx, query, args)
}

func (c *countingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	c.queries.Add(1)
	if p, ok := c.Conn.(driver.ConnPrepareContext); ok {
		return p.PrepareContext(ctx, query)
	}
	return c.Conn.Prepare(query)
}

func (c *countingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if b, ok := c.Conn.(driver.ConnBeginTx); ok {
		return b.BeginTx(ctx, opts)
	}
	return c.Conn.Begin()
}

func newCountingStore(t *testing.T) (*sqlxStore, *atomic.Int64) {
	t.Helper()

	base, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	drv := base.Driver()
	if err := base.Close(); err != nil {
		t.Fatalf("failed to close probe connection: %v", err)
	}

	queries := &atomic.Int64{}
	db := sqlx.NewDb(sql.OpenDB(countingConnector{
		dsn:     withTimeFormat(":memory:"),
		drv:     drv,
		queries: queries,
	}), "sqlite")
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := ApplyMigrations(db.DB, "querycount-test"); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	return NewStore(db, nil).(*sqlxStore), queries
}

// The dashboard folds last-message and contributor lookups into one
// statement, so its round-trip count must not grow with the number of
// chats.
func TestDashboardRoundTripsDoNotGrowWithChatCount(t *testing.T) {
	t.Parallel()

	s, queries := newCountingStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	sentAt := now.Add(-2 * time.Hour)

	mustSave(t, s, textObservation(100, 1, 7, "hello", sentAt))

	queries.Store(0)
	if _, err := s.dashboardAt(ctx, now); err != nil {
		t.Fatalf("dashboardAt failed: %v", err)
	}
	oneChat := queries.Load()
	if oneChat == 0 {
		t.Fatal("no statements counted, counting wrapper is not wired")
	}

	for chatID := int64(101); chatID <= 108; chatID++ {
		for msgID := int64(1); msgID <= 3; msgID++ {
			mustSave(t, s, textObservation(chatID, msgID, chatID*10+msgID, "hi", sentAt))
		}
	}

	queries.Store(0)
	summaries, err := s.dashboardAt(ctx, now)
	if err != nil {
		t.Fatalf("dashboardAt failed: %v", err)
	}
	if len(summaries) != 9 {
		t.Fatalf("expected 9 chats, got %d", len(summaries))
	}
	if got := queries.Load(); got != oneChat {
		t.Errorf("dashboard cost grew with chat count: %d statements for 1 chat, %d for 9", oneChat, got)
	}
}
