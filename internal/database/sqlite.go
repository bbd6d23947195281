package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leca/scene-archive/internal/model"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps order as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteDB implements Database backed by SQLite. The text index is an FTS5
// external-content table maintained by triggers, so it changes in the same
// transaction as the scene row it projects.
type SQLiteDB struct {
	db *sql.DB

	// writeMu makes every write transaction single-writer; this is what
	// keeps "one current version per scene" safe under concurrent callers.
	writeMu sync.Mutex
	clock   *clock
}

// Compile-time check that SQLiteDB implements Database.
var _ Database = (*SQLiteDB)(nil)

// NewSQLiteDB opens (or creates) an SQLite database at dsn and runs migrations.
// For in-memory use pass "file:<name>?mode=memory&cache=shared".
func NewSQLiteDB(dsn string) (*SQLiteDB, error) {
	memory := strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")

	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if !memory {
		pragmas += "&_pragma=journal_mode(WAL)"
	}
	if strings.Contains(dsn, "?") {
		dsn += "&" + pragmas
	} else {
		dsn += "?" + pragmas
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if memory {
		// Every pooled connection must see the same in-memory database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteDB{db: db, clock: newClock(time.Now)}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// SetClock replaces the time source. Intended for tests.
func (s *SQLiteDB) SetClock(now func() time.Time) {
	s.clock = newClock(now)
}

// Update runs fn inside one serialized write transaction.
func (s *SQLiteDB) Update(ctx context.Context, fn func(w Writer) error) error {
	return s.withTx(ctx, true, fn)
}

// Simulate runs fn inside a write transaction that is always rolled back.
func (s *SQLiteDB) Simulate(ctx context.Context, fn func(w Writer) error) error {
	return s.withTx(ctx, false, fn)
}

func (s *SQLiteDB) withTx(ctx context.Context, commit bool, fn func(w Writer) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w: %w", model.ErrDependencyUnavailable, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("rollback failed", "error", err)
		}
	}()

	if err := fn(&catalog{q: tx, clock: s.clock}); err != nil {
		return err
	}
	if !commit {
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// reader returns a catalog view over the connection pool.
func (s *SQLiteDB) reader() *catalog {
	return &catalog{q: s.db, clock: s.clock}
}

// UpsertScene upserts one scene in its own transaction.
func (s *SQLiteDB) UpsertScene(ctx context.Context, sc *model.Scene) (string, error) {
	var id string
	err := s.Update(ctx, func(w Writer) error {
		var err error
		id, err = w.UpsertScene(ctx, sc)
		return err
	})
	return id, err
}

// UpsertVersion upserts one version in its own transaction, so clearing
// sibling current flags and setting this one commit together.
func (s *SQLiteDB) UpsertVersion(ctx context.Context, v *model.ImageVersion, isCurrent bool) (string, error) {
	var id string
	err := s.Update(ctx, func(w Writer) error {
		var err error
		id, err = w.UpsertVersion(ctx, v, isCurrent)
		return err
	})
	return id, err
}

// SetLiveStorageKey updates one version's storage key in its own transaction.
func (s *SQLiteDB) SetLiveStorageKey(ctx context.Context, versionID string, key *string) error {
	return s.Update(ctx, func(w Writer) error {
		return w.SetLiveStorageKey(ctx, versionID, key)
	})
}

func (s *SQLiteDB) GetScene(ctx context.Context, sceneID string) (*model.Scene, error) {
	return s.reader().GetScene(ctx, sceneID)
}

func (s *SQLiteDB) ListScenes(ctx context.Context, batchName string, limit, offset int) ([]*model.Scene, error) {
	return s.reader().ListScenes(ctx, batchName, limit, offset)
}

func (s *SQLiteDB) ListScenesByRoll(ctx context.Context, rollNumber string) ([]*model.Scene, error) {
	return s.reader().ListScenesByRoll(ctx, rollNumber)
}

func (s *SQLiteDB) ListVersions(ctx context.Context, sceneID string) ([]*model.ImageVersion, error) {
	return s.reader().ListVersions(ctx, sceneID)
}

func (s *SQLiteDB) GetCurrentLiveVersion(ctx context.Context, sceneID string) (*model.ImageVersion, error) {
	return s.reader().GetCurrentLiveVersion(ctx, sceneID)
}

func (s *SQLiteDB) ListLiveVersions(ctx context.Context, limit int, hashedOnly bool) ([]*model.LiveVersion, error) {
	return s.reader().ListLiveVersions(ctx, limit, hashedOnly)
}

func (s *SQLiteDB) Stats(ctx context.Context) (*model.CatalogStats, error) {
	return s.reader().Stats(ctx)
}

// Search reads results, total and facets inside one transaction so all
// three describe the same snapshot.
func (s *SQLiteDB) Search(ctx context.Context, query string, f model.SearchFilters, limit, offset int) (*model.SearchResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin search tx: %w", err)
	}
	defer tx.Rollback()

	return (&catalog{q: tx, clock: s.clock}).Search(ctx, query, f, limit, offset)
}

func (s *SQLiteDB) Suggest(ctx context.Context, partial string, limit int) ([]string, error) {
	return s.reader().Suggest(ctx, partial, limit)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// catalog implements the read and write operations over a querier.
type catalog struct {
	q     querier
	clock *clock
}

type scannable interface {
	Scan(dest ...any) error
}

// clock hands out strictly increasing timestamps.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock(now func() time.Time) *clock {
	return &clock{now: now}
}

// stamp returns a time later than both the previous stamp and after.
func (c *clock) stamp(after time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	if !t.After(after) {
		t = after.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullString and nullInt64 bind optional values as SQL NULL when absent.
func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func checkRowsAffected(res sql.Result, notFoundErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFoundErr
	}
	return nil
}
