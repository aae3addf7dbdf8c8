package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/store"
)

// recorder captures every statement the store issues through the stub
// driver, so tests can assert on the SQL without a live database.
type recorder struct {
	mu      sync.Mutex
	queries []string
}

func (r *recorder) record(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

type stubDriver struct{ rec *recorder }

func (d stubDriver) Open(string) (driver.Conn, error) {
	return &stubConn{rec: d.rec}, nil
}

type stubConn struct{ rec *recorder }

func (c *stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported by stub")
}

func (c *stubConn) Close() error              { return nil }
func (c *stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.rec.record(query)
	return &stubRows{rows: [][]driver.Value{{int64(1)}}}, nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	c.rec.record(query)
	return driver.RowsAffected(1), nil
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubRows struct {
	rows [][]driver.Value
	next int
}

func (r *stubRows) Columns() []string { return []string{"id"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}

var stubSeq int64

func openStubDB(t *testing.T) (*sql.DB, *recorder) {
	t.Helper()
	rec := &recorder{}
	name := fmt.Sprintf("catalogstub_%d", atomic.AddInt64(&stubSeq, 1))
	sql.Register(name, stubDriver{rec: rec})
	db, err := sql.Open(name, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, rec
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// A commit must reach the cards table through one atomic upsert: two
// pending images committing the same new card concurrently race on the
// natural-key index, and the loser has to become the quantity increment
// rather than a failed insert.
func TestCommitCard_AtomicUpsert(t *testing.T) {
	t.Parallel()

	db, rec := openStubDB(t)
	s := NewPostgresCatalogStore(db, quietLogger())

	pos := 4
	err := s.CommitCard(context.Background(), store.CardCommit{
		Card: domain.CardRecord{
			Name:  "nolan ryan",
			Brand: "topps",
			Year:  "1992",
		},
		SourceFile:   "scan_001.jpg",
		GridPosition: &pos,
		VerifiedAt:   time.Now(),
	})
	require.NoError(t, err)

	queries := rec.all()
	require.Len(t, queries, 2)
	assert.Contains(t, queries[0], "ON CONFLICT (brand, number, name, year)")
	assert.Contains(t, queries[0], "quantity = cards.quantity + 1")
	assert.Contains(t, queries[0], "RETURNING id")
	assert.Contains(t, queries[1], "INSERT INTO card_copies")
}

func TestJoinFeatures(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{}", joinFeatures(nil))
	assert.Equal(t, `{"rookie","refractor"}`, joinFeatures([]string{"rookie", "refractor"}))

	// Quotes and backslashes must not break the array literal.
	assert.Equal(t,
		`{"say \"hey\" kid","back\\slash"}`,
		joinFeatures([]string{`say "hey" kid`, `back\slash`}))
}
