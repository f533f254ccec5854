package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/okian/fitscore/internal/adapters/repository/migrations"
	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/pkg/logger"
	"github.com/okian/fitscore/pkg/metrics"
)

// Driver names a SQL backend.
type Driver string

// Supported drivers.
const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

const defaultSQLiteDSN = "file:fitscore.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// SQLStore keeps each record as a JSON document row, keyed by collection path.
type SQLStore struct {
	settings

	db     *sql.DB
	driver Driver

	pubMu sync.Mutex
	hub   *hub

	closeOnce sync.Once
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens the database, pings it and applies pending migrations.
func OpenSQL(ctx context.Context, driver Driver, dsn string, opts ...Option) (*SQLStore, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = defaultSQLiteDSN
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("%w: postgres requires a dsn", ErrInvalidConfig)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if driver == DriverSQLite {
		// A single connection keeps ":memory:" databases and write locking sane.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := &SQLStore{
		settings: applyOptions(opts),
		db:       db,
		driver:   driver,
		hub:      newHub(),
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

func (s *SQLStore) dialect() string {
	if s.driver == DriverPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// Migrate applies pending schema migrations.
func (s *SQLStore) Migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(s.dialect()); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// Version returns the applied schema version.
func (s *SQLStore) Version(ctx context.Context) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(s.dialect()); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, s.db)
}

// Create implements Store.
func (s *SQLStore) Create(ctx context.Context, path string, record model.Candidate) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: %w", ErrWrite, ErrInvalidPath)
	}
	start := time.Now()

	record.ID = s.newID()
	record.CreatedAt = s.now()
	body, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("%w: encode record: %w", ErrWrite, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, collection, body, created_at) VALUES ($1, $2, $3, $4)`,
		record.ID, path, string(body), record.CreatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrite, err)
	}

	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	s.log.Debug(ctx, "record created", logger.String("path", path), logger.String("id", record.ID))

	s.refresh(context.WithoutCancel(ctx), path)
	return record.ID, nil
}

// refresh publishes the current listing of path. A failed read ends the
// subscriptions of that path.
func (s *SQLStore) refresh(ctx context.Context, path string) {
	if !s.hub.watching(path) {
		return
	}
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	snap, err := s.read(ctx, path)
	if err != nil {
		s.log.Error(ctx, "snapshot failed", logger.String("path", path), logger.Error(err))
		s.hub.failAll(path, err)
		return
	}
	s.hub.publish(path, snap)
}

func (s *SQLStore) read(ctx context.Context, path string) ([]model.Candidate, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body, created_at FROM documents WHERE collection = $1 ORDER BY created_at, id`,
		path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.Candidate, 0)
	for rows.Next() {
		var (
			id      string
			body    string
			created int64
		)
		if err := rows.Scan(&id, &body, &created); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRead, err)
		}
		var c model.Candidate
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", ErrRead, id, err)
		}
		c.ID = id
		c.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	metrics.RecordStoreSnapshot(float64(time.Since(start).Milliseconds()), len(out))
	return out, nil
}

// Subscribe implements Store.
func (s *SQLStore) Subscribe(ctx context.Context, path string, onSnapshot SnapshotFunc, onError ErrorFunc) (Subscription, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	sub := newSubscription(onSnapshot, onError)

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if !s.hub.add(path, sub) {
		sub.Unsubscribe()
		return nil, ErrClosed
	}
	snap, err := s.read(ctx, path)
	if err != nil {
		s.hub.remove(path, sub)
		sub.fail(err)
		return sub, nil
	}
	sub.offer(snap)
	return sub, nil
}

// Snapshot implements Store.
func (s *SQLStore) Snapshot(ctx context.Context, path string) ([]model.Candidate, error) {
	if path == "" {
		return nil, ErrInvalidPath
	}
	return s.read(ctx, path)
}

// Close implements Store.
func (s *SQLStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.hub.close(ErrClosed)
		err = s.db.Close()
	})
	return err
}
