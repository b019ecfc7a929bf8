package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"archive-viewer/internal/logging"
	"archive-viewer/internal/metrics"
)

// Default timeout for row operations
const defaultTimeout = 5 * time.Second

// ErrNotFound is returned when a row or blob does not exist.
var ErrNotFound = errors.New("cache: not found")

// CoverRow describes the cached cover of one library item.
type CoverRow struct {
	Name        string
	BlobID      string
	ModTime     time.Time
	ContentType string
	Width       int
	Height      int
	UpdatedAt   time.Time
}

// RowStore keeps cover rows.
type RowStore interface {
	// Get returns the row for name or ErrNotFound.
	Get(ctx context.Context, name string) (*CoverRow, error)
	// Put inserts or replaces the row.
	Put(ctx context.Context, row *CoverRow) error
	Delete(ctx context.Context, name string) error
	Close() error
}

// SQLiteRows is a RowStore on SQLite.
type SQLiteRows struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// OpenRows opens or creates the database FILE at dbPath. The parent
// directory must exist and be writable.
func OpenRows(ctx context.Context, dbPath string) (*SQLiteRows, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open cover database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close cover database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to cover database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	r := &SQLiteRows{db: db, dbPath: dbPath}
	if err := r.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close cover database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize cover schema: %w", err)
	}

	logging.Info("Cover database initialized at %s", dbPath)
	return r, nil
}

func (r *SQLiteRows) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS covers (
		name TEXT PRIMARY KEY,
		blob_id TEXT NOT NULL,
		mod_time INTEGER NOT NULL,
		content_type TEXT NOT NULL,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func observe(store, op string, start time.Time, err error) {
	metrics.CacheOperationsTotal.WithLabelValues(store, op, metrics.Status(err)).Inc()
	metrics.CacheOperationDuration.WithLabelValues(store, op).Observe(time.Since(start).Seconds())
}

// Get implements RowStore.
func (r *SQLiteRows) Get(ctx context.Context, name string) (row *CoverRow, err error) {
	defer func(start time.Time) {
		if errors.Is(err, ErrNotFound) {
			observe("rows", "get", start, nil)
			return
		}
		observe("rows", "get", start, err)
	}(time.Now())

	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var modTime, updatedAt int64
	row = &CoverRow{Name: name}
	err = r.db.QueryRowContext(ctx, `
		SELECT blob_id, mod_time, content_type, width, height, updated_at
		FROM covers WHERE name = ?
	`, name).Scan(&row.BlobID, &modTime, &row.ContentType, &row.Width, &row.Height, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cover %s: %w", name, err)
	}

	row.ModTime = time.Unix(0, modTime)
	row.UpdatedAt = time.Unix(updatedAt, 0)
	return row, nil
}

// Put implements RowStore. ModTime is stored with nanosecond precision so
// it compares equal to the file's modification time.
func (r *SQLiteRows) Put(ctx context.Context, row *CoverRow) (err error) {
	defer func(start time.Time) { observe("rows", "put", start, err) }(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	updated := row.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO covers (name, blob_id, mod_time, content_type, width, height, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			blob_id = excluded.blob_id,
			mod_time = excluded.mod_time,
			content_type = excluded.content_type,
			width = excluded.width,
			height = excluded.height,
			updated_at = excluded.updated_at
	`, row.Name, row.BlobID, row.ModTime.UnixNano(), row.ContentType, row.Width, row.Height, updated.Unix())
	if err != nil {
		return fmt.Errorf("put cover %s: %w", row.Name, err)
	}
	return nil
}

// Delete implements RowStore. Deleting an absent row is not an error.
func (r *SQLiteRows) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, "DELETE FROM covers WHERE name = ?", name)
	return err
}

// Names lists every item with a cover row.
func (r *SQLiteRows) Names(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, "SELECT name FROM covers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetMetadata retrieves a metadata value by key, or ErrNotFound.
func (r *SQLiteRows) GetMetadata(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// SetMetadata sets a metadata key-value pair.
func (r *SQLiteRows) SetMetadata(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// LastWarm returns when covers were last warmed, or the zero time.
func (r *SQLiteRows) LastWarm(ctx context.Context) (time.Time, error) {
	value, err := r.GetMetadata(ctx, "last_cover_warm")
	if errors.Is(err, ErrNotFound) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastWarm records the time of a completed cover warm-up.
func (r *SQLiteRows) SetLastWarm(ctx context.Context, t time.Time) error {
	return r.SetMetadata(ctx, "last_cover_warm", t.UTC().Format(time.RFC3339))
}

// Close closes the database connection.
func (r *SQLiteRows) Close() error {
	return r.db.Close()
}
