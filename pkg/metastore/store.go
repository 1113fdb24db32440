// Package metastore implements the relational metadata side-store described
// in spec.md §4.6: one SQLite file per collection holding the durable record
// of every vector, independent of the KWI container's offset table, so it
// can serve as the source of truth when the container is rebuilt.
package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no cgo

	"github.com/neilthomass/kowari"
)

// VectorRow is one row of the vectors table.
type VectorRow struct {
	ID         string
	Dimension  int
	Data       []float32
	Metadata   []byte // raw JSON, nil when absent
	CreatedAt  time.Time
}

// Store is one open connection to a collection's metadata.sqlite3 file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the side-store at path and ensures its
// schema exists. DSN tuning mirrors the teacher's store_init.go: WAL mode
// for concurrent readers, NORMAL sync as a speed/safety balance, and a busy
// timeout so a momentarily locked file returns control instead of failing
// immediately.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-2000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, kowari.WrapErr("metastore.open", kowari.KindPersistence, fmt.Errorf("open %s: %w", path, err))
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(2 * time.Hour)

	s := &Store{db: db, path: path}
	if err := s.createTables(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS vectors (
		id TEXT PRIMARY KEY,
		collection_id INTEGER NOT NULL DEFAULT 1,
		dimension INTEGER NOT NULL,
		data BLOB NOT NULL,
		metadata TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (collection_id) REFERENCES collections(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_vectors_created_at ON vectors(created_at);

	CREATE TABLE IF NOT EXISTS system_info (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return kowari.WrapErr("metastore.create_tables", kowari.KindPersistence, err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO collections (id, name) VALUES (1, 'default')
	`)
	if err != nil {
		return kowari.WrapErr("metastore.create_tables", kowari.KindPersistence, err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertVector upserts a row: reinserting an existing id overwrites its
// payload and metadata, per spec.md §4.6.
func (s *Store) InsertVector(ctx context.Context, row VectorRow) error {
	data := encodeVector(row.Data)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vectors (id, collection_id, dimension, data, metadata, created_at)
		VALUES (?, 1, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			dimension = excluded.dimension,
			data = excluded.data,
			metadata = excluded.metadata
	`, row.ID, row.Dimension, data, nullableMetadata(row.Metadata))
	if err != nil {
		return kowari.WrapErr("metastore.insert_vector", kowari.KindOther, err)
	}
	return nil
}

// GetVector retrieves a row by id. ok is false when the id is absent.
func (s *Store) GetVector(ctx context.Context, id string) (VectorRow, bool, error) {
	var row VectorRow
	var data []byte
	var metadata sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, dimension, data, metadata, created_at FROM vectors WHERE id = ?
	`, id).Scan(&row.ID, &row.Dimension, &data, &metadata, &row.CreatedAt)
	if err == sql.ErrNoRows {
		return VectorRow{}, false, nil
	}
	if err != nil {
		return VectorRow{}, false, kowari.WrapErr("metastore.get_vector", kowari.KindOther, err)
	}

	row.Data = decodeVector(data, row.Dimension)
	if metadata.Valid {
		row.Metadata = []byte(metadata.String)
	}
	return row, true, nil
}

// DeleteVector removes a row. Deleting a missing id is a no-op, per
// spec.md §4.6.
func (s *Store) DeleteVector(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM vectors WHERE id = ?", id); err != nil {
		return kowari.WrapErr("metastore.delete_vector", kowari.KindOther, err)
	}
	return nil
}

// AllVectors returns every row ordered by created_at ascending, per
// spec.md §4.6.
func (s *Store) AllVectors(ctx context.Context) ([]VectorRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dimension, data, metadata, created_at FROM vectors ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, kowari.WrapErr("metastore.all_vectors", kowari.KindOther, err)
	}
	defer rows.Close()

	var out []VectorRow
	for rows.Next() {
		var row VectorRow
		var data []byte
		var metadata sql.NullString
		if err := rows.Scan(&row.ID, &row.Dimension, &data, &metadata, &row.CreatedAt); err != nil {
			return nil, kowari.WrapErr("metastore.all_vectors", kowari.KindOther, err)
		}
		row.Data = decodeVector(data, row.Dimension)
		if metadata.Valid {
			row.Metadata = []byte(metadata.String)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, kowari.WrapErr("metastore.all_vectors", kowari.KindOther, err)
	}
	return out, nil
}

// CountVectors returns the number of rows in the vectors table.
func (s *Store) CountVectors(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, kowari.WrapErr("metastore.count_vectors", kowari.KindOther, err)
	}
	return n, nil
}

// SetSystemInfo upserts a key/value pair in system_info.
func (s *Store) SetSystemInfo(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_info (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return kowari.WrapErr("metastore.set_system_info", kowari.KindOther, err)
	}
	return nil
}

// GetSystemInfo retrieves a value from system_info. ok is false when key is
// absent.
func (s *Store) GetSystemInfo(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM system_info WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, kowari.WrapErr("metastore.get_system_info", kowari.KindOther, err)
	}
	return value, true, nil
}

func nullableMetadata(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
