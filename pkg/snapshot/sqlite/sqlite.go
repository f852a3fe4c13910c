// Package sqlite stores semantic database snapshots in a SQLite file.
//
// Each record becomes one row: the payload is JSON-encoded into a TEXT
// column and the embedding is packed into a little-endian float32 BLOB.
// A write replaces every row inside a single transaction, so readers only
// ever observe a complete snapshot.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	gojson "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/chataize/semantic-index/pkg/logger"
	"github.com/chataize/semantic-index/pkg/semantic"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshot_records (
	seq       INTEGER PRIMARY KEY,
	payload   TEXT NOT NULL,
	embedding BLOB NOT NULL
)`

// Config holds configuration for the SQLite snapshot driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string
}

// Driver implements semantic.Snapshotter on top of SQLite.
type Driver[T any] struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ semantic.Snapshotter[string] = (*Driver[string])(nil)

// New opens (creating if needed) the database at c.DBPath.
func New[T any](c Config, log *slog.Logger) (*Driver[T], error) {
	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}

	log.Debug("sqlite snapshot driver initialized", "db_path", c.DBPath)

	return &Driver[T]{db: db, path: c.DBPath, logger: log}, nil
}

// WriteSnapshot replaces the stored snapshot with recs.
func (d *Driver[T]) WriteSnapshot(ctx context.Context, recs []semantic.Record[T]) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_records`); err != nil {
		return fmt.Errorf("clearing previous snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_records(seq, payload, embedding) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		payload, err := gojson.Marshal(rec.Payload)
		if err != nil {
			return fmt.Errorf("encoding payload %d: %w", i, err)
		}

		if _, err := stmt.ExecContext(ctx, i, string(payload), serializeFloat32(rec.Embedding)); err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("wrote sqlite snapshot", "db_path", d.path, "records", len(recs))
	return nil
}

// ReadSnapshot returns the stored records in their saved order.
func (d *Driver[T]) ReadSnapshot(ctx context.Context) ([]semantic.Record[T], error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT payload, embedding FROM snapshot_records ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	defer rows.Close()

	var recs []semantic.Record[T]
	for rows.Next() {
		var (
			payload string
			blob    []byte
		)
		if err := rows.Scan(&payload, &blob); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}

		var rec semantic.Record[T]
		if err := gojson.Unmarshal([]byte(payload), &rec.Payload); err != nil {
			return nil, fmt.Errorf("decoding payload of record %d: %w", len(recs), err)
		}
		if rec.Embedding, err = deserializeFloat32(blob); err != nil {
			return nil, fmt.Errorf("decoding embedding of record %d: %w", len(recs), err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot: %w", err)
	}

	d.logger.Debug("read sqlite snapshot", "db_path", d.path, "records", len(recs))
	return recs, nil
}

// Count returns the number of stored records.
func (d *Driver[T]) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (d *Driver[T]) Close() error {
	return d.db.Close()
}

func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
