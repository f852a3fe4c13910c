package semantic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"
)

// Snapshotter persists and restores a whole record sequence.
type Snapshotter[T any] interface {
	WriteSnapshot(ctx context.Context, recs []Record[T]) error
	ReadSnapshot(ctx context.Context) ([]Record[T], error)
}

// FileSnapshot stores records as a JSON array of {payload, embedding}
// objects in a single file.
type FileSnapshot[T any] struct {
	Path string
}

// NewFileSnapshot returns a JSON file snapshot at path.
func NewFileSnapshot[T any](path string) *FileSnapshot[T] {
	return &FileSnapshot[T]{Path: path}
}

// WriteSnapshot encodes recs into a temporary file next to Path and renames
// it into place, so readers see either the old or the new file.
func (f *FileSnapshot[T]) WriteSnapshot(_ context.Context, recs []Record[T]) error {
	if recs == nil {
		recs = []Record[T]{}
	}

	data, err := gojson.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("renaming snapshot into place: %w", err)
	}
	return nil
}

// ReadSnapshot decodes the file at Path. A JSON null or empty array yields
// no records; a missing, empty or malformed file is an error.
func (f *FileSnapshot[T]) ReadSnapshot(_ context.Context) ([]Record[T], error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("snapshot file is empty")
	}

	var recs []Record[T]
	if err := gojson.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return recs, nil
}

// Save writes a point-in-time copy of the store to a JSON file at path.
func (db *Database[T]) Save(ctx context.Context, path string) error {
	return db.saveTo(ctx, NewFileSnapshot[T](path), path)
}

// Load replaces the store with the records in the JSON file at path. On any
// error the store keeps its previous contents.
func (db *Database[T]) Load(ctx context.Context, path string) error {
	return db.loadFrom(ctx, NewFileSnapshot[T](path), path)
}

// SaveTo writes a point-in-time copy of the store to s.
func (db *Database[T]) SaveTo(ctx context.Context, s Snapshotter[T]) error {
	return db.saveTo(ctx, s, "")
}

// LoadFrom replaces the store with the records read from s. On any error the
// store keeps its previous contents.
func (db *Database[T]) LoadFrom(ctx context.Context, s Snapshotter[T]) error {
	return db.loadFrom(ctx, s, "")
}

func (db *Database[T]) saveTo(ctx context.Context, s Snapshotter[T], path string) error {
	recs := db.Records()

	if err := s.WriteSnapshot(ctx, recs); err != nil {
		return &PersistenceError{Op: "save", Path: path, Err: err}
	}

	db.logger.Debug("snapshot saved", "path", path, "records", len(recs))
	return nil
}

func (db *Database[T]) loadFrom(ctx context.Context, s Snapshotter[T], path string) error {
	recs, err := s.ReadSnapshot(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Path: path, Err: err}
	}

	if err := db.store.replaceAll(recs); err != nil {
		return &PersistenceError{Op: "load", Path: path, Err: err}
	}

	db.logger.Debug("snapshot loaded", "path", path, "records", len(recs))
	return nil
}
