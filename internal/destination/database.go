package destination

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"loghelper/internal/domain"
	"loghelper/internal/format"
	"loghelper/internal/repository"
	"loghelper/internal/severity"
	"loghelper/internal/storage"
)

// Database appends records to the records table of a SQLite file.
type Database struct {
	base
	path  string
	db    *sql.DB
	store *repository.Store
}

// OpenDatabase opens (creating if needed) the SQLite file at path.
func OpenDatabase(path string, threshold severity.Level, formatter *format.Formatter) (*Database, error) {
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	return &Database{
		base:  newBase(threshold, formatter),
		path:  path,
		db:    db,
		store: repository.New(db),
	}, nil
}

func (d *Database) Kind() domain.DestinationKind {
	return domain.KindDatabase
}

func (d *Database) Path() string {
	return d.path
}

func (d *Database) Handle(rec domain.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return fmt.Errorf("write %s: %w", d.path, os.ErrClosed)
	}
	_, err := d.store.Insert(context.Background(), rec, d.formatter.Format(rec))
	return err
}

// Recent returns the last limit stored records, oldest first.
func (d *Database) Recent(ctx context.Context, limit int) ([]repository.StoredRecord, error) {
	return d.store.Recent(ctx, limit)
}

// Count returns the number of stored records of sinkName, or of every sink
// when sinkName is empty.
func (d *Database) Count(ctx context.Context, sinkName string) (int, error) {
	return d.store.Count(ctx, sinkName)
}

func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}
