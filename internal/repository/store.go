package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"loghelper/internal/domain"
	"loghelper/internal/severity"
)

// StoredRecord is a record as persisted by the database destination.
type StoredRecord struct {
	ID     string
	Record domain.Record
	Line   string
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert persists rec together with its formatted line and returns the
// generated id.
func (s *Store) Insert(ctx context.Context, rec domain.Record, line string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO records (id, created_at, sink, level, levelno, message, line)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Time.UTC().Format(time.RFC3339Nano), rec.Name, rec.Level.String(), int(rec.Level), rec.Message, line)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Recent returns up to limit records, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]StoredRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, sink, levelno, message, line FROM (
    SELECT rowid, id, created_at, sink, levelno, message, line
    FROM records
    ORDER BY rowid DESC
    LIMIT ?
) ORDER BY rowid ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []StoredRecord
	for rows.Next() {
		var stored StoredRecord
		var created string
		var levelno int
		if err := rows.Scan(&stored.ID, &created, &stored.Record.Name, &levelno, &stored.Record.Message, &stored.Line); err != nil {
			return nil, err
		}
		stored.Record.Level = severity.Level(levelno)
		if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
			stored.Record.Time = parsed
		}
		results = append(results, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Count returns the number of stored records for a sink, or for every sink
// when sinkName is empty.
func (s *Store) Count(ctx context.Context, sinkName string) (int, error) {
	var count int
	var err error
	if sinkName == "" {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE sink = ?", sinkName).Scan(&count)
	}
	return count, err
}
