package store

import (
	"context"
	"database/sql"

	"github.com/gethomeport/resmon/internal/alert"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			resource TEXT NOT NULL,
			message TEXT NOT NULL,
			threshold INTEGER NOT NULL,
			value REAL NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_resource ON alerts(resource, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Alert operations

func (s *Store) RecordAlert(ctx context.Context, r *AlertRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, resource, message, threshold, value, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Resource, r.Message, r.Threshold, r.Value, r.CreatedAt.UTC(),
	)
	return err
}

// ListAlerts returns alerts newest first. An empty resource matches all.
func (s *Store) ListAlerts(ctx context.Context, resource string, limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, resource, message, threshold, value, created_at FROM alerts`
	args := []any{}
	if resource != "" {
		query += ` WHERE resource = ?`
		args = append(args, resource)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []AlertRecord{}
	for rows.Next() {
		var a AlertRecord
		if err := rows.Scan(&a.ID, &a.Resource, &a.Message, &a.Threshold, &a.Value, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (s *Store) ClearAlerts(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM alerts`)
	return err
}

// AlertSink records every notified alert in the store.
type AlertSink struct {
	Store *Store
}

func (a AlertSink) Notify(ctx context.Context, ev alert.Event) error {
	return a.Store.RecordAlert(ctx, &AlertRecord{
		ID:        ev.ID,
		Resource:  string(ev.Resource),
		Message:   ev.Message,
		Threshold: ev.Threshold,
		Value:     ev.Value,
		CreatedAt: ev.Timestamp,
	})
}
