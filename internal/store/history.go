package store

import (
	"database/sql"
	"errors"

	"github.com/cesargomez89/vidfetch/internal/domain"
)

func (db *DB) ArchiveJob(entry domain.HistoryEntry) error {
	query := `INSERT INTO job_history (id, url, format, status, title, message, created_at, finished_at)
		VALUES (:id, :url, :format, :status, :title, :message, :created_at, :finished_at)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			title = excluded.title,
			message = excluded.message,
			finished_at = excluded.finished_at`

	_, err := db.NamedExec(query, entry)
	return err
}

func (db *DB) GetHistory(id string) (*domain.HistoryEntry, error) {
	query := `SELECT id, url, format, status, title, message, created_at, finished_at FROM job_history WHERE id = ?`

	entry := &domain.HistoryEntry{}
	err := db.Get(entry, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (db *DB) ListHistory(limit int) ([]domain.HistoryEntry, error) {
	query := `SELECT id, url, format, status, title, message, created_at, finished_at
		FROM job_history ORDER BY finished_at DESC LIMIT ?`

	entries := []domain.HistoryEntry{}
	err := db.Select(&entries, query, limit)
	return entries, err
}

type HistoryStats struct {
	Total    int `db:"total" json:"total"`
	Finished int `db:"finished" json:"finished"`
	Failed   int `db:"failed" json:"failed"`
}

func (db *DB) GetHistoryStats() (*HistoryStats, error) {
	query := `SELECT
		COUNT(*) as total,
		COALESCE(SUM(CASE WHEN status = 'finished' THEN 1 ELSE 0 END), 0) as finished,
		COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0) as failed
	FROM job_history`

	stats := &HistoryStats{}
	err := db.Get(stats, query)
	return stats, err
}

func (db *DB) ClearHistory() error {
	_, err := db.Exec("DELETE FROM job_history")
	return err
}
