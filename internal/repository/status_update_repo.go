package repository

import (
	"context"
	"fmt"

	"signal_kz/internal/model"
)

// StatusUpdateRepository is the append-only audit log of official status changes
type StatusUpdateRepository interface {
	Append(ctx context.Context, entry *model.StatusUpdate) error
	// HistoryFor returns entries for a report, most recent first. A limit
	// of 0 or less returns the full history.
	HistoryFor(ctx context.Context, reportID int64, limit int) ([]model.StatusUpdate, error)
}

type statusUpdateRepository struct {
	db DB
}

// NewStatusUpdateRepository creates a new StatusUpdateRepository
func NewStatusUpdateRepository(db DB) StatusUpdateRepository {
	return &statusUpdateRepository{db: db}
}

// Append inserts one audit entry
func (r *statusUpdateRepository) Append(ctx context.Context, e *model.StatusUpdate) error {
	sql := `INSERT INTO status_updates (report_id, official_id, status, comment, created_at)
            VALUES ($1, $2, $3, $4, $5) RETURNING id`
	err := r.db.QueryRow(ctx, sql, e.ReportID, e.OfficialID, string(e.Status), e.Comment, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to append status update: %w", err)
	}
	return nil
}

// HistoryFor lists a report's status updates with the official's name
func (r *statusUpdateRepository) HistoryFor(ctx context.Context, reportID int64, limit int) ([]model.StatusUpdate, error) {
	sql := `SELECT s.id, s.report_id, s.official_id, COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''),
                   s.status, s.comment, s.created_at
            FROM status_updates s
            LEFT JOIN users u ON u.id = s.official_id
            WHERE s.report_id = $1
            ORDER BY s.created_at DESC, s.id DESC`
	args := []interface{}{reportID}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var history []model.StatusUpdate
	for rows.Next() {
		var e model.StatusUpdate
		var status string
		if err := rows.Scan(&e.ID, &e.ReportID, &e.OfficialID, &e.OfficialName, &status, &e.Comment, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status update row: %w", err)
		}
		e.Status = model.Status(status)
		history = append(history, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status update rows: %w", err)
	}
	return history, nil
}
