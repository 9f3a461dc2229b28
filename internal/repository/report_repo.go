package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"signal_kz/internal/model"

	"github.com/jackc/pgx/v5"
)

// ReportFilter narrows report listings
type ReportFilter struct {
	AuthorID      *int64
	Statuses      []model.Status // keep only these
	ExcludeStatus []model.Status // drop these
	Limit         int            // 0 means no limit
}

// ReportRepository defines operations for report data
type ReportRepository interface {
	Create(ctx context.Context, report *model.Report) error
	FindByID(ctx context.Context, id int64) (*model.Report, error)
	Find(ctx context.Context, filter ReportFilter) ([]model.Report, error)
	// CompareAndSetStatus moves the report to `to` only if its stored status
	// is one of `from`. It returns the updated report, or nil when the report
	// is missing or its status did not match.
	CompareAndSetStatus(ctx context.Context, id int64, from []model.Status, to model.Status, at time.Time) (*model.Report, error)
}

type reportRepository struct {
	db DB
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db DB) ReportRepository {
	return &reportRepository{db: db}
}

const reportColumns = `id, author_id, category, description, latitude, longitude, photo_ref, status, created_at, updated_at`

func scanReport(row pgx.Row) (*model.Report, error) {
	r := &model.Report{}
	var status string
	err := row.Scan(
		&r.ID, &r.AuthorID, &r.Category, &r.Description,
		&r.Location.Latitude, &r.Location.Longitude, &r.PhotoRef,
		&status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Status = model.Status(status)
	return r, nil
}

// Create inserts a new report into the database
func (r *reportRepository) Create(ctx context.Context, rep *model.Report) error {
	sql := `INSERT INTO reports (author_id, category, description, latitude, longitude, photo_ref, status, created_at, updated_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, sql,
		rep.AuthorID, rep.Category, rep.Description,
		rep.Location.Latitude, rep.Location.Longitude, rep.PhotoRef,
		string(rep.Status), rep.CreatedAt, rep.UpdatedAt,
	).Scan(&rep.ID, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// FindByID retrieves a report by its ID
func (r *reportRepository) FindByID(ctx context.Context, id int64) (*model.Report, error) {
	sql := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	rep, err := scanReport(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to find report by ID: %w", err)
	}
	return rep, nil
}

// Find lists reports matching filter, newest first
func (r *reportRepository) Find(ctx context.Context, filter ReportFilter) ([]model.Report, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + reportColumns + ` FROM reports`)

	args := []interface{}{}
	argCount := 1
	var conditions []string

	if filter.AuthorID != nil {
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", argCount))
		args = append(args, *filter.AuthorID)
		argCount++
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argCount))
		args = append(args, model.StatusStrings(filter.Statuses))
		argCount++
	}
	if len(filter.ExcludeStatus) > 0 {
		conditions = append(conditions, fmt.Sprintf("status <> ALL($%d)", argCount))
		args = append(args, model.StatusStrings(filter.ExcludeStatus))
		argCount++
	}

	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argCount))
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, *rep)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}
	return reports, nil
}

// CompareAndSetStatus performs a conditional status update in one statement
func (r *reportRepository) CompareAndSetStatus(ctx context.Context, id int64, from []model.Status, to model.Status, at time.Time) (*model.Report, error) {
	sql := `UPDATE reports SET status = $1, updated_at = $2
            WHERE id = $3 AND status = ANY($4)
            RETURNING ` + reportColumns
	rep, err := scanReport(r.db.QueryRow(ctx, sql, string(to), at, id, model.StatusStrings(from)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // missing or status changed underneath us
		}
		return nil, fmt.Errorf("failed to update report status: %w", err)
	}
	return rep, nil
}
