package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal_kz/internal/model"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportCols = []string{"id", "author_id", "category", "description", "latitude", "longitude", "photo_ref", "status", "created_at", "updated_at"}

func TestReportRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	rep := &model.Report{
		AuthorID:    42,
		Category:    "Пожар",
		Description: "дым над лесом",
		Location:    model.Location{Latitude: 43.2, Longitude: 76.9},
		PhotoRef:    "ref123",
		Status:      model.StatusPendingModeration,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	mock.ExpectQuery("INSERT INTO reports").
		WithArgs(int64(42), "Пожар", "дым над лесом", 43.2, 76.9, "ref123", "На модерации", now, now).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))

	repo := NewReportRepository(mock)
	err = repo.Create(context.Background(), rep)

	assert.NoError(t, err)
	assert.Equal(t, int64(7), rep.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_FindByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM reports WHERE id = \\$1").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(reportCols))

	repo := NewReportRepository(mock)
	rep, err := repo.FindByID(context.Background(), 99)

	assert.NoError(t, err)
	assert.Nil(t, rep)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_FindByID_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM reports").
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection reset"))

	repo := NewReportRepository(mock)
	_, err = repo.FindByID(context.Background(), 1)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestReportRepository_Find_ActiveWithLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	excluded := []model.Status{model.StatusPendingModeration, model.StatusResolved}

	mock.ExpectQuery("WHERE status <> ALL\\(\\$1\\) ORDER BY created_at DESC, id DESC LIMIT \\$2").
		WithArgs([]string{"На модерации", "Решено"}, 10).
		WillReturnRows(pgxmock.NewRows(reportCols).
			AddRow(int64(2), int64(5), "Пожар", "b", 1.0, 2.0, "p2", "Новое", now, now).
			AddRow(int64(1), int64(5), "Другое", "a", 1.0, 2.0, "p1", "Проверка", now, now))

	repo := NewReportRepository(mock)
	reports, err := repo.Find(context.Background(), ReportFilter{ExcludeStatus: excluded, Limit: 10})

	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, model.StatusNew, reports[0].Status)
	assert.Equal(t, model.StatusUnderReview, reports[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_Find_ByAuthor(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	author := int64(5)
	mock.ExpectQuery("WHERE author_id = \\$1 ORDER BY").
		WithArgs(author).
		WillReturnRows(pgxmock.NewRows(reportCols))

	repo := NewReportRepository(mock)
	reports, err := repo.Find(context.Background(), ReportFilter{AuthorID: &author})

	assert.NoError(t, err)
	assert.Empty(t, reports)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_CompareAndSetStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("UPDATE reports SET status = \\$1, updated_at = \\$2").
		WithArgs("Новое", now, int64(3), []string{"На модерации"}).
		WillReturnRows(pgxmock.NewRows(reportCols).
			AddRow(int64(3), int64(5), "Пожар", "d", 1.0, 2.0, "p", "Новое", now, now))

	repo := NewReportRepository(mock)
	rep, err := repo.CompareAndSetStatus(context.Background(), 3, []model.Status{model.StatusPendingModeration}, model.StatusNew, now)

	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, model.StatusNew, rep.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_CompareAndSetStatus_StaleStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("UPDATE reports SET status").
		WithArgs("Решено", now, int64(3), []string{"Новое"}).
		WillReturnRows(pgxmock.NewRows(reportCols))

	repo := NewReportRepository(mock)
	rep, err := repo.CompareAndSetStatus(context.Background(), 3, []model.Status{model.StatusNew}, model.StatusResolved, now)

	assert.NoError(t, err)
	assert.Nil(t, rep)
	assert.NoError(t, mock.ExpectationsWereMet())
}
