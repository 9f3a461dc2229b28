package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"signal_kz/internal/errs"
	"signal_kz/internal/logger"
	"signal_kz/internal/metrics"
	"signal_kz/internal/model"
	"signal_kz/internal/repository"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 14, 10, 30, 0, 0, time.UTC)

type reportFixture struct {
	reports  *MockReportRepository
	updates  *MockStatusUpdateRepository
	store    *fakeStore
	notifier *fakeNotifier
	metrics  *metrics.Metrics
	svc      ReportService
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		reports:  new(MockReportRepository),
		updates:  new(MockStatusUpdateRepository),
		notifier: &fakeNotifier{},
		metrics:  metrics.New(nil),
	}
	f.store = newFakeStore(new(MockUserRepository), f.reports, f.updates)
	svc := NewReportService(f.store, f.notifier, f.metrics, logger.Discard()).(*reportService)
	svc.now = func() time.Time { return fixedNow }
	f.svc = svc
	return f
}

func validDraft() model.Draft {
	return model.Draft{
		AuthorID:    42,
		Category:    "Незаконная свалка",
		Description: "  Свалка у реки  ",
		Location:    model.Location{Latitude: 43.2389, Longitude: 76.8897},
		PhotoRef:    "AgACAgIAAxkBAAIB",
	}
}

func reportWithStatus(id int64, status model.Status) *model.Report {
	return &model.Report{
		ID:          id,
		AuthorID:    42,
		Category:    "Незаконная свалка",
		Description: "Свалка у реки",
		Location:    model.Location{Latitude: 43.2389, Longitude: 76.8897},
		PhotoRef:    "AgACAgIAAxkBAAIB",
		Status:      status,
		CreatedAt:   fixedNow.Add(-time.Hour),
		UpdatedAt:   fixedNow.Add(-time.Hour),
	}
}

func TestReportService_Submit(t *testing.T) {
	f := newReportFixture()
	f.reports.On("Create", mock.Anything, mock.MatchedBy(func(r *model.Report) bool {
		return r.AuthorID == 42 &&
			r.Status == model.StatusPendingModeration &&
			r.Description == "Свалка у реки" &&
			r.CreatedAt.Equal(fixedNow)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Report).ID = 17
	}).Return(nil)

	report, err := f.svc.Submit(context.Background(), validDraft())
	require.NoError(t, err)
	assert.EqualValues(t, 17, report.ID)
	assert.Equal(t, model.StatusPendingModeration, report.Status)

	require.Len(t, f.notifier.cohorts, 1)
	alert := f.notifier.cohorts[0]
	assert.Equal(t, model.RoleModerator, alert.role)
	assert.Equal(t, "AgACAgIAAxkBAAIB", alert.msg.PhotoRef)
	assert.Contains(t, alert.msg.Text, "№17")
	assert.Equal(t, "mod:approve:17", alert.msg.Buttons[0][0].Data)
	assert.Equal(t, "mod:reject:17", alert.msg.Buttons[0][1].Data)
	assert.Contains(t, alert.msg.Buttons[1][0].URL, "query=43.2389,76.8897")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReportsSubmitted))
}

func TestReportService_Submit_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		draft func(d *model.Draft)
	}{
		{"unknown category", func(d *model.Draft) { d.Category = "Шум" }},
		{"blank description", func(d *model.Draft) { d.Description = "   " }},
		{"missing photo", func(d *model.Draft) { d.PhotoRef = "" }},
		{"latitude out of range", func(d *model.Draft) { d.Location.Latitude = 91 }},
		{"overlong description", func(d *model.Draft) { d.Description = strings.Repeat("д", model.MaxDescriptionLength+1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReportFixture()
			d := validDraft()
			tt.draft(&d)

			_, err := f.svc.Submit(context.Background(), d)
			assert.ErrorIs(t, err, errs.ErrValidation)
			f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			assert.Empty(t, f.notifier.cohorts)
		})
	}
}

func TestReportService_Submit_StoreFailure(t *testing.T) {
	f := newReportFixture()
	f.reports.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	_, err := f.svc.Submit(context.Background(), validDraft())
	assert.ErrorIs(t, err, errs.ErrPersistence)
	assert.Empty(t, f.notifier.cohorts)
}

func TestReportService_Moderate_Approve(t *testing.T) {
	f := newReportFixture()
	f.reports.On("FindByID", mock.Anything, int64(5)).Return(reportWithStatus(5, model.StatusPendingModeration), nil)
	f.reports.On("CompareAndSetStatus", mock.Anything, int64(5),
		[]model.Status{model.StatusPendingModeration}, model.StatusNew, fixedNow).
		Return(reportWithStatus(5, model.StatusNew), nil)

	report, err := f.svc.Moderate(context.Background(), 5, model.RoleModerator, model.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNew, report.Status)

	require.Len(t, f.notifier.cohorts, 1)
	assert.Equal(t, model.RoleOfficial, f.notifier.cohorts[0].role)
	assert.Equal(t, "chg:5", f.notifier.cohorts[0].msg.Buttons[1][0].Data)

	require.Len(t, f.notifier.users, 1)
	assert.EqualValues(t, 42, f.notifier.users[0].to)
	assert.Contains(t, f.notifier.users[0].msg.Text, "одобрено")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReportTransitions.WithLabelValues(string(model.StatusNew))))
}

func TestReportService_Moderate_Reject(t *testing.T) {
	f := newReportFixture()
	f.reports.On("FindByID", mock.Anything, int64(5)).Return(reportWithStatus(5, model.StatusPendingModeration), nil)
	f.reports.On("CompareAndSetStatus", mock.Anything, int64(5),
		[]model.Status{model.StatusPendingModeration}, model.StatusRejectedByModerator, fixedNow).
		Return(reportWithStatus(5, model.StatusRejectedByModerator), nil)

	report, err := f.svc.Moderate(context.Background(), 5, model.RoleAdmin, model.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejectedByModerator, report.Status)

	assert.Empty(t, f.notifier.cohorts)
	require.Len(t, f.notifier.users, 1)
	assert.Contains(t, f.notifier.users[0].msg.Text, "отклонено")
}

func TestReportService_Moderate_Refusals(t *testing.T) {
	tests := []struct {
		name      string
		role      model.Role
		decision  model.Decision
		setup     func(*MockReportRepository)
		expectErr error
	}{
		{
			name:      "citizen cannot moderate",
			role:      model.RoleCitizen,
			decision:  model.DecisionApprove,
			expectErr: errs.ErrPermission,
		},
		{
			name:      "official cannot moderate",
			role:      model.RoleOfficial,
			decision:  model.DecisionReject,
			expectErr: errs.ErrPermission,
		},
		{
			name:      "unknown decision",
			role:      model.RoleModerator,
			decision:  model.Decision("maybe"),
			expectErr: errs.ErrValidation,
		},
		{
			name:     "missing report",
			role:     model.RoleModerator,
			decision: model.DecisionApprove,
			setup: func(r *MockReportRepository) {
				r.On("FindByID", mock.Anything, int64(5)).Return(nil, nil)
			},
			expectErr: errs.ErrNotFound,
		},
		{
			name:     "already moderated",
			role:     model.RoleModerator,
			decision: model.DecisionApprove,
			setup: func(r *MockReportRepository) {
				r.On("FindByID", mock.Anything, int64(5)).Return(reportWithStatus(5, model.StatusNew), nil)
			},
			expectErr: ErrNotPending,
		},
		{
			name:     "lost the race",
			role:     model.RoleModerator,
			decision: model.DecisionReject,
			setup: func(r *MockReportRepository) {
				r.On("FindByID", mock.Anything, int64(5)).Return(reportWithStatus(5, model.StatusPendingModeration), nil)
				r.On("CompareAndSetStatus", mock.Anything, int64(5), mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
			},
			expectErr: ErrNotPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReportFixture()
			if tt.setup != nil {
				tt.setup(f.reports)
			}

			_, err := f.svc.Moderate(context.Background(), 5, tt.role, tt.decision)
			assert.ErrorIs(t, err, tt.expectErr)
			assert.Empty(t, f.notifier.cohorts)
			assert.Empty(t, f.notifier.users)
		})
	}
}

func TestReportService_ChangeStatus(t *testing.T) {
	f := newReportFixture()
	f.reports.On("FindByID", mock.Anything, int64(9)).Return(reportWithStatus(9, model.StatusNew), nil)
	f.reports.On("CompareAndSetStatus", mock.Anything, int64(9),
		[]model.Status{model.StatusNew}, model.StatusResolved, fixedNow).
		Return(reportWithStatus(9, model.StatusResolved), nil)
	f.updates.On("Append", mock.Anything, mock.MatchedBy(func(e *model.StatusUpdate) bool {
		return e.ReportID == 9 && e.OfficialID == 77 && e.Status == model.StatusResolved &&
			e.Comment == "Мусор вывезен" && e.CreatedAt.Equal(fixedNow)
	})).Return(nil)

	report, err := f.svc.ChangeStatus(context.Background(), 9, 77, model.RoleOfficial, model.StatusResolved, " Мусор вывезен ")
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, report.Status)
	assert.Equal(t, 1, f.store.commits)

	require.Len(t, f.notifier.users, 1)
	notice := f.notifier.users[0]
	assert.EqualValues(t, 42, notice.to)
	assert.Contains(t, notice.msg.Text, "Решено")
	assert.Contains(t, notice.msg.Text, "Мусор вывезен")
	f.updates.AssertExpectations(t)
}

func TestReportService_ChangeStatus_Refusals(t *testing.T) {
	tests := []struct {
		name      string
		role      model.Role
		status    model.Status
		current   *model.Report
		casResult *model.Report
		expectErr error
	}{
		{
			name:      "moderator cannot change status",
			role:      model.RoleModerator,
			status:    model.StatusInProgress,
			expectErr: errs.ErrPermission,
		},
		{
			name:      "status outside the official set",
			role:      model.RoleOfficial,
			status:    model.StatusNew,
			expectErr: errs.ErrValidation,
		},
		{
			name:      "missing report",
			role:      model.RoleOfficial,
			status:    model.StatusInProgress,
			expectErr: errs.ErrNotFound,
		},
		{
			name:      "terminal report",
			role:      model.RoleOfficial,
			status:    model.StatusInProgress,
			current:   reportWithStatus(9, model.StatusResolved),
			expectErr: ErrReportClosed,
		},
		{
			name:      "rejected by moderator",
			role:      model.RoleAdmin,
			status:    model.StatusConfirmed,
			current:   reportWithStatus(9, model.StatusRejectedByModerator),
			expectErr: ErrReportClosed,
		},
		{
			name:      "not yet moderated",
			role:      model.RoleOfficial,
			status:    model.StatusInProgress,
			current:   reportWithStatus(9, model.StatusPendingModeration),
			expectErr: ErrNotApproved,
		},
		{
			name:      "concurrent change",
			role:      model.RoleOfficial,
			status:    model.StatusUnderReview,
			current:   reportWithStatus(9, model.StatusInProgress),
			expectErr: ErrConcurrentChange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReportFixture()
			f.reports.On("FindByID", mock.Anything, int64(9)).Return(tt.current, nil).Maybe()
			f.reports.On("CompareAndSetStatus", mock.Anything, int64(9), mock.Anything, mock.Anything, mock.Anything).
				Return(tt.casResult, nil).Maybe()

			_, err := f.svc.ChangeStatus(context.Background(), 9, 77, tt.role, tt.status, "")
			assert.ErrorIs(t, err, tt.expectErr)
			f.updates.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
			assert.Empty(t, f.notifier.users)
			assert.Zero(t, f.store.commits)
		})
	}
}

func TestReportService_ChangeStatus_CommentTooLong(t *testing.T) {
	f := newReportFixture()

	_, err := f.svc.ChangeStatus(context.Background(), 9, 77, model.RoleOfficial, model.StatusResolved,
		strings.Repeat("к", model.MaxCommentLength+1))

	assert.ErrorIs(t, err, ErrCommentTooLong)
	assert.ErrorIs(t, err, errs.ErrValidation)
	f.reports.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	assert.Zero(t, f.store.commits)
}

func TestReportService_ChangeStatus_AuditFailureAborts(t *testing.T) {
	f := newReportFixture()
	f.reports.On("FindByID", mock.Anything, int64(9)).Return(reportWithStatus(9, model.StatusNew), nil)
	f.reports.On("CompareAndSetStatus", mock.Anything, int64(9), mock.Anything, model.StatusInProgress, fixedNow).
		Return(reportWithStatus(9, model.StatusInProgress), nil)
	f.updates.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := f.svc.ChangeStatus(context.Background(), 9, 77, model.RoleOfficial, model.StatusInProgress, "")
	assert.ErrorIs(t, err, errs.ErrPersistence)
	assert.Equal(t, 1, f.store.rollbacks)
	assert.Empty(t, f.notifier.users)
}

func TestReportService_CheckStatusChangeable(t *testing.T) {
	f := newReportFixture()
	f.reports.On("FindByID", mock.Anything, int64(9)).Return(reportWithStatus(9, model.StatusInProgress), nil)
	f.reports.On("FindByID", mock.Anything, int64(10)).Return(reportWithStatus(10, model.StatusRejected), nil)

	report, err := f.svc.CheckStatusChangeable(context.Background(), 9, model.RoleOfficial)
	require.NoError(t, err)
	assert.EqualValues(t, 9, report.ID)

	_, err = f.svc.CheckStatusChangeable(context.Background(), 10, model.RoleOfficial)
	assert.ErrorIs(t, err, ErrReportClosed)

	_, err = f.svc.CheckStatusChangeable(context.Background(), 9, model.RoleCitizen)
	assert.ErrorIs(t, err, errs.ErrPermission)
}

func TestReportService_View(t *testing.T) {
	f := newReportFixture()
	history := []model.StatusUpdate{
		{ReportID: 9, Status: model.StatusConfirmed, OfficialName: "Ерлан Серикович"},
		{ReportID: 9, Status: model.StatusInProgress},
	}
	f.reports.On("FindByID", mock.Anything, int64(9)).Return(reportWithStatus(9, model.StatusConfirmed), nil)
	f.reports.On("FindByID", mock.Anything, int64(404)).Return(nil, nil)
	f.updates.On("HistoryFor", mock.Anything, int64(9), 3).Return(history, nil)

	detail, err := f.svc.View(context.Background(), 9)
	require.NoError(t, err)
	assert.EqualValues(t, 9, detail.Report.ID)
	assert.Equal(t, history, detail.History)

	_, err = f.svc.View(context.Background(), 404)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReportService_History(t *testing.T) {
	f := newReportFixture()
	f.reports.On("FindByID", mock.Anything, int64(9)).Return(reportWithStatus(9, model.StatusConfirmed), nil)
	f.updates.On("HistoryFor", mock.Anything, int64(9), 0).Return([]model.StatusUpdate{{ReportID: 9}}, nil)

	history, err := f.svc.History(context.Background(), 9)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestReportService_Listings(t *testing.T) {
	f := newReportFixture()
	var author int64 = 42
	f.reports.On("Find", mock.Anything, repository.ReportFilter{AuthorID: &author}).
		Return([]model.Report{*reportWithStatus(2, model.StatusNew), *reportWithStatus(1, model.StatusResolved)}, nil)
	f.reports.On("Find", mock.Anything, repository.ReportFilter{Statuses: []model.Status{model.StatusPendingModeration}}).
		Return([]model.Report{*reportWithStatus(3, model.StatusPendingModeration)}, nil)
	f.reports.On("Find", mock.Anything, mock.MatchedBy(func(filter repository.ReportFilter) bool {
		excluded := strings.Join(model.StatusStrings(filter.ExcludeStatus), "|")
		return filter.Limit == 10 &&
			strings.Contains(excluded, string(model.StatusPendingModeration)) &&
			strings.Contains(excluded, string(model.StatusResolved)) &&
			strings.Contains(excluded, string(model.StatusRejected)) &&
			strings.Contains(excluded, string(model.StatusRejectedByModerator))
	})).Return([]model.Report{*reportWithStatus(4, model.StatusInProgress)}, nil)

	own, err := f.svc.ListByAuthor(context.Background(), 42)
	require.NoError(t, err)
	assert.Len(t, own, 2)

	pending, err := f.svc.ListPending(context.Background(), model.RoleModerator)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	active, err := f.svc.ListActive(context.Background(), model.RoleOfficial)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	_, err = f.svc.ListPending(context.Background(), model.RoleOfficial)
	assert.ErrorIs(t, err, errs.ErrPermission)
	_, err = f.svc.ListActive(context.Background(), model.RoleModerator)
	assert.ErrorIs(t, err, errs.ErrPermission)
}
