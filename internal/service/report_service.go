package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"signal_kz/internal/metrics"
	"signal_kz/internal/model"
	"signal_kz/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// historyPreview is the number of status updates shown with a report
const historyPreview = 3

// activeListLimit caps the officials' list of open reports
const activeListLimit = 10

// ReportService drives a report from submission through moderation to a
// terminal status. Every transition is a conditional write, so concurrent
// actors cannot both win.
type ReportService interface {
	Submit(ctx context.Context, draft model.Draft) (*model.Report, error)
	Moderate(ctx context.Context, reportID int64, actorRole model.Role, decision model.Decision) (*model.Report, error)
	ChangeStatus(ctx context.Context, reportID int64, actorID int64, actorRole model.Role, newStatus model.Status, comment string) (*model.Report, error)
	// CheckStatusChangeable verifies an official may start changing the report's status.
	CheckStatusChangeable(ctx context.Context, reportID int64, actorRole model.Role) (*model.Report, error)

	View(ctx context.Context, reportID int64) (*model.ReportDetail, error)
	History(ctx context.Context, reportID int64) ([]model.StatusUpdate, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]model.Report, error)
	ListPending(ctx context.Context, actorRole model.Role) ([]model.Report, error)
	ListActive(ctx context.Context, actorRole model.Role) ([]model.Report, error)
}

type reportService struct {
	store    repository.Store
	notifier NotificationService
	metrics  *metrics.Metrics
	validate *validator.Validate
	log      *logrus.Logger
	now      func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(store repository.Store, notifier NotificationService, m *metrics.Metrics, log *logrus.Logger) ReportService {
	return &reportService{
		store:    store,
		notifier: notifier,
		metrics:  m,
		validate: NewValidator(),
		log:      log,
		now:      time.Now,
	}
}

// NewValidator returns a validator that also knows the "category" rule
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return model.IsValidCategory(fl.Field().String())
	})
	return v
}

func (s *reportService) Submit(ctx context.Context, draft model.Draft) (*model.Report, error) {
	draft.Description = strings.TrimSpace(draft.Description)
	if err := s.validate.Struct(draft); err != nil {
		return nil, fmt.Errorf("%w: incomplete report: %v", ErrInvalidDraft, err)
	}

	now := s.now()
	report := &model.Report{
		AuthorID:    draft.AuthorID,
		Category:    draft.Category,
		Description: draft.Description,
		Location:    draft.Location,
		PhotoRef:    draft.PhotoRef,
		Status:      model.StatusPendingModeration,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Repos().Reports.Create(ctx, report); err != nil {
		s.log.WithError(err).WithField("user_id", draft.AuthorID).Error("Failed to save report")
		return nil, persistence("create report", err)
	}

	s.metrics.ReportsSubmitted.Inc()
	s.log.WithFields(logrus.Fields{"report_id": report.ID, "user_id": report.AuthorID}).Info("Report submitted")

	s.notifier.NotifyCohort(ctx, model.RoleModerator, ModeratorAlert(report))
	return report, nil
}

func (s *reportService) Moderate(ctx context.Context, reportID int64, actorRole model.Role, decision model.Decision) (*model.Report, error) {
	if !actorRole.CanModerate() {
		return nil, ErrForbidden
	}

	var target model.Status
	switch decision {
	case model.DecisionApprove:
		target = model.StatusNew
	case model.DecisionReject:
		target = model.StatusRejectedByModerator
	default:
		return nil, ErrInvalidDecision
	}

	reports := s.store.Repos().Reports
	report, err := reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, persistence("load report", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}
	if report.Status != model.StatusPendingModeration {
		return nil, ErrNotPending
	}

	updated, err := reports.CompareAndSetStatus(ctx, reportID, []model.Status{model.StatusPendingModeration}, target, s.now())
	if err != nil {
		s.log.WithError(err).WithField("report_id", reportID).Error("Failed to moderate report")
		return nil, persistence("moderate report", err)
	}
	if updated == nil {
		// another moderator got there first
		return nil, ErrNotPending
	}

	s.metrics.RecordTransition(string(target))
	s.log.WithFields(logrus.Fields{"report_id": reportID, "status": target}).Info("Report moderated")

	if target == model.StatusNew {
		s.notifier.NotifyCohort(ctx, model.RoleOfficial, OfficialAlert(updated))
		_ = s.notifier.NotifyUser(ctx, updated.AuthorID, approvedNotice(updated.ID))
	} else {
		_ = s.notifier.NotifyUser(ctx, updated.AuthorID, rejectedNotice(updated.ID))
	}
	return updated, nil
}

func (s *reportService) CheckStatusChangeable(ctx context.Context, reportID int64, actorRole model.Role) (*model.Report, error) {
	if !actorRole.CanChangeStatus() {
		return nil, ErrForbidden
	}
	report, err := s.store.Repos().Reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, persistence("load report", err)
	}
	if err := checkChangeable(report); err != nil {
		return nil, err
	}
	return report, nil
}

func checkChangeable(report *model.Report) error {
	switch {
	case report == nil:
		return ErrReportNotFound
	case report.Status.IsTerminal():
		return ErrReportClosed
	case report.Status == model.StatusPendingModeration:
		return ErrNotApproved
	}
	return nil
}

func (s *reportService) ChangeStatus(ctx context.Context, reportID int64, actorID int64, actorRole model.Role, newStatus model.Status, comment string) (*model.Report, error) {
	if !actorRole.CanChangeStatus() {
		return nil, ErrForbidden
	}
	status, ok := model.ParseOfficialStatus(string(newStatus))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > model.MaxCommentLength {
		return nil, ErrCommentTooLong
	}

	var updated *model.Report
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		report, err := repos.Reports.FindByID(ctx, reportID)
		if err != nil {
			return persistence("load report", err)
		}
		if err := checkChangeable(report); err != nil {
			return err
		}

		now := s.now()
		updated, err = repos.Reports.CompareAndSetStatus(ctx, reportID, []model.Status{report.Status}, status, now)
		if err != nil {
			return persistence("update report status", err)
		}
		if updated == nil {
			return ErrConcurrentChange
		}

		entry := &model.StatusUpdate{
			ReportID:   reportID,
			OfficialID: actorID,
			Status:     status,
			Comment:    comment,
			CreatedAt:  now,
		}
		if err := repos.StatusUpdates.Append(ctx, entry); err != nil {
			return persistence("append status update", err)
		}
		return nil
	})
	if err != nil {
		err = classify("change report status", err)
		s.log.WithError(err).WithFields(logrus.Fields{"report_id": reportID, "user_id": actorID}).Warn("Status change refused")
		return nil, err
	}

	s.metrics.RecordTransition(string(status))
	s.log.WithFields(logrus.Fields{"report_id": reportID, "status": status, "user_id": actorID}).Info("Report status changed")

	_ = s.notifier.NotifyUser(ctx, updated.AuthorID, statusChangedNotice(updated, comment))
	return updated, nil
}

func (s *reportService) View(ctx context.Context, reportID int64) (*model.ReportDetail, error) {
	repos := s.store.Repos()
	report, err := repos.Reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, persistence("load report", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}

	history, err := repos.StatusUpdates.HistoryFor(ctx, reportID, historyPreview)
	if err != nil {
		return nil, persistence("load status history", err)
	}
	return &model.ReportDetail{Report: *report, History: history}, nil
}

func (s *reportService) History(ctx context.Context, reportID int64) ([]model.StatusUpdate, error) {
	repos := s.store.Repos()
	report, err := repos.Reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, persistence("load report", err)
	}
	if report == nil {
		return nil, ErrReportNotFound
	}

	history, err := repos.StatusUpdates.HistoryFor(ctx, reportID, 0)
	if err != nil {
		return nil, persistence("load status history", err)
	}
	return history, nil
}

func (s *reportService) ListByAuthor(ctx context.Context, authorID int64) ([]model.Report, error) {
	reports, err := s.store.Repos().Reports.Find(ctx, repository.ReportFilter{AuthorID: &authorID})
	if err != nil {
		return nil, persistence("list own reports", err)
	}
	return reports, nil
}

func (s *reportService) ListPending(ctx context.Context, actorRole model.Role) ([]model.Report, error) {
	if !actorRole.CanModerate() {
		return nil, ErrForbidden
	}
	reports, err := s.store.Repos().Reports.Find(ctx, repository.ReportFilter{
		Statuses: []model.Status{model.StatusPendingModeration},
	})
	if err != nil {
		return nil, persistence("list pending reports", err)
	}
	return reports, nil
}

func (s *reportService) ListActive(ctx context.Context, actorRole model.Role) ([]model.Report, error) {
	if !actorRole.CanChangeStatus() {
		return nil, ErrForbidden
	}
	exclude := append([]model.Status{model.StatusPendingModeration}, model.TerminalStatuses...)
	reports, err := s.store.Repos().Reports.Find(ctx, repository.ReportFilter{
		ExcludeStatus: exclude,
		Limit:         activeListLimit,
	})
	if err != nil {
		return nil, persistence("list active reports", err)
	}
	return reports, nil
}
