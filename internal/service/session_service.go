package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"signal_kz/internal/action"
	"signal_kz/internal/errs"
	"signal_kz/internal/model"
	"signal_kz/internal/session"
	"signal_kz/internal/transport"

	"github.com/sirupsen/logrus"
)

// Input is one user message or button press routed to a session
type Input struct {
	Text     string
	Location *model.Location
	PhotoRef string
	Action   *action.Action
}

// SessionService walks users through multi-step conversations: filing a
// report and commenting on a status change. Input that does not fit the
// current step re-prompts and leaves the session as it was.
type SessionService interface {
	BeginSubmission(ctx context.Context, userID, chatID int64)
	BeginStatusComment(ctx context.Context, userID, chatID, reportID int64, status model.Status)
	// Handle feeds input to the user's session and reports whether one was active.
	Handle(ctx context.Context, userID, chatID int64, in Input) bool
	// Cancel drops the session and reports whether one was active.
	Cancel(userID int64) bool
	Current(userID int64) (session.Session, bool)
}

type sessionService struct {
	sessions *session.Store
	reports  ReportService
	roles    RoleService
	notifier NotificationService
	log      *logrus.Logger
	now      func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(sessions *session.Store, reports ReportService, roles RoleService, notifier NotificationService, log *logrus.Logger) SessionService {
	return &sessionService{
		sessions: sessions,
		reports:  reports,
		roles:    roles,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func (s *sessionService) BeginSubmission(ctx context.Context, userID, chatID int64) {
	unlock := s.sessions.Lock(userID)
	defer unlock()

	s.sessions.Put(session.NewSubmission(userID, s.now()))
	s.reply(ctx, chatID, CategoryPrompt(false))
}

func (s *sessionService) BeginStatusComment(ctx context.Context, userID, chatID, reportID int64, status model.Status) {
	unlock := s.sessions.Lock(userID)
	defer unlock()

	s.sessions.Put(session.NewStatusComment(userID, reportID, status, s.now()))
	s.reply(ctx, chatID, commentPrompt(reportID, status))
}

func (s *sessionService) Cancel(userID int64) bool {
	unlock := s.sessions.Lock(userID)
	defer unlock()

	_, ok := s.sessions.Get(userID)
	s.sessions.Delete(userID)
	return ok
}

func (s *sessionService) Current(userID int64) (session.Session, bool) {
	return s.sessions.Get(userID)
}

func (s *sessionService) Handle(ctx context.Context, userID, chatID int64, in Input) bool {
	unlock := s.sessions.Lock(userID)
	defer unlock()

	sess, ok := s.sessions.Get(userID)
	if !ok || sess.State == session.StateIdle {
		return false
	}

	switch sess.State {
	case session.StateAwaitingCategory:
		s.onCategory(ctx, chatID, sess, in)
	case session.StateAwaitingDescription:
		s.onDescription(ctx, chatID, sess, in)
	case session.StateAwaitingLocation:
		s.onLocation(ctx, chatID, sess, in)
	case session.StateAwaitingPhoto:
		s.onPhoto(ctx, chatID, sess, in)
	case session.StateAwaitingConfirmation:
		s.onConfirmation(ctx, chatID, sess, in)
	case session.StateAwaitingStatusComment:
		s.onStatusComment(ctx, chatID, sess, in)
	}
	return true
}

func (s *sessionService) onCategory(ctx context.Context, chatID int64, sess session.Session, in Input) {
	category := ""
	switch {
	case in.Action != nil && in.Action.Kind == action.KindSelectCategory:
		category = in.Action.Category
	case in.Action == nil && model.IsValidCategory(strings.TrimSpace(in.Text)):
		category = strings.TrimSpace(in.Text)
	}
	if category == "" {
		s.reply(ctx, chatID, CategoryPrompt(true))
		return
	}

	s.sessions.Put(sess.WithCategory(category, s.now()))
	s.reply(ctx, chatID, descriptionPrompt(category))
}

func (s *sessionService) onDescription(ctx context.Context, chatID int64, sess session.Session, in Input) {
	text := strings.TrimSpace(in.Text)
	if in.Action != nil || text == "" {
		s.reply(ctx, chatID, transport.Message{Text: textRepeatDescribe})
		return
	}
	if n := utf8.RuneCountInString(text); n > model.MaxDescriptionLength {
		s.reply(ctx, chatID, tooLongText(textLongDescription, n, model.MaxDescriptionLength))
		return
	}

	s.sessions.Put(sess.WithDescription(text, s.now()))
	s.reply(ctx, chatID, locationPrompt(false))
}

func (s *sessionService) onLocation(ctx context.Context, chatID int64, sess session.Session, in Input) {
	if in.Location == nil || !validCoordinates(*in.Location) {
		s.reply(ctx, chatID, locationPrompt(true))
		return
	}

	s.sessions.Put(sess.WithLocation(*in.Location, s.now()))
	s.reply(ctx, chatID, transport.Message{Text: textSendPhoto, RemoveKeyboard: true})
}

func validCoordinates(loc model.Location) bool {
	return loc.Latitude >= -90 && loc.Latitude <= 90 && loc.Longitude >= -180 && loc.Longitude <= 180
}

func (s *sessionService) onPhoto(ctx context.Context, chatID int64, sess session.Session, in Input) {
	if in.PhotoRef == "" {
		s.reply(ctx, chatID, transport.Message{Text: textRepeatPhoto})
		return
	}

	next := sess.WithPhoto(in.PhotoRef, s.now())
	s.sessions.Put(next)
	s.reply(ctx, chatID, confirmationPreview(next))
}

func (s *sessionService) onConfirmation(ctx context.Context, chatID int64, sess session.Session, in Input) {
	if in.Action == nil {
		s.reply(ctx, chatID, repeatConfirmPrompt())
		return
	}

	switch in.Action.Kind {
	case action.KindCancelSubmission:
		s.sessions.Delete(sess.UserID)
		s.reply(ctx, chatID, transport.Message{Text: TextSubmissionAborted})

	case action.KindConfirmSubmission:
		report, err := s.reports.Submit(ctx, sess.Draft())
		if err != nil {
			s.log.WithError(err).WithField("user_id", sess.UserID).Error("Failed to submit report")
			if !errors.Is(err, errs.ErrPersistence) {
				s.sessions.Delete(sess.UserID)
			}
			s.reply(ctx, chatID, transport.Message{Text: TextGenericFailure})
			return
		}
		s.sessions.Delete(sess.UserID)
		s.reply(ctx, chatID, transport.Message{Text: submittedText(report.ID)})

	default:
		s.reply(ctx, chatID, repeatConfirmPrompt())
	}
}

func (s *sessionService) onStatusComment(ctx context.Context, chatID int64, sess session.Session, in Input) {
	comment := strings.TrimSpace(in.Text)
	if in.Action != nil || comment == "" {
		s.reply(ctx, chatID, transport.Message{Text: textRepeatComment})
		return
	}
	if n := utf8.RuneCountInString(comment); n > model.MaxCommentLength {
		s.reply(ctx, chatID, tooLongText(textLongComment, n, model.MaxCommentLength))
		return
	}

	// the role may have changed since the status was picked
	role, err := s.roles.RoleOf(ctx, sess.UserID)
	if err != nil {
		s.reply(ctx, chatID, transport.Message{Text: TextGenericFailure})
		return
	}

	report, err := s.reports.ChangeStatus(ctx, sess.ReportID, sess.UserID, role, sess.NewStatus, comment)
	if err != nil {
		if !errors.Is(err, errs.ErrPersistence) {
			s.sessions.Delete(sess.UserID)
		}
		s.reply(ctx, chatID, transport.Message{Text: ErrorText(err)})
		return
	}

	s.sessions.Delete(sess.UserID)
	s.reply(ctx, chatID, transport.Message{Text: statusChangedAck(report)})
}

func (s *sessionService) reply(ctx context.Context, chatID int64, msg transport.Message) {
	_ = s.notifier.Reply(ctx, chatID, msg)
}

// ErrorText turns a service error into a message for the user
func ErrorText(err error) string {
	switch {
	case errors.Is(err, ErrReportNotFound):
		return TextReportNotFound
	case errors.Is(err, ErrUserNotFound):
		return "Пользователь не найден."
	case errors.Is(err, ErrReportClosed):
		return TextReportClosed
	case errors.Is(err, ErrNotApproved):
		return TextReportNotApproved
	case errors.Is(err, ErrNotPending):
		return TextAlreadyModerated
	case errors.Is(err, ErrConcurrentChange):
		return TextConcurrentChange
	case errors.Is(err, ErrInvalidStatus):
		return TextInvalidStatus
	case errors.Is(err, ErrCommentTooLong):
		return TextCommentTooLong
	case errors.Is(err, ErrInvalidRole):
		return TextAllowedRoles
	case errors.Is(err, errs.ErrPermission):
		return "У вас нет прав для этого действия."
	default:
		return TextGenericFailure
	}
}
