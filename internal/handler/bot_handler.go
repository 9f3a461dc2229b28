package handler

import (
	"context"
	"errors"
	"strconv"

	"signal_kz/internal/action"
	"signal_kz/internal/errs"
	"signal_kz/internal/model"
	"signal_kz/internal/service"
	"signal_kz/internal/transport"

	"github.com/sirupsen/logrus"
)

// Bot commands
const (
	cmdStart             = "start"
	cmdHelp              = "help"
	cmdReport            = "report"
	cmdMyReports         = "myreports"
	cmdCancel            = "cancel"
	cmdUpdateStatus      = "update_status"
	cmdRegisterOfficial  = "register_official"
	cmdRegisterModerator = "register_moderator"
	cmdPendingReports    = "pending_reports"
	cmdAllReports        = "all_reports"
	cmdSetRole           = "set_role"
	cmdToken             = "token"
)

const (
	textNothingToCancel = "Нет активного действия для отмены."
	textSessionExpired  = "Время ожидания истекло. Начните заново: /report"
	textYourReports     = "Ваши обращения:"
	textPendingReports  = "Обращения на модерации:"
	textActiveReports   = "Активные обращения:"
	textBadReportID     = "Неверный формат ID обращения."
	textNoAccess        = "У вас нет доступа к этому обращению."
	textUnknownButton   = "Эта кнопка больше не действительна."
)

// UpdateHandler consumes normalised messenger updates
type UpdateHandler interface {
	Handle(ctx context.Context, in transport.Inbound)
}

// BotHandler routes bot commands, button presses and free input to the services
type BotHandler struct {
	roles    service.RoleService
	reports  service.ReportService
	sessions service.SessionService
	notifier service.NotificationService
	auth     service.AuthService
	acker    transport.Acknowledger
	log      *logrus.Logger
}

// NewBotHandler creates a new BotHandler
func NewBotHandler(
	roles service.RoleService,
	reports service.ReportService,
	sessions service.SessionService,
	notifier service.NotificationService,
	auth service.AuthService,
	acker transport.Acknowledger,
	log *logrus.Logger,
) *BotHandler {
	return &BotHandler{
		roles:    roles,
		reports:  reports,
		sessions: sessions,
		notifier: notifier,
		auth:     auth,
		acker:    acker,
		log:      log,
	}
}

// Handle processes one update. Failures are reported to the user, never returned.
func (h *BotHandler) Handle(ctx context.Context, in transport.Inbound) {
	if in.IsCallback() {
		if err := h.acker.Ack(ctx, in.CallbackID); err != nil {
			h.log.WithError(err).WithField("user_id", in.UserID).Debug("Failed to acknowledge callback")
		}
	}

	if err := h.roles.EnsureRegistered(ctx, in.UserID, in.Profile); err != nil {
		h.log.WithError(err).WithField("user_id", in.UserID).Error("Failed to register user")
		h.say(ctx, in.ChatID, service.TextGenericFailure)
		return
	}

	switch {
	case in.IsCallback():
		h.handleCallback(ctx, in)
	case in.Command != "":
		h.handleCommand(ctx, in)
	default:
		handled := h.sessions.Handle(ctx, in.UserID, in.ChatID, service.Input{
			Text:     in.Text,
			Location: in.Location,
			PhotoRef: in.PhotoRef,
		})
		if !handled {
			h.say(ctx, in.ChatID, service.TextUnknownInput)
		}
	}
}

func (h *BotHandler) handleCommand(ctx context.Context, in transport.Inbound) {
	switch in.Command {
	case cmdStart:
		h.say(ctx, in.ChatID, service.TextWelcome)
	case cmdHelp:
		role, ok := h.roleOf(ctx, in)
		if !ok {
			return
		}
		h.say(ctx, in.ChatID, service.HelpText(role))
	case cmdReport:
		h.sessions.BeginSubmission(ctx, in.UserID, in.ChatID)
	case cmdCancel:
		if h.sessions.Cancel(in.UserID) {
			h.send(ctx, in.ChatID, transport.Message{Text: service.TextCancelled, RemoveKeyboard: true})
		} else {
			h.say(ctx, in.ChatID, textNothingToCancel)
		}
	case cmdMyReports:
		h.myReports(ctx, in)
	case cmdUpdateStatus:
		h.updateStatus(ctx, in)
	case cmdRegisterOfficial:
		h.selfAssign(ctx, in, model.RoleOfficial, service.TextRegisteredOfficial)
	case cmdRegisterModerator:
		h.selfAssign(ctx, in, model.RoleModerator, service.TextRegisteredModerator)
	case cmdPendingReports:
		h.pendingReports(ctx, in)
	case cmdAllReports:
		h.activeReports(ctx, in)
	case cmdSetRole:
		h.setRole(ctx, in)
	case cmdToken:
		h.token(ctx, in)
	default:
		h.say(ctx, in.ChatID, service.TextUnknownInput)
	}
}

func (h *BotHandler) handleCallback(ctx context.Context, in transport.Inbound) {
	a, err := action.Parse(in.CallbackData)
	if err != nil {
		h.log.WithError(err).WithField("user_id", in.UserID).Warn("Unrecognised button token")
		h.say(ctx, in.ChatID, textUnknownButton)
		return
	}

	switch a.Kind {
	case action.KindSelectCategory, action.KindConfirmSubmission, action.KindCancelSubmission:
		if !h.sessions.Handle(ctx, in.UserID, in.ChatID, service.Input{Action: &a}) {
			h.say(ctx, in.ChatID, textSessionExpired)
		}

	case action.KindModerate:
		role, ok := h.roleOf(ctx, in)
		if !ok {
			return
		}
		report, err := h.reports.Moderate(ctx, a.ReportID, role, a.Decision)
		if err != nil {
			h.fail(ctx, in, err, service.TextModeratorOnly)
			return
		}
		h.say(ctx, in.ChatID, service.ModerationAck(report))

	case action.KindRequestStatusChange:
		role, ok := h.roleOf(ctx, in)
		if !ok {
			return
		}
		if _, err := h.reports.CheckStatusChangeable(ctx, a.ReportID, role); err != nil {
			h.fail(ctx, in, err, service.TextOfficialOnly)
			return
		}
		h.send(ctx, in.ChatID, service.StatusMenu(a.ReportID))

	case action.KindSelectStatus:
		role, ok := h.roleOf(ctx, in)
		if !ok {
			return
		}
		if _, err := h.reports.CheckStatusChangeable(ctx, a.ReportID, role); err != nil {
			h.fail(ctx, in, err, service.TextOfficialOnly)
			return
		}
		h.sessions.BeginStatusComment(ctx, in.UserID, in.ChatID, a.ReportID, a.Status)

	case action.KindViewReport:
		h.viewReport(ctx, in, a.ReportID)
	}
}

func (h *BotHandler) myReports(ctx context.Context, in transport.Inbound) {
	reports, err := h.reports.ListByAuthor(ctx, in.UserID)
	if err != nil {
		h.fail(ctx, in, err, "")
		return
	}
	if len(reports) == 0 {
		h.say(ctx, in.ChatID, service.TextNoReports)
		return
	}
	h.say(ctx, in.ChatID, textYourReports)
	for i := range reports {
		h.send(ctx, in.ChatID, service.OwnReportCard(&reports[i]))
	}
}

func (h *BotHandler) viewReport(ctx context.Context, in transport.Inbound, reportID int64) {
	detail, err := h.reports.View(ctx, reportID)
	if err != nil {
		h.fail(ctx, in, err, "")
		return
	}
	if detail.Report.AuthorID != in.UserID {
		role, ok := h.roleOf(ctx, in)
		if !ok {
			return
		}
		if !role.IsStaff() {
			h.say(ctx, in.ChatID, textNoAccess)
			return
		}
	}
	h.send(ctx, in.ChatID, service.DetailCard(detail))
}

func (h *BotHandler) updateStatus(ctx context.Context, in transport.Inbound) {
	role, ok := h.roleOf(ctx, in)
	if !ok {
		return
	}
	if !role.CanChangeStatus() {
		h.say(ctx, in.ChatID, service.TextOfficialOnly)
		return
	}
	if len(in.Args) == 0 {
		h.say(ctx, in.ChatID, service.TextUpdateStatusUsage)
		return
	}
	reportID, err := strconv.ParseInt(in.Args[0], 10, 64)
	if err != nil || reportID <= 0 {
		h.say(ctx, in.ChatID, textBadReportID)
		return
	}

	if _, err := h.reports.CheckStatusChangeable(ctx, reportID, role); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			h.say(ctx, in.ChatID, service.ReportNotFoundText(reportID))
			return
		}
		h.fail(ctx, in, err, service.TextOfficialOnly)
		return
	}
	h.send(ctx, in.ChatID, service.StatusMenu(reportID))
}

func (h *BotHandler) selfAssign(ctx context.Context, in transport.Inbound, role model.Role, confirmation string) {
	if err := h.roles.SelfAssign(ctx, in.UserID, role); err != nil {
		h.fail(ctx, in, err, "")
		return
	}
	h.say(ctx, in.ChatID, confirmation)
}

func (h *BotHandler) pendingReports(ctx context.Context, in transport.Inbound) {
	role, ok := h.roleOf(ctx, in)
	if !ok {
		return
	}
	reports, err := h.reports.ListPending(ctx, role)
	if err != nil {
		h.fail(ctx, in, err, service.TextModeratorOnly)
		return
	}
	if len(reports) == 0 {
		h.say(ctx, in.ChatID, service.TextNoPending)
		return
	}
	h.say(ctx, in.ChatID, textPendingReports)
	for i := range reports {
		h.send(ctx, in.ChatID, service.PendingCard(&reports[i]))
	}
}

func (h *BotHandler) activeReports(ctx context.Context, in transport.Inbound) {
	role, ok := h.roleOf(ctx, in)
	if !ok {
		return
	}
	reports, err := h.reports.ListActive(ctx, role)
	if err != nil {
		h.fail(ctx, in, err, service.TextOfficialOnly)
		return
	}
	if len(reports) == 0 {
		h.say(ctx, in.ChatID, service.TextNoActive)
		return
	}
	h.say(ctx, in.ChatID, textActiveReports)
	for i := range reports {
		h.send(ctx, in.ChatID, service.ActiveCard(&reports[i]))
	}
}

func (h *BotHandler) setRole(ctx context.Context, in transport.Inbound) {
	if len(in.Args) != 2 {
		h.say(ctx, in.ChatID, service.TextSetRoleUsage+"\n"+service.TextAllowedRoles)
		return
	}
	targetID, err := strconv.ParseInt(in.Args[0], 10, 64)
	if err != nil {
		h.say(ctx, in.ChatID, service.TextBadUserID)
		return
	}

	role, err := h.roles.SetRole(ctx, in.UserID, targetID, in.Args[1])
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			h.say(ctx, in.ChatID, service.UserNotFoundText(targetID))
			return
		}
		h.fail(ctx, in, err, service.TextAdminOnly)
		return
	}

	h.say(ctx, in.ChatID, service.RoleChangedText(targetID, role))
	_ = h.notifier.NotifyUser(ctx, targetID, service.RoleAssignedNotice(role))
}

func (h *BotHandler) token(ctx context.Context, in transport.Inbound) {
	token, _, err := h.auth.IssueToken(ctx, in.UserID)
	if err != nil {
		h.fail(ctx, in, err, service.TextStaffOnly)
		return
	}
	h.say(ctx, in.ChatID, service.TokenText(token, h.auth.TokenLifetimeHours()))
}

// roleOf loads the caller's current role, replying on failure
func (h *BotHandler) roleOf(ctx context.Context, in transport.Inbound) (model.Role, bool) {
	role, err := h.roles.RoleOf(ctx, in.UserID)
	if err != nil {
		h.fail(ctx, in, err, "")
		return "", false
	}
	return role, true
}

// fail tells the user why an operation was refused. forbidden replaces the
// generic permission text when set.
func (h *BotHandler) fail(ctx context.Context, in transport.Inbound, err error, forbidden string) {
	entry := h.log.WithError(err).WithField("user_id", in.UserID)
	if errors.Is(err, errs.ErrPersistence) {
		entry.Error("Operation failed")
	} else {
		entry.Debug("Operation refused")
	}

	text := service.ErrorText(err)
	if forbidden != "" && errors.Is(err, errs.ErrPermission) {
		text = forbidden
	}
	h.say(ctx, in.ChatID, text)
}

func (h *BotHandler) say(ctx context.Context, chatID int64, text string) {
	h.send(ctx, chatID, transport.Message{Text: text})
}

func (h *BotHandler) send(ctx context.Context, chatID int64, msg transport.Message) {
	_ = h.notifier.Reply(ctx, chatID, msg)
}
