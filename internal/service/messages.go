package service

import (
	"fmt"
	"strings"

	"signal_kz/internal/action"
	"signal_kz/internal/model"
	"signal_kz/internal/session"
	"signal_kz/internal/transport"
)

// User-facing texts and message layouts. The product speaks Russian.

const dateLayout = "02.01.2006 15:04"

const (
	TextWelcome = "Добро пожаловать в бот Signal KZ!\n\n" +
		"Здесь вы можете сообщить об экологических нарушениях на территории Казахстана.\n\n" +
		"Для подачи обращения используйте команду /report\n" +
		"Для просмотра ваших обращений используйте /myreports\n" +
		"Для получения помощи используйте /help"
	TextCancelled         = "Действие отменено."
	TextSubmissionAborted = "Отправка обращения отменена."
	TextNoReports         = "У вас пока нет обращений."
	TextNoPending         = "На данный момент нет обращений, ожидающих модерации."
	TextNoActive          = "На данный момент нет активных обращений."
	TextGenericFailure    = "Произошла ошибка. Пожалуйста, попробуйте позже."
	TextUnknownInput      = "Не понимаю это сообщение. Используйте /help, чтобы увидеть список команд."
	TextModeratorOnly     = "Эта команда доступна только для модераторов."
	TextOfficialOnly      = "Эта функция доступна только для представителей госорганов."
	TextAdminOnly         = "Эта команда доступна только для администраторов."
	TextStaffOnly         = "Эта команда доступна только для модераторов, госслужащих и администраторов."
	TextReportNotFound    = "Обращение не найдено."
	TextReportClosed      = "Обращение уже закрыто, изменить его статус нельзя."
	TextReportNotApproved = "Обращение ещё не прошло модерацию."
	TextAlreadyModerated  = "Обращение уже рассмотрено модератором."
	TextConcurrentChange  = "Статус обращения только что изменился. Обновите данные и попробуйте снова."
	TextUpdateStatusUsage = "Пожалуйста, укажите ID обращения: /update_status ID"
	TextSetRoleUsage      = "Использование: /set_role USER_ID ROLE"
	TextBadUserID         = "Неверный формат ID пользователя."
	TextAllowedRoles      = "Допустимые роли: citizen, moderator, official, admin"
	TextInvalidStatus     = "Недопустимый статус."
	TextCommentTooLong    = "Комментарий слишком длинный."
	TextRegisteredOfficial = "Вы успешно зарегистрированы как представитель госоргана.\n" +
		"Теперь вы будете получать уведомления о новых обращениях и сможете обновлять их статусы."
	TextRegisteredModerator = "Вы успешно зарегистрированы как модератор.\n" +
		"Теперь вы будете получать уведомления о новых обращениях и сможете одобрять или отклонять их."

	textChooseCategory   = "Выберите категорию нарушения:"
	textRepeatCategory   = "Пожалуйста, выберите категорию из списка ниже."
	textDescribe         = "Теперь напишите краткое описание проблемы."
	textRepeatDescribe   = "Пожалуйста, отправьте текстовое описание проблемы."
	textShareLocation    = "Пожалуйста, отправьте вашу геолокацию, чтобы указать место нарушения."
	textRepeatLocation   = "Нужна геолокация: нажмите кнопку «Отправить геолокацию»."
	textSendPhoto        = "Теперь, пожалуйста, отправьте фото нарушения."
	textRepeatPhoto      = "Пожалуйста, отправьте фотографию нарушения."
	textRepeatConfirm    = "Пожалуйста, подтвердите или отмените отправку обращения кнопками."
	textRepeatComment    = "Пожалуйста, напишите комментарий к обновлению статуса текстом."
	textLongDescription  = "Описание слишком длинное: %d симв. при максимуме %d. Пожалуйста, сократите его и отправьте снова."
	textLongComment      = "Комментарий слишком длинный: %d симв. при максимуме %d. Пожалуйста, сократите его и отправьте снова."
	labelShareLocation   = "Отправить геолокацию"
	labelConfirm         = "Да, отправить"
	labelCancel          = "Отменить"
	labelApprove         = "Одобрить"
	labelReject          = "Отклонить"
	labelOpenMap         = "Открыть на карте"
	labelChangeStatus    = "Изменить статус"
	defaultOfficialName  = "Госслужащий"
	detailHistoryHeading = "История изменений статуса:"
)

// HelpText lists the commands available to role
func HelpText(role model.Role) string {
	var b strings.Builder
	b.WriteString("Доступные команды:\n\n" +
		"/start - Начать работу с ботом\n" +
		"/report - Отправить новое обращение о нарушении\n" +
		"/myreports - Просмотреть свои обращения\n" +
		"/cancel - Отменить текущее действие\n" +
		"/help - Показать эту справку\n\n")

	if role.CanModerate() {
		b.WriteString("Для модераторов:\n" +
			"/pending_reports - Просмотреть обращения на модерации\n\n")
	}
	if role.CanChangeStatus() {
		b.WriteString("Для госслужащих:\n" +
			"/update_status ID - Обновить статус обращения\n" +
			"/all_reports - Просмотреть все активные обращения\n\n")
	}
	if role.IsStaff() {
		b.WriteString("/token - Получить ключ доступа к панели управления\n\n")
	}
	if role == model.RoleAdmin {
		b.WriteString("Для администраторов:\n" +
			"/set_role ID ROLE - Назначить роль пользователю (citizen, moderator, official, admin)\n" +
			"/register_official - Регистрация госслужащего\n" +
			"/register_moderator - Регистрация модератора\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func button(label string, a action.Action) transport.Button {
	return transport.Button{Label: label, Data: a.Encode()}
}

func mapButton(loc model.Location) transport.Button {
	return transport.Button{Label: labelOpenMap, URL: loc.MapURL()}
}

// excerpt bounds free text shown inside a photo caption
func excerpt(s string, limit int) string {
	return transport.Clip(s, limit)
}

func tooLongText(format string, got, limit int) transport.Message {
	return transport.Message{Text: fmt.Sprintf(format, got, limit)}
}

func coords(loc model.Location) string {
	return fmt.Sprintf("%v, %v", loc.Latitude, loc.Longitude)
}

// CategoryPrompt asks for the violation category
func CategoryPrompt(repeat bool) transport.Message {
	text := textChooseCategory
	if repeat {
		text = textRepeatCategory
	}
	rows := make([][]transport.Button, 0, len(model.Categories))
	for _, c := range model.Categories {
		rows = append(rows, transport.Row(button(c, action.SelectCategory(c))))
	}
	return transport.Message{Text: text, Buttons: rows}
}

func descriptionPrompt(category string) transport.Message {
	return transport.Message{Text: fmt.Sprintf("Выбрана категория: %s\n\n%s", category, textDescribe)}
}

func locationPrompt(repeat bool) transport.Message {
	text := textShareLocation
	if repeat {
		text = textRepeatLocation
	}
	return transport.Message{Text: text, RequestLocation: labelShareLocation}
}

func confirmationPreview(s session.Session) transport.Message {
	loc := model.Location{}
	if s.Location != nil {
		loc = *s.Location
	}
	return transport.Message{
		PhotoRef: s.PhotoRef,
		Text: fmt.Sprintf("Проверьте данные обращения:\n\n"+
			"Категория: %s\n"+
			"Описание: %s\n"+
			"Координаты: %s\n\n"+
			"Всё верно?", s.Category, excerpt(s.Description, model.MaxDescriptionLength), coords(loc)),
		Buttons: confirmButtons(),
	}
}

func confirmButtons() [][]transport.Button {
	return [][]transport.Button{
		transport.Row(button(labelConfirm, action.ConfirmSubmission()), button(labelCancel, action.CancelSubmission())),
	}
}

func repeatConfirmPrompt() transport.Message {
	return transport.Message{Text: textRepeatConfirm, Buttons: confirmButtons()}
}

func submittedText(reportID int64) string {
	return fmt.Sprintf("Ваше обращение №%d успешно отправлено на модерацию!\n\n"+
		"Вы можете отслеживать его статус с помощью команды /myreports", reportID)
}

func reportBody(r *model.Report) string {
	return fmt.Sprintf("Категория: %s\nОписание: %s\nКоординаты: %s", r.Category, excerpt(r.Description, model.MaxDescriptionLength), coords(r.Location))
}

// ModeratorAlert is the card sent to moderators for a new report
func ModeratorAlert(r *model.Report) transport.Message {
	return transport.Message{
		PhotoRef: r.PhotoRef,
		Text:     fmt.Sprintf("🚨 НОВОЕ ОБРАЩЕНИЕ НА МОДЕРАЦИИ №%d 🚨\n\n%s", r.ID, reportBody(r)),
		Buttons:  moderationButtons(r),
	}
}

func moderationButtons(r *model.Report) [][]transport.Button {
	return [][]transport.Button{
		transport.Row(
			button(labelApprove, action.Moderate(r.ID, model.DecisionApprove)),
			button(labelReject, action.Moderate(r.ID, model.DecisionReject)),
		),
		transport.Row(mapButton(r.Location)),
	}
}

// OfficialAlert is the card sent to officials once a report is approved
func OfficialAlert(r *model.Report) transport.Message {
	return transport.Message{
		PhotoRef: r.PhotoRef,
		Text: fmt.Sprintf("🚨 НОВОЕ ОБРАЩЕНИЕ №%d 🚨\n\n%s\n\n"+
			"Для изменения статуса используйте команду /update_status %d", r.ID, reportBody(r), r.ID),
		Buttons: [][]transport.Button{
			transport.Row(mapButton(r.Location)),
			transport.Row(button(labelChangeStatus, action.RequestStatusChange(r.ID))),
		},
	}
}

func approvedNotice(reportID int64) transport.Message {
	return transport.Message{Text: fmt.Sprintf("✅ Ваше обращение №%d одобрено модератором и передано в работу!", reportID)}
}

func rejectedNotice(reportID int64) transport.Message {
	return transport.Message{Text: fmt.Sprintf("❌ Ваше обращение №%d отклонено модератором.", reportID)}
}

// ModerationAck confirms a decision to the acting moderator
func ModerationAck(r *model.Report) string {
	if r.Status == model.StatusNew {
		return fmt.Sprintf("✅ Обращение №%d одобрено и передано госорганам.", r.ID)
	}
	return fmt.Sprintf("❌ Обращение №%d отклонено.", r.ID)
}

func statusChangedNotice(r *model.Report, comment string) transport.Message {
	return transport.Message{Text: fmt.Sprintf("📣 Обновление статуса обращения №%d\n\n"+
		"Новый статус: %s\n"+
		"Комментарий: %s", r.ID, r.Status, comment)}
}

func statusChangedAck(r *model.Report) string {
	return fmt.Sprintf("✅ Статус обращения №%d успешно обновлен на '%s'.", r.ID, r.Status)
}

// StatusMenu offers the five official statuses for a report
func StatusMenu(reportID int64) transport.Message {
	rows := make([][]transport.Button, 0, len(model.OfficialStatuses))
	for _, s := range model.OfficialStatuses {
		rows = append(rows, transport.Row(button(string(s), action.SelectStatus(reportID, s))))
	}
	return transport.Message{
		Text:    fmt.Sprintf("Выберите новый статус для обращения №%d:", reportID),
		Buttons: rows,
	}
}

func commentPrompt(reportID int64, status model.Status) transport.Message {
	return transport.Message{Text: fmt.Sprintf("Вы выбрали статус '%s' для обращения №%d.\n"+
		"Пожалуйста, напишите комментарий к обновлению статуса:", status, reportID)}
}

// OwnReportCard summarises one of the user's own reports
func OwnReportCard(r *model.Report) transport.Message {
	return transport.Message{
		Text: fmt.Sprintf("Обращение №%d\nКатегория: %s\nОписание: %s\nСтатус: %s\nДата создания: %s",
			r.ID, r.Category, r.Description, r.Status, r.CreatedAt.Format(dateLayout)),
		Buttons: [][]transport.Button{
			transport.Row(button(fmt.Sprintf("Подробнее о №%d", r.ID), action.ViewReport(r.ID))),
		},
	}
}

// PendingCard shows a report awaiting moderation
func PendingCard(r *model.Report) transport.Message {
	return transport.Message{
		PhotoRef: r.PhotoRef,
		Text: fmt.Sprintf("Обращение №%d\nКатегория: %s\nОписание: %s\nДата создания: %s\nКоординаты: %s",
			r.ID, r.Category, excerpt(r.Description, model.MaxDescriptionLength), r.CreatedAt.Format(dateLayout), coords(r.Location)),
		Buttons: moderationButtons(r),
	}
}

// ActiveCard shows an approved, open report to officials
func ActiveCard(r *model.Report) transport.Message {
	return transport.Message{
		PhotoRef: r.PhotoRef,
		Text: fmt.Sprintf("Обращение №%d\nКатегория: %s\nОписание: %s\nСтатус: %s\nДата создания: %s\nКоординаты: %s",
			r.ID, r.Category, excerpt(r.Description, model.MaxDescriptionLength), r.Status, r.CreatedAt.Format(dateLayout), coords(r.Location)),
		Buttons: [][]transport.Button{
			transport.Row(button(labelChangeStatus, action.RequestStatusChange(r.ID))),
			transport.Row(mapButton(r.Location)),
		},
	}
}

// DetailCard renders a report with its latest status updates
func DetailCard(d *model.ReportDetail) transport.Message {
	r := d.Report
	var b strings.Builder
	fmt.Fprintf(&b, "Обращение №%d\n\n", r.ID)
	fmt.Fprintf(&b, "Категория: %s\n", r.Category)
	fmt.Fprintf(&b, "Описание: %s\n", excerpt(r.Description, model.MaxDescriptionLength))
	fmt.Fprintf(&b, "Статус: %s\n", r.Status)
	fmt.Fprintf(&b, "Дата создания: %s\n", r.CreatedAt.Format(dateLayout))
	fmt.Fprintf(&b, "Последнее обновление: %s\n", r.UpdatedAt.Format(dateLayout))
	fmt.Fprintf(&b, "Координаты: %s", coords(r.Location))

	if len(d.History) > 0 {
		b.WriteString("\n\n" + detailHistoryHeading)
		for _, h := range d.History {
			name := h.OfficialName
			if name == "" {
				name = defaultOfficialName
			}
			fmt.Fprintf(&b, "\n• %s: %s (%s)", h.CreatedAt.Format(dateLayout), h.Status, name)
			if h.Comment != "" {
				fmt.Fprintf(&b, "\n  Комментарий: %s", excerpt(h.Comment, model.MaxCommentLength))
			}
		}
	}

	return transport.Message{
		PhotoRef: r.PhotoRef,
		Text:     b.String(),
		Buttons:  [][]transport.Button{transport.Row(mapButton(r.Location))},
	}
}

// TokenText delivers a dashboard token
func TokenText(token string, hours int64) string {
	return fmt.Sprintf("Ключ доступа к панели управления (действует %d ч.):\n\n%s", hours, token)
}

// RoleChangedText confirms an admin role assignment
func RoleChangedText(userID int64, role model.Role) string {
	return fmt.Sprintf("Роль пользователя с ID %d изменена на %s.", userID, role)
}

// RoleAssignedNotice tells a user their role was changed by an admin
func RoleAssignedNotice(role model.Role) transport.Message {
	return transport.Message{Text: fmt.Sprintf("Ваша роль изменена на %s.", role)}
}

// UserNotFoundText reports an unknown user id
func UserNotFoundText(userID int64) string {
	return fmt.Sprintf("Пользователь с ID %d не найден.", userID)
}

// ReportNotFoundText reports an unknown report id
func ReportNotFoundText(reportID int64) string {
	return fmt.Sprintf("Обращение №%d не найдено.", reportID)
}
