package model

import (
	"fmt"
	"time"
)

// Input bounds, in characters. They keep report cards within a photo caption.
const (
	MaxDescriptionLength = 700
	MaxCommentLength     = 500
)

// Status is the lifecycle state of a report. Values are the labels shown to users.
type Status string

const (
	StatusPendingModeration   Status = "На модерации"
	StatusNew                 Status = "Новое"
	StatusInProgress          Status = "В обработке"
	StatusUnderReview         Status = "Проверка"
	StatusConfirmed           Status = "Подтверждено"
	StatusResolved            Status = "Решено"
	StatusRejected            Status = "Отклонено"
	StatusRejectedByModerator Status = "Отклонено модератором"
)

// Statuses is every status a report can hold
var Statuses = []Status{
	StatusPendingModeration,
	StatusNew,
	StatusInProgress,
	StatusUnderReview,
	StatusConfirmed,
	StatusResolved,
	StatusRejected,
	StatusRejectedByModerator,
}

// OfficialStatuses are the labels an official may choose, in menu order
var OfficialStatuses = []Status{
	StatusInProgress,
	StatusUnderReview,
	StatusConfirmed,
	StatusResolved,
	StatusRejected,
}

// TerminalStatuses accept no further transitions
var TerminalStatuses = []Status{StatusRejectedByModerator, StatusResolved, StatusRejected}

// IsValid reports whether s is a member of the status enum
func (s Status) IsValid() bool {
	return containsStatus(Statuses, s)
}

// IsTerminal reports whether no transition may leave s
func (s Status) IsTerminal() bool {
	return containsStatus(TerminalStatuses, s)
}

// ParseOfficialStatus accepts only the five labels an official may set
func ParseOfficialStatus(label string) (Status, bool) {
	s := Status(label)
	if containsStatus(OfficialStatuses, s) {
		return s, true
	}
	return "", false
}

// OfficialStatusIndex returns the menu position of s, or -1
func OfficialStatusIndex(s Status) int {
	for i, known := range OfficialStatuses {
		if known == s {
			return i
		}
	}
	return -1
}

func containsStatus(set []Status, s Status) bool {
	for _, known := range set {
		if known == s {
			return true
		}
	}
	return false
}

// StatusStrings converts statuses for use as a SQL array argument
func StatusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Categories is the closed set of violation categories, in menu order
var Categories = []string{
	"Незаконная свалка",
	"Загрязнение воды",
	"Выброс отходов",
	"Пожар",
	"Незаконная вырубка",
	"Скотомогильник",
	"Незаконная охота",
	"Незаконное рыболовство",
	"Другое",
}

// IsValidCategory reports whether c is one of Categories
func IsValidCategory(c string) bool {
	return CategoryIndex(c) >= 0
}

// CategoryIndex returns the menu position of c, or -1
func CategoryIndex(c string) int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return -1
}

// Decision is a moderator's verdict on a pending report
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Location is a coordinate pair; both halves are always set together
type Location struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// MapURL links the location on Google Maps
func (l Location) MapURL() string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%v,%v", l.Latitude, l.Longitude)
}

// Report is a citizen-submitted violation record
type Report struct {
	ID          int64     `json:"id"`
	AuthorID    int64     `json:"author_id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Location    Location  `json:"location"`
	PhotoRef    string    `json:"photo_ref"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Draft is a completed submission handed over for persistence
type Draft struct {
	AuthorID    int64  `validate:"required"`
	Category    string `validate:"required,category"`
	Description string `validate:"required,max=700"`
	Location    Location
	PhotoRef    string `validate:"required"`
}

// StatusUpdate is one official-driven transition in a report's audit trail
type StatusUpdate struct {
	ID           int64     `json:"id"`
	ReportID     int64     `json:"report_id"`
	OfficialID   int64     `json:"official_id"`
	OfficialName string    `json:"official_name,omitempty"` // joined from users, empty when unknown
	Status       Status    `json:"status"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReportDetail is a report with its most recent status updates
type ReportDetail struct {
	Report  Report         `json:"report"`
	History []StatusUpdate `json:"history"`
}
