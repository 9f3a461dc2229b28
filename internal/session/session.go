// Package session holds the per-user conversation state: which input the
// bot expects next from a user and the draft collected so far.
package session

import (
	"time"

	"signal_kz/internal/model"
)

// State tags the input a session is waiting for
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingCategory      State = "awaiting_category"
	StateAwaitingDescription   State = "awaiting_description"
	StateAwaitingLocation      State = "awaiting_location"
	StateAwaitingPhoto         State = "awaiting_photo"
	StateAwaitingConfirmation  State = "awaiting_confirmation"
	StateAwaitingStatusComment State = "awaiting_status_comment"
)

// Session is one user's in-flight flow. It is a plain value: the store
// keeps copies, so a Session read from it can be inspected freely.
type Session struct {
	UserID int64
	State  State

	// submission draft
	Category    string
	Description string
	Location    *model.Location
	PhotoRef    string

	// status-comment entry
	ReportID  int64
	NewStatus model.Status

	StartedAt time.Time
	UpdatedAt time.Time
}

// NewSubmission starts a fresh report flow for a user
func NewSubmission(userID int64, now time.Time) Session {
	return Session{UserID: userID, State: StateAwaitingCategory, StartedAt: now, UpdatedAt: now}
}

// NewStatusComment starts waiting for an official's comment on a status change
func NewStatusComment(userID, reportID int64, status model.Status, now time.Time) Session {
	return Session{
		UserID:    userID,
		State:     StateAwaitingStatusComment,
		ReportID:  reportID,
		NewStatus: status,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// WithCategory records the category and advances to the description step
func (s Session) WithCategory(category string, now time.Time) Session {
	s.Category = category
	return s.advance(StateAwaitingDescription, now)
}

// WithDescription records the description and advances to the location step
func (s Session) WithDescription(description string, now time.Time) Session {
	s.Description = description
	return s.advance(StateAwaitingLocation, now)
}

// WithLocation records the coordinates and advances to the photo step
func (s Session) WithLocation(loc model.Location, now time.Time) Session {
	s.Location = &loc
	return s.advance(StateAwaitingPhoto, now)
}

// WithPhoto records the photo and advances to confirmation
func (s Session) WithPhoto(ref string, now time.Time) Session {
	s.PhotoRef = ref
	return s.advance(StateAwaitingConfirmation, now)
}

func (s Session) advance(next State, now time.Time) Session {
	s.State = next
	s.UpdatedAt = now
	return s
}

// Draft converts a confirmed session into a report draft
func (s Session) Draft() model.Draft {
	d := model.Draft{
		AuthorID:    s.UserID,
		Category:    s.Category,
		Description: s.Description,
		PhotoRef:    s.PhotoRef,
	}
	if s.Location != nil {
		d.Location = *s.Location
	}
	return d
}
