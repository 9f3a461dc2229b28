package service

import (
	"errors"
	"fmt"

	"signal_kz/internal/errs"
	"signal_kz/internal/model"
)

var (
	ErrReportNotFound   = fmt.Errorf("report %w", errs.ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", errs.ErrNotFound)
	ErrForbidden        = fmt.Errorf("%w: role does not allow this action", errs.ErrPermission)
	ErrInvalidRole      = fmt.Errorf("%w: unknown role", errs.ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: status is not one an official may set", errs.ErrValidation)
	ErrCommentTooLong   = fmt.Errorf("%w: comment exceeds %d characters", errs.ErrValidation, model.MaxCommentLength)
	ErrInvalidDraft     = fmt.Errorf("%w: report draft", errs.ErrValidation)
	ErrInvalidDecision  = fmt.Errorf("%w: decision must be approve or reject", errs.ErrValidation)
	ErrReportClosed     = fmt.Errorf("%w: report is closed", errs.ErrValidation)
	ErrNotPending       = fmt.Errorf("%w: report is not awaiting moderation", errs.ErrValidation)
	ErrNotApproved      = fmt.Errorf("%w: report has not passed moderation", errs.ErrValidation)
	ErrConcurrentChange = fmt.Errorf("%w: report status changed concurrently", errs.ErrValidation)
)

// persistence wraps a store failure with the persistence kind
func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", errs.ErrPersistence, op, err)
}

// classify keeps domain errors intact and marks anything else as a store failure
func classify(op string, err error) error {
	for _, kind := range []error{errs.ErrValidation, errs.ErrNotFound, errs.ErrPermission, errs.ErrPersistence} {
		if errors.Is(err, kind) {
			return err
		}
	}
	return persistence(op, err)
}
