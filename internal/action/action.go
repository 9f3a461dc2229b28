// Package action encodes the tokens attached to message buttons and decodes
// them back into typed actions. Tokens are parsed once, at the edge; the
// rest of the system only sees Action values.
package action

import (
	"fmt"
	"strconv"
	"strings"

	"signal_kz/internal/errs"
	"signal_kz/internal/model"
)

// Kind identifies what a button asks for
type Kind int

const (
	KindSelectCategory Kind = iota + 1
	KindConfirmSubmission
	KindCancelSubmission
	KindModerate
	KindRequestStatusChange
	KindSelectStatus
	KindViewReport
)

// Action is a decoded button token. Only the fields relevant to Kind are set.
type Action struct {
	Kind     Kind
	Category string
	ReportID int64
	Decision model.Decision
	Status   model.Status
}

const (
	prefixCategory = "cat"
	prefixConfirm  = "confirm"
	prefixModerate = "mod"
	prefixChange   = "chg"
	prefixStatus   = "st"
	prefixView     = "view"
	sep            = ":"
)

// Constructors for the actions the bot attaches to its messages.

func SelectCategory(category string) Action {
	return Action{Kind: KindSelectCategory, Category: category}
}

func ConfirmSubmission() Action { return Action{Kind: KindConfirmSubmission} }

func CancelSubmission() Action { return Action{Kind: KindCancelSubmission} }

func Moderate(reportID int64, d model.Decision) Action {
	return Action{Kind: KindModerate, ReportID: reportID, Decision: d}
}

func RequestStatusChange(reportID int64) Action {
	return Action{Kind: KindRequestStatusChange, ReportID: reportID}
}

func SelectStatus(reportID int64, status model.Status) Action {
	return Action{Kind: KindSelectStatus, ReportID: reportID, Status: status}
}

func ViewReport(reportID int64) Action {
	return Action{Kind: KindViewReport, ReportID: reportID}
}

// Encode renders the action as a compact token. Categories and statuses are
// sent as their menu index to stay within the messenger's 64-byte limit.
func (a Action) Encode() string {
	switch a.Kind {
	case KindSelectCategory:
		return join(prefixCategory, strconv.Itoa(model.CategoryIndex(a.Category)))
	case KindConfirmSubmission:
		return join(prefixConfirm, "yes")
	case KindCancelSubmission:
		return join(prefixConfirm, "no")
	case KindModerate:
		return join(prefixModerate, string(a.Decision), id(a.ReportID))
	case KindRequestStatusChange:
		return join(prefixChange, id(a.ReportID))
	case KindSelectStatus:
		return join(prefixStatus, id(a.ReportID), strconv.Itoa(model.OfficialStatusIndex(a.Status)))
	case KindViewReport:
		return join(prefixView, id(a.ReportID))
	}
	return ""
}

// Parse decodes and fully validates a token
func Parse(token string) (Action, error) {
	parts := strings.Split(token, sep)
	switch parts[0] {
	case prefixCategory:
		if len(parts) != 2 {
			break
		}
		idx, err := index(parts[1], len(model.Categories))
		if err != nil {
			return Action{}, invalid(token, err)
		}
		return SelectCategory(model.Categories[idx]), nil

	case prefixConfirm:
		if len(parts) != 2 {
			break
		}
		switch parts[1] {
		case "yes":
			return ConfirmSubmission(), nil
		case "no":
			return CancelSubmission(), nil
		}

	case prefixModerate:
		if len(parts) != 3 {
			break
		}
		d := model.Decision(parts[1])
		if d != model.DecisionApprove && d != model.DecisionReject {
			return Action{}, invalid(token, fmt.Errorf("unknown decision %q", parts[1]))
		}
		reportID, err := parseID(parts[2])
		if err != nil {
			return Action{}, invalid(token, err)
		}
		return Moderate(reportID, d), nil

	case prefixChange, prefixView:
		if len(parts) != 2 {
			break
		}
		reportID, err := parseID(parts[1])
		if err != nil {
			return Action{}, invalid(token, err)
		}
		if parts[0] == prefixView {
			return ViewReport(reportID), nil
		}
		return RequestStatusChange(reportID), nil

	case prefixStatus:
		if len(parts) != 3 {
			break
		}
		reportID, err := parseID(parts[1])
		if err != nil {
			return Action{}, invalid(token, err)
		}
		idx, err := index(parts[2], len(model.OfficialStatuses))
		if err != nil {
			return Action{}, invalid(token, err)
		}
		return SelectStatus(reportID, model.OfficialStatuses[idx]), nil
	}
	return Action{}, invalid(token, fmt.Errorf("unrecognised format"))
}

func join(parts ...string) string {
	return strings.Join(parts, sep)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func parseID(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid report id %q", s)
	}
	return v, nil
}

func index(s string, n int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v >= n {
		return 0, fmt.Errorf("index %q out of range", s)
	}
	return v, nil
}

func invalid(token string, err error) error {
	return fmt.Errorf("%w: action %q: %v", errs.ErrValidation, token, err)
}
