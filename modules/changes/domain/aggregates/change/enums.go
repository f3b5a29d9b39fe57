package change

import (
	"fmt"
	"strings"

	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

// ErrInvalidValue is returned for any enumeration symbol outside the closed set.
var ErrInvalidValue = serrors.NewError("CHANGE_INVALID_VALUE", "invalid value", "Changes.Errors.InvalidValue")

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// Statuses lists every status in board column order.
var Statuses = []Status{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Label is the display name used in board columns and messages.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// ParseStatus accepts the persisted symbol exactly. Anything else is rejected.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.IsValid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidValue, s)
	}
	return st, nil
}

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidValue, s)
	}
	return p, nil
}

type Impact string

const (
	ImpactLow    Impact = "LOW"
	ImpactMedium Impact = "MEDIUM"
	ImpactHigh   Impact = "HIGH"
)

var Impacts = []Impact{ImpactLow, ImpactMedium, ImpactHigh}

func (i Impact) IsValid() bool {
	switch i {
	case ImpactLow, ImpactMedium, ImpactHigh:
		return true
	}
	return false
}

func ParseImpact(s string) (Impact, error) {
	i := Impact(strings.ToUpper(strings.TrimSpace(s)))
	if !i.IsValid() {
		return "", fmt.Errorf("%w: unknown impact %q", ErrInvalidValue, s)
	}
	return i, nil
}
