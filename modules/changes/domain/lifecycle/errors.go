package lifecycle

import (
	"errors"
	"fmt"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrPolicyViolation = errors.New("policy violation")
	ErrStorage         = errors.New("storage failure")
)

type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindPolicyViolation Kind = "policy_violation"
	KindStorage         Kind = "storage_failure"
)

// GenericFailureMessage is shown for every failure that is not a policy violation.
const GenericFailureMessage = "Something went wrong while updating the change request. Please try again."

// PolicyViolationError is a transition rejected by a rule.
type PolicyViolationError struct {
	From     change.Status
	To       change.Status
	Decision Decision
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("policy violation: %s -> %s: %s", e.From, e.To, e.Decision.Reason)
}

func (e *PolicyViolationError) Unwrap() error {
	return ErrPolicyViolation
}

func NewPolicyViolation(from, to change.Status, d Decision) *PolicyViolationError {
	return &PolicyViolationError{From: from, To: to, Decision: d}
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Storage marks err as a persistence failure, keeping the original in the chain.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// KindOf classifies err. Errors outside the taxonomy count as storage failures.
func KindOf(err error) Kind {
	var verrs serrors.ValidationErrors
	switch {
	case errors.Is(err, ErrPolicyViolation):
		return KindPolicyViolation
	case errors.Is(err, ErrNotFound), errors.Is(err, change.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation),
		errors.Is(err, change.ErrInvalidValue),
		comment.IsContentError(err),
		errors.As(err, &verrs):
		return KindValidation
	}
	return KindStorage
}

// UserMessage is the text shown to a person for err: the rule text for
// policy violations and a generic retry prompt otherwise.
func UserMessage(err error) string {
	var pv *PolicyViolationError
	if errors.As(err, &pv) {
		if pv.Decision.Message != "" {
			return pv.Decision.Message
		}
		return pv.Decision.Reason
	}
	return GenericFailureMessage
}
