// Package lifecycle holds the transition rules of a change request and the
// error taxonomy shared by everything that moves a request between statuses.
//
// Evaluate is pure. The server calls it inside the transition transaction and
// board clients call it before any optimistic move, so both sides reach the
// same decision for the same inputs.
package lifecycle

import (
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
)

type Rule string

const (
	RuleNoop           Rule = "noop"
	RuleClosed         Rule = "request_closed"
	RuleApprove        Rule = "approve"
	RuleReject         Rule = "reject"
	RuleApprovalGate   Rule = "approval_required"
	RuleSkipInProgress Rule = "must_pass_in_progress"
	RuleComplete       Rule = "complete"
	RuleInProgressOnly Rule = "in_progress_only_completes"
	RuleDefaultAllowed Rule = "default_allow"
	RuleCancel         Rule = "cancel"
)

// Short reasons carried by policy violations.
const (
	ReasonClosed           = "request is closed"
	ReasonApprovalRequired = "approval required"
	ReasonSkipInProgress   = "must pass through In Progress"
	ReasonInProgressOnly   = "in-progress items may only complete"
)

// User-facing rule texts.
const (
	MessageClosed           = "This change request is closed and can no longer change status."
	MessageApprovalRequired = "This change request must be approved before it can be moved to In Progress."
	MessageSkipInProgress   = "Changes must go through In Progress before being marked as Completed."
	MessageInProgressOnly   = "Changes in progress can only be moved to Completed."

	// DefaultCancelComment is recorded when a cancellation gives no reason.
	DefaultCancelComment = "Change request cancelled"

	// ConfirmCompletion is shown before a move into COMPLETED is submitted.
	ConfirmCompletion = "Are you sure you want to mark this change as completed? This will notify all stakeholders."
)

// Decision is the outcome of evaluating a requested transition.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Noop    bool   `json:"noop,omitempty"`
	Rule    Rule   `json:"rule"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func allow(rule Rule) Decision {
	return Decision{Allowed: true, Rule: rule}
}

func deny(rule Rule, reason, message string) Decision {
	return Decision{Rule: rule, Reason: reason, Message: message}
}

// Evaluate decides whether current may move to requested given the approval
// state. A move out of a closed request is denied even when it names the same
// status; any other same-status move is a no-op that is neither allowed nor denied.
func Evaluate(current, requested change.Status, approved bool) Decision {
	if current.IsTerminal() {
		return deny(RuleClosed, ReasonClosed, MessageClosed)
	}
	if current == requested {
		return Decision{Noop: true, Rule: RuleNoop}
	}

	switch current {
	case change.StatusPending:
		switch requested {
		case change.StatusApproved:
			return allow(RuleApprove)
		case change.StatusRejected:
			return allow(RuleReject)
		case change.StatusInProgress:
			if approved {
				return allow(RuleApprovalGate)
			}
			return deny(RuleApprovalGate, ReasonApprovalRequired, MessageApprovalRequired)
		case change.StatusCompleted:
			return deny(RuleSkipInProgress, ReasonSkipInProgress, MessageSkipInProgress)
		}
	case change.StatusInProgress:
		if requested == change.StatusCompleted {
			return allow(RuleComplete)
		}
		return deny(RuleInProgressOnly, ReasonInProgressOnly, MessageInProgressOnly)
	}

	// TODO: APPROVED -> REJECTED and moves out of REJECTED are open until the
	// approval workflow decides whether they need their own audit gate.
	return allow(RuleDefaultAllowed)
}

// EvaluateChange evaluates a transition of c to requested.
func EvaluateChange(c change.ChangeRequest, requested change.Status) Decision {
	return Evaluate(c.Status(), requested, c.IsApproved())
}

// EvaluateCancel decides the cancel action, which is not a board move: any
// request that is not closed may be cancelled, whatever its status.
func EvaluateCancel(current change.Status) Decision {
	if current.IsTerminal() {
		return deny(RuleClosed, ReasonClosed, MessageClosed)
	}
	return allow(RuleCancel)
}

// RequiresConfirmation reports whether a move into requested needs an explicit
// user confirmation before it is submitted.
func RequiresConfirmation(requested change.Status) bool {
	return requested == change.StatusCompleted
}
