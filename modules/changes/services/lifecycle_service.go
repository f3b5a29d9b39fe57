package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/eventbus"
)

var tracer = otel.Tracer("github.com/richardissailing/fantastic-spoon/modules/changes/services")

// Journal durably records status changes inside the transition transaction.
type Journal interface {
	StatusChanged(ctx context.Context, evt change.StatusChangedEvent) error
}

type TransitionCommand struct {
	ChangeID uuid.UUID
	Status   change.Status
	ActorID  uuid.UUID
	// Comment is written as an audit comment when it is not blank.
	Comment string
}

type TransitionResult struct {
	Change   change.ChangeRequest
	Previous change.Status
	Decision lifecycle.Decision
	// Applied is false when the request was already in the requested status.
	Applied bool
	Comment *comment.Comment
}

// LifecycleService applies status transitions. The status write, the approver
// assignment, the audit comment and the journal record commit together or not at all.
type LifecycleService struct {
	tx        composables.Transactor
	changes   change.Repository
	comments  comment.Repository
	users     user.Repository
	journal   Journal
	publisher eventbus.EventBus
	now       func() time.Time
}

func NewLifecycleService(
	tx composables.Transactor,
	changes change.Repository,
	comments comment.Repository,
	users user.Repository,
	journal Journal,
	publisher eventbus.EventBus,
) *LifecycleService {
	return &LifecycleService{
		tx:        tx,
		changes:   changes,
		comments:  comments,
		users:     users,
		journal:   journal,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// evaluator decides a requested status change against the locked current state.
type evaluator func(current change.ChangeRequest, requested change.Status) lifecycle.Decision

func (s *LifecycleService) Transition(ctx context.Context, cmd TransitionCommand) (TransitionResult, error) {
	return s.apply(ctx, "changes.lifecycle.Transition", cmd, lifecycle.EvaluateChange)
}

// Cancel closes a request that is not yet closed, from any status. It shares
// the transaction and audit path of Transition; a blank reason is recorded as
// the default cancellation comment.
func (s *LifecycleService) Cancel(ctx context.Context, id, actorID uuid.UUID, reason string) (TransitionResult, error) {
	if commentText(reason) == "" {
		reason = lifecycle.DefaultCancelComment
	}
	cmd := TransitionCommand{ChangeID: id, Status: change.StatusCancelled, ActorID: actorID, Comment: reason}
	return s.apply(ctx, "changes.lifecycle.Cancel", cmd, func(c change.ChangeRequest, _ change.Status) lifecycle.Decision {
		return lifecycle.EvaluateCancel(c.Status())
	})
}

func (s *LifecycleService) apply(ctx context.Context, spanName string, cmd TransitionCommand, evaluate evaluator) (TransitionResult, error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(
		attribute.String("change.id", cmd.ChangeID.String()),
		attribute.String("change.status.requested", string(cmd.Status)),
	)

	res, err := s.transition(ctx, cmd, evaluate)

	outcome := "applied"
	switch {
	case err != nil:
		outcome = string(lifecycle.KindOf(err))
	case !res.Applied:
		outcome = "noop"
	}
	m := getMetrics()
	m.transitions.WithLabelValues(string(cmd.Status), outcome).Inc()
	m.transitionDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	span.SetAttributes(attribute.String("change.transition.outcome", outcome))

	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"change_id": cmd.ChangeID,
		"to":        cmd.Status,
		"actor_id":  cmd.ActorID,
		"outcome":   outcome,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		if lifecycle.KindOf(err) == lifecycle.KindStorage {
			logger.WithError(err).Error("change request transition failed")
		} else {
			logger.WithError(err).Info("change request transition refused")
		}
		return TransitionResult{}, err
	}
	if !res.Applied {
		logger.Debug("change request transition ignored")
		return res, nil
	}

	logger.WithField("from", res.Previous).Info("change request status changed")
	if s.publisher != nil {
		s.publisher.Publish(&change.StatusChangedEvent{
			Change:         res.Change,
			PreviousStatus: res.Previous,
			ActorID:        cmd.ActorID,
			Comment:        commentText(cmd.Comment),
			OccurredAt:     res.Change.UpdatedAt(),
		})
	}
	return res, nil
}

func commentText(s string) string {
	return strings.TrimSpace(s)
}

func (s *LifecycleService) transition(ctx context.Context, cmd TransitionCommand, evaluate evaluator) (TransitionResult, error) {
	if cmd.ChangeID == uuid.Nil {
		return TransitionResult{}, lifecycle.Validationf("change id is required")
	}
	if !cmd.Status.IsValid() {
		return TransitionResult{}, lifecycle.Validationf("unknown status %q", cmd.Status)
	}
	note := commentText(cmd.Comment)
	if len(note) > comment.MaxContentLength {
		return TransitionResult{}, lifecycle.Validationf("comment is longer than %d characters", comment.MaxContentLength)
	}

	var res TransitionResult
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		if _, err := requireActor(txCtx, s.users, cmd.ActorID); err != nil {
			return err
		}

		current, err := s.changes.GetForUpdate(txCtx, cmd.ChangeID)
		if err != nil {
			if errors.Is(err, change.ErrNotFound) {
				return lifecycle.NotFoundf("change request %s", cmd.ChangeID)
			}
			return lifecycle.Storage("load change request", err)
		}

		decision := evaluate(current, cmd.Status)
		res = TransitionResult{Change: current, Previous: current.Status(), Decision: decision}
		if decision.Noop {
			return nil
		}
		if !decision.Allowed {
			return lifecycle.NewPolicyViolation(current.Status(), cmd.Status, decision)
		}

		updated := current.SetStatus(cmd.Status, cmd.ActorID, s.now())
		if err := s.changes.UpdateStatus(txCtx, updated.ID(), updated.Status(), updated.ApproverID(), updated.UpdatedAt()); err != nil {
			return lifecycle.Storage("update status", err)
		}

		if note != "" {
			c, err := comment.New(updated.ID(), cmd.ActorID, note)
			if err != nil {
				return lifecycle.Validationf("%s", err.Error())
			}
			created, err := s.comments.Create(txCtx, c)
			if err != nil {
				return lifecycle.Storage("create audit comment", err)
			}
			res.Comment = &created
		}

		reloaded, err := s.changes.GetByID(txCtx, updated.ID())
		if err != nil {
			return lifecycle.Storage("reload change request", err)
		}

		if s.journal != nil {
			if err := s.journal.StatusChanged(txCtx, change.StatusChangedEvent{
				Change:         reloaded,
				PreviousStatus: current.Status(),
				ActorID:        cmd.ActorID,
				Comment:        note,
				OccurredAt:     reloaded.UpdatedAt(),
			}); err != nil {
				return lifecycle.Storage("journal status change", err)
			}
		}

		res.Change = reloaded
		res.Applied = true
		return nil
	})
	if err != nil {
		return TransitionResult{}, classify("commit transition", err)
	}
	return res, nil
}
