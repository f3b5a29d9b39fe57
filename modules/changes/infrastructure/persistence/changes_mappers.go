package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
	"github.com/richardissailing/fantastic-spoon/modules/changes/infrastructure/persistence/models"
)

func ToDomainChange(m *models.ChangeRequest) (change.ChangeRequest, error) {
	status, err := change.ParseStatus(m.Status)
	if err != nil {
		return change.ChangeRequest{}, err
	}
	priority, err := change.ParsePriority(m.Priority)
	if err != nil {
		return change.ChangeRequest{}, err
	}
	impact, err := change.ParseImpact(m.Impact)
	if err != nil {
		return change.ChangeRequest{}, err
	}

	var approvedBy *change.UserRef
	if m.ApprovedBy.Valid {
		approvedBy = &change.UserRef{
			ID:    uuid.UUID(m.ApprovedBy.Bytes),
			Name:  m.ApproverName.String,
			Email: m.ApproverEmail.String,
		}
	}

	return change.Hydrate(
		m.ID,
		m.Title,
		m.Description,
		status,
		priority,
		impact,
		m.Type,
		m.SystemsAffected,
		change.UserRef{ID: m.RequestedBy, Name: m.RequesterName, Email: m.RequesterEmail},
		approvedBy,
		fromTimestamptz(m.PlannedStart),
		fromTimestamptz(m.PlannedEnd),
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func ToDBChange(c change.ChangeRequest) *models.ChangeRequest {
	systems := c.SystemsAffected()
	if systems == nil {
		systems = []string{}
	}
	return &models.ChangeRequest{
		ID:              c.ID(),
		Title:           c.Title(),
		Description:     c.Description(),
		Status:          string(c.Status()),
		Priority:        string(c.Priority()),
		Impact:          string(c.Impact()),
		Type:            c.Type(),
		SystemsAffected: systems,
		RequestedBy:     c.RequestedBy().ID,
		ApprovedBy:      toPgUUID(c.ApproverID()),
		PlannedStart:    toTimestamptz(c.PlannedStart()),
		PlannedEnd:      toTimestamptz(c.PlannedEnd()),
		CreatedAt:       c.CreatedAt(),
		UpdatedAt:       c.UpdatedAt(),
	}
}

func ToDomainComment(m *models.Comment) comment.Comment {
	return comment.Hydrate(
		m.ID,
		m.ChangeID,
		m.Content,
		change.UserRef{ID: m.AuthorID, Name: m.AuthorName, Email: m.AuthorEmail},
		m.CreatedAt,
	)
}

func toPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
