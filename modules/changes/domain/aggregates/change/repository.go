package change

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

var ErrNotFound = serrors.NewError("CHANGE_NOT_FOUND", "change request not found", "Changes.Errors.NotFound")

// FindParams filters list and count queries. Zero values mean no filter.
// The created window is half-open: [CreatedFrom, CreatedTo).
type FindParams struct {
	Statuses    []Status
	Priorities  []Priority
	CreatedFrom time.Time
	CreatedTo   time.Time
	Limit       int
	Offset      int
}

// Matches applies the filters to c in memory.
func (p *FindParams) Matches(c ChangeRequest) bool {
	if p == nil {
		return true
	}
	if len(p.Statuses) > 0 && !contains(p.Statuses, c.Status()) {
		return false
	}
	if len(p.Priorities) > 0 && !contains(p.Priorities, c.Priority()) {
		return false
	}
	if !p.CreatedFrom.IsZero() && c.CreatedAt().Before(p.CreatedFrom) {
		return false
	}
	if !p.CreatedTo.IsZero() && !c.CreatedAt().Before(p.CreatedTo) {
		return false
	}
	return true
}

func contains[T comparable](items []T, v T) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

type Repository interface {
	// List returns requests ordered by creation time, newest first.
	List(ctx context.Context, params *FindParams) ([]ChangeRequest, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	CountByStatus(ctx context.Context, params *FindParams) (map[Status]int64, error)
	CountByPriority(ctx context.Context, params *FindParams) (map[Priority]int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (ChangeRequest, error)
	// GetForUpdate reads the request and holds it against concurrent writers
	// until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (ChangeRequest, error)
	Create(ctx context.Context, c ChangeRequest) (ChangeRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, approvedBy *uuid.UUID, updatedAt time.Time) error
}
