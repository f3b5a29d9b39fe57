package comment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c Comment) (Comment, error)
	// ListByChange returns the comments of a change request, oldest first.
	ListByChange(ctx context.Context, changeID uuid.UUID) ([]Comment, error)
}
