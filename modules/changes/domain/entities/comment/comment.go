package comment

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

const MaxContentLength = 10000

var (
	ErrEmptyContent   = serrors.NewError("COMMENT_EMPTY", "comment content must not be empty", "Comments.Errors.Empty")
	ErrContentTooLong = serrors.NewError("COMMENT_TOO_LONG", "comment content is too long", "Comments.Errors.TooLong")
)

// Comment is an append-only note on a change request. Comments written during
// a status transition form its audit trail.
type Comment struct {
	id        uuid.UUID
	changeID  uuid.UUID
	content   string
	author    change.UserRef
	createdAt time.Time
}

func New(changeID, authorID uuid.UUID, content string) (Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, ErrEmptyContent
	}
	if len(content) > MaxContentLength {
		return Comment{}, ErrContentTooLong
	}
	return Comment{
		id:        uuid.New(),
		changeID:  changeID,
		content:   content,
		author:    change.UserRef{ID: authorID},
		createdAt: time.Now().UTC(),
	}, nil
}

func Hydrate(id, changeID uuid.UUID, content string, author change.UserRef, createdAt time.Time) Comment {
	return Comment{
		id:        id,
		changeID:  changeID,
		content:   content,
		author:    author,
		createdAt: createdAt,
	}
}

func (c Comment) ID() uuid.UUID          { return c.id }
func (c Comment) ChangeID() uuid.UUID    { return c.changeID }
func (c Comment) Content() string        { return c.content }
func (c Comment) Author() change.UserRef { return c.author }
func (c Comment) CreatedAt() time.Time   { return c.createdAt }

// IsContentError reports whether err came from content validation.
func IsContentError(err error) bool {
	return errors.Is(err, ErrEmptyContent) || errors.Is(err, ErrContentTooLong)
}
