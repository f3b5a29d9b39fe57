package comment_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
)

func TestNew(t *testing.T) {
	t.Parallel()

	changeID, author := uuid.New(), uuid.New()
	c, err := comment.New(changeID, author, "  done \n")
	require.NoError(t, err)
	assert.Equal(t, "done", c.Content())
	assert.Equal(t, changeID, c.ChangeID())
	assert.Equal(t, author, c.Author().ID)

	_, err = comment.New(changeID, author, "   ")
	require.ErrorIs(t, err, comment.ErrEmptyContent)
	assert.True(t, comment.IsContentError(err))

	_, err = comment.New(changeID, author, strings.Repeat("a", comment.MaxContentLength+1))
	require.ErrorIs(t, err, comment.ErrContentTooLong)
}
