package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
	"github.com/richardissailing/fantastic-spoon/modules/changes/infrastructure/persistence/models"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/repo"
)

const (
	commentFindQuery = `
        SELECT
            cc.id,
            cc.change_id,
            cc.content,
            cc.author_id,
            u.name,
            u.email,
            cc.created_at
        FROM change_comments cc
        JOIN users u ON u.id = cc.author_id`
)

type PgCommentRepository struct{}

func NewCommentRepository() comment.Repository {
	return &PgCommentRepository{}
}

func (g *PgCommentRepository) Create(ctx context.Context, data comment.Comment) (comment.Comment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return comment.Comment{}, errors.Wrap(err, "failed to get transaction")
	}
	fields := []string{"id", "change_id", "author_id", "content", "created_at"}
	values := []interface{}{data.ID(), data.ChangeID(), data.Author().ID, data.Content(), data.CreatedAt()}
	if _, err := tx.Exec(ctx, repo.Insert("change_comments", fields), values...); err != nil {
		return comment.Comment{}, errors.Wrap(err, "failed to insert comment")
	}

	comments, err := g.queryComments(ctx, repo.Join(commentFindQuery, "WHERE cc.id = $1"), data.ID())
	if err != nil {
		return comment.Comment{}, err
	}
	if len(comments) == 0 {
		return comment.Comment{}, errors.New("inserted comment not visible")
	}
	return comments[0], nil
}

func (g *PgCommentRepository) ListByChange(ctx context.Context, changeID uuid.UUID) ([]comment.Comment, error) {
	q := repo.Join(commentFindQuery, "WHERE cc.change_id = $1", "ORDER BY cc.created_at, cc.id")
	comments, err := g.queryComments(ctx, q, changeID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comments")
	}
	return comments, nil
}

func (g *PgCommentRepository) queryComments(ctx context.Context, query string, args ...interface{}) ([]comment.Comment, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var entities []comment.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(
			&c.ID,
			&c.ChangeID,
			&c.Content,
			&c.AuthorID,
			&c.AuthorName,
			&c.AuthorEmail,
			&c.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan comment row")
		}
		entities = append(entities, ToDomainComment(&c))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return entities, nil
}
