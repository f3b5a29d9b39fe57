package persistence

import (
	"context"
	"errors"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	"github.com/richardissailing/fantastic-spoon/modules/core/infrastructure/persistence/models"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/repo"
)

const (
	userFindQuery = `
        SELECT
            u.id,
            u.name,
            u.email,
            u.role,
            u.created_at
        FROM users u`
)

type PgUserRepository struct{}

func NewUserRepository() user.Repository {
	return &PgUserRepository{}
}

func (g *PgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	users, err := g.queryUsers(ctx, repo.Join(userFindQuery, "WHERE u.id = $1"), id)
	if err != nil {
		return user.User{}, gerrors.Wrap(err, fmt.Sprintf("failed to query user with id: %s", id))
	}
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (g *PgUserRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	users, err := g.queryUsers(ctx, repo.Join(userFindQuery, "WHERE u.email = $1"), email)
	if err != nil {
		return user.User{}, gerrors.Wrap(err, "failed to query user by email")
	}
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (g *PgUserRepository) List(ctx context.Context, params *user.FindParams) ([]user.User, error) {
	if params == nil {
		params = &user.FindParams{}
	}
	q := repo.Join(
		userFindQuery,
		"ORDER BY u.name, u.id",
		repo.FormatLimitOffset(params.Limit, params.Offset),
	)
	users, err := g.queryUsers(ctx, q)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to list users")
	}
	return users, nil
}

func (g *PgUserRepository) Create(ctx context.Context, data user.User) (user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return user.User{}, gerrors.Wrap(err, "failed to get transaction")
	}

	dbUser := ToDBUser(data)
	fields := []string{"id", "name", "email", "role", "created_at"}
	values := []interface{}{dbUser.ID, dbUser.Name, dbUser.Email, dbUser.Role, dbUser.CreatedAt}

	if _, err := tx.Exec(ctx, repo.Insert("users", fields), values...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, gerrors.Wrap(err, "failed to insert user")
	}
	return g.GetByID(ctx, data.ID())
}

func (g *PgUserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]user.User, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, gerrors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var entities []user.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.Role,
			&u.CreatedAt,
		); err != nil {
			return nil, gerrors.Wrap(err, "failed to scan user row")
		}
		domainUser, err := ToDomainUser(&u)
		if err != nil {
			return nil, gerrors.Wrap(err, fmt.Sprintf("failed to convert user ID: %s to domain entity", u.ID))
		}
		entities = append(entities, domainUser)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "row iteration error")
	}
	return entities, nil
}
