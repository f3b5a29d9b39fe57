package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/infrastructure/persistence/models"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/repo"
)

const (
	changeSelectColumns = `
        SELECT
            c.id,
            c.title,
            c.description,
            c.status,
            c.priority,
            c.impact,
            c.type,
            c.systems_affected,
            c.requested_by,
            rb.name,
            rb.email,
            c.approved_by,
            ab.name,
            ab.email,
            c.planned_start,
            c.planned_end,
            c.created_at,
            c.updated_at`

	changeFromClause = `
        FROM change_requests c
        JOIN users rb ON rb.id = c.requested_by
        LEFT JOIN users ab ON ab.id = c.approved_by`

	changeCountQuery = `SELECT COUNT(*) FROM change_requests c`

	changeCountByStatusQuery = `SELECT c.status, COUNT(*) FROM change_requests c`

	changeCountByPriorityQuery = `SELECT c.priority, COUNT(*) FROM change_requests c`

	changeUpdateStatusQuery = `UPDATE change_requests SET status = $1, approved_by = $2, updated_at = $3 WHERE id = $4`
)

type PgChangeRepository struct{}

func NewChangeRepository() change.Repository {
	return &PgChangeRepository{}
}

func buildChangeFilters(params *change.FindParams) ([]string, []interface{}) {
	if params == nil {
		return nil, nil
	}
	var (
		where []string
		args  []interface{}
	)
	if len(params.Statuses) > 0 {
		statuses := make([]string, len(params.Statuses))
		for i, s := range params.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("c.status = ANY($%d)", len(args)))
	}
	if len(params.Priorities) > 0 {
		priorities := make([]string, len(params.Priorities))
		for i, p := range params.Priorities {
			priorities[i] = string(p)
		}
		args = append(args, priorities)
		where = append(where, fmt.Sprintf("c.priority = ANY($%d)", len(args)))
	}
	if !params.CreatedFrom.IsZero() {
		args = append(args, params.CreatedFrom)
		where = append(where, fmt.Sprintf("c.created_at >= $%d", len(args)))
	}
	if !params.CreatedTo.IsZero() {
		args = append(args, params.CreatedTo)
		where = append(where, fmt.Sprintf("c.created_at < $%d", len(args)))
	}
	return where, args
}

func (g *PgChangeRepository) List(ctx context.Context, params *change.FindParams) ([]change.ChangeRequest, error) {
	where, args := buildChangeFilters(params)
	limit, offset := 0, 0
	if params != nil {
		limit, offset = params.Limit, params.Offset
	}
	q := repo.Join(
		changeSelectColumns,
		changeFromClause,
		repo.JoinWhere(where...),
		"ORDER BY c.created_at DESC, c.id",
		repo.FormatLimitOffset(limit, offset),
	)
	changes, err := g.queryChanges(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list change requests")
	}
	return changes, nil
}

func (g *PgChangeRepository) Count(ctx context.Context, params *change.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	where, args := buildChangeFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, repo.Join(changeCountQuery, repo.JoinWhere(where...)), args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count change requests")
	}
	return count, nil
}

func (g *PgChangeRepository) CountByStatus(ctx context.Context, params *change.FindParams) (map[change.Status]int64, error) {
	raw, err := g.countGrouped(ctx, changeCountByStatusQuery, "c.status", params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count change requests by status")
	}
	out := make(map[change.Status]int64, len(change.Statuses))
	for _, s := range change.Statuses {
		out[s] = 0
	}
	for k, v := range raw {
		s, err := change.ParseStatus(k)
		if err != nil {
			return nil, err
		}
		out[s] = v
	}
	return out, nil
}

func (g *PgChangeRepository) CountByPriority(ctx context.Context, params *change.FindParams) (map[change.Priority]int64, error) {
	raw, err := g.countGrouped(ctx, changeCountByPriorityQuery, "c.priority", params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count change requests by priority")
	}
	out := make(map[change.Priority]int64, len(change.Priorities))
	for _, p := range change.Priorities {
		out[p] = 0
	}
	for k, v := range raw {
		p, err := change.ParsePriority(k)
		if err != nil {
			return nil, err
		}
		out[p] = v
	}
	return out, nil
}

func (g *PgChangeRepository) GetByID(ctx context.Context, id uuid.UUID) (change.ChangeRequest, error) {
	q := repo.Join(changeSelectColumns, changeFromClause, "WHERE c.id = $1")
	changes, err := g.queryChanges(ctx, q, id)
	if err != nil {
		return change.ChangeRequest{}, errors.Wrap(err, fmt.Sprintf("failed to query change request with id: %s", id))
	}
	if len(changes) == 0 {
		return change.ChangeRequest{}, change.ErrNotFound
	}
	return changes[0], nil
}

// GetForUpdate locks the change_requests row until the transaction in ctx ends.
func (g *PgChangeRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (change.ChangeRequest, error) {
	q := repo.Join(changeSelectColumns, changeFromClause, "WHERE c.id = $1", "FOR UPDATE OF c")
	changes, err := g.queryChanges(ctx, q, id)
	if err != nil {
		return change.ChangeRequest{}, errors.Wrap(err, fmt.Sprintf("failed to lock change request with id: %s", id))
	}
	if len(changes) == 0 {
		return change.ChangeRequest{}, change.ErrNotFound
	}
	return changes[0], nil
}

func (g *PgChangeRepository) Create(ctx context.Context, data change.ChangeRequest) (change.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return change.ChangeRequest{}, errors.Wrap(err, "failed to get transaction")
	}

	dbChange := ToDBChange(data)
	fields := []string{
		"id",
		"title",
		"description",
		"status",
		"priority",
		"impact",
		"type",
		"systems_affected",
		"requested_by",
		"approved_by",
		"planned_start",
		"planned_end",
		"created_at",
		"updated_at",
	}
	values := []interface{}{
		dbChange.ID,
		dbChange.Title,
		dbChange.Description,
		dbChange.Status,
		dbChange.Priority,
		dbChange.Impact,
		dbChange.Type,
		dbChange.SystemsAffected,
		dbChange.RequestedBy,
		dbChange.ApprovedBy,
		dbChange.PlannedStart,
		dbChange.PlannedEnd,
		dbChange.CreatedAt,
		dbChange.UpdatedAt,
	}
	if _, err := tx.Exec(ctx, repo.Insert("change_requests", fields), values...); err != nil {
		return change.ChangeRequest{}, errors.Wrap(err, "failed to insert change request")
	}
	return g.GetByID(ctx, data.ID())
}

func (g *PgChangeRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status change.Status,
	approvedBy *uuid.UUID,
	updatedAt time.Time,
) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, changeUpdateStatusQuery, string(status), toPgUUID(approvedBy), updatedAt, id)
	if err != nil {
		return errors.Wrap(err, "failed to update change request status")
	}
	if tag.RowsAffected() == 0 {
		return change.ErrNotFound
	}
	return nil
}

func (g *PgChangeRepository) countGrouped(
	ctx context.Context,
	base string,
	column string,
	params *change.FindParams,
) (map[string]int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	where, args := buildChangeFilters(params)
	rows, err := tx.Query(ctx, repo.Join(base, repo.JoinWhere(where...), "GROUP BY "+column), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan count row")
		}
		out[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return out, nil
}

func (g *PgChangeRepository) queryChanges(ctx context.Context, query string, args ...interface{}) ([]change.ChangeRequest, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute query")
	}
	defer rows.Close()

	var entities []change.ChangeRequest
	for rows.Next() {
		var c models.ChangeRequest
		if err := rows.Scan(
			&c.ID,
			&c.Title,
			&c.Description,
			&c.Status,
			&c.Priority,
			&c.Impact,
			&c.Type,
			&c.SystemsAffected,
			&c.RequestedBy,
			&c.RequesterName,
			&c.RequesterEmail,
			&c.ApprovedBy,
			&c.ApproverName,
			&c.ApproverEmail,
			&c.PlannedStart,
			&c.PlannedEnd,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan change request row")
		}
		entity, err := ToDomainChange(&c)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("failed to convert change request ID: %s to domain entity", c.ID))
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "row iteration error")
	}
	return entities, nil
}
