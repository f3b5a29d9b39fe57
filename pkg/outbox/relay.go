package outbox

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// conn is satisfied by both *pgxpool.Pool and *pgxpool.Conn.
type conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Relay polls an outbox table and hands unpublished rows to a Dispatcher,
// retrying failures with exponential backoff until MaxAttempts.
type Relay struct {
	pool       *pgxpool.Pool
	table      pgx.Identifier
	tableLabel string
	dispatcher Dispatcher
	opts       RelayOptions
	lockKey    int64
	m          *metrics
}

func NewRelay(pool *pgxpool.Pool, table pgx.Identifier, dispatcher Dispatcher, opts RelayOptions) (*Relay, error) {
	switch {
	case pool == nil:
		return nil, invalidConfig("pool is required")
	case len(table) == 0:
		return nil, invalidConfig("table is required")
	case dispatcher == nil:
		return nil, invalidConfig("dispatcher is required")
	}
	opts.setDefaults()
	label := TableLabel(table)
	return &Relay{
		pool:       pool,
		table:      table,
		tableLabel: label,
		dispatcher: dispatcher,
		opts:       opts,
		lockKey:    advisoryLockKey("outbox:" + label),
		m:          getMetrics(),
	}, nil
}

// Run blocks until ctx is done. With SingleActive only the instance holding the
// table's advisory lock dispatches; the others keep polling for the lock.
func (r *Relay) Run(ctx context.Context) error {
	if !r.opts.SingleActive {
		r.m.relayLeader.WithLabelValues(r.tableLabel).Set(1)
		return r.loop(ctx, r.pool)
	}
	for {
		c, err := r.pool.Acquire(ctx)
		if err == nil {
			var leader bool
			leader, err = r.tryLead(ctx, c)
			if err == nil && leader {
				r.m.relayLeader.WithLabelValues(r.tableLabel).Set(1)
				r.opts.Logger.Info("outbox: relay became leader")
				err = r.loop(ctx, c)
				if _, unlockErr := c.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1::bigint)`, r.lockKey); unlockErr != nil {
					r.opts.Logger.WithError(unlockErr).Warn("outbox: failed to release leader lock")
				}
				c.Release()
				r.m.relayLeader.WithLabelValues(r.tableLabel).Set(0)
				return err
			}
			c.Release()
			r.m.relayLeader.WithLabelValues(r.tableLabel).Set(0)
		}
		if err != nil {
			r.opts.Logger.WithError(err).Warn("outbox: leader election attempt failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.opts.PollInterval):
		}
	}
}

func (r *Relay) tryLead(ctx context.Context, c *pgxpool.Conn) (bool, error) {
	var ok bool
	err := c.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, r.lockKey).Scan(&ok)
	return ok, err
}

func (r *Relay) loop(ctx context.Context, db conn) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	nextDepthAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(nextDepthAt) {
			if err := r.observeDepth(ctx, db); err != nil {
				r.opts.Logger.WithError(err).Debug("outbox: observe queue depth failed")
			}
			nextDepthAt = time.Now().Add(r.opts.ObserveQueueDepthEvery)
		}

		if _, err := r.ProcessOnce(ctx, db); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.opts.Logger.WithError(err).Warn("outbox: process tick failed")
		}
	}
}

type claimedRow struct {
	id          uuid.UUID
	aggregateID uuid.UUID
	topic       string
	payload     []byte
	eventID     uuid.UUID
	sequence    int64
	attempts    int
}

// ProcessOnce claims one batch, dispatches it and settles every row. It returns the number of rows claimed.
func (r *Relay) ProcessOnce(ctx context.Context, db conn) (int, error) {
	rows, err := r.claim(ctx, db, time.Now())
	if err != nil {
		return 0, err
	}
	for _, c := range rows {
		r.deliver(ctx, db, c)
	}
	return len(rows), nil
}

func (r *Relay) deliver(ctx context.Context, db conn, c claimedRow) {
	log := r.opts.Logger.WithFields(map[string]any{
		"topic":        c.topic,
		"event_id":     c.eventID.String(),
		"aggregate_id": c.aggregateID.String(),
		"sequence":     c.sequence,
		"attempts":     c.attempts,
	})

	dispatchCtx, cancel := context.WithTimeout(ctx, r.opts.DispatchTimeout)
	start := time.Now()
	err := r.dispatcher.Dispatch(dispatchCtx, DispatchedMessage{
		Meta: Meta{
			Table:       r.table,
			AggregateID: c.aggregateID,
			Topic:       c.topic,
			EventID:     c.eventID,
			Sequence:    c.sequence,
			Attempts:    c.attempts,
		},
		Payload: c.payload,
	})
	cancel()

	result := "success"
	if err != nil {
		result = "failure"
	}
	r.m.dispatchTotal.WithLabelValues(r.tableLabel, c.topic, result).Inc()
	r.m.dispatchLatency.WithLabelValues(r.tableLabel, c.topic, result).Observe(time.Since(start).Seconds())

	table := r.table.Sanitize()
	var settleErr error
	switch {
	case err == nil:
		_, settleErr = db.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET published_at = now(), locked_at = NULL, last_error = NULL
			  WHERE id = $1 AND published_at IS NULL`, table), c.id)
	case c.attempts >= r.opts.MaxAttempts:
		r.m.deadTotal.WithLabelValues(r.tableLabel, c.topic).Inc()
		log.WithError(err).Error("outbox: message exhausted its attempts")
		_, settleErr = db.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET locked_at = NULL, last_error = $2
			  WHERE id = $1 AND published_at IS NULL`, table), c.id, truncateError(err, r.opts.LastErrorMaxLen))
	default:
		next := time.Now().Add(backoff(c.attempts, r.opts.MaxBackoff) + jitter(r.opts.Rand, r.opts.JitterMax))
		_, settleErr = db.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET locked_at = NULL, last_error = $2, available_at = $3
			  WHERE id = $1 AND published_at IS NULL`, table), c.id, truncateError(err, r.opts.LastErrorMaxLen), next)
	}
	if settleErr != nil {
		log.WithError(settleErr).WithField("result", result).Warn("outbox: failed to settle message")
	}
}

func (r *Relay) claim(ctx context.Context, db conn, now time.Time) ([]claimedRow, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	table := r.table.Sanitize()
	rows, err := tx.Query(ctx, fmt.Sprintf(
		`SELECT id, aggregate_id, topic, payload, event_id, sequence, attempts
		   FROM %s
		  WHERE published_at IS NULL
		    AND available_at <= $1
		    AND attempts < $2
		    AND (locked_at IS NULL OR locked_at < $3)
		  ORDER BY available_at, sequence
		  LIMIT $4
		  FOR UPDATE SKIP LOCKED`, table),
		now, r.opts.MaxAttempts, now.Add(-r.opts.LockTTL), r.opts.BatchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("outbox claim select: %w", err)
	}

	var (
		out []claimedRow
		ids []uuid.UUID
	)
	for rows.Next() {
		var c claimedRow
		if err := rows.Scan(&c.id, &c.aggregateID, &c.topic, &c.payload, &c.eventID, &c.sequence, &c.attempts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("outbox claim scan: %w", err)
		}
		c.attempts++
		out = append(out, c)
		ids = append(ids, c.id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outbox claim rows: %w", err)
	}

	if len(ids) > 0 {
		if _, err := tx.Exec(ctx, fmt.Sprintf(
			`UPDATE %s SET locked_at = $1, attempts = attempts + 1 WHERE id = ANY($2)`, table),
			now, pgtype.FlatArray[uuid.UUID](ids),
		); err != nil {
			return nil, fmt.Errorf("outbox claim update: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Relay) observeDepth(ctx context.Context, db conn) error {
	var pending, locked int64
	err := db.QueryRow(ctx, fmt.Sprintf(
		`SELECT count(*), count(*) FILTER (WHERE locked_at IS NOT NULL)
		   FROM %s WHERE published_at IS NULL`, r.table.Sanitize()),
	).Scan(&pending, &locked)
	if err != nil {
		return fmt.Errorf("outbox depth: %w", err)
	}
	r.m.pending.WithLabelValues(r.tableLabel).Set(float64(pending))
	r.m.locked.WithLabelValues(r.tableLabel).Set(float64(locked))
	return nil
}

func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
