package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cleaner deletes published rows older than the retention window.
type Cleaner struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
	opts  CleanerOptions
}

func NewCleaner(pool *pgxpool.Pool, table pgx.Identifier, opts CleanerOptions) (*Cleaner, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	opts.setDefaults()
	return &Cleaner{pool: pool, table: table, opts: opts}, nil
}

func (c *Cleaner) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		n, err := c.CleanOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.opts.Logger.WithError(err).Warn("outbox: cleaner tick failed")
			continue
		}
		if n > 0 {
			c.opts.Logger.WithField("deleted", n).Debug("outbox: cleaner removed published messages")
		}
	}
}

func (c *Cleaner) CleanOnce(ctx context.Context) (int64, error) {
	tag, err := c.pool.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE published_at IS NOT NULL AND published_at < $1`, c.table.Sanitize()),
		time.Now().Add(-c.opts.Retention),
	)
	if err != nil {
		return 0, fmt.Errorf("outbox cleaner delete published: %w", err)
	}
	return tag.RowsAffected(), nil
}
