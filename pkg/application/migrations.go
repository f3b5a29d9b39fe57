package application

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"path"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

// MigrationManager applies the goose schemas embedded by modules. Each embedded
// FS must hold its migrations under a directory named "schema" at any depth.
type MigrationManager interface {
	RegisterSchema(migrations ...*embed.FS)
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Status(ctx context.Context) error
}

const schemaDir = "schema"

type migrationManager struct {
	pool    *pgxpool.Pool
	logger  *logrus.Logger
	schemas []fs.FS
}

func NewMigrationManager(pool *pgxpool.Pool, logger *logrus.Logger) MigrationManager {
	return &migrationManager{pool: pool, logger: logger}
}

func (m *migrationManager) RegisterSchema(migrations ...*embed.FS) {
	for _, fsys := range migrations {
		root, err := schemaRoot(fsys)
		if err != nil {
			m.logger.WithError(err).Warn("skipping embedded schema")
			continue
		}
		m.schemas = append(m.schemas, root)
	}
}

// schemaRoot returns the sub tree whose top level holds the schema directory.
func schemaRoot(fsys fs.FS) (fs.FS, error) {
	var parent string
	found := false
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path.Base(p) == schemaDir {
			parent = path.Dir(p)
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Errorf("no %q directory in embedded schema", schemaDir)
	}
	if parent == "." {
		return fsys, nil
	}
	return fs.Sub(fsys, parent)
}

func (m *migrationManager) open() (*sql.DB, error) {
	if m.pool == nil {
		return nil, errors.New("migrations: database pool is not configured")
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	goose.SetLogger(m.logger)
	return stdlib.OpenDBFromPool(m.pool), nil
}

func (m *migrationManager) each(ctx context.Context, reverse bool, fn func(*sql.DB) error) error {
	db, err := m.open()
	if err != nil {
		return err
	}
	defer db.Close()

	order := make([]fs.FS, len(m.schemas))
	copy(order, m.schemas)
	if reverse {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	for _, fsys := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		goose.SetBaseFS(fsys)
		if err := fn(db); err != nil {
			return err
		}
	}
	goose.SetBaseFS(nil)
	return nil
}

func (m *migrationManager) Up(ctx context.Context) error {
	return m.each(ctx, false, func(db *sql.DB) error {
		return errors.Wrap(goose.UpContext(ctx, db, schemaDir, goose.WithAllowMissing()), "migrate up")
	})
}

// Down rolls back the most recent migration.
func (m *migrationManager) Down(ctx context.Context) error {
	db, err := m.open()
	if err != nil {
		return err
	}
	defer db.Close()
	if len(m.schemas) == 0 {
		return nil
	}
	// goose needs the file of the latest applied version, which lives in one of the registered schemas.
	var lastErr error
	for i := len(m.schemas) - 1; i >= 0; i-- {
		goose.SetBaseFS(m.schemas[i])
		if lastErr = goose.DownContext(ctx, db, schemaDir); lastErr == nil {
			break
		}
	}
	goose.SetBaseFS(nil)
	return errors.Wrap(lastErr, "migrate down")
}

func (m *migrationManager) Status(ctx context.Context) error {
	return m.each(ctx, false, func(db *sql.DB) error {
		return errors.Wrap(goose.StatusContext(ctx, db, schemaDir), "migrate status")
	})
}
