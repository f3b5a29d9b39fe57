//go:build integration

package changes_test

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/modules"
	"github.com/richardissailing/fantastic-spoon/modules/changes"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	coreservices "github.com/richardissailing/fantastic-spoon/modules/core/services"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/eventbus"
)

func TestModule_Integration_TransitionIsAtomic(t *testing.T) {
	dsn := os.Getenv("CHANGES_TEST_DSN")
	if dsn == "" {
		t.Skip("CHANGES_TEST_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	require.NoError(t, modules.Load(app, modules.BuiltInModules(&changes.ModuleOptions{})...))
	require.NoError(t, app.Migrations().Up(ctx))

	ctx = composables.WithPool(ctx, pool)
	users := app.Service(coreservices.UserService{}).(*coreservices.UserService)
	changeService := app.Service(services.ChangeService{}).(*services.ChangeService)
	lifecycleService := app.Service(services.LifecycleService{}).(*services.LifecycleService)
	comments := app.Service(services.CommentService{}).(*services.CommentService)

	manager, err := users.GetOrCreate(ctx, &user.CreateDTO{
		Name:  "Integration Manager",
		Email: "it-" + uuid.NewString()[:8] + "@example.com",
		Role:  string(user.RoleManager),
	})
	require.NoError(t, err)

	c, err := changeService.Create(ctx, manager.ID(), &change.CreateDTO{
		Title:       "Integration change",
		Description: "exercise the pg repositories",
		Priority:    string(change.PriorityLow),
		Impact:      string(change.ImpactLow),
		Type:        "NORMAL",
	})
	require.NoError(t, err)
	require.Equal(t, change.StatusPending, c.Status())

	outboxRows := func() int {
		var n int
		require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM change_outbox WHERE aggregate_id = $1", c.ID()).Scan(&n))
		return n
	}

	_, err = lifecycleService.Transition(ctx, services.TransitionCommand{ChangeID: c.ID(), Status: change.StatusInProgress, ActorID: manager.ID()})
	require.ErrorIs(t, err, lifecycle.ErrPolicyViolation)
	assert.Zero(t, outboxRows())

	res, err := lifecycleService.Transition(ctx, services.TransitionCommand{
		ChangeID: c.ID(), Status: change.StatusApproved, ActorID: manager.ID(), Comment: "looks good",
	})
	require.NoError(t, err)
	require.True(t, res.Applied)
	require.NotNil(t, res.Change.ApprovedBy())
	assert.Equal(t, manager.ID(), res.Change.ApprovedBy().ID)
	assert.Equal(t, 1, outboxRows())

	stored, err := changeService.GetByID(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, change.StatusApproved, stored.Status())
	assert.Equal(t, "Integration Manager", stored.ApprovedBy().Name)

	items, err := comments.List(ctx, c.ID())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "looks good", items[0].Content())

	res, err = lifecycleService.Transition(ctx, services.TransitionCommand{ChangeID: c.ID(), Status: change.StatusApproved, ActorID: manager.ID()})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 1, outboxRows())
}
