package seed

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
	coreseed "github.com/richardissailing/fantastic-spoon/modules/core/seed"
	coreservices "github.com/richardissailing/fantastic-spoon/modules/core/services"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
)

var SampleChanges = []change.CreateDTO{
	{
		Title:           "Rotate database credentials",
		Description:     "Quarterly rotation of the primary database credentials.",
		Priority:        string(change.PriorityHigh),
		Impact:          string(change.ImpactMedium),
		Type:            "SECURITY",
		SystemsAffected: []string{"postgres", "api"},
	},
	{
		Title:           "Upgrade ingress controller",
		Description:     "Move the ingress controller to the latest minor release.",
		Priority:        string(change.PriorityMedium),
		Impact:          string(change.ImpactHigh),
		Type:            "INFRASTRUCTURE",
		SystemsAffected: []string{"kubernetes"},
	},
}

// ChangeSeedFunc files each dto on behalf of the user registered under
// requesterEmail, skipping titles that already exist.
func ChangeSeedFunc(requesterEmail string, dtos ...change.CreateDTO) coreseed.SeedFunc {
	return func(ctx context.Context, app application.Application) error {
		users := app.Service(coreservices.UserService{}).(*coreservices.UserService)
		changes := app.Service(services.ChangeService{}).(*services.ChangeService)
		logger := composables.UseLogger(ctx)

		requester, err := users.GetByEmail(ctx, requesterEmail)
		if err != nil {
			return errors.Wrapf(err, "failed to find requester %s", requesterEmail)
		}
		existing, err := changes.List(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "failed to list change requests")
		}
		titles := make(map[string]struct{}, len(existing))
		for _, c := range existing {
			titles[c.Title()] = struct{}{}
		}

		for _, dto := range dtos {
			d := dto
			if _, ok := titles[d.Title]; ok {
				continue
			}
			c, err := changes.Create(ctx, requester.ID(), &d)
			if err != nil {
				return errors.Wrapf(err, "failed to seed change %q", d.Title)
			}
			logger.WithField("id", c.ID()).Info("change request seeded")
		}
		return nil
	}
}
