package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
)

const (
	dashboardRecentLimit = 5
	reportRecentLimit    = 10
	dashboardCacheKey    = "dashboard"
)

// SnapshotCache stores rendered views. Implementations may lose entries at any time.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

type Period string

const (
	PeriodThisWeek    Period = "thisWeek"
	PeriodThisMonth   Period = "thisMonth"
	PeriodLastMonth   Period = "lastMonth"
	PeriodLastQuarter Period = "lastQuarter"
)

var Periods = []Period{PeriodThisWeek, PeriodThisMonth, PeriodLastMonth, PeriodLastQuarter}

// ParsePeriod falls back to PeriodThisMonth for unknown input.
func ParsePeriod(s string) Period {
	for _, p := range Periods {
		if string(p) == s {
			return p
		}
	}
	return PeriodThisMonth
}

// Start returns the beginning of the reporting window that ends at now.
func (p Period) Start(now time.Time) time.Time {
	switch p {
	case PeriodThisWeek:
		return now.AddDate(0, 0, -7)
	case PeriodLastMonth:
		return time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
	case PeriodLastQuarter:
		return now.AddDate(0, -3, 0)
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
}

func (p Period) cacheKey() string {
	return "report:" + string(p)
}

// ChangeSummary is the read model listed on dashboards and reports.
type ChangeSummary struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Status      change.Status   `json:"status"`
	Priority    change.Priority `json:"priority"`
	Impact      change.Impact   `json:"impact"`
	Type        string          `json:"type"`
	RequestedBy change.UserRef  `json:"requestedBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func SummarizeChange(c change.ChangeRequest) ChangeSummary {
	return ChangeSummary{
		ID:          c.ID(),
		Title:       c.Title(),
		Status:      c.Status(),
		Priority:    c.Priority(),
		Impact:      c.Impact(),
		Type:        c.Type(),
		RequestedBy: c.RequestedBy(),
		CreatedAt:   c.CreatedAt(),
		UpdatedAt:   c.UpdatedAt(),
	}
}

type DashboardView struct {
	Available   bool            `json:"available"`
	Total       int64           `json:"total"`
	Pending     int64           `json:"pending"`
	InProgress  int64           `json:"inProgress"`
	Completed   int64           `json:"completed"`
	Recent      []ChangeSummary `json:"recent"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

type ReportView struct {
	Available   bool                      `json:"available"`
	Period      Period                    `json:"period"`
	PeriodStart time.Time                 `json:"periodStart"`
	PeriodEnd   time.Time                 `json:"periodEnd"`
	Total       int64                     `json:"total"`
	ByStatus    map[change.Status]int64   `json:"byStatus"`
	ByPriority  map[change.Priority]int64 `json:"byPriority"`
	Recent      []ChangeSummary           `json:"recent"`
}

// StatusQueryService builds dashboard and report views. It never writes and
// never fails: a read error yields a view with Available set to false.
type StatusQueryService struct {
	changes change.Repository
	cache   SnapshotCache
	now     func() time.Time
}

// NewStatusQueryService creates the service. cache may be nil.
func NewStatusQueryService(changes change.Repository, cache SnapshotCache) *StatusQueryService {
	return &StatusQueryService{
		changes: changes,
		cache:   cache,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *StatusQueryService) DashboardStats(ctx context.Context) DashboardView {
	var view DashboardView
	if s.fromCache(ctx, "dashboard", dashboardCacheKey, &view) {
		return view
	}

	view, err := s.dashboard(ctx)
	if err != nil {
		s.degrade(ctx, "dashboard", err)
		return DashboardView{Recent: []ChangeSummary{}, GeneratedAt: s.now()}
	}
	s.toCache(ctx, dashboardCacheKey, view)
	return view
}

func (s *StatusQueryService) dashboard(ctx context.Context) (DashboardView, error) {
	byStatus, err := s.changes.CountByStatus(ctx, nil)
	if err != nil {
		return DashboardView{}, err
	}
	recent, err := s.changes.List(ctx, &change.FindParams{Limit: dashboardRecentLimit})
	if err != nil {
		return DashboardView{}, err
	}
	var total int64
	for _, n := range byStatus {
		total += n
	}
	return DashboardView{
		Available:   true,
		Total:       total,
		Pending:     byStatus[change.StatusPending],
		InProgress:  byStatus[change.StatusInProgress],
		Completed:   byStatus[change.StatusCompleted],
		Recent:      summarize(recent),
		GeneratedAt: s.now(),
	}, nil
}

// Report aggregates the requests created in period. Unknown periods fall back to this month.
func (s *StatusQueryService) Report(ctx context.Context, period string) ReportView {
	p := ParsePeriod(period)
	var view ReportView
	if s.fromCache(ctx, "report", p.cacheKey(), &view) {
		return view
	}

	end := s.now()
	start := p.Start(end)
	view, err := s.report(ctx, p, start, end)
	if err != nil {
		s.degrade(ctx, "report", err)
		return emptyReport(p, start, end)
	}
	s.toCache(ctx, p.cacheKey(), view)
	return view
}

func (s *StatusQueryService) report(ctx context.Context, p Period, start, end time.Time) (ReportView, error) {
	params := &change.FindParams{CreatedFrom: start, CreatedTo: end}
	byStatus, err := s.changes.CountByStatus(ctx, params)
	if err != nil {
		return ReportView{}, err
	}
	byPriority, err := s.changes.CountByPriority(ctx, params)
	if err != nil {
		return ReportView{}, err
	}
	recent, err := s.changes.List(ctx, &change.FindParams{CreatedFrom: start, CreatedTo: end, Limit: reportRecentLimit})
	if err != nil {
		return ReportView{}, err
	}

	view := emptyReport(p, start, end)
	view.Available = true
	for st, n := range byStatus {
		view.ByStatus[st] = n
		view.Total += n
	}
	for pr, n := range byPriority {
		view.ByPriority[pr] = n
	}
	view.Recent = summarize(recent)
	return view, nil
}

// Invalidate drops every cached view. Errors are logged and ignored.
func (s *StatusQueryService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := []string{dashboardCacheKey}
	for _, p := range Periods {
		keys = append(keys, p.cacheKey())
	}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		composables.UseLogger(ctx).WithError(err).Warn("failed to invalidate status cache")
	}
}

func (s *StatusQueryService) fromCache(ctx context.Context, view, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	m := getMetrics()
	ok, err := s.cache.Get(ctx, key, dst)
	switch {
	case err != nil:
		m.cacheResults.WithLabelValues(view, "error").Inc()
		composables.UseLogger(ctx).WithError(err).WithField("key", key).Debug("status cache read failed")
		return false
	case !ok:
		m.cacheResults.WithLabelValues(view, "miss").Inc()
		return false
	}
	m.cacheResults.WithLabelValues(view, "hit").Inc()
	return true
}

func (s *StatusQueryService) toCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		composables.UseLogger(ctx).WithError(err).WithField("key", key).Debug("status cache write failed")
	}
}

func (s *StatusQueryService) degrade(ctx context.Context, view string, err error) {
	getMetrics().queryFailures.WithLabelValues(view).Inc()
	composables.UseLogger(ctx).WithFields(logrus.Fields{
		"view":  view,
		"error": err.Error(),
	}).Warn("status data unavailable")
}

func emptyReport(p Period, start, end time.Time) ReportView {
	view := ReportView{
		Period:      p,
		PeriodStart: start,
		PeriodEnd:   end,
		ByStatus:    make(map[change.Status]int64, len(change.Statuses)),
		ByPriority:  make(map[change.Priority]int64, len(change.Priorities)),
		Recent:      []ChangeSummary{},
	}
	for _, st := range change.Statuses {
		view.ByStatus[st] = 0
	}
	for _, pr := range change.Priorities {
		view.ByPriority[pr] = 0
	}
	return view
}

func summarize(items []change.ChangeRequest) []ChangeSummary {
	out := make([]ChangeSummary, 0, len(items))
	for _, c := range items {
		out = append(out, SummarizeChange(c))
	}
	return out
}
