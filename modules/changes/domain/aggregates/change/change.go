package change

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRef is a user reference resolved to display data.
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

type ChangeRequest struct {
	id              uuid.UUID
	title           string
	description     string
	status          Status
	priority        Priority
	impact          Impact
	changeType      string
	systemsAffected []string
	requestedBy     UserRef
	approvedBy      *UserRef
	plannedStart    *time.Time
	plannedEnd      *time.Time
	createdAt       time.Time
	updatedAt       time.Time
}

type Option func(c *ChangeRequest)

func WithPlannedWindow(start, end *time.Time) Option {
	return func(c *ChangeRequest) {
		c.plannedStart = start
		c.plannedEnd = end
	}
}

func WithSystemsAffected(systems []string) Option {
	return func(c *ChangeRequest) {
		c.systemsAffected = normalizeSystems(systems)
	}
}

func WithType(changeType string) Option {
	return func(c *ChangeRequest) {
		c.changeType = strings.ToUpper(strings.TrimSpace(changeType))
	}
}

// New creates a PENDING request with no approval.
func New(title, description string, priority Priority, impact Impact, requestedBy uuid.UUID, opts ...Option) ChangeRequest {
	now := time.Now().UTC()
	c := ChangeRequest{
		id:          uuid.New(),
		title:       strings.TrimSpace(title),
		description: strings.TrimSpace(description),
		status:      StatusPending,
		priority:    priority,
		impact:      impact,
		requestedBy: UserRef{ID: requestedBy},
		createdAt:   now,
		updatedAt:   now,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func Hydrate(
	id uuid.UUID,
	title string,
	description string,
	status Status,
	priority Priority,
	impact Impact,
	changeType string,
	systemsAffected []string,
	requestedBy UserRef,
	approvedBy *UserRef,
	plannedStart *time.Time,
	plannedEnd *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
) ChangeRequest {
	return ChangeRequest{
		id:              id,
		title:           title,
		description:     description,
		status:          status,
		priority:        priority,
		impact:          impact,
		changeType:      changeType,
		systemsAffected: systemsAffected,
		requestedBy:     requestedBy,
		approvedBy:      approvedBy,
		plannedStart:    plannedStart,
		plannedEnd:      plannedEnd,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (c ChangeRequest) ID() uuid.UUID             { return c.id }
func (c ChangeRequest) Title() string             { return c.title }
func (c ChangeRequest) Description() string       { return c.description }
func (c ChangeRequest) Status() Status            { return c.status }
func (c ChangeRequest) Priority() Priority        { return c.priority }
func (c ChangeRequest) Impact() Impact            { return c.impact }
func (c ChangeRequest) Type() string              { return c.changeType }
func (c ChangeRequest) RequestedBy() UserRef      { return c.requestedBy }
func (c ChangeRequest) ApprovedBy() *UserRef      { return c.approvedBy }
func (c ChangeRequest) PlannedStart() *time.Time  { return c.plannedStart }
func (c ChangeRequest) PlannedEnd() *time.Time    { return c.plannedEnd }
func (c ChangeRequest) CreatedAt() time.Time      { return c.createdAt }
func (c ChangeRequest) UpdatedAt() time.Time      { return c.updatedAt }
func (c ChangeRequest) IsApproved() bool          { return c.approvedBy != nil && c.approvedBy.ID != uuid.Nil }
func (c ChangeRequest) IsZero() bool              { return c.id == uuid.Nil }
func (c ChangeRequest) SystemsAffected() []string { return append([]string(nil), c.systemsAffected...) }

// ApproverID returns the approver id or nil when the request carries no approval.
func (c ChangeRequest) ApproverID() *uuid.UUID {
	if !c.IsApproved() {
		return nil
	}
	id := c.approvedBy.ID
	return &id
}

// SetStatus returns a copy moved to status. The approver becomes actor when
// status is APPROVED or COMPLETED and is cleared otherwise.
func (c ChangeRequest) SetStatus(status Status, actor uuid.UUID, at time.Time) ChangeRequest {
	c.status = status
	if ApprovesOnEntry(status) {
		c.approvedBy = &UserRef{ID: actor}
	} else {
		c.approvedBy = nil
	}
	c.updatedAt = at
	return c
}

// ApprovesOnEntry reports whether moving into status records the actor as approver.
func ApprovesOnEntry(status Status) bool {
	return status == StatusApproved || status == StatusCompleted
}

// Copy returns a new PENDING request with the same content, titled "Copy of <title>".
// The requester is kept and the approval is dropped.
func (c ChangeRequest) Copy() ChangeRequest {
	now := time.Now().UTC()
	return ChangeRequest{
		id:              uuid.New(),
		title:           "Copy of " + c.title,
		description:     c.description,
		status:          StatusPending,
		priority:        c.priority,
		impact:          c.impact,
		changeType:      c.changeType,
		systemsAffected: c.SystemsAffected(),
		requestedBy:     c.requestedBy,
		plannedStart:    copyTime(c.plannedStart),
		plannedEnd:      copyTime(c.plannedEnd),
		createdAt:       now,
		updatedAt:       now,
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func normalizeSystems(systems []string) []string {
	out := make([]string, 0, len(systems))
	seen := make(map[string]struct{}, len(systems))
	for _, s := range systems {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
