package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser    Role = "USER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return r, nil
	case "":
		return RoleUser, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type User struct {
	id        uuid.UUID
	name      string
	email     string
	role      Role
	createdAt time.Time
}

func New(name, email string, role Role) User {
	if role == "" {
		role = RoleUser
	}
	return User{
		id:        uuid.New(),
		name:      strings.TrimSpace(name),
		email:     normalizeEmail(email),
		role:      role,
		createdAt: time.Now().UTC(),
	}
}

func Hydrate(id uuid.UUID, name, email string, role Role, createdAt time.Time) User {
	return User{
		id:        id,
		name:      name,
		email:     email,
		role:      role,
		createdAt: createdAt,
	}
}

func (u User) ID() uuid.UUID        { return u.id }
func (u User) Name() string         { return u.name }
func (u User) Email() string        { return u.email }
func (u User) Role() Role           { return u.role }
func (u User) CreatedAt() time.Time { return u.createdAt }
func (u User) IsZero() bool         { return u.id == uuid.Nil }

// CanApprove reports whether the user may approve or reject change requests.
func (u User) CanApprove() bool {
	return u.role == RoleManager || u.role == RoleAdmin
}

func normalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
