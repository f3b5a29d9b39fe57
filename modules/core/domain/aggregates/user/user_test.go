package user_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	r, err := user.ParseRole(" manager ")
	require.NoError(t, err)
	assert.Equal(t, user.RoleManager, r)

	r, err = user.ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, user.RoleUser, r)

	_, err = user.ParseRole("owner")
	require.Error(t, err)
}

func TestNew_Normalizes(t *testing.T) {
	t.Parallel()

	u := user.New("  Ada Lovelace ", " Ada@Example.COM ", "")
	assert.NotEqual(t, "", u.ID().String())
	assert.Equal(t, "Ada Lovelace", u.Name())
	assert.Equal(t, "ada@example.com", u.Email())
	assert.Equal(t, user.RoleUser, u.Role())
	assert.False(t, u.CanApprove())
	assert.True(t, user.New("b", "b@x.io", user.RoleAdmin).CanApprove())
}

func TestCreateDTO_Ok(t *testing.T) {
	t.Parallel()

	dto := &user.CreateDTO{Name: "Ada", Email: "not-an-email", Role: "boss"}
	errs, ok := dto.Ok()
	require.False(t, ok)
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "role")

	dto = &user.CreateDTO{Name: " Ada ", Email: "ADA@example.com", Role: "admin"}
	_, ok = dto.Ok()
	require.True(t, ok)
	u, err := dto.ToEntity()
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, u.Role())
	assert.Equal(t, "ada@example.com", u.Email())
}
