package user

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/richardissailing/fantastic-spoon/pkg/constants"
	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

type CreateDTO struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=320"`
	Role  string `json:"role" validate:"omitempty,oneof=USER MANAGER ADMIN"`
}

func (d *CreateDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = normalizeEmail(d.Email)
	d.Role = strings.ToUpper(strings.TrimSpace(d.Role))
}

func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Normalize()
	errs := constants.Validate.Struct(d)
	if errs == nil {
		return serrors.ValidationErrors{}, true
	}
	return serrors.ProcessValidatorErrors(errs.(validator.ValidationErrors), strings.ToLower), false
}

func (d *CreateDTO) ToEntity() (User, error) {
	role, err := ParseRole(d.Role)
	if err != nil {
		return User{}, err
	}
	return New(d.Name, d.Email, role), nil
}
