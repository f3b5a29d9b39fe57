package serrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

func TestBaseError_As(t *testing.T) {
	t.Parallel()

	sentinel := serrors.NewError("CHANGE_NOT_FOUND", "change not found", "")
	wrapped := fmt.Errorf("%w: id=42", sentinel)

	var be *serrors.BaseError
	require.ErrorAs(t, wrapped, &be)
	require.Equal(t, "CHANGE_NOT_FOUND", be.Code)
	require.True(t, errors.Is(wrapped, sentinel))
}

func TestProcessValidatorErrors(t *testing.T) {
	t.Parallel()

	type dto struct {
		Title    string `validate:"required"`
		Priority string `validate:"oneof=LOW HIGH"`
	}
	err := validator.New().Struct(dto{Priority: "NOPE"})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	out := serrors.ProcessValidatorErrors(verrs, func(field string) string {
		if field == "Title" {
			return "title"
		}
		return ""
	})
	require.Equal(t, "title is required", out["Title"])
	require.Equal(t, "Priority must be one of [LOW HIGH]", out["Priority"])
}
