package change

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/pkg/constants"
	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

type CreateDTO struct {
	Title           string     `json:"title" validate:"required,max=255"`
	Description     string     `json:"description" validate:"required"`
	Priority        string     `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Impact          string     `json:"impact" validate:"required,oneof=LOW MEDIUM HIGH"`
	Type            string     `json:"type" validate:"required,max=64"`
	PlannedStart    *time.Time `json:"plannedStart,omitempty"`
	PlannedEnd      *time.Time `json:"plannedEnd,omitempty"`
	SystemsAffected []string   `json:"systemsAffected,omitempty" validate:"max=50,dive,max=128"`
}

var jsonFieldNames = map[string]string{
	"Title":           "title",
	"Description":     "description",
	"Priority":        "priority",
	"Impact":          "impact",
	"Type":            "type",
	"PlannedStart":    "plannedStart",
	"PlannedEnd":      "plannedEnd",
	"SystemsAffected": "systemsAffected",
}

func (d *CreateDTO) Normalize() {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Priority = strings.ToUpper(strings.TrimSpace(d.Priority))
	d.Impact = strings.ToUpper(strings.TrimSpace(d.Impact))
	d.Type = strings.ToUpper(strings.TrimSpace(d.Type))
}

func (d *CreateDTO) Ok() (serrors.ValidationErrors, bool) {
	d.Normalize()

	validationErrors := make(serrors.ValidationErrors)
	if errs := constants.Validate.Struct(d); errs != nil {
		validatorErrs, ok := errs.(validator.ValidationErrors)
		if !ok {
			validationErrors["_"] = errs.Error()
			return validationErrors, false
		}
		fieldName := func(field string) string { return jsonFieldNames[field] }
		for field, msg := range serrors.ProcessValidatorErrors(validatorErrs, fieldName) {
			validationErrors[field] = msg
		}
	}
	if d.PlannedStart != nil && d.PlannedEnd != nil && d.PlannedEnd.Before(*d.PlannedStart) {
		validationErrors["plannedEnd"] = "plannedEnd must not be before plannedStart"
	}
	return validationErrors, len(validationErrors) == 0
}

// ToEntity builds a new PENDING request. Call Ok first.
func (d *CreateDTO) ToEntity(requestedBy uuid.UUID) (ChangeRequest, error) {
	priority, err := ParsePriority(d.Priority)
	if err != nil {
		return ChangeRequest{}, err
	}
	impact, err := ParseImpact(d.Impact)
	if err != nil {
		return ChangeRequest{}, err
	}
	return New(
		d.Title,
		d.Description,
		priority,
		impact,
		requestedBy,
		WithType(d.Type),
		WithSystemsAffected(d.SystemsAffected),
		WithPlannedWindow(utc(d.PlannedStart), utc(d.PlannedEnd)),
	), nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
