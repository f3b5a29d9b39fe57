package controllers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/httpapi"
	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

// StatusForKind maps an error kind to its HTTP status.
func StatusForKind(kind lifecycle.Kind) int {
	switch kind {
	case lifecycle.KindValidation:
		return http.StatusUnprocessableEntity
	case lifecycle.KindNotFound:
		return http.StatusNotFound
	case lifecycle.KindPolicyViolation:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

func codeForKind(kind lifecycle.Kind) string {
	switch kind {
	case lifecycle.KindValidation:
		return "CHANGE_VALIDATION_FAILED"
	case lifecycle.KindNotFound:
		return "CHANGE_NOT_FOUND"
	case lifecycle.KindPolicyViolation:
		return "CHANGE_POLICY_VIOLATION"
	default:
		return "CHANGE_STORAGE"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		panic(err)
	}
}

func requestMeta(r *http.Request) map[string]string {
	meta := map[string]string{}
	if requestID := composables.UseRequestID(r.Context()); requestID != "" {
		meta["request_id"] = requestID
	}
	return meta
}

// writeChangeError renders err as an envelope carrying its kind. Policy
// violations include the rule so clients can rebuild the decision.
func writeChangeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := lifecycle.KindOf(err)
	meta := requestMeta(r)
	message := lifecycle.UserMessage(err)

	var pv *lifecycle.PolicyViolationError
	var verrs serrors.ValidationErrors
	switch {
	case errors.As(err, &pv):
		meta["from"] = string(pv.From)
		meta["to"] = string(pv.To)
		meta["rule"] = string(pv.Decision.Rule)
		meta["reason"] = pv.Decision.Reason
	case errors.As(err, &verrs):
		for field, msg := range verrs {
			meta["field."+field] = msg
		}
		message = verrs.Error()
	case kind == lifecycle.KindValidation:
		message = err.Error()
	case kind == lifecycle.KindNotFound:
		message = "change request not found"
	default:
		composables.UseLogger(r.Context()).WithError(err).Error("change request storage failure")
	}

	if len(meta) == 0 {
		meta = nil
	}
	if werr := httpapi.WriteKindError(w, StatusForKind(kind), string(kind), codeForKind(kind), message, meta); werr != nil {
		panic(werr)
	}
}

func writeInvalidJSON(w http.ResponseWriter, r *http.Request) {
	writeChangeError(w, r, lifecycle.Validationf("invalid json"))
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, lifecycle.Validationf("invalid change id")
	}
	return id, nil
}

func actorID(r *http.Request) (uuid.UUID, error) {
	id, err := composables.UseActor(r.Context())
	if err != nil {
		return uuid.Nil, lifecycle.Validationf("actor is required")
	}
	return id, nil
}
