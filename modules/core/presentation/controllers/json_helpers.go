package controllers

import (
	"net/http"

	"github.com/richardissailing/fantastic-spoon/pkg/composables"
	"github.com/richardissailing/fantastic-spoon/pkg/httpapi"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	if err := httpapi.WriteJSON(w, status, payload); err != nil {
		panic(err)
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	var meta map[string]string
	if requestID := composables.UseRequestID(r.Context()); requestID != "" {
		meta = map[string]string{"request_id": requestID}
	}
	if err := httpapi.WriteError(w, status, code, message, meta); err != nil {
		panic(err)
	}
}
