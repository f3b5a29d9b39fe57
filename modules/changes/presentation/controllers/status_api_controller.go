package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
)

// StatusAPIController serves the read-only dashboard and report views. Both
// always answer 200; an unavailable store shows up as "available": false.
type StatusAPIController struct {
	queries *services.StatusQueryService
}

func NewStatusAPIController(app application.Application) application.Controller {
	return &StatusAPIController{
		queries: app.Service(services.StatusQueryService{}).(*services.StatusQueryService),
	}
}

func (c *StatusAPIController) Key() string {
	return "/api/dashboard"
}

func (c *StatusAPIController) Register(r *mux.Router) {
	r.HandleFunc("/api/dashboard/stats", c.Dashboard).Methods(http.MethodGet)
	r.HandleFunc("/api/reports", c.Report).Methods(http.MethodGet)
}

func (c *StatusAPIController) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.queries.DashboardStats(r.Context()))
}

func (c *StatusAPIController) Report(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.queries.Report(r.Context(), r.URL.Query().Get("period")))
}
