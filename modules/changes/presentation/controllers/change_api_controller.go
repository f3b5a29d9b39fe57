package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/modules/changes/presentation/controllers/dtos"
	"github.com/richardissailing/fantastic-spoon/modules/changes/services"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
)

const defaultListLimit = 100

type ChangeAPIController struct {
	changes   *services.ChangeService
	lifecycle *services.LifecycleService
	comments  *services.CommentService
	basePath  string
}

func NewChangeAPIController(app application.Application) application.Controller {
	return &ChangeAPIController{
		changes:   app.Service(services.ChangeService{}).(*services.ChangeService),
		lifecycle: app.Service(services.LifecycleService{}).(*services.LifecycleService),
		comments:  app.Service(services.CommentService{}).(*services.CommentService),
		basePath:  "/api/changes",
	}
}

func (c *ChangeAPIController) Key() string {
	return c.basePath
}

func (c *ChangeAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
	router.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id}/status", c.Transition).Methods(http.MethodPatch)
	router.HandleFunc("/{id}/copy", c.Copy).Methods(http.MethodPost)
	router.HandleFunc("/{id}/cancel", c.Cancel).Methods(http.MethodPost)
	router.HandleFunc("/{id}/comments", c.ListComments).Methods(http.MethodGet)
	router.HandleFunc("/{id}/comments", c.AddComment).Methods(http.MethodPost)
}

// List accepts repeated or comma separated status and priority filters plus limit and offset.
func (c *ChangeAPIController) List(w http.ResponseWriter, r *http.Request) {
	params, err := findParamsFromQuery(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	items, err := c.changes.List(r.Context(), params)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ListResponse[dtos.ChangeResponse]{Items: dtos.ChangesToResponse(items)})
}

func (c *ChangeAPIController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	item, err := c.changes.GetByID(r.Context(), id)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ChangeToResponse(item))
}

func (c *ChangeAPIController) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	var dto change.CreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	created, err := c.changes.Create(r.Context(), actor, &dto)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.ChangeToResponse(created))
}

func (c *ChangeAPIController) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	actor, err := actorID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	var body dtos.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	status, err := change.ParseStatus(strings.TrimSpace(body.Status))
	if err != nil {
		writeChangeError(w, r, lifecycle.Validationf("unknown status %q", body.Status))
		return
	}

	res, err := c.lifecycle.Transition(r.Context(), services.TransitionCommand{
		ChangeID: id,
		Status:   status,
		ActorID:  actor,
		Comment:  body.Comment,
	})
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransitionResponse(res))
}

func (c *ChangeAPIController) Copy(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	actor, err := actorID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	created, err := c.changes.Copy(r.Context(), id, actor)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.ChangeToResponse(created))
}

func (c *ChangeAPIController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	actor, err := actorID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	var body dtos.CancelRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeInvalidJSON(w, r)
			return
		}
	}
	res, err := c.changes.Cancel(r.Context(), id, actor, body.Comment)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransitionResponse(res))
}

func (c *ChangeAPIController) ListComments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	items, err := c.comments.List(r.Context(), id)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ListResponse[dtos.CommentResponse]{Items: dtos.CommentsToResponse(items)})
}

func (c *ChangeAPIController) AddComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	actor, err := actorID(r)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	var body dtos.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeInvalidJSON(w, r)
		return
	}
	created, err := c.comments.Add(r.Context(), id, actor, body.Content)
	if err != nil {
		writeChangeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.CommentToResponse(created))
}

func toTransitionResponse(res services.TransitionResult) dtos.TransitionResponse {
	out := dtos.TransitionResponse{
		Change:   dtos.ChangeToResponse(res.Change),
		Previous: string(res.Previous),
		Applied:  res.Applied,
		Decision: res.Decision,
	}
	if res.Comment != nil {
		cr := dtos.CommentToResponse(*res.Comment)
		out.Comment = &cr
	}
	return out
}

func findParamsFromQuery(r *http.Request) (*change.FindParams, error) {
	q := r.URL.Query()
	params := &change.FindParams{Limit: defaultListLimit}
	for _, raw := range splitValues(q["status"]) {
		s, err := change.ParseStatus(raw)
		if err != nil {
			return nil, lifecycle.Validationf("unknown status %q", raw)
		}
		params.Statuses = append(params.Statuses, s)
	}
	for _, raw := range splitValues(q["priority"]) {
		p, err := change.ParsePriority(raw)
		if err != nil {
			return nil, lifecycle.Validationf("unknown priority %q", raw)
		}
		params.Priorities = append(params.Priorities, p)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, lifecycle.Validationf("invalid limit %q", v)
		}
		params.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, lifecycle.Validationf("invalid offset %q", v)
		}
		params.Offset = n
	}
	for key, dst := range map[string]*time.Time{"createdFrom": &params.CreatedFrom, "createdTo": &params.CreatedTo} {
		if v := q.Get(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, lifecycle.Validationf("invalid %s %q: want RFC3339", key, v)
			}
			*dst = t
		}
	}
	return params, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
