package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	"github.com/richardissailing/fantastic-spoon/modules/core/services"
	"github.com/richardissailing/fantastic-spoon/pkg/application"
	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u user.User) UserResponse {
	return UserResponse{
		ID:        u.ID().String(),
		Name:      u.Name(),
		Email:     u.Email(),
		Role:      string(u.Role()),
		CreatedAt: u.CreatedAt(),
	}
}

type UserAPIController struct {
	users    *services.UserService
	basePath string
}

func NewUserAPIController(app application.Application) application.Controller {
	return &UserAPIController{
		users:    app.Service(services.UserService{}).(*services.UserService),
		basePath: "/api/users",
	}
}

func (c *UserAPIController) Key() string {
	return c.basePath
}

func (c *UserAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("", c.List).Methods(http.MethodGet)
	router.HandleFunc("", c.Create).Methods(http.MethodPost)
}

func (c *UserAPIController) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	items, err := c.users.List(r.Context(), &user.FindParams{Limit: limit})
	if err != nil {
		writeAPIError(w, r, http.StatusServiceUnavailable, "USER_STORAGE", "user storage unavailable, retry later")
		return
	}
	out := make([]UserResponse, 0, len(items))
	for _, u := range items {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (c *UserAPIController) Create(w http.ResponseWriter, r *http.Request) {
	var dto user.CreateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "USER_INVALID_JSON", "invalid json")
		return
	}

	created, err := c.users.Create(r.Context(), &dto)
	if err != nil {
		var verrs serrors.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			writeAPIError(w, r, http.StatusUnprocessableEntity, "USER_VALIDATION_FAILED", verrs.Error())
		case errors.Is(err, user.ErrEmailTaken):
			writeAPIError(w, r, http.StatusConflict, "USER_EMAIL_CONFLICT", user.ErrEmailTaken.Message)
		default:
			writeAPIError(w, r, http.StatusServiceUnavailable, "USER_STORAGE", "user storage unavailable, retry later")
		}
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(created))
}
