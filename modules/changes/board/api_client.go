package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
	"github.com/richardissailing/fantastic-spoon/modules/changes/presentation/controllers/dtos"
	"github.com/richardissailing/fantastic-spoon/pkg/httpapi"
)

const (
	maxErrorBody = 64 << 10

	defaultPageSize = 200
	// maxPageSize matches the server's list clamp; a larger page would come
	// back short and end paging early.
	maxPageSize = 500
)

// APIClient talks to the change request HTTP API. Error envelopes are turned
// back into lifecycle errors so callers can branch with errors.Is.
type APIClient struct {
	baseURL     *url.URL
	actorHeader string
	actorID     uuid.UUID
	pageSize    int
	http        *http.Client
}

type ClientOption func(*APIClient)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(a *APIClient) {
		a.http = c
	}
}

func WithActorHeader(header string) ClientOption {
	return func(a *APIClient) {
		a.actorHeader = header
	}
}

// WithPageSize sets how many requests List fetches per call.
func WithPageSize(n int) ClientOption {
	return func(a *APIClient) {
		a.pageSize = min(max(n, 1), maxPageSize)
	}
}

func NewAPIClient(baseURL string, actorID uuid.UUID, opts ...ClientOption) (*APIClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	c := &APIClient{
		baseURL:     u,
		actorHeader: "X-Actor-ID",
		actorID:     actorID,
		pageSize:    defaultPageSize,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *APIClient) Transition(ctx context.Context, id uuid.UUID, to change.Status, comment string) (change.ChangeRequest, error) {
	var out dtos.TransitionResponse
	body := dtos.TransitionRequest{Status: string(to), Comment: comment}
	if err := c.do(ctx, http.MethodPatch, "/api/changes/"+id.String()+"/status", body, &out); err != nil {
		return change.ChangeRequest{}, err
	}
	return FromResponse(out.Change)
}

// List pages through every request until the server returns a short page.
func (c *APIClient) List(ctx context.Context) ([]change.ChangeRequest, error) {
	var items []change.ChangeRequest
	for offset := 0; ; offset += c.pageSize {
		var out dtos.ListResponse[dtos.ChangeResponse]
		path := fmt.Sprintf("/api/changes?limit=%d&offset=%d", c.pageSize, offset)
		if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
			return nil, err
		}
		for _, r := range out.Items {
			item, err := FromResponse(r)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if len(out.Items) < c.pageSize {
			return items, nil
		}
	}
}

func (c *APIClient) Get(ctx context.Context, id uuid.UUID) (change.ChangeRequest, error) {
	var out dtos.ChangeResponse
	if err := c.do(ctx, http.MethodGet, "/api/changes/"+id.String(), nil, &out); err != nil {
		return change.ChangeRequest{}, err
	}
	return FromResponse(out)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, dst any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.actorID != uuid.Nil {
		req.Header.Set(c.actorHeader, c.actorID.String())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return lifecycle.Storage(method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeAPIError(resp.StatusCode, raw)
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return lifecycle.Storage("decode response", err)
	}
	return nil
}

// decodeAPIError rebuilds the lifecycle error an envelope describes.
func decodeAPIError(status int, body []byte) error {
	env := httpapi.DecodeError(status, body)
	kind := lifecycle.Kind(env.Kind)
	if kind == "" {
		kind = kindForStatus(status)
	}

	switch kind {
	case lifecycle.KindPolicyViolation:
		d := lifecycle.Decision{
			Rule:    lifecycle.Rule(env.Meta["rule"]),
			Reason:  env.Meta["reason"],
			Message: env.Message,
		}
		return lifecycle.NewPolicyViolation(change.Status(env.Meta["from"]), change.Status(env.Meta["to"]), d)
	case lifecycle.KindValidation:
		return lifecycle.Validationf("%s", env.Message)
	case lifecycle.KindNotFound:
		return lifecycle.NotFoundf("%s", env.Message)
	default:
		return lifecycle.Storage(fmt.Sprintf("http %d", status), env)
	}
}

func kindForStatus(status int) lifecycle.Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return lifecycle.KindValidation
	case http.StatusNotFound:
		return lifecycle.KindNotFound
	case http.StatusConflict:
		return lifecycle.KindPolicyViolation
	default:
		return lifecycle.KindStorage
	}
}

// FromResponse converts the wire form back into a domain request. Unknown
// status symbols are rejected rather than defaulted.
func FromResponse(r dtos.ChangeResponse) (change.ChangeRequest, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return change.ChangeRequest{}, lifecycle.Validationf("invalid change id %q", r.ID)
	}
	status, err := change.ParseStatus(r.Status)
	if err != nil {
		return change.ChangeRequest{}, err
	}
	priority, err := change.ParsePriority(r.Priority)
	if err != nil {
		return change.ChangeRequest{}, err
	}
	impact, err := change.ParseImpact(r.Impact)
	if err != nil {
		return change.ChangeRequest{}, err
	}
	requestedBy, err := userRefFromDTO(r.RequestedBy)
	if err != nil {
		return change.ChangeRequest{}, err
	}
	var approvedBy *change.UserRef
	if r.ApprovedBy != nil {
		ref, err := userRefFromDTO(*r.ApprovedBy)
		if err != nil {
			return change.ChangeRequest{}, err
		}
		approvedBy = &ref
	}
	return change.Hydrate(
		id, r.Title, r.Description, status, priority, impact, r.Type, r.SystemsAffected,
		requestedBy, approvedBy, r.PlannedStart, r.PlannedEnd, r.CreatedAt, r.UpdatedAt,
	), nil
}

func userRefFromDTO(u dtos.UserRef) (change.UserRef, error) {
	id, err := uuid.Parse(u.ID)
	if err != nil {
		return change.UserRef{}, lifecycle.Validationf("invalid user id %q", u.ID)
	}
	return change.UserRef{ID: id, Name: u.Name, Email: u.Email}, nil
}
