package dtos

import (
	"time"

	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/aggregates/change"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/entities/comment"
	"github.com/richardissailing/fantastic-spoon/modules/changes/domain/lifecycle"
)

type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type ChangeResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	StatusLabel     string     `json:"statusLabel"`
	Priority        string     `json:"priority"`
	Impact          string     `json:"impact"`
	Type            string     `json:"type"`
	SystemsAffected []string   `json:"systemsAffected"`
	RequestedBy     UserRef    `json:"requestedBy"`
	ApprovedBy      *UserRef   `json:"approvedBy,omitempty"`
	PlannedStart    *time.Time `json:"plannedStart,omitempty"`
	PlannedEnd      *time.Time `json:"plannedEnd,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type CommentResponse struct {
	ID        string    `json:"id"`
	ChangeID  string    `json:"changeId"`
	Content   string    `json:"content"`
	Author    UserRef   `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// TransitionRequest is the body of PATCH /api/changes/{id}/status.
type TransitionRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

type TransitionResponse struct {
	Change   ChangeResponse     `json:"change"`
	Previous string             `json:"previous"`
	Applied  bool               `json:"applied"`
	Decision lifecycle.Decision `json:"decision"`
	Comment  *CommentResponse   `json:"comment,omitempty"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

type CancelRequest struct {
	Comment string `json:"comment,omitempty"`
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
}

func toUserRef(u change.UserRef) UserRef {
	return UserRef{ID: u.ID.String(), Name: u.Name, Email: u.Email}
}

func ChangeToResponse(c change.ChangeRequest) ChangeResponse {
	resp := ChangeResponse{
		ID:              c.ID().String(),
		Title:           c.Title(),
		Description:     c.Description(),
		Status:          string(c.Status()),
		StatusLabel:     c.Status().Label(),
		Priority:        string(c.Priority()),
		Impact:          string(c.Impact()),
		Type:            c.Type(),
		SystemsAffected: c.SystemsAffected(),
		RequestedBy:     toUserRef(c.RequestedBy()),
		PlannedStart:    c.PlannedStart(),
		PlannedEnd:      c.PlannedEnd(),
		CreatedAt:       c.CreatedAt(),
		UpdatedAt:       c.UpdatedAt(),
	}
	if resp.SystemsAffected == nil {
		resp.SystemsAffected = []string{}
	}
	if a := c.ApprovedBy(); a != nil {
		ref := toUserRef(*a)
		resp.ApprovedBy = &ref
	}
	return resp
}

func ChangesToResponse(items []change.ChangeRequest) []ChangeResponse {
	out := make([]ChangeResponse, 0, len(items))
	for _, c := range items {
		out = append(out, ChangeToResponse(c))
	}
	return out
}

func CommentToResponse(c comment.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID().String(),
		ChangeID:  c.ChangeID().String(),
		Content:   c.Content(),
		Author:    toUserRef(c.Author()),
		CreatedAt: c.CreatedAt(),
	}
}

func CommentsToResponse(items []comment.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(items))
	for _, c := range items {
		out = append(out, CommentToResponse(c))
	}
	return out
}
