package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type ChangeRequest struct {
	ID              uuid.UUID
	Title           string
	Description     string
	Status          string
	Priority        string
	Impact          string
	Type            string
	SystemsAffected []string
	RequestedBy     uuid.UUID
	RequesterName   string
	RequesterEmail  string
	ApprovedBy      pgtype.UUID
	ApproverName    pgtype.Text
	ApproverEmail   pgtype.Text
	PlannedStart    pgtype.Timestamptz
	PlannedEnd      pgtype.Timestamptz
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Comment struct {
	ID          uuid.UUID
	ChangeID    uuid.UUID
	Content     string
	AuthorID    uuid.UUID
	AuthorName  string
	AuthorEmail string
	CreatedAt   time.Time
}
