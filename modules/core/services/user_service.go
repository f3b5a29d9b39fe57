package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/richardissailing/fantastic-spoon/modules/core/domain/aggregates/user"
	"github.com/richardissailing/fantastic-spoon/pkg/serrors"
)

type UserService struct {
	repo user.Repository
}

func NewUserService(repo user.Repository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) List(ctx context.Context, params *user.FindParams) ([]user.User, error) {
	return s.repo.List(ctx, params)
}

// Create validates dto and stores a new user.
func (s *UserService) Create(ctx context.Context, dto *user.CreateDTO) (user.User, error) {
	if dto == nil {
		return user.User{}, errors.New("missing dto")
	}
	if errs, ok := dto.Ok(); !ok {
		return user.User{}, errs
	}
	entity, err := dto.ToEntity()
	if err != nil {
		return user.User{}, serrors.ValidationErrors{"Role": err.Error()}
	}
	return s.repo.Create(ctx, entity)
}

// GetOrCreate returns the user registered under dto.Email, creating it when absent.
func (s *UserService) GetOrCreate(ctx context.Context, dto *user.CreateDTO) (user.User, error) {
	dto.Normalize()
	existing, err := s.repo.GetByEmail(ctx, dto.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, err
	}
	return s.Create(ctx, dto)
}
