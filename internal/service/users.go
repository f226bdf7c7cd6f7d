package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/optica/internal/events"
	"github.com/Skotchmaster/optica/internal/hash"
	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/repo"
	"github.com/Skotchmaster/optica/internal/transport"
)

type UserService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

func (s *UserService) Patch(ctx context.Context, id uuid.UUID, req transport.PatchUserRequest, actor string) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email cannot be empty", ErrValidation)
		}
		if email != user.Email {
			if _, err := s.Repo.GetUserByEmail(ctx, email); err == nil {
				return nil, fmt.Errorf("%w: email already registered", ErrConflict)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("load user: %w", err)
			}
		}
		user.Email = email
	}
	if req.Password != nil {
		if len(*req.Password) < 6 {
			return nil, fmt.Errorf("%w: password must have at least 6 characters", ErrValidation)
		}
		pwHash, err := hash.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = pwHash
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		user.Name = name
	}
	if req.NationalID != nil {
		user.NationalID = strings.TrimSpace(*req.NationalID)
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *req.Role)
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.Repo.SaveUser(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}

	publish(ctx, s.Events, events.TopicUsers, user.ID.String(), events.Event{
		Type:  events.UserUpdated,
		ID:    user.ID.String(),
		Actor: actor,
	})
	return user, nil
}
