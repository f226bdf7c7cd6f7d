package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/optica/internal/events"
	"github.com/Skotchmaster/optica/internal/hash"
	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/repo"
	"github.com/Skotchmaster/optica/internal/tokens"
	"github.com/Skotchmaster/optica/internal/transport"
)

type AuthService struct {
	Repo   *repo.GormRepo
	Tokens *tokens.Issuer
	Events events.Publisher
}

type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *models.User
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user is inactive", ErrInvalidCredentials)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	res, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUsers, user.ID.String(), events.Event{
		Type:  events.UserLoggedIn,
		ID:    user.ID.String(),
		Actor: user.Email,
	})
	l.Info("login_success", "user_id", user.ID)
	return res, nil
}

// Refresh issues a fresh token for a principal that still exists and is active.
func (s *AuthService) Refresh(ctx context.Context, userID uuid.UUID) (*LoginResult, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user is inactive", ErrUnauthorized)
	}
	return s.issue(user)
}

func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// Register creates a user; the role defaults to seller.
func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest, actor string) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: email and name required", ErrValidation)
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("%w: password must have at least 6 characters", ErrValidation)
	}
	role := req.Role
	if role == "" {
		role = models.RoleSeller
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	if _, err := s.Repo.GetUserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: pwHash,
		Name:         strings.TrimSpace(req.Name),
		NationalID:   strings.TrimSpace(req.NationalID),
		Role:         role,
		IsActive:     true,
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}

	publish(ctx, s.Events, events.TopicUsers, user.ID.String(), events.Event{
		Type:  events.UserRegistered,
		ID:    user.ID.String(),
		Actor: actor,
		Data:  map[string]string{"email": user.Email, "role": string(user.Role)},
	})
	return user, nil
}

// EnsureAdmin creates the admin account unless a user with that email exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	if existing, err := s.Repo.GetUserByEmail(ctx, email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load user: %w", err)
	}

	user, err := s.Register(ctx, transport.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     name,
		Role:     models.RoleAdmin,
	}, "seed")
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *AuthService) issue(user *models.User) (*LoginResult, error) {
	token, exp, err := s.Tokens.Issue(user.ID.String(), user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{AccessToken: token, ExpiresAt: exp, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// publish is best effort; a broker outage never fails the request.
func publish(ctx context.Context, p events.Publisher, topic, key string, ev events.Event) {
	if p == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := p.Publish(ctx, topic, key, ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", ev.Type, "error", err)
	}
}
