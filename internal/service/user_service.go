package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/platform/logger"
	"github.com/phrazzld/mindmap-api/internal/service/auth"
	"github.com/phrazzld/mindmap-api/internal/store"
)

// RegisterParams holds the fields of a new account.
type RegisterParams struct {
	Email    string
	Username string
	Password string
	FullName string
}

// ProfileUpdate lists the profile fields a user may change. Nil fields are
// left alone.
type ProfileUpdate struct {
	Username *string
	FullName *string
}

// LoginResult is the bearer token issued on login.
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// UserService provides account registration, login and profile operations.
type UserService interface {
	Register(ctx context.Context, params RegisterParams) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	verifier  auth.PasswordVerifier
	tokens    auth.JWTService
	logger    *slog.Logger
	now       func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(
	userStore store.UserStore,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	tokens auth.JWTService,
	logger *slog.Logger,
) (UserService, error) {
	switch {
	case userStore == nil:
		return nil, fmt.Errorf("user store cannot be nil")
	case hasher == nil:
		return nil, fmt.Errorf("password hasher cannot be nil")
	case verifier == nil:
		return nil, fmt.Errorf("password verifier cannot be nil")
	case tokens == nil:
		return nil, fmt.Errorf("jwt service cannot be nil")
	case logger == nil:
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &UserServiceImpl{
		userStore: userStore,
		hasher:    hasher,
		verifier:  verifier,
		tokens:    tokens,
		logger:    logger.With("component", "user_service"),
		now:       time.Now,
	}, nil
}

// Register validates and stores a new active user. The plaintext password is
// hashed and cleared before the user is persisted.
func (s *UserServiceImpl) Register(ctx context.Context, params RegisterParams) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := domain.NewUser(params.Email, params.Username, params.FullName, params.Password)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(user.Password)
	if err != nil {
		log.Error("failed to hash password", "error", err)
		return nil, err
	}
	user.HashedPassword = hash
	user.Password = ""

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) || errors.Is(err, store.ErrUsernameExists) {
			log.Debug("registration rejected, duplicate account", "email", user.Email)
			return nil, err
		}
		log.Error("failed to save user", "error", err, "email", user.Email)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks the credentials and issues an access token.
func (s *UserServiceImpl) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.userStore.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			log.Debug("login failed, unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login failed, password mismatch", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	token, err := s.tokens.GenerateToken(ctx, user.ID)
	if err != nil {
		log.Error("failed to generate token", "error", err, "user_id", user.ID)
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   s.now().Add(s.tokens.TokenLifetime()),
	}, nil
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes username and full name. Email and password are not
// editable here.
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user for update: %w", err)
	}

	if update.Username != nil {
		user.Username = strings.TrimSpace(*update.Username)
	}
	if update.FullName != nil {
		user.FullName = strings.TrimSpace(*update.FullName)
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.userStore.Update(ctx, user); err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			log.Debug("profile update rejected, username taken", "user_id", userID)
			return nil, err
		}
		log.Error("failed to update user", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	log.Info("user profile updated", "user_id", userID)
	return user, nil
}
