package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FeliksML/web-cellar-sub000/internal/auth"
	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/repository"
	apperrors "github.com/FeliksML/web-cellar-sub000/pkg/errors"
)

const minPasswordLength = 8

// AuthService implements registration, login and token rotation.
type AuthService struct {
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
	jwt    *auth.JWTManager
	hasher *auth.PasswordHasher
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	jwt *auth.JWTManager,
	hasher *auth.PasswordHasher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		jwt:    jwt,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterInput holds the parameters for creating an account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// UpdateProfileInput holds profile changes; nil fields are left unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

// Register creates a customer account.
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*domain.User, error) {
	return s.createUser(ctx, input, domain.RoleCustomer)
}

func (s *AuthService) createUser(ctx context.Context, input *RegisterInput, role string) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("Email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.InvalidInputf("Password must be at least %d characters", minPasswordLength)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)
	return user, nil
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Incorrect email or password")
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, apperrors.Unauthorized("Incorrect email or password")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Inactive user")
	}

	return s.issue(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}

	stored, err := s.tokens.GetByHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid refresh token")
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	if !stored.IsUsable(s.now()) || stored.UserID != claims.UserID() {
		return nil, apperrors.Unauthorized("Invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid refresh token")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Inactive user")
	}

	if err := s.tokens.Revoke(ctx, stored.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid refresh token")
		}
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	return s.issue(ctx, user)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	stored, err := s.tokens.GetByHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get refresh token: %w", err)
	}
	if err := s.tokens.Revoke(ctx, stored.ID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*auth.TokenPair, error) {
	pair, err := s.jwt.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	token := &domain.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: s.now().UTC(),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}

// GetUser returns an active user by id.
func (s *AuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User")
	}
	return user, nil
}

// UpdateProfile changes the caller's name and phone.
func (s *AuthService) UpdateProfile(ctx context.Context, id string, input *UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// ChangePassword replaces the password and signs out every session.
func (s *AuthService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(user.PasswordHash, currentPassword) {
		return apperrors.InvalidInput("Current password is incorrect")
	}
	if len(newPassword) < minPasswordLength {
		return apperrors.InvalidInputf("Password must be at least %d characters", minPasswordLength)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.tokens.RevokeAllForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", user.ID))
	return nil
}

// EnsureUser creates an account with role unless the email is taken. It
// reports whether a user was created.
func (s *AuthService) EnsureUser(ctx context.Context, input *RegisterInput, role string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(input.Email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return false, fmt.Errorf("get user by email: %w", err)
	}
	if _, err := s.createUser(ctx, input, role); err != nil {
		return false, err
	}
	return true, nil
}
