// internal/service/auth/auth_service.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mealbox-service/internal/domain/user"
	xerrors "mealbox-service/internal/pkg/errors"
	"mealbox-service/internal/pkg/jwt"
	"mealbox-service/internal/pkg/session"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	FindByID(ctx context.Context, id int64) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	SetPassword(ctx context.Context, id int64, hash string) error
}

type Sessions interface {
	Create(ctx context.Context, identityID int64) (*session.Session, error)
	Validate(ctx context.Context, jti string) (*session.Session, error)
	Revoke(ctx context.Context, jti string, identityID int64) error
	RevokeAll(ctx context.Context, identityID int64) error
}

// AuthService handles registration, login, and token validation. Accounts
// created by payment reconciliation have no password yet; registering with
// the same email claims the account instead of conflicting.
type AuthService struct {
	users    UserStore
	tokens   *jwt.Manager
	sessions Sessions
	logger   *zap.Logger
}

func NewAuthService(users UserStore, tokens *jwt.Manager, sessions Sessions, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, sessions: sessions, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, req *user.RegisterRequest) (*user.AuthResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	existing, err := s.users.FindByEmail(ctx, req.Email)
	switch {
	case err == nil && !existing.PasswordSet:
		// Account was created during checkout; claim it.
		if err := s.users.SetPassword(ctx, existing.ID, string(hash)); err != nil {
			return nil, err
		}
		s.logger.Info("checkout account claimed", zap.Int64("user_id", existing.ID))
		return s.issueToken(ctx, existing.ID)
	case err == nil:
		return nil, fmt.Errorf("%w: email already registered", xerrors.ErrConflict)
	case !errors.Is(err, xerrors.ErrNotFound):
		return nil, err
	}

	u := &user.User{
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: sql.NullString{String: string(hash), Valid: true},
		PasswordSet:  true,
		Role:         user.RoleCustomer,
		Status:       user.StatusActive,
	}
	if req.Phone != "" {
		u.Phone = sql.NullString{String: req.Phone, Valid: true}
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", u.ID))
	return s.issueToken(ctx, u.ID)
}

func (s *AuthService) Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error) {
	u, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if u.Status != user.StatusActive {
		return nil, xerrors.ErrForbidden
	}
	if !u.PasswordSet || !u.PasswordHash.Valid {
		// The account exists from a checkout but was never claimed.
		return nil, xerrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash.String), []byte(req.Password)); err != nil {
		return nil, xerrors.ErrInvalidCredentials
	}

	return s.issueToken(ctx, u.ID)
}

func (s *AuthService) Logout(ctx context.Context, jti string, identityID int64) error {
	return s.sessions.Revoke(ctx, jti, identityID)
}

func (s *AuthService) LogoutAll(ctx context.Context, identityID int64) error {
	return s.sessions.RevokeAll(ctx, identityID)
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (*user.User, error) {
	return s.users.FindByID(ctx, id)
}

// ValidateToken verifies a bearer token and checks its session is still live.
func (s *AuthService) ValidateToken(ctx context.Context, tokenStr string) (*jwt.Claims, error) {
	claims, err := s.tokens.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.Validate(ctx, claims.ID); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) issueToken(ctx context.Context, userID int64) (*user.AuthResponse, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Generate(u.ID, []string{string(u.Role)}, sess.ID)
	if err != nil {
		return nil, err
	}
	return &user.AuthResponse{Token: token, User: u}, nil
}
