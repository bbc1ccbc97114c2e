package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"mealbox-service/internal/domain/user"
	xerrors "mealbox-service/internal/pkg/errors"
	"mealbox-service/internal/pkg/jwt"
	"mealbox-service/internal/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct {
	create      func(ctx context.Context, u *user.User) error
	findByID    func(ctx context.Context, id int64) (*user.User, error)
	findByEmail func(ctx context.Context, email string) (*user.User, error)
	setPassword func(ctx context.Context, id int64, hash string) error
}

func (m *mockUserStore) Create(ctx context.Context, u *user.User) error { return m.create(ctx, u) }

func (m *mockUserStore) FindByID(ctx context.Context, id int64) (*user.User, error) {
	return m.findByID(ctx, id)
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.findByEmail(ctx, email)
}

func (m *mockUserStore) SetPassword(ctx context.Context, id int64, hash string) error {
	return m.setPassword(ctx, id, hash)
}

type mockSessions struct {
	created int
	revoked []string
}

func (m *mockSessions) Create(ctx context.Context, identityID int64) (*session.Session, error) {
	m.created++
	return &session.Session{ID: "jti-1", IdentityID: identityID, CreatedAt: time.Now()}, nil
}

func (m *mockSessions) Validate(ctx context.Context, jti string) (*session.Session, error) {
	for _, r := range m.revoked {
		if r == jti {
			return nil, xerrors.ErrSessionExpired
		}
	}
	return &session.Session{ID: jti}, nil
}

func (m *mockSessions) Revoke(ctx context.Context, jti string, identityID int64) error {
	m.revoked = append(m.revoked, jti)
	return nil
}

func (m *mockSessions) RevokeAll(ctx context.Context, identityID int64) error { return nil }

func testManager(t *testing.T) *jwt.Manager {
	t.Helper()
	mgr, err := jwt.NewManager(jwt.Config{
		Secret:   "test-secret",
		Issuer:   "mealbox",
		Audience: "mealbox-api",
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	return mgr
}

func hashOf(t *testing.T, password string) sql.NullString {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return sql.NullString{String: string(h), Valid: true}
}

func activeUser(t *testing.T) *user.User {
	return &user.User{
		ID:           7,
		Email:        "eater@example.com",
		FullName:     "Regular Eater",
		PasswordHash: hashOf(t, "hunter2hunter2"),
		PasswordSet:  true,
		Role:         user.RoleCustomer,
		Status:       user.StatusActive,
	}
}

func TestRegisterNewUser(t *testing.T) {
	var created *user.User
	users := &mockUserStore{
		findByEmail: func(ctx context.Context, email string) (*user.User, error) {
			return nil, xerrors.ErrNotFound
		},
		create: func(ctx context.Context, u *user.User) error {
			u.ID = 1
			created = u
			return nil
		},
		findByID: func(ctx context.Context, id int64) (*user.User, error) {
			return created, nil
		},
	}
	sessions := &mockSessions{}
	svc := NewAuthService(users, testManager(t), sessions, zap.NewNop())

	resp, err := svc.Register(context.Background(), &user.RegisterRequest{
		Email:    "eater@example.com",
		FullName: "Regular Eater",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.True(t, created.PasswordSet)
	assert.Equal(t, user.RoleCustomer, created.Role)
	require.True(t, created.PasswordHash.Valid)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash.String), []byte("hunter2hunter2")))

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, 1, sessions.created)
}

func TestRegisterClaimsCheckoutAccount(t *testing.T) {
	// The account exists from payment reconciliation but has no password.
	unclaimed := &user.User{
		ID:          5,
		Email:       "buyer@example.com",
		FullName:    "New Buyer",
		PasswordSet: false,
		Role:        user.RoleCustomer,
		Status:      user.StatusActive,
	}
	createCalled := false
	passwordSetFor := int64(0)
	users := &mockUserStore{
		findByEmail: func(ctx context.Context, email string) (*user.User, error) {
			return unclaimed, nil
		},
		setPassword: func(ctx context.Context, id int64, hash string) error {
			passwordSetFor = id
			return nil
		},
		create: func(ctx context.Context, u *user.User) error {
			createCalled = true
			return nil
		},
		findByID: func(ctx context.Context, id int64) (*user.User, error) {
			return unclaimed, nil
		},
	}
	svc := NewAuthService(users, testManager(t), &mockSessions{}, zap.NewNop())

	resp, err := svc.Register(context.Background(), &user.RegisterRequest{
		Email:    "buyer@example.com",
		FullName: "New Buyer",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5), passwordSetFor)
	assert.False(t, createCalled)
	assert.NotEmpty(t, resp.Token)
}

func TestRegisterConflictsOnClaimedEmail(t *testing.T) {
	users := &mockUserStore{
		findByEmail: func(ctx context.Context, email string) (*user.User, error) {
			u := activeUser(t)
			return u, nil
		},
	}
	svc := NewAuthService(users, testManager(t), &mockSessions{}, zap.NewNop())

	_, err := svc.Register(context.Background(), &user.RegisterRequest{
		Email:    "eater@example.com",
		FullName: "Regular Eater",
		Password: "hunter2hunter2",
	})
	assert.ErrorIs(t, err, xerrors.ErrConflict)
}

func TestLogin(t *testing.T) {
	t.Run("valid credentials", func(t *testing.T) {
		u := activeUser(t)
		users := &mockUserStore{
			findByEmail: func(ctx context.Context, email string) (*user.User, error) { return u, nil },
			findByID:    func(ctx context.Context, id int64) (*user.User, error) { return u, nil },
		}
		svc := NewAuthService(users, testManager(t), &mockSessions{}, zap.NewNop())

		resp, err := svc.Login(context.Background(), &user.LoginRequest{
			Email:    "eater@example.com",
			Password: "hunter2hunter2",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, u.ID, resp.User.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		u := activeUser(t)
		users := &mockUserStore{
			findByEmail: func(ctx context.Context, email string) (*user.User, error) { return u, nil },
		}
		svc := NewAuthService(users, testManager(t), &mockSessions{}, zap.NewNop())

		_, err := svc.Login(context.Background(), &user.LoginRequest{
			Email:    "eater@example.com",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, xerrors.ErrInvalidCredentials)
	})

	t.Run("unknown email looks like bad credentials", func(t *testing.T) {
		users := &mockUserStore{
			findByEmail: func(ctx context.Context, email string) (*user.User, error) {
				return nil, xerrors.ErrNotFound
			},
		}
		svc := NewAuthService(users, testManager(t), &mockSessions{}, zap.NewNop())

		_, err := svc.Login(context.Background(), &user.LoginRequest{Email: "nobody@example.com", Password: "x"})
		assert.ErrorIs(t, err, xerrors.ErrInvalidCredentials)
	})

	t.Run("unclaimed checkout account cannot log in", func(t *testing.T) {
		u := activeUser(t)
		u.PasswordSet = false
		u.PasswordHash = sql.NullString{}
		users := &mockUserStore{
			findByEmail: func(ctx context.Context, email string) (*user.User, error) { return u, nil },
		}
		svc := NewAuthService(users, testManager(t), &mockSessions{}, zap.NewNop())

		_, err := svc.Login(context.Background(), &user.LoginRequest{
			Email:    "eater@example.com",
			Password: "hunter2hunter2",
		})
		assert.ErrorIs(t, err, xerrors.ErrInvalidCredentials)
	})

	t.Run("inactive account forbidden", func(t *testing.T) {
		u := activeUser(t)
		u.Status = user.StatusInactive
		users := &mockUserStore{
			findByEmail: func(ctx context.Context, email string) (*user.User, error) { return u, nil },
		}
		svc := NewAuthService(users, testManager(t), &mockSessions{}, zap.NewNop())

		_, err := svc.Login(context.Background(), &user.LoginRequest{
			Email:    "eater@example.com",
			Password: "hunter2hunter2",
		})
		assert.ErrorIs(t, err, xerrors.ErrForbidden)
	})
}

func TestValidateToken(t *testing.T) {
	u := activeUser(t)
	users := &mockUserStore{
		findByEmail: func(ctx context.Context, email string) (*user.User, error) { return u, nil },
		findByID:    func(ctx context.Context, id int64) (*user.User, error) { return u, nil },
	}
	sessions := &mockSessions{}
	svc := NewAuthService(users, testManager(t), sessions, zap.NewNop())

	resp, err := svc.Login(context.Background(), &user.LoginRequest{
		Email:    "eater@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.IdentityID)
	assert.Contains(t, claims.Roles, string(user.RoleCustomer))

	// Revoking the session kills the token before expiry.
	require.NoError(t, svc.Logout(context.Background(), claims.ID, u.ID))
	_, err = svc.ValidateToken(context.Background(), resp.Token)
	assert.Error(t, err)

	_, err = svc.ValidateToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}
