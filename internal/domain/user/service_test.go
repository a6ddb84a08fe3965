package user_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/viewcasthq/viewcast-server/internal/config"
	"github.com/viewcasthq/viewcast-server/internal/domain/user"
)

type MockRepository struct {
	CreateFunc         func(ctx context.Context, u *user.User) error
	GetByIDFunc        func(ctx context.Context, id string) (*user.User, error)
	FindByEmailFunc    func(ctx context.Context, email string) (*user.User, error)
	FindByUsernameFunc func(ctx context.Context, username string) (*user.User, error)
	ListFunc           func(ctx context.Context) ([]*user.User, error)
	UpdateRoleFunc     func(ctx context.Context, id string, role user.Role) (*user.User, error)
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockRepository) Create(ctx context.Context, u *user.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, u)
	}
	return nil
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, user.ErrNotFound
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, user.ErrNotFound
}

func (m *MockRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	return nil, user.ErrNotFound
}

func (m *MockRepository) List(ctx context.Context) ([]*user.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockRepository) UpdateRole(ctx context.Context, id string, role user.Role) (*user.User, error) {
	if m.UpdateRoleFunc != nil {
		return m.UpdateRoleFunc(ctx, id, role)
	}
	return nil, user.ErrNotFound
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	}
}

func TestRegister_DefaultsToViewer(t *testing.T) {
	var created *user.User
	repo := &MockRepository{
		CreateFunc: func(_ context.Context, u *user.User) error {
			created = u
			return nil
		},
	}
	svc := user.NewService(testConfig(), repo, zerolog.Nop())

	u, err := svc.Register(context.Background(), user.RegisterInput{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if created == nil {
		t.Fatal("expected account to be created")
	}
	if u.Role != user.RoleViewer {
		t.Errorf("role = %q, want Viewer", u.Role)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want lowercased", u.Email)
	}
	if !strings.HasPrefix(u.ID, "usr_") {
		t.Errorf("id = %q, want usr_ prefix", u.ID)
	}
	if u.PasswordHash == "hunter22" || u.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("hunter22")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegister_AdminSelfRegistrationRejected(t *testing.T) {
	svc := user.NewService(testConfig(), &MockRepository{}, zerolog.Nop())

	_, err := svc.Register(context.Background(), user.RegisterInput{
		Username: "mallory",
		Email:    "mallory@example.com",
		Password: "secret1",
		Role:     user.RoleAdmin,
	})
	if !errors.Is(err, user.ErrInvalidRole) {
		t.Fatalf("register error = %v, want ErrInvalidRole", err)
	}
}

func TestRegister_DuplicateChecks(t *testing.T) {
	existing := &user.User{ID: "usr_1", Username: "alice", Email: "alice@example.com"}

	t.Run("username taken", func(t *testing.T) {
		repo := &MockRepository{
			FindByUsernameFunc: func(context.Context, string) (*user.User, error) {
				return existing, nil
			},
		}
		svc := user.NewService(testConfig(), repo, zerolog.Nop())
		_, err := svc.Register(context.Background(), user.RegisterInput{
			Username: "alice", Email: "new@example.com", Password: "secret1",
		})
		if !errors.Is(err, user.ErrUsernameTaken) {
			t.Fatalf("error = %v, want ErrUsernameTaken", err)
		}
	})

	t.Run("email taken", func(t *testing.T) {
		repo := &MockRepository{
			FindByEmailFunc: func(context.Context, string) (*user.User, error) {
				return existing, nil
			},
		}
		svc := user.NewService(testConfig(), repo, zerolog.Nop())
		_, err := svc.Register(context.Background(), user.RegisterInput{
			Username: "bob", Email: "alice@example.com", Password: "secret1",
		})
		if !errors.Is(err, user.ErrEmailTaken) {
			t.Fatalf("error = %v, want ErrEmailTaken", err)
		}
	})
}

func TestLoginAndVerifyToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	account := &user.User{
		ID:           "usr_1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Role:         user.RoleEditor,
	}
	repo := &MockRepository{
		FindByEmailFunc: func(_ context.Context, email string) (*user.User, error) {
			if email == account.Email {
				return account, nil
			}
			return nil, user.ErrNotFound
		},
	}
	svc := user.NewService(testConfig(), repo, zerolog.Nop())

	token, got, err := svc.Login(context.Background(), "alice@example.com", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != account.ID {
		t.Errorf("user id = %q, want %q", got.ID, account.ID)
	}

	identity, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if identity.UserID != "usr_1" || identity.Username != "alice" || identity.Role != user.RoleEditor {
		t.Errorf("identity = %+v", identity)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	repo := &MockRepository{
		FindByEmailFunc: func(context.Context, string) (*user.User, error) {
			return &user.User{ID: "usr_1", PasswordHash: string(hash)}, nil
		},
	}
	svc := user.NewService(testConfig(), repo, zerolog.Nop())

	if _, _, err := svc.Login(context.Background(), "alice@example.com", "wrong"); !errors.Is(err, user.ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := user.NewService(testConfig(), &MockRepository{}, zerolog.Nop())
	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "x"); !errors.Is(err, user.ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	svc := user.NewService(testConfig(), &MockRepository{}, zerolog.Nop())
	if _, err := svc.VerifyToken("not-a-token"); !errors.Is(err, user.ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	repo := &MockRepository{
		FindByEmailFunc: func(context.Context, string) (*user.User, error) {
			return &user.User{ID: "usr_1", Email: "a@b.c", PasswordHash: string(hash), Role: user.RoleViewer}, nil
		},
	}
	issuer := user.NewService(testConfig(), repo, zerolog.Nop())
	token, _, err := issuer.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatal(err)
	}

	other := user.NewService(&config.Config{JWTSecret: "different", TokenTTL: time.Hour}, repo, zerolog.Nop())
	if _, err := other.VerifyToken(token); !errors.Is(err, user.ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}
