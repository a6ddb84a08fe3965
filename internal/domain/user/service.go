package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/viewcasthq/viewcast-server/internal/config"
	"github.com/viewcasthq/viewcast-server/utils/videoid"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Repository defines persistence operations needed by the service.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdateRole(ctx context.Context, id string, role Role) (*User, error)
	Delete(ctx context.Context, id string) error
}

// Service handles registration, login and token verification.
type Service struct {
	cfg  *config.Config
	repo Repository
	log  zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, log zerolog.Logger) *Service {
	return &Service{
		cfg:  cfg,
		repo: repo,
		log:  log.With().Str("component", "user-service").Logger(),
	}
}

// RegisterInput carries the self-registration payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     Role
}

// Register creates an account. Self-registration is limited to the Viewer
// and Editor roles; Admin is only reachable through an admin role update.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrInvalidCredentials)
	}
	if in.Role == "" {
		in.Role = RoleViewer
	}
	if in.Role != RoleViewer && in.Role != RoleEditor {
		return nil, ErrInvalidRole
	}

	if existing, err := s.repo.FindByUsername(ctx, in.Username); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	} else if existing != nil {
		return nil, ErrUsernameTaken
	}
	if existing, err := s.repo.FindByEmail(ctx, in.Email); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           videoid.NewUserID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("user registered")
	return u, nil
}

// Login verifies credentials and issues a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  u.ID,
		"username": u.Username,
		"role":     string(u.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(s.cfg.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, u, nil
}

// VerifyToken parses a bearer token and returns the caller identity.
func (s *Service) VerifyToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	if userID == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: userID, Username: username, Role: Role(role)}, nil
}

// Get returns a user profile by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}
