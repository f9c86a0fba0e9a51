package service

import (
	"context"
	"log/slog"

	"postboard/internal/auth"
	"postboard/internal/middleware"
	"postboard/internal/models"
)

// Credentials is what AuthService needs from the credential store.
type Credentials interface {
	Register(ctx context.Context, handle, password string) (*models.User, error)
	Verify(ctx context.Context, handle, password string) (*models.User, error)
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID uint) (auth.Token, error)
}

type AuthService struct {
	credentials Credentials
	sessions    TokenIssuer
}

type SignUpInput struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type SignInInput struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// AuthResult is a fresh session together with the user it belongs to.
type AuthResult struct {
	auth.Token
	User *models.User `json:"user"`
}

func NewAuthService(credentials Credentials, sessions TokenIssuer) *AuthService {
	return &AuthService{credentials: credentials, sessions: sessions}
}

// SignUp registers a new user and opens a session for them.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	user, err := s.credentials.Register(ctx, in.Handle, in.Password)
	if err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user registered", slog.Uint64("user_id", uint64(user.ID)))
	return s.issue(user)
}

// SignIn verifies a handle/password pair and opens a session.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*AuthResult, error) {
	user, err := s.credentials.Verify(ctx, in.Handle, in.Password)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}
