package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"time"

	"postboard/internal/middleware"
	"postboard/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultIssuer   = "postboard-api"
	DefaultAudience = "postboard-client"

	// MinSecretLength is the shortest HMAC key accepted by NewSessions.
	MinSecretLength = 16
)

// SessionConfig configures token signing. Secret is process-wide and must
// not change while the process runs.
type SessionConfig struct {
	Secret   []byte
	TTL      time.Duration
	Issuer   string
	Audience string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Token is a signed session token and the instant it stops verifying.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Sessions issues and verifies HS256 session tokens. Tokens are not stored
// server-side.
type Sessions struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
	parser   *jwt.Parser
}

// NewSessions validates cfg and builds a Sessions.
func NewSessions(cfg SessionConfig) (*Sessions, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session TTL must be positive")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	s := &Sessions{
		secret:   secret,
		ttl:      cfg.TTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      cfg.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.Now),
	)
	return s, nil
}

// GenerateSecret returns 32 random bytes for use as a signing key.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return secret, nil
}

// Issue signs a token for userID valid for the configured TTL.
func (s *Sessions) Issue(userID uint) (Token, error) {
	if userID == 0 {
		return Token{}, errors.New("cannot issue a session for user 0")
	}

	// NumericDate has second precision; truncating keeps the reported
	// expiry identical to the signed one.
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign session token: %w", err)
	}
	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature, issuer, audience and expiry of token and
// returns the principal it was issued to. A token stops verifying at the
// instant now reaches its expiry.
func (s *Sessions) Verify(token string) (Principal, error) {
	if token == "" {
		middleware.AuthFailures.WithLabelValues("missing_token").Inc()
		return Principal{}, models.NewUnauthorizedError("Authorization required")
	}

	var claims jwt.RegisteredClaims
	_, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			middleware.AuthFailures.WithLabelValues("expired_token").Inc()
			return Principal{}, &models.AppError{Code: models.CodeUnauthorized, Message: "Session expired", Err: err}
		}
		middleware.AuthFailures.WithLabelValues("invalid_token").Inc()
		return Principal{}, &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid or expired token", Err: err}
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		middleware.AuthFailures.WithLabelValues("invalid_subject").Inc()
		return Principal{}, models.NewUnauthorizedError("Invalid subject claim")
	}

	return Principal{
		UserID:    uint(userID),
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
