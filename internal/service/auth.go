package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/foliodev/folio/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAdmin           = errors.New("admin role required")
	ErrAdminDisabled      = errors.New("admin token not configured")
)

// Principal is the identity carried by a validated session token.
type Principal struct {
	Subject string
}

// AuthService issues and validates identity tokens and binds principals to
// the admin role when they present the configured admin token.
type AuthService struct {
	store          *config.Store
	jwtSecret      []byte
	adminTokenHash []byte
}

// NewAuthService creates an AuthService. adminTokenHash is a bcrypt hash of
// the admin token; when empty, every authorization attempt is refused.
func NewAuthService(store *config.Store, jwtSecret string, adminTokenHash []byte) *AuthService {
	return &AuthService{
		store:          store,
		jwtSecret:      []byte(jwtSecret),
		adminTokenHash: adminTokenHash,
	}
}

// HashAdminToken returns the bcrypt hash stored as auth.admin_token_hash.
func HashAdminToken(token string) ([]byte, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("admin token is empty")
	}
	return bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
}

// ValidateJWT verifies a JWT bearer token and returns the principal it names.
func (s *AuthService) ValidateJWT(ctx context.Context, tokenStr string) (*Principal, error) {
	claims := &jwtClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer("folio"))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidCredentials
	}

	return &Principal{Subject: claims.Subject}, nil
}

// IssueJWT creates a new signed identity token for principal.
func (s *AuthService) IssueJWT(ctx context.Context, principal string, ttl time.Duration) (string, error) {
	if principal == "" {
		return "", errors.New("principal is required")
	}
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "folio",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// AuthorizeAdmin compares token against the configured admin token hash and,
// on a match, binds principal to the admin role. A mismatch is reported as
// false with a nil error. Binding is idempotent.
func (s *AuthService) AuthorizeAdmin(ctx context.Context, principal, token string) (bool, error) {
	if principal == "" {
		return false, ErrInvalidCredentials
	}
	if len(s.adminTokenHash) == 0 {
		return false, ErrAdminDisabled
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	if err := bcrypt.CompareHashAndPassword(s.adminTokenHash, []byte(token)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("compare admin token: %w", err)
	}

	if _, err := s.store.BindAdmin(ctx, principal); err != nil {
		return false, err
	}
	return true, nil
}

// IsAdmin reports whether principal is bound to the admin role. The empty
// principal (anonymous caller) is never an admin.
func (s *AuthService) IsAdmin(ctx context.Context, principal string) (bool, error) {
	if principal == "" {
		return false, nil
	}
	return s.store.IsAdmin(ctx, principal)
}

// RequireAdmin returns ErrNotAdmin unless principal is bound to the admin role.
func (s *AuthService) RequireAdmin(ctx context.Context, principal string) error {
	ok, err := s.IsAdmin(ctx, principal)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAdmin
	}
	return nil
}

type jwtClaims struct {
	jwt.RegisteredClaims
}
