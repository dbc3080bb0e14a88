package jwt

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ntraining/backend/config"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Claims caller identity carried by the bearer token.
type Claims struct {
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
	TokenType      string `json:"token_type"`
	jwtv5.RegisteredClaims
}

// Manager signs and verifies HS256 tokens.
type Manager struct {
	secret         []byte
	issuer         string
	accessTokenTTL time.Duration
}

// NewManager creates a JWT manager.
func NewManager(cfg *config.AuthConfig) *Manager {
	return &Manager{
		secret:         []byte(cfg.JWTSecret),
		issuer:         cfg.Issuer,
		accessTokenTTL: cfg.AccessTokenTTL,
	}
}

// GenerateAccessToken mints an access token. Production tokens come from the
// identity provider; this is used by local tooling and tests.
func (m *Manager) GenerateAccessToken(userID, role, organizationID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:         userID,
		Role:           role,
		OrganizationID: organizationID,
		TokenType:      "access",
		RegisteredClaims: jwtv5.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(m.accessTokenTTL)),
			Issuer:    m.issuer,
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken verifies signature, expiry and issuer.
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	opts := []jwtv5.ParserOption{}
	if m.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(m.issuer))
	}
	token, err := jwtv5.ParseWithClaims(tokenString, &Claims{}, func(t *jwtv5.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != "access" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
