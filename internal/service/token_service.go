package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"aria/internal/config"
	"aria/internal/domain"
)

// serviceAudience is the only audience accepted on API tokens.
const serviceAudience = "aria-api"

// Claims represents the JWT claims carried by a service token.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and validates service tokens for callers of the extraction API.
type TokenService interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Validate(tokenString string) (*Claims, error)
}

type tokenService struct {
	cfg config.AuthConfig
	now func() time.Time
}

// NewTokenService creates a new TokenService implementation.
func NewTokenService(cfg config.AuthConfig) TokenService {
	return &tokenService{cfg: cfg, now: time.Now}
}

func (s *tokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if s.cfg.Secret == "" {
		return "", fmt.Errorf("issuing token: no signing secret configured")
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.cfg.Issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
			Audience: jwt.ClaimStrings{serviceAudience},
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (s *tokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithAudience(serviceAudience), jwt.WithTimeFunc(s.now)}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w: %w", domain.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
