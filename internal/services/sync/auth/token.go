// Package auth issues and verifies the bearer tokens that bind sync requests
// to a tenant.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// ErrInvalidToken reports a token that failed verification for any reason.
// Callers get no detail beyond this; the specific failure is not theirs to
// learn.
var ErrInvalidToken = errors.New("auth: invalid token")

// tokenEnv holds raw env values before post-parse validation.
type tokenEnv struct {
	Secret string        `env:"SYNCD_TOKEN_SECRET"`
	Issuer string        `env:"SYNCD_TOKEN_ISSUER" envDefault:"syncd"`
	TTL    time.Duration `env:"SYNCD_TOKEN_TTL"`
}

// Config defines how session tokens are signed and verified.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// LoadConfigFromEnv reads token configuration from the environment.
func LoadConfigFromEnv() (Config, error) {
	var raw tokenEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse token env: %w", err)
	}
	secret := strings.TrimSpace(raw.Secret)
	if secret == "" {
		return Config{}, fmt.Errorf("SYNCD_TOKEN_SECRET is required")
	}
	ttl := raw.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return Config{
		Secret: []byte(secret),
		Issuer: strings.TrimSpace(raw.Issuer),
		TTL:    ttl,
		Now:    time.Now,
	}, nil
}

// Tokens signs and verifies HMAC session tokens carrying a tenant id as the
// subject claim.
type Tokens struct {
	cfg Config
}

// NewTokens creates a token signer/verifier from cfg.
func NewTokens(cfg Config) (*Tokens, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("token secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Tokens{cfg: cfg}, nil
}

// Issue signs a token for the given tenant.
func (t *Tokens) Issue(tenant string) (string, error) {
	if t == nil {
		return "", fmt.Errorf("tokens are not configured")
	}
	tenant = strings.TrimSpace(tenant)
	if tenant == "" {
		return "", fmt.Errorf("tenant is required")
	}
	now := t.cfg.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   tenant,
		Issuer:    t.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.TTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks a token's signature and expiry and returns the tenant it was
// issued to.
func (t *Tokens) Verify(token string) (string, error) {
	if t == nil {
		return "", fmt.Errorf("tokens are not configured")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(parsed *jwt.Token) (any, error) {
		return t.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return t.cfg.Now().UTC() }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", ErrInvalidToken
	}
	if t.cfg.Issuer != "" && claims.Issuer != t.cfg.Issuer {
		return "", ErrInvalidToken
	}
	tenant := strings.TrimSpace(claims.Subject)
	if tenant == "" {
		return "", ErrInvalidToken
	}
	return tenant, nil
}
