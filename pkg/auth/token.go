package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"github.com/marmos91/sftpbox/internal/logger"
)

// MinTokenSecretLength is the shortest HMAC secret accepted.
const MinTokenSecretLength = 32

// TokenConfig configures token logins.
type TokenConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Secret   string `mapstructure:"secret" yaml:"secret"`
	Issuer   string `mapstructure:"issuer" yaml:"issuer"`
	Audience string `mapstructure:"audience" yaml:"audience"`
}

// ApplyDefaults fills the issuer and audience.
func (c *TokenConfig) ApplyDefaults() {
	if c.Issuer == "" {
		c.Issuer = "sftpbox"
	}
	if c.Audience == "" {
		c.Audience = "sftp"
	}
}

// Validate checks the secret when tokens are enabled.
func (c *TokenConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Secret) < MinTokenSecretLength {
		return fmt.Errorf("token secret must be at least %d characters", MinTokenSecretLength)
	}
	return nil
}

// TokenClaims are the claims of an SFTP login token. The subject is the SSH
// username the token is valid for.
type TokenClaims struct {
	jwt.RegisteredClaims
}

// TokenVerifier accepts a password that is an HS256 JWT issued for the SSH
// user by a trusted identity provider (or by `sftpbox token issue`).
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

// NewTokenVerifier creates a verifier from cfg. Defaults are applied first.
func NewTokenVerifier(cfg TokenConfig) (*TokenVerifier, error) {
	cfg.ApplyDefaults()
	cfg.Enabled = true
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenVerifier{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}, nil
}

func (v *TokenVerifier) Name() string { return "token" }

// Issue signs a token for user valid for ttl.
func (v *TokenVerifier) Issue(user string, ttl time.Duration) (string, error) {
	if user == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("token lifetime must be positive")
	}
	now := v.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user,
			Issuer:    v.issuer,
			Audience:  jwt.ClaimStrings{v.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Parse validates a token and returns its claims.
func (v *TokenVerifier) Parse(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (v *TokenVerifier) VerifyPassword(ctx context.Context, user, password string) (Result, error) {
	claims, err := v.Parse(password)
	if err != nil {
		// Most passwords are not tokens at all.
		logger.DebugCtx(ctx, "Token rejected", logger.Username(user), logger.Err(err))
		return Reject, nil
	}
	if claims.Subject != user {
		logger.InfoCtx(ctx, "Token subject does not match user",
			logger.Username(user), "subject", claims.Subject)
		return Reject, nil
	}
	return Accept, nil
}

func (v *TokenVerifier) VerifyPublicKey(context.Context, string, ssh.PublicKey) (Result, error) {
	return Reject, nil
}
