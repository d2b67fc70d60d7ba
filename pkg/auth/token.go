package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
)

// Clock skew tolerated between the identity service and this one.
const leeway = 30 * time.Second

// Actor is the authenticated caller handed to core operations.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (a Actor) Can(c enums.Capability) bool {
	return a.Role.Can(c)
}

type claims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens verifies HS256 access tokens issued by the identity service. Mint
// exists for local tooling and tests.
type Tokens struct {
	key    []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewTokens(cfg config.JWTConfig) (*Tokens, error) {
	switch {
	case cfg.Secret == "":
		return nil, errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return nil, errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return nil, errors.New("jwt expiration minutes must be positive")
	}
	return &Tokens{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(leeway),
		),
	}, nil
}

func (t *Tokens) Mint(actor Actor, now time.Time) (string, error) {
	if actor.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if !actor.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", actor.Role)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: actor.UserID,
		Role:   actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   actor.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
	}).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the caller.
func (t *Tokens) Verify(raw string) (Actor, error) {
	var c claims
	if _, err := t.parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return t.key, nil }); err != nil {
		return Actor{}, err
	}
	if c.UserID == uuid.Nil {
		return Actor{}, errors.New("token missing user id")
	}
	if !c.Role.IsValid() {
		return Actor{}, fmt.Errorf("token carries unknown role %q", c.Role)
	}
	return Actor{UserID: c.UserID, Role: c.Role}, nil
}
