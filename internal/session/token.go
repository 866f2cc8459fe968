package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the HTTP-only cookie carrying the manager session token.
const CookieName = "manager_session"

// TokenTTL bounds a session token's validity. There is no refresh; expiry
// forces a fresh login.
const TokenTTL = 24 * time.Hour

var ErrInvalidSession = errors.New("invalid or expired session")

// Identity is the manager identity carried by a session token.
type Identity struct {
	ID       string `json:"id"`
	PlantID  string `json:"plant_id"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

type claims struct {
	PlantID  string `json:"plant_id"`
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Codec signs and verifies manager session tokens. It is stateless: a
// token's validity is fully determined by its signature and expiry.
type Codec struct {
	secret []byte
	now    func() time.Time
}

func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	return &Codec{secret: []byte(secret), now: time.Now}, nil
}

// Issue produces a signed HMAC-SHA256 token embedding the identity claims,
// issued now and expiring after TokenTTL.
func (c *Codec) Issue(identity Identity) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		PlantID:  identity.PlantID,
		Role:     identity.Role,
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	})
	return token.SignedString(c.secret)
}

// Verify checks signature and expiry and extracts the identity. A token
// without a plant_id claim is rejected even when its signature is valid.
func (c *Codec) Verify(tokenString string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidSession
	}
	payload, ok := parsed.Claims.(*claims)
	if !ok {
		return Identity{}, ErrInvalidSession
	}
	if payload.PlantID == "" {
		return Identity{}, fmt.Errorf("%w: plant_id claim missing", ErrInvalidSession)
	}
	return Identity{
		ID:       payload.Subject,
		PlantID:  payload.PlantID,
		Role:     payload.Role,
		Username: payload.Username,
	}, nil
}
