// Package auth issues and validates the bearer tokens the API runs on. A
// token carries the caller's id, role and unit; the middleware turns it into
// the actor every service receives.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/semillero-erp/semillero-erp/internal/shared"
)

// Claims are the custom claims embedded in every access token.
type Claims struct {
	Rol      string `json:"rol"`
	IDUnidad int64  `json:"id_unidad"`
	jwt.RegisteredClaims
}

// Tokens signs and parses access tokens with a shared HMAC secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens builds Tokens.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the configured token lifetime.
func (t *Tokens) TTL() time.Duration { return t.ttl }

// Issue signs a token for the actor.
func (t *Tokens) Issue(actor shared.Actor) (string, error) {
	now := t.now()
	claims := Claims{
		Rol:      string(actor.Role),
		IDUnidad: actor.UnitID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", actor.UserID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token string and rebuilds the actor it names.
func (t *Tokens) Parse(tokenStr string) (shared.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return shared.Actor{}, shared.NewAuthorization("token inválido o expirado")
	}

	var userID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &userID); err != nil || userID <= 0 {
		return shared.Actor{}, shared.NewAuthorization("token mal formado")
	}
	return shared.Actor{
		UserID: userID,
		Role:   shared.Role(claims.Rol),
		UnitID: claims.IDUnidad,
	}, nil
}
