package service

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/imelapp/auth-server/internal/auth/domain"
	"github.com/imelapp/auth-server/internal/common/clock"
	"github.com/imelapp/auth-server/internal/common/jwtverify"
)

// TokenIssuer signs stateless bearer tokens over a single shared secret.
// Issued tokens are never persisted and stay valid until expiry even if
// the account is later edited or deleted.
type TokenIssuer struct {
	jwtSecret []byte
	clock     clock.Clock
	tokenTTL  time.Duration
}

func NewTokenIssuer(jwtSecret string, tokenTTL time.Duration, clock clock.Clock) *TokenIssuer {
	return &TokenIssuer{
		jwtSecret: []byte(jwtSecret),
		clock:     clock,
		tokenTTL:  tokenTTL,
	}
}

func (ti *TokenIssuer) IssueAccessToken(user domain.User) (string, error) {
	now := ti.clock.Now()
	expiresAt := now.Add(ti.tokenTTL)
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(user.ID, 10),
		"usr":  user.Username,
		"role": user.Role.String(),
		"jti":  uuid.NewString(),
		"exp":  expiresAt.Unix(),
		"iat":  now.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := t.SignedString(ti.jwtSecret)
	if err != nil {
		return "", err
	}

	incrementAccessTokensIssued()
	return tokenString, nil
}

func (ti *TokenIssuer) ParseToken(tokenString string) (jwtverify.Claims, error) {
	return jwtverify.ParseToken(tokenString, ti.jwtSecret)
}
