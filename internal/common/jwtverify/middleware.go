package jwtverify

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	commonerrors "github.com/imelapp/auth-server/internal/common/errors"
	commonhttp "github.com/imelapp/auth-server/internal/common/http"
	"github.com/imelapp/auth-server/internal/common/logger"
	"github.com/imelapp/auth-server/internal/observability/metrics"
)

// Claims is the verified identity extracted from a bearer token.
type Claims struct {
	UserID   int64
	Username string
	Role     string
}

type contextKey string

const claimsKey contextKey = "jwt_claims"

// Middleware rejects requests without a valid bearer token and stores the
// verified claims in the request context.
func Middleware(secret string, log *logger.Logger) func(next http.Handler) http.Handler {
	secretBytes := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if raw == "" || !strings.HasPrefix(raw, "Bearer ") {
				log.Warnf("jwt auth failed path=%s: missing or invalid authorization header", r.URL.Path)
				commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "missing or invalid authorization", nil, "")
				return
			}

			tokenString := strings.TrimPrefix(raw, "Bearer ")
			claims, err := parseToken(tokenString, secretBytes)
			if err != nil {
				log.Warnf("jwt auth failed path=%s: %v", r.URL.Path, err)
				commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeInvalidToken, "invalid token", nil, "")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler on the role claim. It must run inside
// Middleware so the claims are already in context.
func RequireRole(role string, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := FromContext(r.Context())
			if !ok {
				commonhttp.WriteErrorEnvelope(w, http.StatusUnauthorized, commonhttp.CodeMissingAuthorization, "not authenticated", nil, "")
				return
			}

			if claims.Role != role {
				log.Warnf("role gate rejected path=%s user_id=%d role=%s required=%s", r.URL.Path, claims.UserID, claims.Role, role)
				metrics.RoleChecksRejected.Inc()
				commonhttp.WriteErrorEnvelope(w, http.StatusForbidden, commonhttp.CodeForbidden, "insufficient role", nil, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func FromContext(ctx context.Context) (Claims, bool) {
	val := ctx.Value(claimsKey)
	claims, ok := val.(Claims)
	return claims, ok
}

func ParseToken(tokenString string, secret []byte) (Claims, error) {
	return parseToken(tokenString, secret)
}

func parseToken(tokenString string, secret []byte) (Claims, error) {
	metrics.JWTValidationsTotal.Inc()

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, commonerrors.ErrInvalidTokenSigningMethod
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		metrics.JWTValidationsFailed.Inc()
		if err == nil {
			err = commonerrors.ErrInvalidToken
		}
		return Claims{}, err
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		metrics.JWTValidationsFailed.Inc()
		return Claims{}, errors.New("invalid claims type")
	}

	sub, _ := mapClaims["sub"].(string)
	username, _ := mapClaims["usr"].(string)
	role, _ := mapClaims["role"].(string)
	if sub == "" || username == "" || role == "" {
		metrics.JWTValidationsFailed.Inc()
		return Claims{}, commonerrors.ErrMissingTokenClaims
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		metrics.JWTValidationsFailed.Inc()
		return Claims{}, commonerrors.ErrMissingTokenClaims.WithCause(err)
	}

	return Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
	}, nil
}

// WithClaims is a test helper placing claims directly into a context.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}
