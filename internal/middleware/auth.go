package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"agrofin/internal/auth"
	"agrofin/internal/domain"
)

// ContextKeyClaims holds the validated *auth.Claims of the caller.
//
// Callers are service principals, not stored users: the token subject is
// whatever identity the issuer chose (a client id, an operator email) and is
// never looked up in the database. Authorization rests entirely on the role
// claim.
const ContextKeyClaims = "claims"

// AuthMiddleware validates the bearer access token and stores its claims on
// the context. Requests without a valid token stop with 401.
func AuthMiddleware(tokens auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization header")
			return
		}

		claims, err := tokens.Validate(raw)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			abort(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "access token has expired")
			return
		case err != nil:
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token")
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireRole lets the request through only when the token's role is one of
// roles. It must run after AuthMiddleware.
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			abort(c, http.StatusForbidden, "FORBIDDEN", "no access token claims on request")
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "FORBIDDEN", "role "+string(claims.Role)+" may not perform this action")
	}
}

// GetClaims returns the claims stored by AuthMiddleware.
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := val.(*auth.Claims)
	return claims, ok && claims != nil
}

// GetSubject returns the token subject of the caller.
func GetSubject(c *gin.Context) (string, error) {
	claims, ok := GetClaims(c)
	if !ok || claims.Subject == "" {
		return "", domain.ErrUnauthorized
	}
	return claims.Subject, nil
}

// GetRole returns the caller's role, or "" on unauthenticated routes.
func GetRole(c *gin.Context) string {
	claims, ok := GetClaims(c)
	if !ok {
		return ""
	}
	return string(claims.Role)
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}
