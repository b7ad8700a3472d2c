// Package middleware holds the gin middleware chain: auth, logging, recovery.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"royaltaxi/internal/types"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// Roles carried in the token's role claim.
const (
	RoleDispatcher = "dispatcher"
	RoleDriver     = "driver"
	RoleRider      = "rider"
	RoleAdmin      = "admin"
)

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth verifies an HS256 bearer token and stores the caller's identity on the
// request context. Token minting is the account service's job; this side only
// verifies.
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		var cl claims
		token, err := jwt.ParseWithClaims(raw, &cl, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if cl.Subject == "" || cl.Role == "" {
			abort(c, http.StatusUnauthorized, "token missing identity claims")
			return
		}

		c.Set(CtxUserID, types.ID(cl.Subject))
		c.Set(CtxRole, cl.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role claim is not in the allow list.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "insufficient role")
	}
}

// UserID reads the authenticated caller's ID from the context.
func UserID(c *gin.Context) types.ID {
	v, _ := c.Get(CtxUserID)
	id, _ := v.(types.ID)
	return id
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
