package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dormitory-backend/internal/model"
	"dormitory-backend/internal/store"
)

const claimsKey = "auth.claims"

// UserLookup loads the current state of a staff account.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer" token
// and stores the claims on the context. With a non-nil users the account must
// still exist, and its stored role and dormitory replace the token's copies.
func RequireAuth(m *Manager, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			return
		}

		claims, err := m.Parse(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		if users != nil {
			u, err := users.GetUser(c.Request.Context(), claims.UserID)
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
				return
			}
			if err != nil {
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			current := *claims
			current.Role = u.Role
			current.DormitoryID = u.DormitoryID
			claims = &current
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole allows only the given roles. It must run after RequireAuth.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// CurrentClaims returns the claims stored by RequireAuth.
func CurrentClaims(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}

// Scope returns the tenant scope of the caller. Staff bound to a dormitory
// only ever see that dormitory.
func Scope(c *gin.Context) store.Scope {
	claims, ok := CurrentClaims(c)
	if !ok || claims.DormitoryID == nil {
		return store.AllDormitories()
	}
	return store.ForDormitory(*claims.DormitoryID)
}

// UserID returns the caller's id, or 0 when unauthenticated.
func UserID(c *gin.Context) int64 {
	claims, ok := CurrentClaims(c)
	if !ok {
		return 0
	}
	return claims.UserID
}
