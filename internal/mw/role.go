package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RoleHeader carries the caller's role as asserted by the auth gateway in
// front of this service.
const RoleHeader = "X-Actor-Role"

const (
	RoleCustomer   = "customer"
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
)

const roleKey = "actor_role"

// RequireRole lets the request through only when the role header names one
// of allowed. With no allowed roles any known role passes.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetHeader(RoleHeader)
		switch role {
		case RoleCustomer, RoleAdmin, RoleTechnician:
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing or invalid " + RoleHeader + " header",
			})
			return
		}

		if len(allowed) > 0 && !contains(allowed, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "role " + role + " may not perform this action"})
			return
		}
		c.Set(roleKey, role)
		c.Next()
	}
}

// Role returns the role stored by RequireRole.
func Role(c *gin.Context) string {
	return c.GetString(roleKey)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
