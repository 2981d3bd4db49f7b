package guard

import (
	"fmt"
	"strings"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/apperr"
	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultRolesClaim is the namespaced claim Auth0 rules write roles into.
const DefaultRolesClaim = "https://nestjs-rbac-demo.com/roles"

// Roles reads the string roles listed under claim.
func Roles(claims jwt.MapClaims, claim string) []string {
	raw, ok := claims[claim].([]any)
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// RequireRoles admits requests whose claims carry at least one of required.
// It must run after Authenticate. With no required roles every caller passes.
func RequireRoles(claim string, required ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(required) == 0 {
			c.Next()
			return
		}

		claims, ok := Claims(c)
		if !ok {
			middleware.Fail(c, apperr.Unauthorized("Missing or invalid authorization header"))
			return
		}

		have := Roles(claims, claim)
		for _, want := range required {
			for _, got := range have {
				if want == got {
					c.Next()
					return
				}
			}
		}

		userRoles := "none"
		if len(have) > 0 {
			userRoles = strings.Join(have, ", ")
		}
		middleware.Fail(c, apperr.Forbidden(fmt.Sprintf(
			"Access denied. Required roles: %s. User roles: %s",
			strings.Join(required, ", "), userRoles,
		)))
	}
}
