package middleware

import (
	"strings"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
)

const userContextKey = "user"

// AuthMiddleware authenticates the bearer token and loads the user into the context
func AuthMiddleware(users repository.UserRepository, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogError("Missing Authorization header on %s", c.Request.URL.Path)
			utils.Unauthorized(c, "Please login for access")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.LogError("Invalid Bearer token format")
			utils.Unauthorized(c, "Please login for access")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			utils.LogError("Invalid token: %v", err)
			utils.Unauthorized(c, "Please login for access")
			c.Abort()
			return
		}

		user, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			utils.LogError("User %d from token not found: %v", claims.UserID, err)
			utils.Unauthorized(c, "User not found")
			c.Abort()
			return
		}
		if !user.IsActive {
			utils.LogError("Inactive user attempted access: %d", user.ID)
			utils.Forbidden(c, "Account is disabled")
			c.Abort()
			return
		}

		c.Set(userContextKey, user)
		utils.LogDebug("User %d (%s) authenticated", user.ID, user.Role)
		c.Next()
	}
}

// RequireRoles lets the request through only for users holding one of roles
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			utils.Unauthorized(c, "Please login for access")
			c.Abort()
			return
		}
		if !user.HasRole(roles...) {
			utils.LogError("User %d with role %s denied %s %s", user.ID, user.Role, c.Request.Method, c.Request.URL.Path)
			utils.Forbidden(c, utils.MsgAccessForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user set by AuthMiddleware
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
