package handlers

import (
	"log"
	"net/http"
	"runtime/debug"
	"strings"

	"agrismart/internal/models"
	"agrismart/internal/services"
	"agrismart/utils"

	"github.com/gin-gonic/gin"
)

const userContextKey = "currentUser"

type Middleware struct {
	jwtService  *services.JWTService
	userService services.IUserService
}

func NewMiddleware(jwtService *services.JWTService, userService services.IUserService) *Middleware {
	return &Middleware{
		jwtService:  jwtService,
		userService: userService,
	}
}

// CORS restricts browsers to the configured origin allow-list.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && allowed[origin] {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Recovery converts panics into the standard 500 envelope with message and stack.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("panic recovered: %v\n%s", recovered, debug.Stack())
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": recovered,
				"stack":   string(debug.Stack()),
			},
		})
	})
}

// RequireAuth validates the bearer token and attaches the user to the context.
func (m *Middleware) RequireAuth(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, utils.CreateErrorResponse(
			"MISSING_TOKEN", "authorization header required"))
		return
	}

	tokenString := authHeader
	if strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = authHeader[7:]
	}

	claims, err := m.jwtService.VerifyToken(tokenString)
	if err != nil {
		log.Printf("Token validation failed: %v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, utils.CreateErrorResponse(
			"INVALID_TOKEN", "token validation failed"))
		return
	}

	valid, err := m.userService.ValidateSession(c, claims.UserID, tokenString)
	if err != nil {
		log.Printf("Failed to check user session: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, utils.CreateErrorResponse(
			"SESSION_CHECK_FAILED", "failed to check user session"))
		return
	}
	if !valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, utils.CreateErrorResponse(
			"SESSION_INVALID", "no session found or session invalid"))
		return
	}

	user, err := m.userService.GetProfile(claims.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, utils.CreateErrorResponse(
			"INVALID_TOKEN", "user no longer exists"))
		return
	}
	if !user.Active {
		c.AbortWithStatusJSON(http.StatusForbidden, utils.CreateErrorResponse(
			"ACCOUNT_DEACTIVATED", "account has been deactivated"))
		return
	}

	c.Set(userContextKey, user)
	c.Next()
}

// RequireAdmin gates admin-only routes. Must run after RequireAuth.
func (m *Middleware) RequireAdmin(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil || user.Role != models.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, utils.CreateErrorResponse(
			"ADMIN_REQUIRED", "Admin access required"))
		return
	}
	c.Next()
}

// CurrentUser returns the authenticated user attached by RequireAuth.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}
