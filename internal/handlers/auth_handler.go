package handlers

import (
	"log"
	"net/http"

	"agrismart/internal/models"
	"agrismart/internal/services"
	"agrismart/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService services.IUserService
}

func NewAuthHandler(userService services.IUserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

func (a *AuthHandler) RegisterRoutes(router *gin.Engine, middleware *Middleware) {
	authGr := router.Group("/api/v1/auth")
	authGr.PUT("/register", a.Register)
	authGr.POST("/login", a.Login)
	authGr.POST("/logout", middleware.RequireAuth, a.Logout)
}

func (a *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"INVALID_REQUEST_FORMAT", "Invalid request format"))
		return
	}

	user, err := a.userService.Register(req.Name, req.Email, req.Password)
	if err != nil {
		log.Printf("Registration failed for %s: %v", req.Email, err)
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, utils.CreateSuccessResponse(gin.H{
		"message": "Registration successful",
		"user":    user,
	}))
}

func (a *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"INVALID_REQUEST_FORMAT", "Invalid request format"))
		return
	}
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"VALIDATION_ERROR", "email and password are required"))
		return
	}

	deviceInfo := c.GetHeader("User-Agent")
	ipAddress := c.ClientIP()

	user, session, token, err := a.userService.Login(c, req.Email, req.Password, &deviceInfo, &ipAddress)
	if err != nil {
		log.Printf("Login failed for %s: %v", req.Email, err)
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, "Login failed"))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(gin.H{
		"message":      "Login successful",
		"user":         user,
		"session":      session,
		"access_token": token,
	}))
}

func (a *AuthHandler) Logout(c *gin.Context) {
	user := CurrentUser(c)

	if err := a.userService.Logout(c, user.ID); err != nil {
		log.Printf("Logout failed for %s: %v", user.ID, err)
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, "Logout failed"))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(gin.H{
		"message": "Logout successful",
	}))
}
