package handlers

import (
	"log"
	"net/http"

	"agrismart/internal/models"
	"agrismart/internal/services"
	"agrismart/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	userService services.IUserService
}

func NewAdminHandler(userService services.IUserService) *AdminHandler {
	return &AdminHandler{
		userService: userService,
	}
}

func (h *AdminHandler) RegisterRoutes(router *gin.Engine, middleware *Middleware) {
	adminGr := router.Group("/api/v1/admin", middleware.RequireAuth, middleware.RequireAdmin)
	adminGr.GET("/users", h.GetUsers)
	adminGr.PATCH("/users/:id/deactivate", h.DeactivateUser)
	adminGr.PATCH("/users/:id/role", h.ChangeUserRole)
	adminGr.GET("/analytics", h.GetAnalytics)
}

func (h *AdminHandler) GetUsers(c *gin.Context) {
	limit, err := utils.GetQueryParamAsInt(c, "limit", 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse("VALIDATION_ERROR", err.Error()))
		return
	}
	offset := 0
	if page, err := utils.GetQueryParamAsInt(c, "page", 1); err == nil {
		offset = (page - 1) * limit
	}

	users, err := h.userService.GetAllUsers(limit, offset)
	if err != nil {
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(users))
}

func (h *AdminHandler) DeactivateUser(c *gin.Context) {
	userID := c.Param("id")

	if err := h.userService.DeactivateUser(userID); err != nil {
		log.Printf("deactivateUser failed for %s: %v", userID, err)
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(gin.H{
		"message": "User deactivated",
	}))
}

func (h *AdminHandler) ChangeUserRole(c *gin.Context) {
	userID := c.Param("id")

	var req models.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"INVALID_REQUEST_FORMAT", "Invalid request format"))
		return
	}

	if err := h.userService.ChangeUserRole(userID, req.Role); err != nil {
		log.Printf("changeUserRole failed for %s: %v", userID, err)
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(gin.H{
		"message": "User role updated",
	}))
}

func (h *AdminHandler) GetAnalytics(c *gin.Context) {
	analytics, err := h.userService.GetAnalytics(c)
	if err != nil {
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(analytics))
}
