package handlers

import (
	"net/http"

	"agrismart/internal/models"
	"agrismart/internal/services"
	"agrismart/utils"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	userService services.IUserService
}

func NewProfileHandler(userService services.IUserService) *ProfileHandler {
	return &ProfileHandler{
		userService: userService,
	}
}

func (h *ProfileHandler) RegisterRoutes(router *gin.Engine, middleware *Middleware) {
	profileGr := router.Group("/api/v1/profile", middleware.RequireAuth)
	profileGr.GET("", h.GetProfile)
	profileGr.PATCH("", h.UpdateProfile)
	profileGr.DELETE("", h.DeleteProfile)
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	user := CurrentUser(c)

	profile, err := h.userService.GetProfile(user.ID)
	if err != nil {
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(profile))
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	user := CurrentUser(c)

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"INVALID_REQUEST_FORMAT", "Invalid request format"))
		return
	}

	profile, err := h.userService.UpdateProfile(user.ID, &req)
	if err != nil {
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(profile))
}

func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	user := CurrentUser(c)

	if err := h.userService.DeleteProfile(user.ID); err != nil {
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(gin.H{
		"message": "Profile deleted successfully",
	}))
}
