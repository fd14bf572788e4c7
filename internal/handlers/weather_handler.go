package handlers

import (
	"log"
	"net/http"

	"agrismart/internal/models"
	"agrismart/internal/services"
	"agrismart/utils"

	"github.com/gin-gonic/gin"
)

type WeatherHandler struct {
	weatherService services.IWeatherService
}

func NewWeatherHandler(weatherService services.IWeatherService) *WeatherHandler {
	return &WeatherHandler{
		weatherService: weatherService,
	}
}

func (h *WeatherHandler) RegisterRoutes(router *gin.Engine, middleware *Middleware) {
	router.POST("/api/v1/weather", middleware.RequireAuth, h.GetWeather)
}

func (h *WeatherHandler) GetWeather(c *gin.Context) {
	var req models.WeatherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"INVALID_REQUEST_FORMAT", "Invalid request format"))
		return
	}
	if req.Location == "" {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"VALIDATION_ERROR", "Location is required"))
		return
	}

	report, err := h.weatherService.GetForecast(c, req.Location, req.CropType)
	if err != nil {
		log.Printf("Error fetching weather for %s: %v", req.Location, err)
		c.JSON(http.StatusInternalServerError, utils.CreateErrorResponse(
			"UPSTREAM_ERROR", "Error fetching weather data"))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(report))
}
