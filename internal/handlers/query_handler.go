package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"agrismart/internal/ai/gemini"
	"agrismart/internal/models"
	"agrismart/internal/services"
	"agrismart/utils"

	"github.com/gin-gonic/gin"
)

// QueryAdvisor answers free-form farming questions and planning requests.
type QueryAdvisor interface {
	ProcessFarmingQuery(ctx context.Context, query string, actx models.AdvisoryContext) (*models.AdvisoryResult, error)
	ProcessCropPlanning(ctx context.Context, params gemini.PlanningParams, actx models.AdvisoryContext) (*models.AdvisoryResult, error)
}

type QueryHandler struct {
	advisor QueryAdvisor
}

func NewQueryHandler(advisor QueryAdvisor) *QueryHandler {
	return &QueryHandler{
		advisor: advisor,
	}
}

func (h *QueryHandler) RegisterRoutes(router *gin.Engine, middleware *Middleware) {
	group := router.Group("/api/v1/query", middleware.RequireAuth)
	group.POST("/ask", h.Ask)
	group.POST("/plan", h.Plan)
}

func (h *QueryHandler) Ask(c *gin.Context) {
	var req models.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"INVALID_REQUEST_FORMAT", "Invalid request format"))
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"VALIDATION_ERROR", "Missing query text"))
		return
	}

	user := CurrentUser(c)
	actx := models.AdvisoryContext{}
	if user.Location != nil {
		actx.Location = *user.Location
	}

	result, err := h.advisor.ProcessFarmingQuery(c, req.Query, actx)
	if err != nil {
		log.Printf("Query assistant error: %v", err)
		c.JSON(http.StatusInternalServerError, utils.CreateErrorResponse(
			"UPSTREAM_ERROR", "Failed to process farming query"))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(gin.H{
		"query":     req.Query,
		"response":  result.Response,
		"timestamp": time.Now(),
	}))
}

// Plan produces a seasonal crop plan from land, soil, water and budget inputs.
func (h *QueryHandler) Plan(c *gin.Context) {
	var req models.PlanningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"INVALID_REQUEST_FORMAT", "Invalid request format"))
		return
	}
	if req.LandSize == "" || req.SoilType == "" {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"VALIDATION_ERROR", "Missing land size or soil type"))
		return
	}

	user := CurrentUser(c)
	actx := models.AdvisoryContext{
		CropType: req.CropType,
		Season:   services.CurrentSeason(),
	}
	if user.Location != nil {
		actx.Location = *user.Location
	}

	result, err := h.advisor.ProcessCropPlanning(c, gemini.PlanningParams{
		LandSize:    req.LandSize,
		SoilType:    req.SoilType,
		WaterSource: req.WaterSource,
		Budget:      req.Budget,
	}, actx)
	if err != nil {
		log.Printf("Crop planning error: %v", err)
		c.JSON(http.StatusInternalServerError, utils.CreateErrorResponse(
			"UPSTREAM_ERROR", "Failed to generate crop plan"))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(gin.H{
		"plan":             result.Response,
		"suggestedActions": result.SuggestedActions,
		"timestamp":        time.Now(),
	}))
}
