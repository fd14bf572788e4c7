package handlers

import (
	"io"
	"log"
	"net/http"

	"agrismart/internal/services"
	"agrismart/utils"

	"github.com/gin-gonic/gin"
)

// MaxUploadSize caps crop image uploads at 5MB.
const MaxUploadSize = 5 << 20

type CropHandler struct {
	cropService services.ICropService
}

func NewCropHandler(cropService services.ICropService) *CropHandler {
	return &CropHandler{
		cropService: cropService,
	}
}

func (h *CropHandler) RegisterRoutes(router *gin.Engine, middleware *Middleware) {
	cropGr := router.Group("/api/v1/crops", middleware.RequireAuth)
	cropGr.GET("/all", h.GetCrops)
	cropGr.PUT("/add", h.AddCrop)
	cropGr.POST("/add-and-diagnose", h.AddCropAndDiagnose)
	cropGr.POST("/analyze", h.AnalyzeCrop)
	cropGr.GET("/analysis-history/:cropId", h.GetAnalysisHistory)
	cropGr.DELETE("/:cropId", h.DeleteCrop)
}

// readImageFile pulls the optional "image" multipart field into memory,
// rejecting oversized or malformed uploads with a structured 400. The bool
// reports whether a file was present.
func readImageFile(c *gin.Context) (services.ImageInput, bool, bool) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return services.ImageInput{}, false, true
		}
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"UPLOAD_ERROR", "File upload error: "+err.Error()))
		return services.ImageInput{}, false, false
	}

	if fileHeader.Size > MaxUploadSize {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"UPLOAD_ERROR", "Image exceeds the 5MB size limit"))
		return services.ImageInput{}, false, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"UPLOAD_ERROR", "File upload error: "+err.Error()))
		return services.ImageInput{}, false, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"UPLOAD_ERROR", "File upload error: "+err.Error()))
		return services.ImageInput{}, false, false
	}

	return services.ImageInput{
		Data:        data,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}, true, true
}

func (h *CropHandler) GetCrops(c *gin.Context) {
	user := CurrentUser(c)

	crops, err := h.cropService.GetCrops(user.ID)
	if err != nil {
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(crops))
}

func (h *CropHandler) AddCrop(c *gin.Context) {
	user := CurrentUser(c)

	image, _, ok := readImageFile(c)
	if !ok {
		return
	}

	input := services.AddCropInput{
		CropName:     c.PostForm("crop_name"),
		PlantingDate: c.PostForm("planting_date"),
		PlotSize:     c.PostForm("plot_size"),
		Image:        image,
	}

	crop, err := h.cropService.AddCrop(c, user, input)
	if err != nil {
		log.Printf("addCrop failed for farmer %s: %v", user.ID, err)
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, utils.CreateSuccessResponse(crop))
}

func (h *CropHandler) AddCropAndDiagnose(c *gin.Context) {
	user := CurrentUser(c)

	image, present, ok := readImageFile(c)
	if !ok {
		return
	}
	if !present {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"VALIDATION_ERROR", "Missing required fields or image file"))
		return
	}

	input := services.AddCropInput{
		CropName:     c.PostForm("crop_name"),
		PlantingDate: c.PostForm("planting_date"),
		PlotSize:     c.PostForm("plot_size"),
		Image:        image,
	}

	outcome, err := h.cropService.AddCropAndDiagnose(c, user, input)
	if err != nil {
		log.Printf("addCropAndDiagnose failed for farmer %s: %v", user.ID, err)
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, utils.CreateSuccessResponse(outcome))
}

func (h *CropHandler) AnalyzeCrop(c *gin.Context) {
	user := CurrentUser(c)

	image, _, ok := readImageFile(c)
	if !ok {
		return
	}

	cropID := c.PostForm("cropId")
	if cropID == "" {
		c.JSON(http.StatusBadRequest, utils.CreateErrorResponse(
			"VALIDATION_ERROR", "Missing crop ID"))
		return
	}

	outcome, err := h.cropService.AnalyzeCrop(c, user, cropID, image)
	if err != nil {
		log.Printf("analyzeCrop failed for crop %s: %v", cropID, err)
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(outcome))
}

func (h *CropHandler) GetAnalysisHistory(c *gin.Context) {
	cropID := c.Param("cropId")

	analyses, err := h.cropService.GetAnalysisHistory(cropID)
	if err != nil {
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(analyses))
}

func (h *CropHandler) DeleteCrop(c *gin.Context) {
	user := CurrentUser(c)
	cropID := c.Param("cropId")

	if err := h.cropService.DeleteCrop(c, user, cropID); err != nil {
		log.Printf("deleteCrop failed for crop %s: %v", cropID, err)
		code, status := mapServiceError(err)
		c.JSON(status, utils.CreateErrorResponse(code, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.CreateSuccessResponse(gin.H{
		"message": "Crop deleted successfully",
	}))
}
