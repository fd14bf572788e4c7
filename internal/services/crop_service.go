package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"agrismart/internal/event"
	"agrismart/internal/models"
	"agrismart/internal/repository"
	"agrismart/utils"

	"github.com/google/uuid"
)

var (
	ErrMissingRequiredFields = errors.New("missing required fields or image file")
	ErrNotCropOwner          = errors.New("unauthorized access to crop")
	ErrNoCropImage           = errors.New("no crop image available for analysis, please upload one")
	ErrImageFetchFailed      = errors.New("failed to fetch existing crop image, please upload a new image")
)

// Classifier runs the plant-health assessment on raw image bytes.
type Classifier interface {
	Classify(ctx context.Context, imageBytes []byte) (*models.ClassificationRecord, error)
}

// DiseaseAdvisor synthesizes treatment advice from a disease summary.
type DiseaseAdvisor interface {
	ProcessDiseaseQuery(ctx context.Context, diseaseInfo string, actx models.AdvisoryContext) (*models.AdvisoryResult, error)
}

// ImageStore is the object-storage surface the orchestration needs.
type ImageStore interface {
	UploadFile(ctx context.Context, objectName, contentType string, reader io.Reader, size int64) error
	PublicURL(objectName string) string
	DeleteFolder(ctx context.Context, folderPath string) error
}

type ICropService interface {
	AddCrop(ctx context.Context, farmer *models.User, input AddCropInput) (*models.Crop, error)
	AddCropAndDiagnose(ctx context.Context, farmer *models.User, input AddCropInput) (*DiagnosisOutcome, error)
	AnalyzeCrop(ctx context.Context, farmer *models.User, cropID string, input ImageInput) (*DiagnosisOutcome, error)
	GetCrops(farmerID string) ([]*models.Crop, error)
	GetAnalysisHistory(cropID string) ([]*models.DiseaseAnalysis, error)
	DeleteCrop(ctx context.Context, farmer *models.User, cropID string) error
}

type AddCropInput struct {
	CropName     string
	PlantingDate string
	PlotSize     string
	Image        ImageInput
}

type ImageInput struct {
	Data        []byte
	Filename    string
	ContentType string
}

func (i ImageInput) present() bool {
	return len(i.Data) > 0
}

// Diagnosis is the composed classification + advisory view returned to callers.
type Diagnosis struct {
	Classification *models.ClassificationRecord `json:"plantIdAnalysis"`
	Advisory       *models.AdvisoryResult       `json:"aiRecommendations"`
	DiseaseName    string                       `json:"disease_name"`
	Confidence     float64                      `json:"confidence"`
	IsHealthy      bool                         `json:"isHealthy"`
}

type DiagnosisOutcome struct {
	Crop           *models.Crop            `json:"crop"`
	Diagnosis      *Diagnosis              `json:"diagnosis"`
	StoredAnalysis *models.DiseaseAnalysis `json:"storedAnalysis"`
}

type CropService struct {
	cropRepo     repository.ICropRepository
	analysisRepo repository.IAnalysisRepository
	classifier   Classifier
	advisor      DiseaseAdvisor
	store        ImageStore
	publisher    *event.AnalysisPublisher
	httpClient   *http.Client
}

func NewCropService(
	cropRepo repository.ICropRepository,
	analysisRepo repository.IAnalysisRepository,
	classifier Classifier,
	advisor DiseaseAdvisor,
	store ImageStore,
	publisher *event.AnalysisPublisher,
) ICropService {
	return &CropService{
		cropRepo:     cropRepo,
		analysisRepo: analysisRepo,
		classifier:   classifier,
		advisor:      advisor,
		store:        store,
		publisher:    publisher,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// CurrentSeason derives the Kenyan growing season from the calendar month.
func CurrentSeason() string {
	switch month := time.Now().Month(); {
	case month >= time.March && month <= time.June:
		return "Long Rains"
	case month >= time.October && month <= time.December:
		return "Short Rains"
	default:
		return "Dry Season"
	}
}

func (s *CropService) AddCrop(ctx context.Context, farmer *models.User, input AddCropInput) (*models.Crop, error) {
	if input.CropName == "" || input.PlantingDate == "" || input.PlotSize == "" {
		return nil, ErrMissingRequiredFields
	}

	crop := &models.Crop{
		ID:           uuid.New().String(),
		FarmerID:     farmer.ID,
		CropName:     input.CropName,
		PlantingDate: input.PlantingDate,
		PlotSize:     input.PlotSize,
	}
	if err := s.cropRepo.CreateCrop(crop); err != nil {
		return nil, err
	}

	if input.Image.present() {
		publicURL, err := s.uploadCropImage(ctx, farmer.ID, crop.ID, input.Image)
		if err != nil {
			return nil, err
		}
		if err := s.cropRepo.UpdateCropImageURL(crop.ID, publicURL); err != nil {
			log.Printf("failed to update crop %s with image_url: %v", crop.ID, err)
		} else {
			crop.ImageURL = &publicURL
		}
	}

	return crop, nil
}

// AddCropAndDiagnose is the one-request orchestration: insert the crop, classify
// the image, synthesize advice, upload the image, and persist the analysis.
// Classification and advisory failures degrade; upload failure is terminal and
// the already-inserted crop row is intentionally left in place.
func (s *CropService) AddCropAndDiagnose(ctx context.Context, farmer *models.User, input AddCropInput) (*DiagnosisOutcome, error) {
	if input.CropName == "" || input.PlantingDate == "" || input.PlotSize == "" || !input.Image.present() {
		return nil, ErrMissingRequiredFields
	}

	crop := &models.Crop{
		ID:           uuid.New().String(),
		FarmerID:     farmer.ID,
		CropName:     input.CropName,
		PlantingDate: input.PlantingDate,
		PlotSize:     input.PlotSize,
	}
	if err := s.cropRepo.CreateCrop(crop); err != nil {
		return nil, err
	}

	diagnosis := s.diagnose(ctx, farmer, crop, input.Image.Data)

	publicURL, err := s.uploadCropImage(ctx, farmer.ID, crop.ID, input.Image)
	if err != nil {
		return nil, err
	}

	if err := s.cropRepo.UpdateCropImageURL(crop.ID, publicURL); err != nil {
		log.Printf("failed to update crop %s with image_url: %v", crop.ID, err)
	} else {
		crop.ImageURL = &publicURL
	}

	stored, err := s.persistAnalysis(ctx, farmer, crop, diagnosis, &publicURL)
	if err != nil {
		return nil, err
	}

	return &DiagnosisOutcome{
		Crop:           crop,
		Diagnosis:      diagnosis,
		StoredAnalysis: stored,
	}, nil
}

// AnalyzeCrop re-runs diagnosis for an existing crop, sourcing the image from a
// fresh upload or from the crop's stored image fetched into memory.
func (s *CropService) AnalyzeCrop(ctx context.Context, farmer *models.User, cropID string, input ImageInput) (*DiagnosisOutcome, error) {
	if cropID == "" {
		return nil, ErrMissingRequiredFields
	}

	crop, err := s.cropRepo.GetCropByID(cropID)
	if err != nil {
		return nil, err
	}
	if crop.FarmerID != farmer.ID {
		return nil, ErrNotCropOwner
	}

	var imageBytes []byte
	imagePublicURL := crop.ImageURL

	switch {
	case input.present():
		publicURL, err := s.uploadCropImage(ctx, farmer.ID, crop.ID, input)
		if err != nil {
			return nil, err
		}
		if err := s.cropRepo.UpdateCropImageURL(crop.ID, publicURL); err != nil {
			log.Printf("failed to update crop %s with image_url: %v", crop.ID, err)
		} else {
			crop.ImageURL = &publicURL
		}
		imagePublicURL = &publicURL
		imageBytes = input.Data
	case crop.ImageURL != nil && *crop.ImageURL != "":
		imageBytes, err = s.fetchImage(ctx, *crop.ImageURL)
		if err != nil {
			log.Printf("failed to fetch existing crop image for analysis: %v", err)
			return nil, ErrImageFetchFailed
		}
	default:
		return nil, ErrNoCropImage
	}

	diagnosis := s.diagnose(ctx, farmer, crop, imageBytes)

	stored, err := s.persistAnalysis(ctx, farmer, crop, diagnosis, imagePublicURL)
	if err != nil {
		return nil, err
	}

	return &DiagnosisOutcome{
		Crop:           crop,
		Diagnosis:      diagnosis,
		StoredAnalysis: stored,
	}, nil
}

// diagnose runs classification then advisory synthesis, degrading each step on
// failure instead of aborting the request.
func (s *CropService) diagnose(ctx context.Context, farmer *models.User, crop *models.Crop, imageBytes []byte) *Diagnosis {
	classification, err := s.classifier.Classify(ctx, imageBytes)
	if err != nil {
		log.Printf("disease classification failed for crop %s: %v", crop.ID, err)
		classification = nil
	}

	actx := models.AdvisoryContext{
		CropType: crop.CropName,
		Season:   CurrentSeason(),
	}
	if farmer.Location != nil {
		actx.Location = *farmer.Location
	}

	advisory := s.adviseOnClassification(ctx, classification, actx)

	diagnosis := &Diagnosis{
		Classification: classification,
		Advisory:       advisory,
		DiseaseName:    "Healthy",
		Confidence:     1,
		IsHealthy:      true,
	}
	if classification != nil {
		top := classification.TopDisease()
		diagnosis.DiseaseName = top.Name
		diagnosis.Confidence = top.Probability
		diagnosis.IsHealthy = classification.IsHealthy
	}
	return diagnosis
}

func (s *CropService) adviseOnClassification(ctx context.Context, classification *models.ClassificationRecord, actx models.AdvisoryContext) *models.AdvisoryResult {
	diseaseInfo := "The plant appears healthy. Please provide preventive care recommendations for common pests and diseases."
	confidence := 1.0

	if classification != nil && !classification.IsHealthy && len(classification.Diseases) > 0 {
		top := classification.TopDisease()
		description := "N/A"
		if top.Details.Description != nil {
			description = *top.Details.Description
		}
		cause := "N/A"
		if top.Details.Cause != nil {
			cause = *top.Details.Cause
		}
		diseaseInfo = fmt.Sprintf("Disease: %s\nConfidence: %.2f%%\nDescription: %s\nCause: %s",
			top.Name, top.Probability*100, description, cause)
		confidence = top.Probability
	}

	advisory, err := s.advisor.ProcessDiseaseQuery(ctx, diseaseInfo, actx)
	if err != nil {
		log.Printf("AI recommendations error: %v", err)
		return models.UnavailableAdvisory()
	}
	advisory.ConfidenceLevel = confidence
	return advisory
}

func (s *CropService) persistAnalysis(ctx context.Context, farmer *models.User, crop *models.Crop, diagnosis *Diagnosis, imageURL *string) (*models.DiseaseAnalysis, error) {
	isHealthy := diagnosis.IsHealthy
	confidence := diagnosis.Advisory.ConfidenceLevel

	analysis := &models.DiseaseAnalysis{
		ID:                uuid.New().String(),
		CropID:            crop.ID,
		ImageURL:          imageURL,
		PlantIDResponse:   toJSONMap(diagnosis.Classification),
		AIRecommendations: toJSONMap(diagnosis.Advisory),
		IsHealthy:         &isHealthy,
		ConfidenceLevel:   &confidence,
	}
	if err := s.analysisRepo.CreateAnalysis(analysis); err != nil {
		return nil, err
	}

	if err := s.publisher.PublishAnalysisCompleted(ctx, event.AnalysisCompletedEvent{
		AnalysisID:      analysis.ID,
		CropID:          crop.ID,
		FarmerID:        farmer.ID,
		CropName:        crop.CropName,
		DiseaseName:     diagnosis.DiseaseName,
		IsHealthy:       diagnosis.IsHealthy,
		ConfidenceLevel: diagnosis.Confidence,
		AnalyzedAt:      analysis.AnalyzedAt,
	}); err != nil {
		log.Printf("failed to publish analysis event for crop %s: %v", crop.ID, err)
	}

	return analysis, nil
}

func (s *CropService) GetCrops(farmerID string) ([]*models.Crop, error) {
	return s.cropRepo.GetCropsByFarmer(farmerID)
}

func (s *CropService) GetAnalysisHistory(cropID string) ([]*models.DiseaseAnalysis, error) {
	return s.analysisRepo.GetAnalysesByCrop(cropID)
}

func (s *CropService) DeleteCrop(ctx context.Context, farmer *models.User, cropID string) error {
	crop, err := s.cropRepo.GetCropByID(cropID)
	if err != nil {
		return err
	}
	if crop.FarmerID != farmer.ID && farmer.Role != models.RoleAdmin {
		return ErrNotCropOwner
	}

	if err := s.cropRepo.DeleteCrop(cropID); err != nil {
		return err
	}

	// Best-effort cleanup of stored images.
	if err := s.store.DeleteFolder(ctx, fmt.Sprintf("%s/%s", crop.FarmerID, cropID)); err != nil {
		log.Printf("failed to delete stored images for crop %s: %v", cropID, err)
	}

	return nil
}

func (s *CropService) uploadCropImage(ctx context.Context, farmerID, cropID string, image ImageInput) (string, error) {
	objectName := fmt.Sprintf("%s/%s/%d-%s", farmerID, cropID, time.Now().UnixMilli(), image.Filename)
	contentType := image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	err := s.store.UploadFile(ctx, objectName, contentType, bytes.NewReader(image.Data), int64(len(image.Data)))
	if err != nil {
		return "", fmt.Errorf("failed to upload crop image: %w", err)
	}

	return s.store.PublicURL(objectName), nil
}

func (s *CropService) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching image", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func toJSONMap(v any) utils.JSONMap {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m utils.JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
