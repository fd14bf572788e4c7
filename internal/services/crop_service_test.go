package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrismart/internal/event"
	"agrismart/internal/models"
)

// ============================================================================
// STUBS
// ============================================================================

type stubCropRepo struct {
	crops       map[string]*models.Crop
	createErr   error
	createCalls int
}

func newStubCropRepo() *stubCropRepo {
	return &stubCropRepo{crops: make(map[string]*models.Crop)}
}

func (r *stubCropRepo) CreateCrop(crop *models.Crop) error {
	r.createCalls++
	if r.createErr != nil {
		return r.createErr
	}
	r.crops[crop.ID] = crop
	return nil
}

func (r *stubCropRepo) GetCropByID(id string) (*models.Crop, error) {
	crop, ok := r.crops[id]
	if !ok {
		return nil, errors.New("crop not found")
	}
	return crop, nil
}

func (r *stubCropRepo) GetCropsByFarmer(farmerID string) ([]*models.Crop, error) {
	var out []*models.Crop
	for _, crop := range r.crops {
		if crop.FarmerID == farmerID {
			out = append(out, crop)
		}
	}
	return out, nil
}

func (r *stubCropRepo) UpdateCropImageURL(cropID, imageURL string) error {
	crop, ok := r.crops[cropID]
	if !ok {
		return errors.New("crop not found")
	}
	crop.ImageURL = &imageURL
	return nil
}

func (r *stubCropRepo) DeleteCrop(cropID string) error {
	if _, ok := r.crops[cropID]; !ok {
		return errors.New("crop not found")
	}
	delete(r.crops, cropID)
	return nil
}

func (r *stubCropRepo) CountCrops() (int, error) { return len(r.crops), nil }

type stubAnalysisRepo struct {
	analyses []*models.DiseaseAnalysis
}

func (r *stubAnalysisRepo) CreateAnalysis(analysis *models.DiseaseAnalysis) error {
	r.analyses = append(r.analyses, analysis)
	return nil
}

func (r *stubAnalysisRepo) GetAnalysesByCrop(cropID string) ([]*models.DiseaseAnalysis, error) {
	var out []*models.DiseaseAnalysis
	for _, a := range r.analyses {
		if a.CropID == cropID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubAnalysisRepo) CountAnalyses() (int, error) { return len(r.analyses), nil }

type stubClassifier struct {
	record *models.ClassificationRecord
	err    error
}

func (c *stubClassifier) Classify(_ context.Context, _ []byte) (*models.ClassificationRecord, error) {
	return c.record, c.err
}

type stubAdvisor struct {
	result  *models.AdvisoryResult
	err     error
	gotInfo string
}

func (a *stubAdvisor) ProcessDiseaseQuery(_ context.Context, diseaseInfo string, _ models.AdvisoryContext) (*models.AdvisoryResult, error) {
	a.gotInfo = diseaseInfo
	if a.err != nil {
		return nil, a.err
	}
	out := *a.result
	return &out, nil
}

type stubStore struct {
	uploadErr      error
	uploadedNames  []string
	deletedFolders []string
}

func (s *stubStore) UploadFile(_ context.Context, objectName, _ string, _ io.Reader, _ int64) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.uploadedNames = append(s.uploadedNames, objectName)
	return nil
}

func (s *stubStore) PublicURL(objectName string) string {
	return "http://store.local/crop-images/" + objectName
}

func (s *stubStore) DeleteFolder(_ context.Context, folderPath string) error {
	s.deletedFolders = append(s.deletedFolders, folderPath)
	return nil
}

type cropServiceFixture struct {
	service    ICropService
	cropRepo   *stubCropRepo
	analysis   *stubAnalysisRepo
	classifier *stubClassifier
	advisor    *stubAdvisor
	store      *stubStore
}

func newCropServiceFixture() *cropServiceFixture {
	f := &cropServiceFixture{
		cropRepo: newStubCropRepo(),
		analysis: &stubAnalysisRepo{},
		classifier: &stubClassifier{
			record: &models.ClassificationRecord{
				IsHealthy: false,
				Diseases: []models.Disease{
					{Name: "Late blight", Probability: 0.85},
				},
			},
		},
		advisor: &stubAdvisor{
			result: &models.AdvisoryResult{Response: "Apply copper fungicide"},
		},
		store: &stubStore{},
	}
	f.service = NewCropService(f.cropRepo, f.analysis, f.classifier, f.advisor, f.store, event.NewAnalysisPublisher(nil))
	return f
}

func testFarmer() *models.User {
	location := "Eldoret"
	return &models.User{ID: "farmer-1", Name: "Wanjiku", Role: models.RoleFarmer, Location: &location}
}

func diagnoseInput() AddCropInput {
	return AddCropInput{
		CropName:     "Maize",
		PlantingDate: "2026-03-15",
		PlotSize:     "2 acres",
		Image:        ImageInput{Data: []byte("jpeg-bytes"), Filename: "leaf.jpg", ContentType: "image/jpeg"},
	}
}

// ============================================================================
// TEST SUITE 1: ADD CROP
// ============================================================================

func TestAddCrop_MissingFieldsRejectedBeforeInsert(t *testing.T) {
	f := newCropServiceFixture()

	_, err := f.service.AddCrop(context.Background(), testFarmer(), AddCropInput{CropName: "Maize"})

	assert.ErrorIs(t, err, ErrMissingRequiredFields)
	assert.Zero(t, f.cropRepo.createCalls, "validation must run before any insert")
}

func TestAddCrop_WithoutImage(t *testing.T) {
	f := newCropServiceFixture()
	input := diagnoseInput()
	input.Image = ImageInput{}

	crop, err := f.service.AddCrop(context.Background(), testFarmer(), input)

	require.NoError(t, err)
	assert.Nil(t, crop.ImageURL)
	assert.Empty(t, f.store.uploadedNames)
}

func TestAddCrop_WithImageSetsPublicURL(t *testing.T) {
	f := newCropServiceFixture()

	crop, err := f.service.AddCrop(context.Background(), testFarmer(), diagnoseInput())

	require.NoError(t, err)
	require.NotNil(t, crop.ImageURL)
	assert.Contains(t, *crop.ImageURL, "farmer-1/"+crop.ID+"/")
	assert.Contains(t, *crop.ImageURL, "leaf.jpg")
}

// ============================================================================
// TEST SUITE 2: ADD CROP AND DIAGNOSE
// ============================================================================

func TestAddCropAndDiagnose_RequiresImage(t *testing.T) {
	f := newCropServiceFixture()
	input := diagnoseInput()
	input.Image = ImageInput{}

	_, err := f.service.AddCropAndDiagnose(context.Background(), testFarmer(), input)

	assert.ErrorIs(t, err, ErrMissingRequiredFields)
	assert.Zero(t, f.cropRepo.createCalls)
}

func TestAddCropAndDiagnose_FullFlow(t *testing.T) {
	f := newCropServiceFixture()

	outcome, err := f.service.AddCropAndDiagnose(context.Background(), testFarmer(), diagnoseInput())

	require.NoError(t, err)
	require.NotNil(t, outcome.Crop.ImageURL)
	assert.Equal(t, "Late blight", outcome.Diagnosis.DiseaseName)
	assert.Equal(t, 0.85, outcome.Diagnosis.Confidence)
	assert.False(t, outcome.Diagnosis.IsHealthy)
	assert.Equal(t, "Apply copper fungicide", outcome.Diagnosis.Advisory.Response)
	assert.Equal(t, 0.85, outcome.Diagnosis.Advisory.ConfidenceLevel, "advisory confidence tracks the top disease")
	require.Len(t, f.analysis.analyses, 1)
	assert.Equal(t, outcome.Crop.ID, f.analysis.analyses[0].CropID)
	assert.Contains(t, f.advisor.gotInfo, "Disease: Late blight")
}

func TestAddCropAndDiagnose_ClassificationFailureDegrades(t *testing.T) {
	f := newCropServiceFixture()
	f.classifier.record = nil
	f.classifier.err = errors.New("plant.id unreachable")

	outcome, err := f.service.AddCropAndDiagnose(context.Background(), testFarmer(), diagnoseInput())

	require.NoError(t, err, "classification failure must not abort the flow")
	assert.Nil(t, outcome.Diagnosis.Classification)
	assert.Equal(t, "Healthy", outcome.Diagnosis.DiseaseName)
	assert.True(t, outcome.Diagnosis.IsHealthy)
	assert.NotNil(t, outcome.Diagnosis.Advisory, "advisory still runs with the preventive-care prompt")
	assert.Contains(t, f.advisor.gotInfo, "appears healthy")
	require.Len(t, f.analysis.analyses, 1, "a degraded analysis is still persisted")
}

func TestAddCropAndDiagnose_AdvisoryFailureSubstitutesFallback(t *testing.T) {
	f := newCropServiceFixture()
	f.advisor.err = errors.New("model quota exhausted")

	outcome, err := f.service.AddCropAndDiagnose(context.Background(), testFarmer(), diagnoseInput())

	require.NoError(t, err)
	assert.Equal(t, "AI recommendations unavailable", outcome.Diagnosis.Advisory.Response)
	assert.Zero(t, outcome.Diagnosis.Advisory.ConfidenceLevel)
	assert.NotNil(t, outcome.Diagnosis.Classification, "classification survives an advisory failure")
}

func TestAddCropAndDiagnose_UploadFailureIsTerminal(t *testing.T) {
	f := newCropServiceFixture()
	f.store.uploadErr = errors.New("bucket unavailable")

	_, err := f.service.AddCropAndDiagnose(context.Background(), testFarmer(), diagnoseInput())

	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to upload crop image")
	assert.Equal(t, 1, f.cropRepo.createCalls, "the inserted crop row is left in place")
	assert.Empty(t, f.analysis.analyses, "no analysis is persisted after a terminal upload failure")
}

func TestAddCropAndDiagnose_HealthyClassification(t *testing.T) {
	f := newCropServiceFixture()
	f.classifier.record = &models.ClassificationRecord{IsHealthy: true}

	outcome, err := f.service.AddCropAndDiagnose(context.Background(), testFarmer(), diagnoseInput())

	require.NoError(t, err)
	assert.Equal(t, "Healthy", outcome.Diagnosis.DiseaseName)
	assert.Equal(t, float64(1), outcome.Diagnosis.Confidence)
	assert.Equal(t, float64(1), outcome.Diagnosis.Advisory.ConfidenceLevel)
	assert.Contains(t, f.advisor.gotInfo, "preventive care")
}

// ============================================================================
// TEST SUITE 3: ANALYZE EXISTING CROP
// ============================================================================

func TestAnalyzeCrop_RejectsNonOwner(t *testing.T) {
	f := newCropServiceFixture()
	crop, err := f.service.AddCrop(context.Background(), testFarmer(), diagnoseInput())
	require.NoError(t, err)

	intruder := &models.User{ID: "farmer-2", Role: models.RoleFarmer}
	_, err = f.service.AnalyzeCrop(context.Background(), intruder, crop.ID, ImageInput{})

	assert.ErrorIs(t, err, ErrNotCropOwner)
}

func TestAnalyzeCrop_NoImageAnywhere(t *testing.T) {
	f := newCropServiceFixture()
	input := diagnoseInput()
	input.Image = ImageInput{}
	crop, err := f.service.AddCrop(context.Background(), testFarmer(), input)
	require.NoError(t, err)

	_, err = f.service.AnalyzeCrop(context.Background(), testFarmer(), crop.ID, ImageInput{})

	assert.ErrorIs(t, err, ErrNoCropImage)
}

func TestAnalyzeCrop_FreshUpload(t *testing.T) {
	f := newCropServiceFixture()
	input := diagnoseInput()
	input.Image = ImageInput{}
	crop, err := f.service.AddCrop(context.Background(), testFarmer(), input)
	require.NoError(t, err)

	outcome, err := f.service.AnalyzeCrop(context.Background(), testFarmer(), crop.ID,
		ImageInput{Data: []byte("new-photo"), Filename: "new.jpg", ContentType: "image/jpeg"})

	require.NoError(t, err)
	require.NotNil(t, outcome.Crop.ImageURL)
	assert.Equal(t, "Late blight", outcome.Diagnosis.DiseaseName)
	require.Len(t, f.analysis.analyses, 1)
}

func TestAnalyzeCrop_FetchesStoredImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("stored-image-bytes"))
	}))
	defer server.Close()

	f := newCropServiceFixture()
	crop := &models.Crop{ID: "crop-1", FarmerID: "farmer-1", CropName: "Maize", PlantingDate: "2026-03-15", PlotSize: "1 acre"}
	require.NoError(t, f.cropRepo.CreateCrop(crop))
	url := server.URL + "/crop-images/farmer-1/crop-1/leaf.jpg"
	require.NoError(t, f.cropRepo.UpdateCropImageURL(crop.ID, url))

	outcome, err := f.service.AnalyzeCrop(context.Background(), testFarmer(), crop.ID, ImageInput{})

	require.NoError(t, err)
	assert.Equal(t, "Late blight", outcome.Diagnosis.DiseaseName)
	require.Len(t, f.analysis.analyses, 1)
	require.NotNil(t, f.analysis.analyses[0].ImageURL)
	assert.Equal(t, url, *f.analysis.analyses[0].ImageURL)
}

func TestAnalyzeCrop_StoredImageFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newCropServiceFixture()
	crop := &models.Crop{ID: "crop-1", FarmerID: "farmer-1", CropName: "Maize", PlantingDate: "2026-03-15", PlotSize: "1 acre"}
	require.NoError(t, f.cropRepo.CreateCrop(crop))
	require.NoError(t, f.cropRepo.UpdateCropImageURL(crop.ID, server.URL+"/gone.jpg"))

	_, err := f.service.AnalyzeCrop(context.Background(), testFarmer(), crop.ID, ImageInput{})

	assert.ErrorIs(t, err, ErrImageFetchFailed)
	assert.Empty(t, f.analysis.analyses)
}

// ============================================================================
// TEST SUITE 4: DELETE CROP
// ============================================================================

func TestDeleteCrop_OwnerDeletesAndCleansStorage(t *testing.T) {
	f := newCropServiceFixture()
	crop, err := f.service.AddCrop(context.Background(), testFarmer(), diagnoseInput())
	require.NoError(t, err)

	err = f.service.DeleteCrop(context.Background(), testFarmer(), crop.ID)

	require.NoError(t, err)
	assert.Empty(t, f.cropRepo.crops)
	assert.Equal(t, []string{"farmer-1/" + crop.ID}, f.store.deletedFolders)
}

func TestDeleteCrop_AdminMayDeleteAnyCrop(t *testing.T) {
	f := newCropServiceFixture()
	crop, err := f.service.AddCrop(context.Background(), testFarmer(), diagnoseInput())
	require.NoError(t, err)

	admin := &models.User{ID: "admin-1", Role: models.RoleAdmin}
	err = f.service.DeleteCrop(context.Background(), admin, crop.ID)

	assert.NoError(t, err)
}

func TestDeleteCrop_StrangerRejected(t *testing.T) {
	f := newCropServiceFixture()
	crop, err := f.service.AddCrop(context.Background(), testFarmer(), diagnoseInput())
	require.NoError(t, err)

	stranger := &models.User{ID: "farmer-9", Role: models.RoleFarmer}
	err = f.service.DeleteCrop(context.Background(), stranger, crop.ID)

	assert.ErrorIs(t, err, ErrNotCropOwner)
	assert.Len(t, f.cropRepo.crops, 1)
}
