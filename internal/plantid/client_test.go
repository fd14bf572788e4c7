package plantid

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrismart/internal/config"
	"agrismart/internal/models"
)

// ============================================================================
// TEST SUITE 1: IMAGE PREPARATION
// ============================================================================

func TestPrepareImage_RawBytes(t *testing.T) {
	encoded, err := PrepareImage([]byte("fake-jpeg-bytes"))

	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes")), encoded)
}

func TestPrepareImage_FilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaf.jpg")
	require.NoError(t, os.WriteFile(path, []byte("leaf-data"), 0o644))

	encoded, err := PrepareImage(path)

	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("leaf-data")), encoded)
}

func TestPrepareImage_MissingFile(t *testing.T) {
	_, err := PrepareImage(filepath.Join(t.TempDir(), "nope.jpg"))

	assert.Error(t, err)
}

func TestPrepareImage_UnsupportedType(t *testing.T) {
	_, err := PrepareImage(42)

	assert.ErrorIs(t, err, ErrInvalidImageInput)
}

// ============================================================================
// TEST SUITE 2: RESPONSE NORMALIZATION
// ============================================================================

func TestNormalizeResponse_DiseaseDetailsVariant(t *testing.T) {
	record := normalizeResponse(map[string]any{
		"health_assessment": map[string]any{
			"is_healthy": false,
			"diseases": []any{
				map[string]any{
					"name":        "Late blight",
					"probability": 0.91,
					"disease_details": map[string]any{
						"cause":       "Phytophthora infestans",
						"description": "Water-soaked lesions on leaves",
					},
				},
			},
		},
	})

	require.Len(t, record.Diseases, 1)
	assert.False(t, record.IsHealthy)
	assert.Equal(t, "Late blight", record.Diseases[0].Name)
	assert.Equal(t, 0.91, record.Diseases[0].Probability)
	require.NotNil(t, record.Diseases[0].Details.Cause)
	assert.Equal(t, "Phytophthora infestans", *record.Diseases[0].Details.Cause)
}

func TestNormalizeResponse_DetailsVariant(t *testing.T) {
	record := normalizeResponse(map[string]any{
		"diseases": []any{
			map[string]any{
				"probability": 0.55,
				"details": map[string]any{
					"name":        "Powdery mildew",
					"description": "White powdery coating",
				},
			},
		},
	})

	require.Len(t, record.Diseases, 1)
	assert.Equal(t, "Powdery mildew", record.Diseases[0].Name, "name falls back to the details block")
	require.NotNil(t, record.Diseases[0].Details.Description)
	assert.Equal(t, "White powdery coating", *record.Diseases[0].Details.Description)
}

func TestNormalizeResponse_SelfVariant(t *testing.T) {
	record := normalizeResponse(map[string]any{
		"diseases": []any{
			map[string]any{
				"name":        "Leaf rust",
				"probability": 0.4,
				"cause":       "Puccinia fungus",
			},
		},
	})

	require.Len(t, record.Diseases, 1)
	require.NotNil(t, record.Diseases[0].Details.Cause)
	assert.Equal(t, "Puccinia fungus", *record.Diseases[0].Details.Cause)
}

func TestNormalizeResponse_MissingNameDefaultsToUnknown(t *testing.T) {
	record := normalizeResponse(map[string]any{
		"diseases": []any{
			map[string]any{"probability": 0.2},
		},
	})

	require.Len(t, record.Diseases, 1)
	assert.Equal(t, "Unknown", record.Diseases[0].Name)
}

func TestNormalizeResponse_EmptyDiseasesMeansHealthy(t *testing.T) {
	record := normalizeResponse(map[string]any{"diseases": []any{}})

	assert.True(t, record.IsHealthy)
	assert.Empty(t, record.Diseases)
}

func TestNormalizeResponse_ExplicitHealthFlagWins(t *testing.T) {
	record := normalizeResponse(map[string]any{
		"is_healthy": false,
		"diseases":   []any{},
	})

	assert.False(t, record.IsHealthy, "explicit is_healthy overrides the empty-list default")
}

func TestNormalizeResponse_ImageQuality(t *testing.T) {
	record := normalizeResponse(map[string]any{
		"diseases": []any{},
		"meta_data": map[string]any{
			"image_quality_assessment": map[string]any{
				"is_acceptable": true,
				"quality_score": 0.87,
			},
		},
	})

	assert.True(t, record.ImageQuality.IsAcceptable)
	assert.Equal(t, 0.87, record.ImageQuality.QualityScore)
}

// ============================================================================
// TEST SUITE 3: TOP DISEASE REDUCTION
// ============================================================================

func TestTopDisease_MaxProbabilityNotFirst(t *testing.T) {
	record := &models.ClassificationRecord{
		Diseases: []models.Disease{
			{Name: "Leaf spot", Probability: 0.3},
			{Name: "Late blight", Probability: 0.9},
			{Name: "Rust", Probability: 0.6},
		},
	}

	top := record.TopDisease()

	assert.Equal(t, "Late blight", top.Name, "ordering from the vendor must not be trusted")
	assert.Equal(t, 0.9, top.Probability)
}

func TestTopDisease_EmptyListReturnsHealthySentinel(t *testing.T) {
	record := &models.ClassificationRecord{}

	top := record.TopDisease()

	assert.Equal(t, "Healthy", top.Name)
	assert.Equal(t, float64(1), top.Probability)
}

// ============================================================================
// TEST SUITE 4: MODIFIER DEGRADE LADDER
// ============================================================================

type capturedRequest struct {
	modifiers []string
	hasMods   bool
}

func decodeModifiers(t *testing.T, r *http.Request) capturedRequest {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

	raw, ok := payload["modifiers"].([]any)
	if !ok {
		return capturedRequest{hasMods: false}
	}
	mods := make([]string, 0, len(raw))
	for _, m := range raw {
		mods = append(mods, m.(string))
	}
	return capturedRequest{modifiers: mods, hasMods: true}
}

func TestClassify_DegradesOnUnknownModifier(t *testing.T) {
	var requests []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeModifiers(t, r)
		requests = append(requests, req)

		if len(requests) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "Unknown modifier: symptoms"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"health_assessment": map[string]any{
				"is_healthy": false,
				"diseases": []any{
					map[string]any{"name": "Late blight", "probability": 0.8},
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(config.PlantIDConfig{APIKey: "test-key", BaseURL: server.URL})
	record, err := client.Classify(context.Background(), []byte("image"))

	require.NoError(t, err)
	require.Len(t, requests, 2, "exactly one degrade step")
	assert.Equal(t, []string{"health=auto", "similar_images=true", "symptoms=true"}, requests[0].modifiers)
	assert.Equal(t, []string{"health=auto"}, requests[1].modifiers)
	require.Len(t, record.Diseases, 1)
	assert.Equal(t, "Late blight", record.Diseases[0].Name)
}

func TestClassify_SecondTierFailureFallsToBare(t *testing.T) {
	var requests []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeModifiers(t, r)
		requests = append(requests, req)

		switch len(requests) {
		case 1:
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`Unknown modifier: symptoms`))
		case 2:
			// The reduced tier may fail for any reason and the ladder
			// still moves on to the bare request.
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`upstream glitch`))
		default:
			json.NewEncoder(w).Encode(map[string]any{"diseases": []any{}})
		}
	}))
	defer server.Close()

	client := NewClient(config.PlantIDConfig{APIKey: "test-key", BaseURL: server.URL})
	record, err := client.Classify(context.Background(), []byte("image"))

	require.NoError(t, err)
	require.Len(t, requests, 3)
	assert.False(t, requests[2].hasMods)
	assert.True(t, record.IsHealthy)
}

func TestClassify_DegradesToBareRequest(t *testing.T) {
	var requests []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeModifiers(t, r)
		requests = append(requests, req)

		if req.hasMods {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`Unknown modifier`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"diseases": []any{}})
	}))
	defer server.Close()

	client := NewClient(config.PlantIDConfig{APIKey: "test-key", BaseURL: server.URL})
	record, err := client.Classify(context.Background(), []byte("image"))

	require.NoError(t, err)
	require.Len(t, requests, 3, "all three tiers attempted")
	assert.False(t, requests[2].hasMods, "final tier sends no modifiers field")
	assert.True(t, record.IsHealthy)
}

func TestClassify_NonModifierBadRequestIsFatal(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "image too small"}`))
	}))
	defer server.Close()

	client := NewClient(config.PlantIDConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.Classify(context.Background(), []byte("image"))

	assert.Error(t, err)
	assert.Equal(t, 1, calls, "a non-modifier 400 on the first tier must not trigger the ladder")
}

func TestClassify_ServerErrorIsFatal(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`Unknown modifier`)) // body matches, status does not
	}))
	defer server.Close()

	client := NewClient(config.PlantIDConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.Classify(context.Background(), []byte("image"))

	assert.Error(t, err)
	assert.Equal(t, 1, calls, "leaving the first tier requires status 400, not just a matching body")
}

func TestClassify_LastTierFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`Unknown modifier`))
	}))
	defer server.Close()

	client := NewClient(config.PlantIDConfig{APIKey: "test-key", BaseURL: server.URL})
	_, err := client.Classify(context.Background(), []byte("image"))

	assert.Error(t, err, "a modifier rejection on the bare tier has nowhere left to degrade")
}

func TestClassify_MetaDataInsideResultSurvives(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"diseases": []any{},
				"meta_data": map[string]any{
					"image_quality_assessment": map[string]any{
						"is_acceptable": true,
						"quality_score": 0.93,
					},
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(config.PlantIDConfig{APIKey: "test-key", BaseURL: server.URL})
	record, err := client.Classify(context.Background(), []byte("image"))

	require.NoError(t, err)
	assert.True(t, record.ImageQuality.IsAcceptable, "meta_data already under result must not be clobbered")
	assert.Equal(t, 0.93, record.ImageQuality.QualityScore)
}

func TestClassify_MissingAPIKey(t *testing.T) {
	client := NewClient(config.PlantIDConfig{BaseURL: "http://unused"})

	_, err := client.Classify(context.Background(), []byte("image"))

	assert.ErrorContains(t, err, "missing plant.id API key")
}

func TestClassify_SendsAPIKeyHeader(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Api-Key")
		json.NewEncoder(w).Encode(map[string]any{"diseases": []any{}})
	}))
	defer server.Close()

	client := NewClient(config.PlantIDConfig{APIKey: "secret-key", BaseURL: server.URL})
	_, err := client.Classify(context.Background(), []byte("image"))

	require.NoError(t, err)
	assert.Equal(t, "secret-key", gotKey)
}
