package plantid

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"time"

	"agrismart/internal/config"
	"agrismart/internal/models"
)

// ErrInvalidImageInput is returned when the input is neither raw bytes nor a file path.
var ErrInvalidImageInput = errors.New("invalid image input: must be raw bytes or file path string")

var unknownModifierRe = regexp.MustCompile(`(?i)unknown modifier`)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.PlantIDConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// PrepareImage converts raw bytes or a filesystem path into a base64 string.
func PrepareImage(image any) (string, error) {
	switch v := image.(type) {
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	case string:
		data, err := os.ReadFile(v)
		if err != nil {
			return "", fmt.Errorf("error preparing image: %w", err)
		}
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		return "", ErrInvalidImageInput
	}
}

// requestVariant is one tier of the degrade-and-retry ladder. Each tier is
// attempted at most once. Leaving the first tier requires a 400 with an
// unknown-modifier body; after that, any failure of the reduced tier falls
// through to the bare request.
type requestVariant struct {
	modifiers []string
}

var requestLadder = []requestVariant{
	{modifiers: []string{"health=auto", "similar_images=true", "symptoms=true"}},
	{modifiers: []string{"health=auto"}},
	{modifiers: nil},
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("plant.id API error: status %d, body %s", e.status, e.body)
}

// Classify sends the image through the health_assessment endpoint, degrading the
// modifier set on unsupported-modifier rejections, and normalizes the response.
func (c *Client) Classify(ctx context.Context, imageBytes []byte) (*models.ClassificationRecord, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("missing plant.id API key")
	}

	base64Image, err := PrepareImage(imageBytes)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	for i, variant := range requestLadder {
		raw, err = c.healthAssessment(ctx, base64Image, variant.modifiers)
		if err == nil {
			break
		}
		if i >= len(requestLadder)-1 {
			break
		}

		if i == 0 {
			var apiErr *apiError
			if !errors.As(err, &apiErr) || apiErr.status != http.StatusBadRequest ||
				!unknownModifierRe.MatchString(apiErr.body) {
				return nil, fmt.Errorf("disease analysis failed: %w", err)
			}
		}
		log.Printf("plant.id request with modifiers %v failed, degrading to next tier: %v", variant.modifiers, err)
	}
	if err != nil {
		return nil, fmt.Errorf("disease analysis failed: %w", err)
	}

	return normalizeResponse(raw), nil
}

func (c *Client) healthAssessment(ctx context.Context, base64Image string, modifiers []string) (map[string]any, error) {
	payload := map[string]any{
		"images": []string{base64Image},
	}
	if modifiers != nil {
		payload["modifiers"] = modifiers
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/health_assessment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call plant.id API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &apiError{status: resp.StatusCode, body: string(respBody)}
	}

	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse plant.id response: %w", err)
	}

	// Newer API tiers nest everything under "result".
	if result, ok := parsed["result"].(map[string]any); ok {
		if md, ok := parsed["meta_data"]; ok {
			result["meta_data"] = md
		}
		return result, nil
	}
	return parsed, nil
}

// normalizeResponse flattens the vendor's inconsistent response shapes into one
// record. Disease details live under disease_details, details, or on the disease
// object itself depending on the API tier; each field falls back to nil.
func normalizeResponse(response map[string]any) *models.ClassificationRecord {
	health := response
	if h, ok := response["health_assessment"].(map[string]any); ok {
		health = h
	}

	diseasesRaw, _ := health["diseases"].([]any)
	diseases := make([]models.Disease, 0, len(diseasesRaw))
	for _, item := range diseasesRaw {
		d, ok := item.(map[string]any)
		if !ok {
			continue
		}

		detailsSource := d
		if dd, ok := d["disease_details"].(map[string]any); ok {
			detailsSource = dd
		} else if dd, ok := d["details"].(map[string]any); ok {
			detailsSource = dd
		}

		name := stringField(d, "name")
		if name == "" {
			name = stringField(detailsSource, "name")
		}
		if name == "" {
			name = "Unknown"
		}

		diseases = append(diseases, models.Disease{
			Name:        name,
			Probability: numberField(d, "probability"),
			Details: models.DiseaseDetails{
				Cause:          stringPtrField(detailsSource, "cause"),
				CommonNames:    detailsSource["common_names"],
				Description:    stringPtrField(detailsSource, "description"),
				Treatment:      detailsSource["treatment"],
				Classification: detailsSource["classification"],
				URL:            stringPtrField(detailsSource, "url"),
			},
		})
	}

	isHealthy := len(diseases) == 0
	if flag, ok := health["is_healthy"].(bool); ok {
		isHealthy = flag
	}

	quality := models.ImageQuality{}
	if meta, ok := response["meta_data"].(map[string]any); ok {
		if iq, ok := meta["image_quality_assessment"].(map[string]any); ok {
			quality.IsAcceptable, _ = iq["is_acceptable"].(bool)
			quality.QualityScore = numberField(iq, "quality_score")
		}
	}

	return &models.ClassificationRecord{
		IsHealthy:    isHealthy,
		Diseases:     diseases,
		ImageQuality: quality,
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringPtrField(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok && s != "" {
		return &s
	}
	return nil
}

func numberField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		var f float64
		fmt.Sscanf(v, "%f", &f)
		return f
	default:
		return 0
	}
}
