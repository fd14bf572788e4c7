package gemini

import (
	"context"
	"errors"
	"fmt"

	"agrismart/internal/config"
	"agrismart/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	Client     *genai.Client
	FlashModel *genai.GenerativeModel
	ProModel   *genai.GenerativeModel
}

func NewGenAIClient(apiKey, flashModelName, proModelName string) (*GeminiClient, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("genai client init failed: %w", err)
	}

	return &GeminiClient{
		Client:     client,
		FlashModel: client.GenerativeModel(flashModelName),
		ProModel:   client.GenerativeModel(proModelName),
	}, nil
}

func (g *GeminiClient) generateText(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no content returned from AI")
	}
	textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("response part is not text, received %T", resp.Candidates[0].Content.Parts[0])
	}
	return string(textPart), nil
}

// Advisor is the advisory synthesis adapter. It builds context-aware prompts,
// runs them against Gemini with multi-key failover, and post-processes the text.
type Advisor struct {
	selector *GeminiClientSelector
}

func NewAdvisor(cfg config.GeminiConfig) (*Advisor, error) {
	if len(cfg.APIKeys) == 0 {
		return nil, errors.New("no Gemini API keys configured")
	}

	clients := make([]GeminiClient, 0, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		client, err := NewGenAIClient(key, cfg.FlashModelName, cfg.ProModelName)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *client)
	}

	return &Advisor{selector: NewGeminiClientSelector(clients)}, nil
}

func (a *Advisor) generate(ctx context.Context, useProModel bool, prompt string) (string, error) {
	var text string
	err := a.selector.TryAllClients(func(client *GeminiClient, clientIdx int) error {
		model := client.FlashModel
		if useProModel {
			model = client.ProModel
		}
		out, err := client.generateText(ctx, model, prompt)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return CleanResponse(text), nil
}

// ProcessFarmingQuery answers a general farming question on the flash model.
func (a *Advisor) ProcessFarmingQuery(ctx context.Context, query string, actx models.AdvisoryContext) (*models.AdvisoryResult, error) {
	text, err := a.generate(ctx, false, BuildQueryPrompt(query, actx))
	if err != nil {
		return nil, fmt.Errorf("error processing farming query: %w", err)
	}
	return &models.AdvisoryResult{
		Response:         text,
		SuggestedActions: CategorizeTreatments(text),
	}, nil
}

// ProcessDiseaseQuery synthesizes treatment advice for a diagnosed disease.
func (a *Advisor) ProcessDiseaseQuery(ctx context.Context, diseaseInfo string, actx models.AdvisoryContext) (*models.AdvisoryResult, error) {
	text, err := a.generate(ctx, true, BuildDiseasePrompt(diseaseInfo, actx))
	if err != nil {
		return nil, fmt.Errorf("error processing disease query: %w", err)
	}
	return &models.AdvisoryResult{
		Response:         text,
		SuggestedActions: CategorizeTreatments(text),
	}, nil
}

// ProcessWeatherRecommendations produces weather-specific farming guidance.
func (a *Advisor) ProcessWeatherRecommendations(ctx context.Context, weather WeatherSummary, actx models.AdvisoryContext) (string, error) {
	text, err := a.generate(ctx, true, BuildWeatherPrompt(weather, actx))
	if err != nil {
		return "", fmt.Errorf("error processing weather recommendations: %w", err)
	}
	return text, nil
}

// ProcessCropPlanning produces a seasonal crop plan.
func (a *Advisor) ProcessCropPlanning(ctx context.Context, params PlanningParams, actx models.AdvisoryContext) (*models.AdvisoryResult, error) {
	text, err := a.generate(ctx, true, BuildPlanningPrompt(params, actx))
	if err != nil {
		return nil, fmt.Errorf("error processing crop planning: %w", err)
	}
	return &models.AdvisoryResult{
		Response:         text,
		SuggestedActions: CategorizeTreatments(text),
	}, nil
}
