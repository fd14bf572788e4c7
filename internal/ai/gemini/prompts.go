package gemini

import (
	"fmt"
	"strings"

	"agrismart/internal/models"
)

const baseSystemPrompt = `You are an expert agricultural advisor with deep knowledge of farming in Kenya.
Your role is to provide clear, practical advice to small-scale farmers about crop diseases, farming techniques,
and best practices. Always consider local conditions and traditional farming methods while suggesting modern solutions.`

// BuildSystemPrompt extends the expert preamble with one clause per present
// context field. Order matters: location, then crop type, then season.
func BuildSystemPrompt(ctx models.AdvisoryContext) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)

	if ctx.Location != "" {
		fmt.Fprintf(&b, "\nYou are specifically advising farmers in %s, Kenya.", ctx.Location)
	}
	if ctx.CropType != "" {
		fmt.Fprintf(&b, "\nThe farmer is primarily growing %s.", ctx.CropType)
	}
	if ctx.Season != "" {
		fmt.Fprintf(&b, "\nThe current growing season is %s.", ctx.Season)
	}

	return b.String()
}

func BuildQueryPrompt(query string, ctx models.AdvisoryContext) string {
	return fmt.Sprintf("%s\n\nFarmer's question: %s", BuildSystemPrompt(ctx), query)
}

func BuildDiseasePrompt(diseaseInfo string, ctx models.AdvisoryContext) string {
	return fmt.Sprintf(`%s

Based on the image analysis, the crop shows signs of:
%s

Please provide:
1. Short, clear explanation of the disease
2. Immediate treatment steps
3. Prevention measures
4. Organic treatment alternatives if available
5. Expected recovery timeline
Keep the advice simple, practical, and concise.`, BuildSystemPrompt(ctx), diseaseInfo)
}

// WeatherSummary carries the forecast values the weather prompt interpolates.
type WeatherSummary struct {
	Temperature float64
	Rainfall    float64
	Humidity    float64
	Forecast    string
}

func BuildWeatherPrompt(weather WeatherSummary, ctx models.AdvisoryContext) string {
	return fmt.Sprintf(`%s

Based on the following weather forecast:
Temperature: %.1f°C
Rainfall: %.1fmm
Humidity: %.0f%%
Forecast: %s

Please provide:
1. Recommended farming activities for the next 7 days
2. Precautions to take
3. Irrigation recommendations
4. Pest and disease risks in these conditions
5. Optimal timing for any planned activities`, BuildSystemPrompt(ctx),
		weather.Temperature, weather.Rainfall, weather.Humidity, weather.Forecast)
}

// PlanningParams carries the crop-planning inputs.
type PlanningParams struct {
	LandSize    string
	SoilType    string
	WaterSource string
	Budget      string
}

func BuildPlanningPrompt(params PlanningParams, ctx models.AdvisoryContext) string {
	return fmt.Sprintf(`%s

Please provide a detailed crop planning recommendation based on:
Land Size: %s acres
Soil Type: %s
Available Water: %s
Budget: %s KES

Include:
1. Recommended crops for the season
2. Planting schedule
3. Resource requirements
4. Expected yields
5. Potential challenges and solutions
6. Budget allocation suggestions`, BuildSystemPrompt(ctx),
		params.LandSize, params.SoilType, params.WaterSource, params.Budget)
}
