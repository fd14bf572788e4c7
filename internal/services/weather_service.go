package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"agrismart/internal/ai/gemini"
	"agrismart/internal/config"
	"agrismart/internal/models"
)

// forecastWindowSize is the number of entries served after the current one,
// covering roughly the next three and a half days of 3-hour intervals.
const forecastWindowSize = 29

const weatherUnavailableMessage = "AI recommendations unavailable at the moment."

// WeatherAdvisor produces the recommendation text appended to a forecast.
type WeatherAdvisor interface {
	ProcessWeatherRecommendations(ctx context.Context, weather gemini.WeatherSummary, actx models.AdvisoryContext) (string, error)
}

type IWeatherService interface {
	GetForecast(ctx context.Context, location, cropType string) (*WeatherReport, error)
}

type ForecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Rain struct {
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
	DtTxt string `json:"dt_txt"`
}

type forecastResponse struct {
	List []ForecastEntry `json:"list"`
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
}

// WeatherReport is the composed response: first entry as current conditions,
// the following window as the forecast, plus advisory text.
type WeatherReport struct {
	Current         *ForecastEntry  `json:"current"`
	Forecast        []ForecastEntry `json:"forecast"`
	Recommendations string          `json:"recommendations"`
}

type WeatherService struct {
	cfg        config.WeatherConfig
	advisor    WeatherAdvisor
	httpClient *http.Client
}

func NewWeatherService(cfg config.WeatherConfig, advisor WeatherAdvisor) IWeatherService {
	return &WeatherService{
		cfg:     cfg,
		advisor: advisor,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (w *WeatherService) GetForecast(ctx context.Context, location, cropType string) (*WeatherReport, error) {
	if w.cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	endpoint := fmt.Sprintf("%s/forecast?q=%s&units=metric&appid=%s",
		w.cfg.BaseURL, url.QueryEscape(location), w.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		log.Printf("Error fetching weather data: %v", err)
		return nil, fmt.Errorf("failed to call API")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Error reading response body: %v", err)
		return nil, fmt.Errorf("failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		log.Printf("API 3rd party returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("API 3rd party error")
	}

	var forecast forecastResponse
	if err := json.Unmarshal(body, &forecast); err != nil {
		log.Printf("Error unmarshaling JSON: %v", err)
		return nil, fmt.Errorf("failed to parse JSON")
	}

	if len(forecast.List) == 0 {
		return nil, fmt.Errorf("empty forecast for location %s", location)
	}

	report := &WeatherReport{
		Current:  &forecast.List[0],
		Forecast: forecastWindow(forecast.List),
	}

	report.Recommendations = w.recommend(ctx, report.Current, location, cropType)

	return report, nil
}

// forecastWindow takes the entries after the current one, capped at the window size.
func forecastWindow(list []ForecastEntry) []ForecastEntry {
	if len(list) <= 1 {
		return nil
	}
	rest := list[1:]
	if len(rest) > forecastWindowSize {
		rest = rest[:forecastWindowSize]
	}
	return rest
}

// recommend delegates to the advisory adapter; on failure the report still goes
// out with a fixed unavailable string.
func (w *WeatherService) recommend(ctx context.Context, current *ForecastEntry, location, cropType string) string {
	description := ""
	if len(current.Weather) > 0 {
		description = current.Weather[0].Description
	}

	summary := gemini.WeatherSummary{
		Temperature: current.Main.Temp,
		Rainfall:    current.Rain.ThreeHour,
		Humidity:    current.Main.Humidity,
		Forecast:    description,
	}

	recommendations, err := w.advisor.ProcessWeatherRecommendations(ctx, summary, models.AdvisoryContext{
		Location: location,
		CropType: cropType,
	})
	if err != nil {
		log.Printf("AI recommendation failed: %v", err)
		return weatherUnavailableMessage
	}
	return recommendations
}
