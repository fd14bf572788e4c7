package models

import (
	"time"

	"agrismart/utils"
)

type Crop struct {
	ID           string    `json:"id" db:"id"`
	FarmerID     string    `json:"farmer_id" db:"farmer_id"`
	CropName     string    `json:"crop_name" db:"crop_name"`
	PlantingDate string    `json:"planting_date" db:"planting_date"`
	PlotSize     string    `json:"plot_size" db:"plot_size"`
	ImageURL     *string   `json:"image_url" db:"image_url"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DiseaseAnalysis rows are append-only; one crop accumulates a history of analyses.
type DiseaseAnalysis struct {
	ID                string        `json:"id" db:"id"`
	CropID            string        `json:"crop_id" db:"crop_id"`
	ImageURL          *string       `json:"image_url" db:"image_url"`
	PlantIDResponse   utils.JSONMap `json:"plant_id_response" db:"plant_id_response"`
	AIRecommendations utils.JSONMap `json:"ai_recommendations" db:"ai_recommendations"`
	IsHealthy         *bool         `json:"is_healthy" db:"is_healthy"`
	ConfidenceLevel   *float64      `json:"confidence_level" db:"confidence_level"`
	AnalyzedAt        time.Time     `json:"analyzed_at" db:"analyzed_at"`
}
