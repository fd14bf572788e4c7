package repository

import (
	"fmt"
	"time"

	"agrismart/internal/models"

	"github.com/jmoiron/sqlx"
)

type IAnalysisRepository interface {
	CreateAnalysis(analysis *models.DiseaseAnalysis) error
	GetAnalysesByCrop(cropID string) ([]*models.DiseaseAnalysis, error)
	CountAnalyses() (int, error)
}

// AnalysisRepository writes disease_analyses rows. Rows are append-only and
// never updated after insertion.
type AnalysisRepository struct {
	db *sqlx.DB
}

func NewAnalysisRepository(db *sqlx.DB) IAnalysisRepository {
	return &AnalysisRepository{
		db: db,
	}
}

func (r *AnalysisRepository) CreateAnalysis(analysis *models.DiseaseAnalysis) error {
	query := `
		INSERT INTO disease_analyses (id, crop_id, image_url, plant_id_response, ai_recommendations,
		                              is_healthy, confidence_level, analyzed_at)
		VALUES (:id, :crop_id, :image_url, :plant_id_response, :ai_recommendations,
		        :is_healthy, :confidence_level, :analyzed_at)
	`

	analysis.AnalyzedAt = time.Now()

	_, err := r.db.NamedExec(query, analysis)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}

	return nil
}

func (r *AnalysisRepository) GetAnalysesByCrop(cropID string) ([]*models.DiseaseAnalysis, error) {
	var analyses []*models.DiseaseAnalysis
	query := `SELECT * FROM disease_analyses WHERE crop_id = $1 ORDER BY analyzed_at DESC`

	err := r.db.Select(&analyses, query, cropID)
	if err != nil {
		return nil, fmt.Errorf("failed to get analyses: %w", err)
	}

	return analyses, nil
}

func (r *AnalysisRepository) CountAnalyses() (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM disease_analyses`)
	if err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}
