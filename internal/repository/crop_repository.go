package repository

import (
	"database/sql"
	"fmt"
	"time"

	"agrismart/internal/models"

	"github.com/jmoiron/sqlx"
)

type ICropRepository interface {
	CreateCrop(crop *models.Crop) error
	GetCropByID(id string) (*models.Crop, error)
	GetCropsByFarmer(farmerID string) ([]*models.Crop, error)
	UpdateCropImageURL(cropID, imageURL string) error
	DeleteCrop(cropID string) error
	CountCrops() (int, error)
}

type CropRepository struct {
	db *sqlx.DB
}

func NewCropRepository(db *sqlx.DB) ICropRepository {
	return &CropRepository{
		db: db,
	}
}

func (r *CropRepository) CreateCrop(crop *models.Crop) error {
	query := `
		INSERT INTO crops (id, farmer_id, crop_name, planting_date, plot_size, image_url, created_at)
		VALUES (:id, :farmer_id, :crop_name, :planting_date, :plot_size, :image_url, :created_at)
	`

	crop.CreatedAt = time.Now()

	_, err := r.db.NamedExec(query, crop)
	if err != nil {
		return fmt.Errorf("failed to create crop: %w", err)
	}

	return nil
}

func (r *CropRepository) GetCropByID(id string) (*models.Crop, error) {
	var crop models.Crop
	query := `SELECT * FROM crops WHERE id = $1`

	err := r.db.Get(&crop, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("crop not found")
		}
		return nil, fmt.Errorf("failed to get crop by ID: %w", err)
	}

	return &crop, nil
}

func (r *CropRepository) GetCropsByFarmer(farmerID string) ([]*models.Crop, error) {
	var crops []*models.Crop
	query := `SELECT * FROM crops WHERE farmer_id = $1 ORDER BY created_at DESC`

	err := r.db.Select(&crops, query, farmerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get crops: %w", err)
	}

	return crops, nil
}

func (r *CropRepository) UpdateCropImageURL(cropID, imageURL string) error {
	query := `UPDATE crops SET image_url = $1 WHERE id = $2`

	result, err := r.db.Exec(query, imageURL, cropID)
	if err != nil {
		return fmt.Errorf("failed to update crop image url: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("crop not found")
	}

	return nil
}

func (r *CropRepository) DeleteCrop(cropID string) error {
	query := `DELETE FROM crops WHERE id = $1`

	result, err := r.db.Exec(query, cropID)
	if err != nil {
		return fmt.Errorf("failed to delete crop: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("crop not found")
	}

	return nil
}

func (r *CropRepository) CountCrops() (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM crops`)
	if err != nil {
		return 0, fmt.Errorf("failed to count crops: %w", err)
	}
	return count, nil
}
