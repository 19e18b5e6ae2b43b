package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

type CustomerPlantRepository struct {
	db *gorm.DB
}

func NewCustomerPlantRepository(db *gorm.DB) *CustomerPlantRepository {
	return &CustomerPlantRepository{db: db}
}

func (r *CustomerPlantRepository) Install(ctx context.Context, plants []model.CustomerPlant) error {
	db := conn(ctx, r.db)
	for _, plant := range plants {
		if err := db.Exec(`
			INSERT INTO customer_plants (
				id,
				customer_id,
				plant_type_id,
				contract_id,
				quantity,
				status,
				installed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			plant.ID,
			plant.CustomerID,
			plant.PlantTypeID,
			plant.ContractID,
			plant.Quantity,
			plant.Status,
			plant.InstalledAt,
		).Error; err != nil {
			return fmt.Errorf("install customer plant: %w", err)
		}
	}
	return nil
}

func (r *CustomerPlantRepository) RemoveByContract(ctx context.Context, contractID uuid.UUID, at time.Time) ([]model.CustomerPlant, error) {
	var plants []model.CustomerPlant
	err := conn(ctx, r.db).Raw(`
		UPDATE customer_plants
		SET status = ?, removed_at = ?
		WHERE contract_id = ? AND status = ?
		RETURNING
			id,
			customer_id,
			plant_type_id,
			contract_id,
			quantity,
			status,
			installed_at,
			removed_at
	`, model.CustomerPlantStatusRemoved, at, contractID, model.CustomerPlantStatusActive).Scan(&plants).Error
	if err != nil {
		return nil, fmt.Errorf("remove customer plants: %w", err)
	}
	return plants, nil
}

func (r *CustomerPlantRepository) ListActiveByContract(ctx context.Context, contractID uuid.UUID) ([]model.CustomerPlant, error) {
	var plants []model.CustomerPlant
	err := conn(ctx, r.db).Raw(`
		SELECT
			id,
			customer_id,
			plant_type_id,
			contract_id,
			quantity,
			status,
			installed_at,
			removed_at
		FROM customer_plants
		WHERE contract_id = ? AND status = ?
		ORDER BY installed_at, plant_type_id
	`, contractID, model.CustomerPlantStatusActive).Scan(&plants).Error
	if err != nil {
		return nil, err
	}
	return plants, nil
}
