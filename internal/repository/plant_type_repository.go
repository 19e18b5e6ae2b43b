package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

type PlantTypeRepository struct {
	db *gorm.DB
}

func NewPlantTypeRepository(db *gorm.DB) *PlantTypeRepository {
	return &PlantTypeRepository{db: db}
}

// FindByIDs returns the plant types that exist; absent ids are simply missing
// from the map.
func (r *PlantTypeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.PlantType, error) {
	result := make(map[uuid.UUID]model.PlantType, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []model.PlantType
	if err := conn(ctx, r.db).Raw(`
		SELECT id, code, name, monthly_price
		FROM plant_types
		WHERE id IN ?
	`, ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row
	}
	return result, nil
}
