package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Get(ctx context.Context, plantTypeID uuid.UUID) (*model.Inventory, error) {
	var inv model.Inventory
	err := conn(ctx, r.db).Raw(`
		SELECT plant_type_id, available_stock, rented_stock, updated_at
		FROM inventory
		WHERE plant_type_id = ?
		LIMIT 1
	`, plantTypeID).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.PlantTypeID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

// lockLevels locks the inventory rows of the given plant types in id order.
func (r *InventoryRepository) lockLevels(db *gorm.DB, lines []model.StockAdjustment) (map[uuid.UUID]model.Inventory, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.PlantTypeID)
	}

	var rows []model.Inventory
	if err := db.Raw(`
		SELECT plant_type_id, available_stock, rented_stock, updated_at
		FROM inventory
		WHERE plant_type_id IN ?
		ORDER BY plant_type_id
		FOR UPDATE
	`, ids).Scan(&rows).Error; err != nil {
		return nil, err
	}

	levels := make(map[uuid.UUID]model.Inventory, len(rows))
	for _, row := range rows {
		levels[row.PlantTypeID] = row
	}
	return levels, nil
}

// ReserveBatch moves units from available to rented stock. Every line is
// checked against the locked rows before the first counter changes.
func (r *InventoryRepository) ReserveBatch(ctx context.Context, lines []model.StockAdjustment) ([]model.Shortage, error) {
	lines = model.AggregateAdjustments(lines)
	if len(lines) == 0 {
		return nil, nil
	}
	db := conn(ctx, r.db)

	levels, err := r.lockLevels(db, lines)
	if err != nil {
		return nil, err
	}
	if shortages := model.CheckReservation(levels, lines); len(shortages) > 0 {
		return shortages, nil
	}

	for _, line := range lines {
		res := db.Exec(`
			UPDATE inventory
			SET
				available_stock = available_stock - ?,
				rented_stock = rented_stock + ?,
				updated_at = NOW()
			WHERE plant_type_id = ? AND available_stock >= ?
		`, line.Quantity, line.Quantity, line.PlantTypeID, line.Quantity)
		if res.Error != nil {
			return nil, fmt.Errorf("reserve stock: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return nil, fmt.Errorf("reserve stock: plant type %s changed while locked", line.PlantTypeID)
		}
	}
	return nil, nil
}

// ReleaseBatch moves units from rented back to available stock.
func (r *InventoryRepository) ReleaseBatch(ctx context.Context, lines []model.StockAdjustment) ([]model.Shortage, error) {
	lines = model.AggregateAdjustments(lines)
	if len(lines) == 0 {
		return nil, nil
	}
	db := conn(ctx, r.db)

	levels, err := r.lockLevels(db, lines)
	if err != nil {
		return nil, err
	}
	if shortages := model.CheckRelease(levels, lines); len(shortages) > 0 {
		return shortages, nil
	}

	for _, line := range lines {
		res := db.Exec(`
			UPDATE inventory
			SET
				available_stock = available_stock + ?,
				rented_stock = rented_stock - ?,
				updated_at = NOW()
			WHERE plant_type_id = ? AND rented_stock >= ?
		`, line.Quantity, line.Quantity, line.PlantTypeID, line.Quantity)
		if res.Error != nil {
			return nil, fmt.Errorf("release stock: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return nil, fmt.Errorf("release stock: plant type %s changed while locked", line.PlantTypeID)
		}
	}
	return nil, nil
}

// Restock adds units to available stock, creating missing inventory rows.
func (r *InventoryRepository) Restock(ctx context.Context, lines []model.StockAdjustment) error {
	db := conn(ctx, r.db)
	for _, line := range model.AggregateAdjustments(lines) {
		if err := db.Exec(`
			INSERT INTO inventory (plant_type_id, available_stock, rented_stock, updated_at)
			VALUES (?, ?, 0, NOW())
			ON CONFLICT (plant_type_id) DO UPDATE
			SET
				available_stock = inventory.available_stock + EXCLUDED.available_stock,
				updated_at = NOW()
		`, line.PlantTypeID, line.Quantity).Error; err != nil {
			return fmt.Errorf("restock: %w", err)
		}
	}
	return nil
}
