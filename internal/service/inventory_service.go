package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

// InventoryService exposes stock levels and external restocking events.
// Reservation and release stay with ContractService.
type InventoryService struct {
	tx        TxManager
	inventory InventoryLedger
	catalog   PlantCatalog
	log       zerolog.Logger
}

func NewInventoryService(tx TxManager, inventory InventoryLedger, catalog PlantCatalog, log zerolog.Logger) *InventoryService {
	return &InventoryService{tx: tx, inventory: inventory, catalog: catalog, log: log}
}

func (s *InventoryService) Stock(ctx context.Context, plantTypeID uuid.UUID) (*model.Inventory, error) {
	inv, err := s.inventory.Get(ctx, plantTypeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no inventory for plant type %s", ErrNotFound, plantTypeID)
		}
		return nil, err
	}
	return inv, nil
}

// Restock adds units to available stock for every line, or none of them.
func (s *InventoryService) Restock(ctx context.Context, lines []model.StockAdjustment) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrInvalidInput)
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for i, line := range lines {
		if line.PlantTypeID == uuid.Nil || line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d needs a plant_type_id and a positive quantity", ErrInvalidInput, i+1)
		}
		ids = append(ids, line.PlantTypeID)
	}

	err := s.tx.Atomic(ctx, func(ctx context.Context) error {
		catalog, err := s.catalog.FindByIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, ok := catalog[id]; !ok {
				return fmt.Errorf("%w: %s", ErrInvalidPlantTypes, id)
			}
		}
		return s.inventory.Restock(ctx, model.AggregateAdjustments(lines))
	})
	if err != nil {
		return err
	}
	s.log.Info().Int("lines", len(lines)).Msg("inventory restocked")
	return nil
}
