package model

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
)

type PlantType struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	MonthlyPrice Money     `json:"monthly_price"`
}

type Inventory struct {
	PlantTypeID    uuid.UUID `json:"plant_type_id"`
	AvailableStock int       `json:"available_stock"`
	RentedStock    int       `json:"rented_stock"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// StockAdjustment is one ledger line: move Quantity units of a plant type.
type StockAdjustment struct {
	PlantTypeID uuid.UUID `json:"plant_type_id"`
	Quantity    int       `json:"quantity"`
}

// Shortage describes a ledger line that cannot be satisfied.
type Shortage struct {
	PlantTypeID uuid.UUID `json:"plant_type_id"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// AggregateAdjustments merges lines for the same plant type and orders the
// result by plant type id, which is also the row-locking order.
func AggregateAdjustments(lines []StockAdjustment) []StockAdjustment {
	totals := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		totals[line.PlantTypeID] += line.Quantity
	}
	result := make([]StockAdjustment, 0, len(totals))
	for id, qty := range totals {
		result = append(result, StockAdjustment{PlantTypeID: id, Quantity: qty})
	}
	sort.Slice(result, func(i, j int) bool {
		return bytes.Compare(result[i].PlantTypeID[:], result[j].PlantTypeID[:]) < 0
	})
	return result
}

// CheckReservation verifies every line against the current levels before any
// counter is touched. A plant type without an inventory row has no stock.
func CheckReservation(levels map[uuid.UUID]Inventory, lines []StockAdjustment) []Shortage {
	var shortages []Shortage
	for _, line := range AggregateAdjustments(lines) {
		available := levels[line.PlantTypeID].AvailableStock
		if available < line.Quantity {
			shortages = append(shortages, Shortage{
				PlantTypeID: line.PlantTypeID,
				Requested:   line.Quantity,
				Available:   available,
			})
		}
	}
	return shortages
}

// CheckRelease verifies that rented stock covers every returned line.
func CheckRelease(levels map[uuid.UUID]Inventory, lines []StockAdjustment) []Shortage {
	var shortages []Shortage
	for _, line := range AggregateAdjustments(lines) {
		rented := levels[line.PlantTypeID].RentedStock
		if rented < line.Quantity {
			shortages = append(shortages, Shortage{
				PlantTypeID: line.PlantTypeID,
				Requested:   line.Quantity,
				Available:   rented,
			})
		}
	}
	return shortages
}
