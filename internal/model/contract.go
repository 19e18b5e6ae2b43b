package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Contract struct {
	ID                 uuid.UUID      `json:"id"`
	Number             string         `json:"number"`
	CustomerID         uuid.UUID      `json:"customer_id"`
	Status             ContractStatus `json:"status"`
	StartDate          time.Time      `json:"start_date"`
	EndDate            time.Time      `json:"end_date"`
	MonthlyFee         Money          `json:"monthly_fee"`
	TotalContractValue Money          `json:"total_contract_value"`
	DepositAmount      Money          `json:"deposit_amount"`
	PaymentTerms       *string        `json:"payment_terms,omitempty"`
	TermsNotes         *string        `json:"terms_notes,omitempty"`
	PreviousContractID *uuid.UUID     `json:"previous_contract_id,omitempty"`
	TerminationReason  *string        `json:"termination_reason,omitempty"`
	ActivatedAt        *time.Time     `json:"activated_at,omitempty"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	TerminatedAt       *time.Time     `json:"terminated_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	Items              []ContractItem `json:"items" gorm:"-"`
}

type ContractItem struct {
	ID              uuid.UUID       `json:"id"`
	ContractID      uuid.UUID       `json:"contract_id"`
	Position        int             `json:"position"`
	PlantTypeID     uuid.UUID       `json:"plant_type_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       Money           `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TotalPrice      Money           `json:"total_price"`
}

// ItemTotal is the discount-adjusted price of one line.
func ItemTotal(unitPrice Money, quantity int, discountPercent decimal.Decimal) (Money, error) {
	gross, err := unitPrice.Times(quantity)
	if err != nil {
		return 0, err
	}
	return gross.Discounted(discountPercent)
}

// SumMonthly returns the monthly fee implied by a set of items.
func SumMonthly(items []ContractItem) (Money, error) {
	var total Money
	for _, item := range items {
		var err error
		if total, err = total.Add(item.TotalPrice); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// MonthsInclusive counts the calendar months covered by [start, end],
// counting a started month as a whole one. It never returns less than 1.
func MonthsInclusive(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	months := (ey-sy)*12 + int(em-sm)
	if ed < sd {
		months--
	}
	months++
	if months < 1 {
		return 1
	}
	return months
}

// Adjustments converts the contract items into ledger lines.
func (c *Contract) Adjustments() []StockAdjustment {
	lines := make([]StockAdjustment, 0, len(c.Items))
	for _, item := range c.Items {
		lines = append(lines, StockAdjustment{PlantTypeID: item.PlantTypeID, Quantity: item.Quantity})
	}
	return AggregateAdjustments(lines)
}

// PlantTypeIDs returns the distinct plant types referenced by the items.
func (c *Contract) PlantTypeIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(c.Items))
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.PlantTypeID]; ok {
			continue
		}
		seen[item.PlantTypeID] = struct{}{}
		ids = append(ids, item.PlantTypeID)
	}
	return ids
}

type ContractStats struct {
	Total            int64 `json:"total"`
	Active           int64 `json:"active"`
	ExpiringSoon     int64 `json:"expiring_soon"`
	MonthlyRecurring Money `json:"monthly_recurring"`
}
