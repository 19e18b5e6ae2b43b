package model

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID      uuid.UUID      `json:"id"`
	Name    string         `json:"name"`
	TaxCode string         `json:"tax_code"`
	Address string         `json:"address"`
	Phone   string         `json:"phone"`
	Status  CustomerStatus `json:"status"`
}

// CustomerPlant is a quantity of one plant type installed at a customer site
// under a specific contract. Rows are never deleted, only marked REMOVED.
type CustomerPlant struct {
	ID          uuid.UUID           `json:"id"`
	CustomerID  uuid.UUID           `json:"customer_id"`
	PlantTypeID uuid.UUID           `json:"plant_type_id"`
	ContractID  uuid.UUID           `json:"contract_id"`
	Quantity    int                 `json:"quantity"`
	Status      CustomerPlantStatus `json:"status"`
	InstalledAt time.Time           `json:"installed_at"`
	RemovedAt   *time.Time          `json:"removed_at,omitempty"`
}
