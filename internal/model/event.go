package model

import (
	"time"

	"github.com/google/uuid"
)

// ContractEvent is published to collaborators after a lifecycle unit of work
// has committed.
type ContractEvent struct {
	Transition  Transition
	ContractID  uuid.UUID
	Number      string
	CustomerID  uuid.UUID
	From        ContractStatus
	To          ContractStatus
	ActorID     uuid.UUID
	Adjustments []StockAdjustment
	SuccessorID *uuid.UUID
	Reason      string
	OccurredAt  time.Time
}
