package model

import "time"

// ExpiringRow is one contract line of the expiring-contracts export.
type ExpiringRow struct {
	Contract     Contract
	CustomerName string
	DaysLeft     int
}

type ExpiringReport struct {
	GeneratedAt time.Time
	WithinDays  int
	Rows        []ExpiringRow
}

// ContractDocumentLine is an item resolved against the plant catalog.
type ContractDocumentLine struct {
	Item      ContractItem
	PlantType PlantType
}

type ContractDocument struct {
	Contract Contract
	Customer Customer
	Lines    []ContractDocumentLine
	Months   int
}
