package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

// TxManager runs fn as one atomic unit of work. Store calls made with the
// context handed to fn take part in the same transaction.
type TxManager interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}

// ContractStore persists contracts together with their items.
// Missing rows are reported as gorm.ErrRecordNotFound.
type ContractStore interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Contract, error)
	Insert(ctx context.Context, contract *model.Contract) error
	// UpdateDraft rewrites fields and items and reports false when the
	// stored contract is no longer a draft.
	UpdateDraft(ctx context.Context, contract *model.Contract) (bool, error)
	UpdateStatus(ctx context.Context, contract *model.Contract) error
	HasSuccessor(ctx context.Context, id uuid.UUID) (bool, error)
	// LatestNumber returns the greatest number with the prefix, or "".
	// It serializes concurrent callers for the same prefix until commit.
	LatestNumber(ctx context.Context, prefix string) (string, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]model.Contract, error)
	Stats(ctx context.Context, today, soon time.Time) (model.ContractStats, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error)
}

// InventoryLedger moves units between available and rented stock.
// Batch calls either apply every line or none and report shortages
// instead of an error when a line cannot be satisfied.
type InventoryLedger interface {
	Get(ctx context.Context, plantTypeID uuid.UUID) (*model.Inventory, error)
	ReserveBatch(ctx context.Context, lines []model.StockAdjustment) ([]model.Shortage, error)
	ReleaseBatch(ctx context.Context, lines []model.StockAdjustment) ([]model.Shortage, error)
	Restock(ctx context.Context, lines []model.StockAdjustment) error
}

type PlantRegistry interface {
	Install(ctx context.Context, plants []model.CustomerPlant) error
	// RemoveByContract marks the contract's ACTIVE rows REMOVED and returns them.
	RemoveByContract(ctx context.Context, contractID uuid.UUID, at time.Time) ([]model.CustomerPlant, error)
	ListActiveByContract(ctx context.Context, contractID uuid.UUID) ([]model.CustomerPlant, error)
}

type CustomerDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	SetStatus(ctx context.Context, id uuid.UUID, status model.CustomerStatus) error
}

type PlantCatalog interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.PlantType, error)
}

// Notifier is told about committed changes only. Failures are logged and
// never undo the change.
type Notifier interface {
	ContractChanged(ctx context.Context, event model.ContractEvent) error
}

// ShortageRecorder hears about activations rejected for lack of stock.
type ShortageRecorder interface {
	StockShortage(ctx context.Context, contractID uuid.UUID, shortages []model.Shortage)
}

type ExcelGenerator interface {
	GenerateExpiring(report model.ExpiringReport) ([]byte, error)
}

type PDFGenerator interface {
	Generate(doc model.ContractDocument) ([]byte, error)
}
