package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/plantrent-contracts/internal/config"
	"github.com/nurpe/plantrent-contracts/internal/model"
)

type Dependencies struct {
	Tx        TxManager
	Contracts ContractStore
	Inventory InventoryLedger
	Plants    PlantRegistry
	Customers CustomerDirectory
	Catalog   PlantCatalog
	Excel     ExcelGenerator
	PDF       PDFGenerator
	Notifiers []Notifier
	Shortages ShortageRecorder
	Log       zerolog.Logger
}

// ContractService coordinates the contract lifecycle. It is the only writer
// of contract status, inventory counters and customer plant status, and it
// changes all three inside one unit of work.
type ContractService struct {
	tx           TxManager
	contracts    ContractStore
	inventory    InventoryLedger
	plants       PlantRegistry
	customers    CustomerDirectory
	catalog      PlantCatalog
	excel        ExcelGenerator
	pdf          PDFGenerator
	notifiers    []Notifier
	shortages    ShortageRecorder
	numbers      *NumberGenerator
	log          zerolog.Logger
	location     *time.Location
	expiringDays int
	now          func() time.Time
}

func NewContractService(deps Dependencies, cfg *config.Config) *ContractService {
	loc := cfg.Location()
	return &ContractService{
		tx:           deps.Tx,
		contracts:    deps.Contracts,
		inventory:    deps.Inventory,
		plants:       deps.Plants,
		customers:    deps.Customers,
		catalog:      deps.Catalog,
		excel:        deps.Excel,
		pdf:          deps.PDF,
		notifiers:    deps.Notifiers,
		shortages:    deps.Shortages,
		numbers:      NewNumberGenerator(deps.Contracts, cfg.Contracts.NumberPrefix, loc),
		log:          deps.Log,
		location:     loc,
		expiringDays: cfg.Contracts.ExpiringDays,
		now:          time.Now,
	}
}

func (s *ContractService) CreateContract(ctx context.Context, cmd CreateContractCommand) (*model.Contract, error) {
	startDate, endDate := dateOnly(cmd.StartDate), dateOnly(cmd.EndDate)
	if err := validateDates(startDate, endDate); err != nil {
		return nil, err
	}
	if err := validateItemInputs(cmd.Items); err != nil {
		return nil, err
	}
	if cmd.DepositAmount != nil && (*cmd.DepositAmount < 0 || *cmd.DepositAmount > model.MaxMoney) {
		return nil, fmt.Errorf("%w: deposit_amount must be between 0 and %s", ErrInvalidInput, model.MaxMoney)
	}

	customer, err := s.customers.Get(ctx, cmd.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, cmd.CustomerID)
		}
		return nil, err
	}
	if customer.Status == model.CustomerStatusTerminated {
		return nil, fmt.Errorf("%w: %s", ErrCustomerTerminated, customer.Name)
	}

	catalog, err := s.catalog.FindByIDs(ctx, itemPlantTypeIDs(cmd.Items))
	if err != nil {
		return nil, err
	}
	items, err := buildItems(cmd.Items, catalog)
	if err != nil {
		return nil, err
	}

	now := s.now()
	contract, err := newDraft(customer.ID, startDate, endDate, items, now)
	if err != nil {
		return nil, err
	}
	if cmd.DepositAmount != nil {
		contract.DepositAmount = *cmd.DepositAmount
	}
	contract.PaymentTerms = cmd.PaymentTerms
	contract.TermsNotes = cmd.Notes

	err = s.tx.Atomic(ctx, func(ctx context.Context) error {
		number, err := s.numbers.Next(ctx, now)
		if err != nil {
			return err
		}
		contract.Number = number
		return s.contracts.Insert(ctx, contract)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.ContractEvent{
		Transition: model.TransitionCreate,
		ContractID: contract.ID,
		Number:     contract.Number,
		CustomerID: contract.CustomerID,
		To:         contract.Status,
		ActorID:    cmd.Principal.UserID,
		OccurredAt: now,
	})
	return contract, nil
}

func (s *ContractService) UpdateContract(ctx context.Context, cmd UpdateContractCommand) (*model.Contract, error) {
	if cmd.ReplaceItems {
		if err := validateItemInputs(cmd.Items); err != nil {
			return nil, err
		}
	}
	if cmd.DepositAmount != nil && (*cmd.DepositAmount < 0 || *cmd.DepositAmount > model.MaxMoney) {
		return nil, fmt.Errorf("%w: deposit_amount must be between 0 and %s", ErrInvalidInput, model.MaxMoney)
	}
	if cmd.StartDate != nil {
		d := dateOnly(*cmd.StartDate)
		cmd.StartDate = &d
	}
	if cmd.EndDate != nil {
		d := dateOnly(*cmd.EndDate)
		cmd.EndDate = &d
	}

	now := s.now()
	var updated *model.Contract
	err := s.tx.Atomic(ctx, func(ctx context.Context) error {
		current, err := s.lockContract(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if !current.Status.Editable() {
			return fmt.Errorf("%w: only DRAFT contracts can be updated, current status is %s", ErrInvalidStatus, current.Status)
		}

		var items []model.ContractItem
		if cmd.ReplaceItems {
			catalog, err := s.catalog.FindByIDs(ctx, itemPlantTypeIDs(cmd.Items))
			if err != nil {
				return err
			}
			if items, err = buildItems(cmd.Items, catalog); err != nil {
				return err
			}
		}

		next, err := applyUpdate(*current, cmd, items, now)
		if err != nil {
			return err
		}
		ok, err := s.contracts.UpdateDraft(ctx, next)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: contract is no longer a draft", ErrInvalidStatus)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.ContractEvent{
		Transition: model.TransitionUpdate,
		ContractID: updated.ID,
		Number:     updated.Number,
		CustomerID: updated.CustomerID,
		From:       updated.Status,
		To:         updated.Status,
		ActorID:    cmd.Principal.UserID,
		OccurredAt: now,
	})
	return updated, nil
}

func (s *ContractService) ActivateContract(ctx context.Context, cmd ActivateContractCommand) (*model.Contract, error) {
	now := s.now()
	var (
		plan *activationPlan
		from model.ContractStatus
	)
	err := s.tx.Atomic(ctx, func(ctx context.Context) error {
		current, err := s.lockContract(ctx, cmd.ID)
		if err != nil {
			return err
		}
		from = current.Status
		if plan, err = planActivation(*current, now); err != nil {
			return err
		}

		shortages, err := s.inventory.ReserveBatch(ctx, plan.Adjustments)
		if err != nil {
			return fmt.Errorf("reserve stock: %w", err)
		}
		if len(shortages) > 0 {
			return s.insufficientStock(ctx, shortages)
		}

		if err := s.plants.Install(ctx, plan.Plants); err != nil {
			return fmt.Errorf("install customer plants: %w", err)
		}
		if err := s.promoteLead(ctx, current.CustomerID); err != nil {
			return err
		}
		return s.contracts.UpdateStatus(ctx, &plan.Contract)
	})
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) && s.shortages != nil {
			s.shortages.StockShortage(ctx, cmd.ID, stockErr.Shortages)
		}
		return nil, err
	}

	s.log.Info().
		Str("contract", plan.Contract.Number).
		Int("lines", len(plan.Adjustments)).
		Msg("contract activated")
	s.publish(ctx, model.ContractEvent{
		Transition:  model.TransitionActivate,
		ContractID:  plan.Contract.ID,
		Number:      plan.Contract.Number,
		CustomerID:  plan.Contract.CustomerID,
		From:        from,
		To:          plan.Contract.Status,
		ActorID:     cmd.Principal.UserID,
		Adjustments: plan.Adjustments,
		OccurredAt:  now,
	})
	return &plan.Contract, nil
}

func (s *ContractService) CancelContract(ctx context.Context, cmd CancelContractCommand) (*model.Contract, error) {
	now := s.now()
	var (
		plan     *cancellationPlan
		from     model.ContractStatus
		returned []model.StockAdjustment
	)
	err := s.tx.Atomic(ctx, func(ctx context.Context) error {
		current, err := s.lockContract(ctx, cmd.ID)
		if err != nil {
			return err
		}
		from = current.Status
		if plan, err = planCancellation(*current, cmd.Reason, now); err != nil {
			return err
		}

		if plan.ReturnStock {
			// Return exactly what was installed at activation time.
			removed, err := s.plants.RemoveByContract(ctx, current.ID, now)
			if err != nil {
				return fmt.Errorf("remove customer plants: %w", err)
			}
			returned = installedAdjustments(removed)
			if len(returned) > 0 {
				shortages, err := s.inventory.ReleaseBatch(ctx, returned)
				if err != nil {
					return fmt.Errorf("release stock: %w", err)
				}
				if len(shortages) > 0 {
					return fmt.Errorf("%w: rented stock below returned quantity for %d plant types", ErrLedgerInconsistent, len(shortages))
				}
			}
		}
		return s.contracts.UpdateStatus(ctx, &plan.Contract)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("contract", plan.Contract.Number).
		Str("from", string(from)).
		Int("returned_lines", len(returned)).
		Msg("contract cancelled")
	s.publish(ctx, model.ContractEvent{
		Transition:  model.TransitionCancel,
		ContractID:  plan.Contract.ID,
		Number:      plan.Contract.Number,
		CustomerID:  plan.Contract.CustomerID,
		From:        from,
		To:          plan.Contract.Status,
		ActorID:     cmd.Principal.UserID,
		Adjustments: returned,
		Reason:      cmd.Reason,
		OccurredAt:  now,
	})
	return &plan.Contract, nil
}

func (s *ContractService) GetContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.contracts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contract %s", ErrNotFound, id)
		}
		return nil, err
	}
	return contract, nil
}

// ExpiringContracts lists ACTIVE contracts ending within the next withinDays
// days, soonest first. A non-positive value uses the configured window.
func (s *ContractService) ExpiringContracts(ctx context.Context, withinDays int) ([]model.Contract, error) {
	if withinDays <= 0 {
		withinDays = s.expiringDays
	}
	if withinDays > 3650 {
		return nil, fmt.Errorf("%w: days must not exceed 3650", ErrInvalidInput)
	}
	today := s.today()
	return s.contracts.ListExpiring(ctx, today, today.AddDate(0, 0, withinDays))
}

func (s *ContractService) ContractStats(ctx context.Context) (model.ContractStats, error) {
	today := s.today()
	return s.contracts.Stats(ctx, today, today.AddDate(0, 0, s.expiringDays))
}

// CustomerContracts lists every contract of a customer, newest first.
func (s *ContractService) CustomerContracts(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	if _, err := s.customers.Get(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: customer %s", ErrNotFound, customerID)
		}
		return nil, err
	}
	return s.contracts.ListByCustomer(ctx, customerID)
}

// ContractPlants lists the plants currently installed under a contract.
func (s *ContractService) ContractPlants(ctx context.Context, id uuid.UUID) ([]model.CustomerPlant, error) {
	if _, err := s.GetContract(ctx, id); err != nil {
		return nil, err
	}
	return s.plants.ListActiveByContract(ctx, id)
}

func (s *ContractService) lockContract(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	contract, err := s.contracts.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contract %s", ErrNotFound, id)
		}
		return nil, err
	}
	return contract, nil
}

func (s *ContractService) promoteLead(ctx context.Context, customerID uuid.UUID) error {
	customer, err := s.customers.GetForUpdate(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
		}
		return err
	}
	if customer.Status != model.CustomerStatusLead {
		return nil
	}
	return s.customers.SetStatus(ctx, customerID, model.CustomerStatusActive)
}

func (s *ContractService) insufficientStock(ctx context.Context, shortages []model.Shortage) error {
	ids := make([]uuid.UUID, 0, len(shortages))
	for _, shortage := range shortages {
		ids = append(ids, shortage.PlantTypeID)
	}
	codes := make(map[string]string, len(ids))
	if catalog, err := s.catalog.FindByIDs(ctx, ids); err == nil {
		for id, plantType := range catalog {
			codes[id.String()] = plantType.Code
		}
	}
	return &InsufficientStockError{Shortages: shortages, codes: codes}
}

func (s *ContractService) publish(ctx context.Context, event model.ContractEvent) {
	for _, notifier := range s.notifiers {
		if err := notifier.ContractChanged(ctx, event); err != nil {
			s.log.Warn().
				Err(err).
				Str("contract", event.Number).
				Str("transition", string(event.Transition)).
				Msg("post-commit notification failed")
		}
	}
}

func (s *ContractService) today() time.Time {
	y, m, d := s.now().In(s.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func installedAdjustments(plants []model.CustomerPlant) []model.StockAdjustment {
	if len(plants) == 0 {
		return nil
	}
	lines := make([]model.StockAdjustment, 0, len(plants))
	for _, plant := range plants {
		lines = append(lines, model.StockAdjustment{PlantTypeID: plant.PlantTypeID, Quantity: plant.Quantity})
	}
	return model.AggregateAdjustments(lines)
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
