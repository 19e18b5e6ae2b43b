package service

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

type ItemInput struct {
	PlantTypeID     uuid.UUID
	Quantity        int
	UnitPrice       *model.Money
	DiscountPercent decimal.Decimal
}

type CreateContractCommand struct {
	CustomerID    uuid.UUID
	StartDate     time.Time
	EndDate       time.Time
	Items         []ItemInput
	DepositAmount *model.Money
	PaymentTerms  *string
	Notes         *string
	Principal     model.Principal
}

// UpdateContractCommand carries only the fields to change; nil keeps the
// stored value.
type UpdateContractCommand struct {
	ID            uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
	Items         []ItemInput
	ReplaceItems  bool
	DepositAmount *model.Money
	PaymentTerms  *string
	Notes         *string
	Principal     model.Principal
}

type ActivateContractCommand struct {
	ID        uuid.UUID
	Principal model.Principal
}

type CancelContractCommand struct {
	ID        uuid.UUID
	Reason    string
	Principal model.Principal
}

type RenewContractCommand struct {
	ID           uuid.UUID
	NewStartDate time.Time
	NewEndDate   time.Time
	// Items overrides the copied item set when non-nil.
	Items     []ItemInput
	Principal model.Principal
}

const renewalReason = "Renewed"

func validateDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", ErrInvalidDates)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end_date must be after start_date", ErrInvalidDates)
	}
	return nil
}

func validateItemInputs(items []ItemInput) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	hundred := decimal.NewFromInt(100)
	for i, item := range items {
		if item.PlantTypeID == uuid.Nil {
			return fmt.Errorf("%w: item %d has no plant_type_id", ErrInvalidInput, i+1)
		}
		if item.Quantity <= 0 || item.Quantity > math.MaxInt32 {
			return fmt.Errorf("%w: item %d quantity must be between 1 and %d", ErrInvalidInput, i+1, math.MaxInt32)
		}
		if item.UnitPrice != nil && (*item.UnitPrice < 0 || *item.UnitPrice > model.MaxMoney) {
			return fmt.Errorf("%w: item %d unit_price must be between 0 and %s", ErrInvalidInput, i+1, model.MaxMoney)
		}
		if item.DiscountPercent.IsNegative() || item.DiscountPercent.GreaterThan(hundred) {
			return fmt.Errorf("%w: item %d discount_percent must be between 0 and 100", ErrInvalidInput, i+1)
		}
	}
	return nil
}

func itemPlantTypeIDs(items []ItemInput) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.PlantTypeID]; ok {
			continue
		}
		seen[item.PlantTypeID] = struct{}{}
		ids = append(ids, item.PlantTypeID)
	}
	return ids
}

// buildItems prices the requested items against the catalog. Every plant
// type must be present in catalog.
func buildItems(inputs []ItemInput, catalog map[uuid.UUID]model.PlantType) ([]model.ContractItem, error) {
	var missing []string
	for _, id := range itemPlantTypeIDs(inputs) {
		if _, ok := catalog[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPlantTypes, strings.Join(missing, ", "))
	}

	items := make([]model.ContractItem, 0, len(inputs))
	for i, input := range inputs {
		unitPrice := catalog[input.PlantTypeID].MonthlyPrice
		if input.UnitPrice != nil {
			unitPrice = *input.UnitPrice
		}
		total, err := model.ItemTotal(unitPrice, input.Quantity, input.DiscountPercent)
		if err != nil {
			return nil, amountError(fmt.Sprintf("item %d total", i+1), err)
		}
		items = append(items, model.ContractItem{
			ID:              uuid.New(),
			Position:        i + 1,
			PlantTypeID:     input.PlantTypeID,
			Quantity:        input.Quantity,
			UnitPrice:       unitPrice,
			DiscountPercent: input.DiscountPercent,
			TotalPrice:      total,
		})
	}
	return items, nil
}

// copyItems duplicates items verbatim under fresh identifiers.
func copyItems(src []model.ContractItem) []model.ContractItem {
	items := make([]model.ContractItem, 0, len(src))
	for i, item := range src {
		item.ID = uuid.New()
		item.ContractID = uuid.Nil
		item.Position = i + 1
		items = append(items, item)
	}
	return items
}

// price recomputes the derived amounts from items and dates.
func price(c *model.Contract) error {
	for i := range c.Items {
		c.Items[i].ContractID = c.ID
	}
	monthly, err := model.SumMonthly(c.Items)
	if err != nil {
		return amountError("monthly fee", err)
	}
	total, err := monthly.Times(model.MonthsInclusive(c.StartDate, c.EndDate))
	if err != nil {
		return amountError("total contract value", err)
	}
	c.MonthlyFee = monthly
	c.TotalContractValue = total
	return nil
}

func amountError(field string, err error) error {
	if errors.Is(err, model.ErrMoneyOutOfRange) {
		return fmt.Errorf("%w: %s exceeds %s", ErrInvalidInput, field, model.MaxMoney)
	}
	return err
}

func newDraft(customerID uuid.UUID, start, end time.Time, items []model.ContractItem, now time.Time) (*model.Contract, error) {
	c := &model.Contract{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     model.ContractStatusDraft,
		StartDate:  start,
		EndDate:    end,
		Items:      items,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := price(c); err != nil {
		return nil, err
	}
	return c, nil
}

// applyUpdate returns the contract resulting from cmd without touching the
// original. items is nil unless cmd replaces the item set.
func applyUpdate(current model.Contract, cmd UpdateContractCommand, items []model.ContractItem, now time.Time) (*model.Contract, error) {
	if !current.Status.Editable() {
		return nil, fmt.Errorf("%w: only DRAFT contracts can be updated, current status is %s", ErrInvalidStatus, current.Status)
	}
	next := current
	if cmd.StartDate != nil {
		next.StartDate = *cmd.StartDate
	}
	if cmd.EndDate != nil {
		next.EndDate = *cmd.EndDate
	}
	if err := validateDates(next.StartDate, next.EndDate); err != nil {
		return nil, err
	}
	if cmd.ReplaceItems {
		next.Items = items
	} else {
		next.Items = append([]model.ContractItem(nil), current.Items...)
	}
	if cmd.DepositAmount != nil {
		next.DepositAmount = *cmd.DepositAmount
	}
	if cmd.PaymentTerms != nil {
		next.PaymentTerms = cmd.PaymentTerms
	}
	if cmd.Notes != nil {
		next.TermsNotes = cmd.Notes
	}
	next.UpdatedAt = now
	if err := price(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

type activationPlan struct {
	Contract    model.Contract
	Adjustments []model.StockAdjustment
	Plants      []model.CustomerPlant
}

func planActivation(current model.Contract, now time.Time) (*activationPlan, error) {
	next, ok := model.NextStatus(current.Status, model.TransitionActivate)
	if !ok {
		return nil, fmt.Errorf("%w: cannot activate a %s contract", ErrInvalidStatus, current.Status)
	}
	if len(current.Items) == 0 {
		return nil, fmt.Errorf("%w: contract has no items", ErrInvalidInput)
	}

	plan := &activationPlan{Contract: current, Adjustments: current.Adjustments()}
	plan.Contract.Status = next
	plan.Contract.ActivatedAt = &now
	plan.Contract.UpdatedAt = now

	plan.Plants = make([]model.CustomerPlant, 0, len(current.Items))
	for _, item := range current.Items {
		plan.Plants = append(plan.Plants, model.CustomerPlant{
			ID:          uuid.New(),
			CustomerID:  current.CustomerID,
			PlantTypeID: item.PlantTypeID,
			ContractID:  current.ID,
			Quantity:    item.Quantity,
			Status:      model.CustomerPlantStatusActive,
			InstalledAt: now,
		})
	}
	return plan, nil
}

type cancellationPlan struct {
	Contract model.Contract
	// ReturnStock is set when units may be installed under the contract.
	ReturnStock bool
}

func planCancellation(current model.Contract, reason string, now time.Time) (*cancellationPlan, error) {
	if current.Status == model.ContractStatusCancelled {
		return nil, fmt.Errorf("%w: contract %s", ErrAlreadyCancelled, current.Number)
	}
	next, ok := model.NextStatus(current.Status, model.TransitionCancel)
	if !ok {
		return nil, fmt.Errorf("%w: cannot cancel a %s contract", ErrInvalidStatus, current.Status)
	}

	plan := &cancellationPlan{
		Contract:    current,
		ReturnStock: current.Status == model.ContractStatusActive || current.Status == model.ContractStatusExpired,
	}
	plan.Contract.Status = next
	plan.Contract.CancelledAt = &now
	plan.Contract.UpdatedAt = now
	if reason = strings.TrimSpace(reason); reason != "" {
		plan.Contract.TermsNotes = appendNote(current.TermsNotes, "Cancelled: "+reason)
	}
	return plan, nil
}

func appendNote(notes *string, line string) *string {
	var result string
	if notes != nil && strings.TrimSpace(*notes) != "" {
		result = *notes + "\n" + line
	} else {
		result = line
	}
	return &result
}

type renewalPlan struct {
	Source    model.Contract
	Successor *model.Contract
}

// planRenewal assumes the caller has already ruled out an existing successor.
func planRenewal(source model.Contract, start, end time.Time, items []model.ContractItem, now time.Time) (*renewalPlan, error) {
	next, ok := model.NextStatus(source.Status, model.TransitionRenew)
	if !ok {
		return nil, fmt.Errorf("%w: cannot renew a %s contract", ErrInvalidStatus, source.Status)
	}
	if err := validateDates(start, end); err != nil {
		return nil, err
	}
	if items == nil {
		items = copyItems(source.Items)
	}

	successor, err := newDraft(source.CustomerID, start, end, items, now)
	if err != nil {
		return nil, err
	}
	sourceID := source.ID
	successor.PreviousContractID = &sourceID
	successor.DepositAmount = source.DepositAmount
	successor.PaymentTerms = source.PaymentTerms
	successor.TermsNotes = source.TermsNotes

	plan := &renewalPlan{Source: source, Successor: successor}
	reason := renewalReason
	plan.Source.Status = next
	plan.Source.TerminationReason = &reason
	plan.Source.TerminatedAt = &now
	plan.Source.UpdatedAt = now
	return plan, nil
}
