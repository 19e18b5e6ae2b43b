package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

const contractColumns = `
	id,
	number,
	customer_id,
	status,
	start_date,
	end_date,
	monthly_fee,
	total_contract_value,
	deposit_amount,
	payment_terms,
	terms_notes,
	previous_contract_id,
	termination_reason,
	activated_at,
	cancelled_at,
	terminated_at,
	created_at,
	updated_at
`

const itemColumns = `
	id,
	contract_id,
	position,
	plant_type_id,
	quantity,
	unit_price,
	discount_percent,
	total_price
`

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Get(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate locks the contract row until the surrounding transaction ends.
func (r *ContractRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *ContractRepository) get(ctx context.Context, id uuid.UUID, lock string) (*model.Contract, error) {
	db := conn(ctx, r.db)

	var contract model.Contract
	err := db.Raw(`SELECT`+contractColumns+`FROM contracts WHERE id = ? LIMIT 1`+lock, id).
		Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}

	items, err := r.listItems(db, []uuid.UUID{contract.ID})
	if err != nil {
		return nil, err
	}
	contract.Items = items[contract.ID]
	return &contract, nil
}

func (r *ContractRepository) listItems(db *gorm.DB, contractIDs []uuid.UUID) (map[uuid.UUID][]model.ContractItem, error) {
	result := make(map[uuid.UUID][]model.ContractItem, len(contractIDs))
	if len(contractIDs) == 0 {
		return result, nil
	}
	var items []model.ContractItem
	if err := db.Raw(`
		SELECT`+itemColumns+`
		FROM contract_items
		WHERE contract_id IN ?
		ORDER BY contract_id, position
	`, contractIDs).Scan(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		result[item.ContractID] = append(result[item.ContractID], item)
	}
	return result, nil
}

func (r *ContractRepository) attachItems(db *gorm.DB, contracts []model.Contract) error {
	ids := make([]uuid.UUID, 0, len(contracts))
	for _, contract := range contracts {
		ids = append(ids, contract.ID)
	}
	items, err := r.listItems(db, ids)
	if err != nil {
		return err
	}
	for i := range contracts {
		contracts[i].Items = items[contracts[i].ID]
	}
	return nil
}

func (r *ContractRepository) Insert(ctx context.Context, contract *model.Contract) error {
	db := conn(ctx, r.db)
	err := db.Exec(`
		INSERT INTO contracts (`+contractColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		contract.ID,
		contract.Number,
		contract.CustomerID,
		contract.Status,
		contract.StartDate,
		contract.EndDate,
		contract.MonthlyFee,
		contract.TotalContractValue,
		contract.DepositAmount,
		contract.PaymentTerms,
		contract.TermsNotes,
		contract.PreviousContractID,
		contract.TerminationReason,
		contract.ActivatedAt,
		contract.CancelledAt,
		contract.TerminatedAt,
		contract.CreatedAt,
		contract.UpdatedAt,
	).Error
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return r.insertItems(db, contract.Items)
}

func (r *ContractRepository) insertItems(db *gorm.DB, items []model.ContractItem) error {
	for _, item := range items {
		if err := db.Exec(`
			INSERT INTO contract_items (`+itemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			item.ID,
			item.ContractID,
			item.Position,
			item.PlantTypeID,
			item.Quantity,
			item.UnitPrice,
			item.DiscountPercent,
			item.TotalPrice,
		).Error; err != nil {
			return fmt.Errorf("insert contract item: %w", err)
		}
	}
	return nil
}

// UpdateDraft rewrites a DRAFT contract and replaces its item set. It
// reports false without writing anything once the contract left DRAFT.
func (r *ContractRepository) UpdateDraft(ctx context.Context, contract *model.Contract) (bool, error) {
	db := conn(ctx, r.db)
	res := db.Exec(`
		UPDATE contracts
		SET
			start_date = ?,
			end_date = ?,
			monthly_fee = ?,
			total_contract_value = ?,
			deposit_amount = ?,
			payment_terms = ?,
			terms_notes = ?,
			updated_at = ?
		WHERE id = ? AND status = 'DRAFT'
	`,
		contract.StartDate,
		contract.EndDate,
		contract.MonthlyFee,
		contract.TotalContractValue,
		contract.DepositAmount,
		contract.PaymentTerms,
		contract.TermsNotes,
		contract.UpdatedAt,
		contract.ID,
	)
	if res.Error != nil {
		return false, fmt.Errorf("update contract: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := db.Exec(`DELETE FROM contract_items WHERE contract_id = ?`, contract.ID).Error; err != nil {
		return false, fmt.Errorf("delete contract items: %w", err)
	}
	if err := r.insertItems(db, contract.Items); err != nil {
		return false, err
	}
	return true, nil
}

func (r *ContractRepository) UpdateStatus(ctx context.Context, contract *model.Contract) error {
	res := conn(ctx, r.db).Exec(`
		UPDATE contracts
		SET
			status = ?,
			terms_notes = ?,
			termination_reason = ?,
			activated_at = ?,
			cancelled_at = ?,
			terminated_at = ?,
			updated_at = ?
		WHERE id = ?
	`,
		contract.Status,
		contract.TermsNotes,
		contract.TerminationReason,
		contract.ActivatedAt,
		contract.CancelledAt,
		contract.TerminatedAt,
		contract.UpdatedAt,
		contract.ID,
	)
	if res.Error != nil {
		return fmt.Errorf("update contract status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ContractRepository) HasSuccessor(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := conn(ctx, r.db).Raw(`
		SELECT EXISTS (SELECT 1 FROM contracts WHERE previous_contract_id = ?)
	`, id).Scan(&exists).Error; err != nil {
		return false, err
	}
	return exists, nil
}

// LatestNumber takes a transaction-scoped advisory lock on the prefix, so a
// second issuer for the same month waits until the first one commits and
// then sees its number.
func (r *ContractRepository) LatestNumber(ctx context.Context, prefix string) (string, error) {
	db := conn(ctx, r.db)
	if err := db.Exec(`SELECT pg_advisory_xact_lock(hashtext(?))`, prefix).Error; err != nil {
		return "", fmt.Errorf("lock contract numbering: %w", err)
	}

	var number string
	if err := db.Raw(`
		SELECT number
		FROM contracts
		WHERE number LIKE ?
		ORDER BY LENGTH(number) DESC, number DESC
		LIMIT 1
	`, prefix+"%").Scan(&number).Error; err != nil {
		return "", err
	}
	return number, nil
}

func (r *ContractRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]model.Contract, error) {
	db := conn(ctx, r.db)

	var contracts []model.Contract
	if err := db.Raw(`
		SELECT`+contractColumns+`
		FROM contracts
		WHERE status = 'ACTIVE'
			AND end_date >= ?
			AND end_date <= ?
		ORDER BY end_date ASC, number ASC
	`, from, to).Scan(&contracts).Error; err != nil {
		return nil, err
	}

	if err := r.attachItems(db, contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *ContractRepository) Stats(ctx context.Context, today, soon time.Time) (model.ContractStats, error) {
	var stats model.ContractStats
	err := conn(ctx, r.db).Raw(`
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'ACTIVE') AS active,
			COUNT(*) FILTER (WHERE status = 'ACTIVE' AND end_date >= ? AND end_date <= ?) AS expiring_soon,
			COALESCE(SUM(monthly_fee) FILTER (WHERE status = 'ACTIVE'), 0) AS monthly_recurring
		FROM contracts
	`, today, soon).Scan(&stats).Error
	return stats, err
}

func (r *ContractRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Contract, error) {
	db := conn(ctx, r.db)

	var contracts []model.Contract
	if err := db.Raw(`
		SELECT`+contractColumns+`
		FROM contracts
		WHERE customer_id = ?
		ORDER BY created_at DESC, number DESC
	`, customerID).Scan(&contracts).Error; err != nil {
		return nil, err
	}

	if err := r.attachItems(db, contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}
