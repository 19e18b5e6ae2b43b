package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return r.get(ctx, id, "")
}

func (r *CustomerRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *CustomerRepository) get(ctx context.Context, id uuid.UUID, lock string) (*model.Customer, error) {
	var customer model.Customer
	err := conn(ctx, r.db).Raw(`
		SELECT id, name, tax_code, address, phone, status
		FROM customers
		WHERE id = ?
		LIMIT 1`+lock, id).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	return &customer, nil
}

func (r *CustomerRepository) SetStatus(ctx context.Context, id uuid.UUID, status model.CustomerStatus) error {
	res := conn(ctx, r.db).Exec(`
		UPDATE customers
		SET status = ?, updated_at = NOW()
		WHERE id = ?
	`, status, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
