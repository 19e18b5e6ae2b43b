package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorClass
	}{
		{fmt.Errorf("%w: contract x", ErrNotFound), ClassNotFound},
		{fmt.Errorf("%w: bad", ErrInvalidInput), ClassValidation},
		{ErrCustomerNotFound, ClassValidation},
		{ErrCustomerTerminated, ClassValidation},
		{ErrInvalidDates, ClassValidation},
		{ErrInvalidPlantTypes, ClassValidation},
		{ErrInvalidStatus, ClassStateConflict},
		{ErrAlreadyCancelled, ClassStateConflict},
		{ErrAlreadyRenewed, ClassStateConflict},
		{&InsufficientStockError{}, ClassResourceConflict},
		{ErrLedgerInconsistent, ClassInfrastructure},
		{errors.New("connection reset"), ClassInfrastructure},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.err), tc.err.Error())
	}
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	known, unknown := uuid.New(), uuid.New()
	err := &InsufficientStockError{
		Shortages: []model.Shortage{
			{PlantTypeID: known, Requested: 10, Available: 5},
			{PlantTypeID: unknown, Requested: 2, Available: 0},
		},
		codes: map[string]string{known.String(): "KT01"},
	}
	assert.Equal(t,
		"insufficient stock (KT01: requested 10, available 5; "+unknown.String()+": requested 2, available 0)",
		err.Error())
	assert.True(t, errors.Is(fmt.Errorf("activate: %w", err), ErrInsufficientStock))
}
