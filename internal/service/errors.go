package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrCustomerTerminated = errors.New("customer is terminated")
	ErrInvalidDates       = errors.New("invalid dates")
	ErrInvalidPlantTypes  = errors.New("invalid plant types")
	ErrInvalidStatus      = errors.New("invalid contract status")
	ErrAlreadyCancelled   = errors.New("contract already cancelled")
	ErrAlreadyRenewed     = errors.New("contract already renewed")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrLedgerInconsistent = errors.New("inventory ledger inconsistent")
)

// InsufficientStockError lists every plant type that could not be reserved.
type InsufficientStockError struct {
	Shortages []model.Shortage
	codes     map[string]string
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		label := s.PlantTypeID.String()
		if code, ok := e.codes[label]; ok && code != "" {
			label = code
		}
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", label, s.Requested, s.Available))
	}
	return fmt.Sprintf("%s (%s)", ErrInsufficientStock.Error(), strings.Join(parts, "; "))
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// ErrorClass groups errors the way callers need to react to them.
type ErrorClass int

const (
	ClassInfrastructure ErrorClass = iota
	ClassValidation
	ClassNotFound
	ClassStateConflict
	ClassResourceConflict
)

func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassInfrastructure
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrCustomerNotFound),
		errors.Is(err, ErrCustomerTerminated),
		errors.Is(err, ErrInvalidDates),
		errors.Is(err, ErrInvalidPlantTypes):
		return ClassValidation
	case errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrAlreadyRenewed):
		return ClassStateConflict
	case errors.Is(err, ErrInsufficientStock):
		return ClassResourceConflict
	default:
		return ClassInfrastructure
	}
}
