package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

func (e *testEnv) activeContract(t *testing.T, items ...ItemInput) *model.Contract {
	t.Helper()
	customer := e.store.addCustomer("Cafe Sen", model.CustomerStatusActive)
	draft := e.createDraft(t, customer.ID, items...)
	activated, err := e.svc.ActivateContract(context.Background(), ActivateContractCommand{ID: draft.ID, Principal: staff})
	require.NoError(t, err)
	return activated
}

func TestRenewContract(t *testing.T) {
	env := newTestEnv()
	kt01 := env.store.addPlantType("KT01", 15000000, 5)
	source := env.activeContract(t, ItemInput{PlantTypeID: kt01.ID, Quantity: 3})
	before := env.store.stock(kt01.ID)

	successor, err := env.svc.RenewContract(context.Background(), RenewContractCommand{
		ID:           source.ID,
		NewStartDate: day(2025, 4, 1),
		NewEndDate:   day(2026, 3, 31),
		Principal:    staff,
	})
	require.NoError(t, err)

	assert.Equal(t, model.ContractStatusDraft, successor.Status)
	require.NotNil(t, successor.PreviousContractID)
	assert.Equal(t, source.ID, *successor.PreviousContractID)
	assert.Equal(t, source.CustomerID, successor.CustomerID)
	assert.Equal(t, "HD-202403-0002", successor.Number)
	require.Len(t, successor.Items, 1)
	assert.NotEqual(t, source.Items[0].ID, successor.Items[0].ID)
	assert.Equal(t, successor.ID, successor.Items[0].ContractID)
	assert.Equal(t, 3, successor.Items[0].Quantity)
	assert.Equal(t, source.MonthlyFee, successor.MonthlyFee)

	stored := env.store.contract(source.ID)
	assert.Equal(t, model.ContractStatusTerminated, stored.Status)
	require.NotNil(t, stored.TerminationReason)
	assert.Equal(t, "Renewed", *stored.TerminationReason)
	assert.NotNil(t, stored.TerminatedAt)

	assert.Equal(t, before, env.store.stock(kt01.ID), "renewal leaves inventory alone")
	assert.Len(t, env.store.plantsOf(source.ID), 1)

	last := env.notifier.events[len(env.notifier.events)-1]
	assert.Equal(t, model.TransitionRenew, last.Transition)
	require.NotNil(t, last.SuccessorID)
	assert.Equal(t, successor.ID, *last.SuccessorID)
}

func TestRenewContractTwiceFailsAlreadyRenewed(t *testing.T) {
	env := newTestEnv()
	kt01 := env.store.addPlantType("KT01", 100, 5)
	source := env.activeContract(t, ItemInput{PlantTypeID: kt01.ID, Quantity: 1})
	cmd := RenewContractCommand{
		ID:           source.ID,
		NewStartDate: day(2025, 4, 1),
		NewEndDate:   day(2026, 3, 31),
		Principal:    staff,
	}

	_, err := env.svc.RenewContract(context.Background(), cmd)
	require.NoError(t, err)
	count := env.store.contractCount()

	_, err = env.svc.RenewContract(context.Background(), cmd)
	assert.ErrorIs(t, err, ErrAlreadyRenewed)
	assert.Equal(t, ClassStateConflict, Classify(err))
	assert.Equal(t, count, env.store.contractCount())
}

func TestRenewContractWithReplacementItems(t *testing.T) {
	env := newTestEnv()
	kt01 := env.store.addPlantType("KT01", 10000, 5)
	kt02 := env.store.addPlantType("KT02", 30000, 5)
	source := env.activeContract(t, ItemInput{PlantTypeID: kt01.ID, Quantity: 2})

	successor, err := env.svc.RenewContract(context.Background(), RenewContractCommand{
		ID:           source.ID,
		NewStartDate: day(2025, 4, 1),
		NewEndDate:   day(2025, 9, 30),
		Items:        []ItemInput{{PlantTypeID: kt02.ID, Quantity: 1}},
		Principal:    staff,
	})
	require.NoError(t, err)
	require.Len(t, successor.Items, 1)
	assert.Equal(t, kt02.ID, successor.Items[0].PlantTypeID)
	assert.Equal(t, model.Money(30000), successor.MonthlyFee)
	assert.Equal(t, model.Money(180000), successor.TotalContractValue)
}

func TestRenewContractRejections(t *testing.T) {
	env := newTestEnv()
	customer := env.store.addCustomer("Cafe Sen", model.CustomerStatusActive)
	kt01 := env.store.addPlantType("KT01", 100, 5)
	draft := env.createDraft(t, customer.ID, ItemInput{PlantTypeID: kt01.ID, Quantity: 1})
	active := env.activeContract(t, ItemInput{PlantTypeID: kt01.ID, Quantity: 1})

	_, err := env.svc.RenewContract(context.Background(), RenewContractCommand{
		ID: draft.ID, NewStartDate: day(2025, 4, 1), NewEndDate: day(2026, 3, 31), Principal: staff,
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = env.svc.RenewContract(context.Background(), RenewContractCommand{
		ID: active.ID, NewStartDate: day(2026, 4, 1), NewEndDate: day(2025, 3, 31), Principal: staff,
	})
	assert.ErrorIs(t, err, ErrInvalidDates)
	assert.Equal(t, model.ContractStatusActive, env.store.contract(active.ID).Status)

	_, err = env.svc.RenewContract(context.Background(), RenewContractCommand{
		ID: uuid.New(), NewStartDate: day(2025, 4, 1), NewEndDate: day(2026, 3, 31), Principal: staff,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenewedSuccessorCanBeActivated(t *testing.T) {
	env := newTestEnv()
	kt01 := env.store.addPlantType("KT01", 100, 5)
	source := env.activeContract(t, ItemInput{PlantTypeID: kt01.ID, Quantity: 2})

	successor, err := env.svc.RenewContract(context.Background(), RenewContractCommand{
		ID: source.ID, NewStartDate: day(2025, 4, 1), NewEndDate: day(2026, 3, 31), Principal: staff,
	})
	require.NoError(t, err)

	_, err = env.svc.ActivateContract(context.Background(), ActivateContractCommand{ID: successor.ID, Principal: staff})
	require.NoError(t, err)
	assert.Equal(t, model.Inventory{PlantTypeID: kt01.ID, AvailableStock: 1, RentedStock: 4}, env.store.stock(kt01.ID))
}
