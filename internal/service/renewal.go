package service

import (
	"context"
	"fmt"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

// RenewContract creates a DRAFT successor linked to the source contract and
// terminates the source in the same unit of work. Inventory and customer
// plants are untouched; the successor reserves stock when it is activated.
func (s *ContractService) RenewContract(ctx context.Context, cmd RenewContractCommand) (*model.Contract, error) {
	start, end := dateOnly(cmd.NewStartDate), dateOnly(cmd.NewEndDate)
	if err := validateDates(start, end); err != nil {
		return nil, err
	}
	if cmd.Items != nil {
		if err := validateItemInputs(cmd.Items); err != nil {
			return nil, err
		}
	}

	now := s.now()
	var (
		plan *renewalPlan
		from model.ContractStatus
	)
	err := s.tx.Atomic(ctx, func(ctx context.Context) error {
		source, err := s.lockContract(ctx, cmd.ID)
		if err != nil {
			return err
		}
		from = source.Status

		// Checked before the status so a repeated renewal reports the
		// conflict rather than the TERMINATED status it left behind.
		renewed, err := s.contracts.HasSuccessor(ctx, source.ID)
		if err != nil {
			return err
		}
		if renewed {
			return fmt.Errorf("%w: contract %s already has a successor", ErrAlreadyRenewed, source.Number)
		}

		var items []model.ContractItem
		if cmd.Items != nil {
			catalog, err := s.catalog.FindByIDs(ctx, itemPlantTypeIDs(cmd.Items))
			if err != nil {
				return err
			}
			if items, err = buildItems(cmd.Items, catalog); err != nil {
				return err
			}
		}

		if plan, err = planRenewal(*source, start, end, items, now); err != nil {
			return err
		}

		number, err := s.numbers.Next(ctx, now)
		if err != nil {
			return err
		}
		plan.Successor.Number = number
		if err := s.contracts.Insert(ctx, plan.Successor); err != nil {
			return err
		}
		return s.contracts.UpdateStatus(ctx, &plan.Source)
	})
	if err != nil {
		return nil, err
	}

	successorID := plan.Successor.ID
	s.log.Info().
		Str("contract", plan.Source.Number).
		Str("successor", plan.Successor.Number).
		Msg("contract renewed")
	s.publish(ctx, model.ContractEvent{
		Transition:  model.TransitionRenew,
		ContractID:  plan.Source.ID,
		Number:      plan.Source.Number,
		CustomerID:  plan.Source.CustomerID,
		From:        from,
		To:          plan.Source.Status,
		ActorID:     cmd.Principal.UserID,
		SuccessorID: &successorID,
		Reason:      renewalReason,
		OccurredAt:  now,
	})
	return plan.Successor, nil
}
