package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

// Logger writes one audit record per committed contract change.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Str("component", "audit").Logger()}
}

func (l *Logger) ContractChanged(_ context.Context, event model.ContractEvent) error {
	entry := l.log.Info().
		Str("transition", string(event.Transition)).
		Str("contract_id", event.ContractID.String()).
		Str("number", event.Number).
		Str("customer_id", event.CustomerID.String()).
		Str("to", string(event.To)).
		Str("actor_id", event.ActorID.String()).
		Time("occurred_at", event.OccurredAt)

	if event.From != "" {
		entry = entry.Str("from", string(event.From))
	}
	if event.SuccessorID != nil {
		entry = entry.Str("successor_id", event.SuccessorID.String())
	}
	if event.Reason != "" {
		entry = entry.Str("reason", event.Reason)
	}
	if len(event.Adjustments) > 0 {
		lines := zerolog.Arr()
		for _, line := range event.Adjustments {
			lines = lines.Dict(zerolog.Dict().
				Str("plant_type_id", line.PlantTypeID.String()).
				Int("quantity", line.Quantity))
		}
		entry = entry.Array("stock", lines)
	}
	entry.Msg("contract changed")
	return nil
}
