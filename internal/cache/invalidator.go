package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

// Invalidator drops cached dashboard pages that a committed contract change
// made stale. Pages are rebuilt by their readers on the next miss.
type Invalidator struct {
	rdb    *redis.Client
	prefix string
}

func NewInvalidator(rdb *redis.Client, prefix string) *Invalidator {
	return &Invalidator{rdb: rdb, prefix: prefix}
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func (i *Invalidator) ContractChanged(ctx context.Context, event model.ContractEvent) error {
	keys := i.Keys(event)
	if err := i.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate %d cache keys: %w", len(keys), err)
	}
	return nil
}

// Keys lists the page keys affected by an event.
func (i *Invalidator) Keys(event model.ContractEvent) []string {
	keys := []string{
		i.prefix + "contract:" + event.ContractID.String(),
		i.prefix + "customer:" + event.CustomerID.String(),
		i.prefix + "stats",
		i.prefix + "expiring",
	}
	if event.SuccessorID != nil {
		keys = append(keys, i.prefix+"contract:"+event.SuccessorID.String())
	}
	for _, line := range event.Adjustments {
		keys = append(keys, i.prefix+"inventory:"+line.PlantTypeID.String())
	}
	return keys
}
