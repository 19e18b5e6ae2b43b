package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const numberSuffixDigits = 4

// NumberGenerator issues contract numbers of the form PREFIX-YYYYMM-NNNN,
// restarting at 0001 every calendar month.
type NumberGenerator struct {
	contracts ContractStore
	prefix    string
	location  *time.Location
}

func NewNumberGenerator(contracts ContractStore, prefix string, location *time.Location) *NumberGenerator {
	if prefix == "" {
		prefix = "HD"
	}
	if location == nil {
		location = time.UTC
	}
	return &NumberGenerator{contracts: contracts, prefix: prefix, location: location}
}

// MonthPrefix returns the shared prefix of every number issued in the month of at.
func (g *NumberGenerator) MonthPrefix(at time.Time) string {
	return fmt.Sprintf("%s-%s-", g.prefix, at.In(g.location).Format("200601"))
}

// Next must run inside the unit of work that inserts the contract, so the
// store can hold issuance for this month until that unit commits.
func (g *NumberGenerator) Next(ctx context.Context, at time.Time) (string, error) {
	monthPrefix := g.MonthPrefix(at)
	latest, err := g.contracts.LatestNumber(ctx, monthPrefix)
	if err != nil {
		return "", fmt.Errorf("load latest contract number: %w", err)
	}
	return nextNumber(monthPrefix, latest)
}

func nextNumber(monthPrefix, latest string) (string, error) {
	seq := 1
	if latest != "" {
		suffix := strings.TrimPrefix(latest, monthPrefix)
		if suffix == latest {
			return "", fmt.Errorf("contract number %q does not start with %q", latest, monthPrefix)
		}
		current, err := strconv.Atoi(suffix)
		if err != nil {
			return "", fmt.Errorf("contract number %q has a non-numeric suffix: %w", latest, err)
		}
		seq = current + 1
	}
	return fmt.Sprintf("%s%0*d", monthPrefix, numberSuffixDigits, seq), nil
}
