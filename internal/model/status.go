package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

type ContractStatus string

const (
	ContractStatusDraft      ContractStatus = "DRAFT"
	ContractStatusPending    ContractStatus = "PENDING"
	ContractStatusActive     ContractStatus = "ACTIVE"
	ContractStatusExpired    ContractStatus = "EXPIRED"
	ContractStatusCancelled  ContractStatus = "CANCELLED"
	ContractStatusTerminated ContractStatus = "TERMINATED"
)

var contractStatuses = []ContractStatus{
	ContractStatusDraft,
	ContractStatusPending,
	ContractStatusActive,
	ContractStatusExpired,
	ContractStatusCancelled,
	ContractStatusTerminated,
}

// Transition names a lifecycle command that moves a contract between statuses.
type Transition string

const (
	TransitionActivate Transition = "activate"
	TransitionCancel   Transition = "cancel"
	TransitionRenew    Transition = "renew"
	TransitionExpire   Transition = "expire"

	// Record-only changes; they never move the status.
	TransitionCreate Transition = "create"
	TransitionUpdate Transition = "update"
)

// transitions is the single source of truth for legal status changes.
// A missing entry means the transition is not permitted from that status.
var transitions = map[Transition]map[ContractStatus]ContractStatus{
	TransitionActivate: {
		ContractStatusDraft:   ContractStatusActive,
		ContractStatusPending: ContractStatusActive,
	},
	TransitionCancel: {
		ContractStatusDraft:   ContractStatusCancelled,
		ContractStatusPending: ContractStatusCancelled,
		ContractStatusActive:  ContractStatusCancelled,
		ContractStatusExpired: ContractStatusCancelled,
	},
	TransitionRenew: {
		ContractStatusActive:  ContractStatusTerminated,
		ContractStatusExpired: ContractStatusTerminated,
	},
	TransitionExpire: {
		ContractStatusActive: ContractStatusExpired,
	},
}

// NextStatus returns the status reached by applying t to from.
func NextStatus(from ContractStatus, t Transition) (ContractStatus, bool) {
	next, ok := transitions[t][from]
	return next, ok
}

func ParseContractStatus(raw string) (ContractStatus, error) {
	status := ContractStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown contract status %q", raw)
	}
	return status, nil
}

func (s ContractStatus) Valid() bool {
	for _, status := range contractStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s ContractStatus) Terminal() bool {
	return s == ContractStatusCancelled || s == ContractStatusTerminated
}

// Editable reports whether contract fields and items may still change.
func (s ContractStatus) Editable() bool {
	return s == ContractStatusDraft
}

func (s ContractStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid contract status %q", string(s))
	}
	return string(s), nil
}

func (s *ContractStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ContractStatus", src)
	}
	parsed, err := ParseContractStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type CustomerStatus string

const (
	CustomerStatusLead       CustomerStatus = "LEAD"
	CustomerStatusActive     CustomerStatus = "ACTIVE"
	CustomerStatusInactive   CustomerStatus = "INACTIVE"
	CustomerStatusTerminated CustomerStatus = "TERMINATED"
)

type CustomerPlantStatus string

const (
	CustomerPlantStatusActive  CustomerPlantStatus = "ACTIVE"
	CustomerPlantStatusRemoved CustomerPlantStatus = "REMOVED"
)
