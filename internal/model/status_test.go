package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		from ContractStatus
		t    Transition
		want ContractStatus
		ok   bool
	}{
		{ContractStatusDraft, TransitionActivate, ContractStatusActive, true},
		{ContractStatusPending, TransitionActivate, ContractStatusActive, true},
		{ContractStatusActive, TransitionActivate, "", false},
		{ContractStatusCancelled, TransitionActivate, "", false},
		{ContractStatusDraft, TransitionCancel, ContractStatusCancelled, true},
		{ContractStatusExpired, TransitionCancel, ContractStatusCancelled, true},
		{ContractStatusTerminated, TransitionCancel, "", false},
		{ContractStatusActive, TransitionRenew, ContractStatusTerminated, true},
		{ContractStatusExpired, TransitionRenew, ContractStatusTerminated, true},
		{ContractStatusDraft, TransitionRenew, "", false},
		{ContractStatusActive, TransitionExpire, ContractStatusExpired, true},
		{ContractStatusDraft, TransitionExpire, "", false},
	}
	for _, tc := range cases {
		got, ok := NextStatus(tc.from, tc.t)
		assert.Equal(t, tc.ok, ok, "%s via %s", tc.from, tc.t)
		assert.Equal(t, tc.want, got, "%s via %s", tc.from, tc.t)
	}
}

func TestTerminalStatusesHaveNoOutgoingTransitions(t *testing.T) {
	for _, from := range contractStatuses {
		if !from.Terminal() {
			continue
		}
		for _, tr := range []Transition{TransitionActivate, TransitionCancel, TransitionRenew, TransitionExpire} {
			_, ok := NextStatus(from, tr)
			assert.False(t, ok, "%s must not allow %s", from, tr)
		}
	}
}

func TestParseContractStatus(t *testing.T) {
	status, err := ParseContractStatus(" active ")
	require.NoError(t, err)
	assert.Equal(t, ContractStatusActive, status)

	_, err = ParseContractStatus("ARCHIVED")
	assert.Error(t, err)
}

func TestContractStatusScanAndValue(t *testing.T) {
	var s ContractStatus
	require.NoError(t, s.Scan([]byte("EXPIRED")))
	assert.Equal(t, ContractStatusExpired, s)

	assert.Error(t, s.Scan(42))
	assert.Error(t, s.Scan("unknown"))

	v, err := ContractStatusCancelled.Value()
	require.NoError(t, err)
	assert.Equal(t, "CANCELLED", v)

	_, err = ContractStatus("nope").Value()
	assert.Error(t, err)
}

func TestOnlyDraftIsEditable(t *testing.T) {
	for _, s := range contractStatuses {
		assert.Equal(t, s == ContractStatusDraft, s.Editable(), string(s))
	}
}
