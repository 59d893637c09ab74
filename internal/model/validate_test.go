package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Transaction(t *testing.T) {
	tx := &Transaction{
		ID:        uuid.NewString(),
		AccountID: "acc-1",
		Kind:      KindDeposit,
		Amount:    decimal.NewFromInt(50),
		Status:    StatusPending,
	}
	require.NoError(t, Validate(tx))

	tx.Kind = "refund"
	err := Validate(tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Kind(oneof)")

	tx.Kind = KindDeposit
	tx.ID = "not-a-uuid"
	err = Validate(tx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ID(uuid)")
}

func TestValidate_PayerInfo(t *testing.T) {
	assert.NoError(t, Validate(&PayerInfo{Email: "a@b.co", FirstName: "Abebe"}))

	err := Validate(&PayerInfo{Email: "nope", FirstName: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Email(email)")
	assert.Contains(t, err.Error(), "FirstName(required)")
}

func TestTransactionStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestPeriodType_Valid(t *testing.T) {
	assert.True(t, PeriodGlobal.Valid())
	assert.True(t, PeriodWeekly.Valid())
	assert.True(t, PeriodMonthly.Valid())
	assert.False(t, PeriodType("daily").Valid())
}
