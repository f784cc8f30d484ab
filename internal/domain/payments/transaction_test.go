package payments

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChargeRequest() *InitiateChargeRequest {
	return &InitiateChargeRequest{
		AgencyID:         uuid.New(),
		LeaseID:          uuid.New(),
		Amount:           decimal.New(1000000, -2),
		Channel:          GatewayChannelMpesaSTK,
		MSISDN:           "254712345678",
		AccountReference: "UNIT-4B",
		CallbackURL:      "https://rent.example.com/webhooks/mpesa",
	}
}

func newTestTransaction(t *testing.T) *GatewayTransaction {
	t.Helper()
	txn, err := NewGatewayTransaction(newTestChargeRequest())
	require.NoError(t, err)
	return txn
}

func newPendingTransaction(t *testing.T) *GatewayTransaction {
	t.Helper()
	txn := newTestTransaction(t)
	require.NoError(t, txn.MarkAccepted("ws_CO_2024041012345", "29115-34620561-1"))
	return txn
}

func TestNewGatewayTransaction(t *testing.T) {
	t.Run("starts in INITIATED", func(t *testing.T) {
		txn := newTestTransaction(t)

		assert.Equal(t, TransactionStatusInitiated, txn.Status)
		assert.Empty(t, txn.GatewayReference)
		assert.False(t, txn.InitiatedAt.IsZero())
		assert.Len(t, txn.GetDomainEvents(), 1)
	})

	t.Run("validates the request", func(t *testing.T) {
		req := newTestChargeRequest()
		req.Amount = decimal.Zero
		_, err := NewGatewayTransaction(req)
		assert.ErrorIs(t, err, ErrChargeInvalidAmount)

		req = newTestChargeRequest()
		req.MSISDN = "07"
		_, err = NewGatewayTransaction(req)
		assert.ErrorIs(t, err, ErrChargeInvalidMSISDN)

		req = newTestChargeRequest()
		req.Channel = GatewayChannel("AIRTEL")
		_, err = NewGatewayTransaction(req)
		assert.ErrorIs(t, err, ErrChargeInvalidChannel)
	})
}

func TestGatewayTransactionMarkAccepted(t *testing.T) {
	txn := newTestTransaction(t)

	require.NoError(t, txn.MarkAccepted("ws_CO_2024041012345", "29115-34620561-1"))
	assert.Equal(t, TransactionStatusPending, txn.Status)
	assert.Equal(t, "ws_CO_2024041012345", txn.GatewayReference)

	t.Run("repeat with same reference is a no-op", func(t *testing.T) {
		version := txn.GetVersion()
		require.NoError(t, txn.MarkAccepted("ws_CO_2024041012345", "29115-34620561-1"))
		assert.Equal(t, version, txn.GetVersion())
	})

	t.Run("rejected after completion", func(t *testing.T) {
		require.NoError(t, txn.Complete("SFC9X1TQ2M", txn.Amount, time.Now()))
		assert.Error(t, txn.MarkAccepted("ws_CO_other", ""))
	})
}

func TestGatewayTransactionComplete(t *testing.T) {
	completedAt := time.Date(2024, time.April, 10, 12, 5, 0, 0, time.UTC)

	t.Run("settles a pending charge", func(t *testing.T) {
		txn := newPendingTransaction(t)
		txn.ClearDomainEvents()

		require.NoError(t, txn.Complete("SFC9X1TQ2M", txn.Amount, completedAt))

		assert.Equal(t, TransactionStatusCompleted, txn.Status)
		assert.Equal(t, "SFC9X1TQ2M", txn.Receipt)
		require.NotNil(t, txn.CompletedAt)
		assert.True(t, txn.CompletedAt.Equal(completedAt))
		assert.Len(t, txn.GetDomainEvents(), 1, "exactly one completion event")
	})

	t.Run("repeated completion with same receipt is a no-op", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.Complete("SFC9X1TQ2M", txn.Amount, completedAt))
		txn.ClearDomainEvents()
		version := txn.GetVersion()

		require.NoError(t, txn.Complete("SFC9X1TQ2M", txn.Amount, completedAt))

		assert.Equal(t, version, txn.GetVersion())
		assert.Empty(t, txn.GetDomainEvents(), "no second completion event")
	})

	t.Run("conflicting receipt is rejected", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.Complete("SFC9X1TQ2M", txn.Amount, completedAt))

		assert.Error(t, txn.Complete("DIFFERENT01", txn.Amount, completedAt))
	})

	t.Run("amount mismatch is rejected", func(t *testing.T) {
		txn := newPendingTransaction(t)
		assert.Error(t, txn.Complete("SFC9X1TQ2M", decimal.NewFromInt(1), completedAt))
	})

	t.Run("late completion after timeout is allowed", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.TimeOut(time.Now()))
		require.Equal(t, TransactionStatusTimedOut, txn.Status)
		txn.ClearDomainEvents()

		require.NoError(t, txn.Complete("SFC9X1TQ2M", txn.Amount, completedAt))

		assert.Equal(t, TransactionStatusCompleted, txn.Status)
		events := txn.GetDomainEvents()
		require.Len(t, events, 1)
		completed, ok := events[0].(*ChargeCompletedEvent)
		require.True(t, ok)
		assert.True(t, completed.LateArrival)
	})
}

func TestGatewayTransactionFailAndCancel(t *testing.T) {
	t.Run("fail from pending", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.Fail("insufficient funds"))
		assert.Equal(t, TransactionStatusFailed, txn.Status)
		assert.Equal(t, "insufficient funds", txn.FailureReason)
	})

	t.Run("repeated fail is a no-op", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.Fail("insufficient funds"))
		version := txn.GetVersion()
		require.NoError(t, txn.Fail("insufficient funds"))
		assert.Equal(t, version, txn.GetVersion())
	})

	t.Run("fail after completion is rejected", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.Complete("SFC9X1TQ2M", txn.Amount, time.Now()))
		assert.Error(t, txn.Fail("late failure report"))
		assert.Equal(t, TransactionStatusCompleted, txn.Status)
	})

	t.Run("cancel from pending", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.Cancel("request cancelled by user"))
		assert.Equal(t, TransactionStatusCancelled, txn.Status)
	})

	t.Run("complete after cancel is rejected", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.Cancel("request cancelled by user"))
		assert.Error(t, txn.Complete("SFC9X1TQ2M", txn.Amount, time.Now()))
	})
}

func TestGatewayTransactionTimeOut(t *testing.T) {
	now := time.Now()

	t.Run("times out a pending charge", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.TimeOut(now))
		assert.Equal(t, TransactionStatusTimedOut, txn.Status)
		require.NotNil(t, txn.TimedOutAt)
	})

	t.Run("repeated timeout is a no-op", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.TimeOut(now))
		version := txn.GetVersion()
		require.NoError(t, txn.TimeOut(now))
		assert.Equal(t, version, txn.GetVersion())
	})

	t.Run("cannot time out a settled charge", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.Complete("SFC9X1TQ2M", txn.Amount, now))
		assert.Error(t, txn.TimeOut(now))
	})

	t.Run("timed out charge remains resolvable", func(t *testing.T) {
		txn := newPendingTransaction(t)
		require.NoError(t, txn.TimeOut(now))
		assert.True(t, txn.IsResolvable())

		require.NoError(t, txn.Complete("SFC9X1TQ2M", txn.Amount, now))
		assert.False(t, txn.IsResolvable())
	})
}

func TestGatewayTransactionApplyStatus(t *testing.T) {
	completedAt := time.Now()

	tests := []struct {
		name     string
		status   GatewayStatus
		expected TransactionStatus
	}{
		{"completed", GatewayStatusCompleted, TransactionStatusCompleted},
		{"failed", GatewayStatusFailed, TransactionStatusFailed},
		{"cancelled", GatewayStatusCancelled, TransactionStatusCancelled},
		{"pending leaves state alone", GatewayStatusPending, TransactionStatusPending},
		{"accepted leaves state alone", GatewayStatusAccepted, TransactionStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := newPendingTransaction(t)
			err := txn.ApplyStatus(tt.status, "SFC9X1TQ2M", txn.Amount, "reason", completedAt)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, txn.Status)
		})
	}

	t.Run("unknown status is rejected", func(t *testing.T) {
		txn := newPendingTransaction(t)
		err := txn.ApplyStatus(GatewayStatus("MYSTERY"), "", decimal.Zero, "", completedAt)
		assert.ErrorIs(t, err, ErrGatewayInvalidResponse)
	})
}
