package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewCustomError(t *testing.T) {
	err := New(ERR_TRANSACTION_NOT_FOUND, "swap not found")
	require.NotNil(t, err)
	require.Equal(t, ERR_TRANSACTION_NOT_FOUND, err.Code())
	require.Equal(t, "swap not found", err.Message())

	secondErr := New(ERR_INVALID_ARGUMENT, "[AcceptSwap][%s] failed to load swap", "_test_string_", err)
	thirdErr := New(ERR_STATE_MISMATCH, "[ReportState][%s] failed: ", "_test_string_", secondErr)
	anotherErr := New(ERR_STATE_MISMATCH, "another state mismatch")
	fourthErr := New(ERR_SERVICE_ERROR, "older error: ", thirdErr)
	fifthErr := New(ERR_CONNECTOR, "wallet failed", fourthErr)

	require.True(t, anotherErr.Is(thirdErr))
	require.True(t, fourthErr.Is(New(ERR_STATE_MISMATCH, "")))
	require.True(t, fourthErr.Is(ErrStateMismatch))

	require.True(t, fourthErr.Is(err))
	require.True(t, fifthErr.Is(thirdErr))
	require.True(t, fifthErr.Is(err))

	require.False(t, anotherErr.Is(fourthErr))
	require.False(t, fifthErr.Is(ErrDuplicateReservation))
}

func Test_FmtErrorCustomError(t *testing.T) {
	err := New(ERR_TRANSACTION_NOT_FOUND, "swap not found")

	fmtError := fmt.Errorf("error: %w", err)
	require.NotNil(t, fmtError)

	secondErr := New(ERR_INVALID_ARGUMENT, "[CancelSwap][%s] failed", "_test_string_", fmtError)
	require.NotNil(t, secondErr)

	// the custom Is only recurses through *Error wrappers
	require.False(t, secondErr.Is(err))

	// errors.Is unwraps through the fmt wrapper as well
	require.True(t, errors.Is(secondErr, err))
}

func Test_ErrorMessageFormat(t *testing.T) {
	t.Run("without wrapped error", func(t *testing.T) {
		err := New(ERR_INSUFFICIENT_FUNDS, "need %d have %d", 100, 40)
		assert.Equal(t, "Error: INSUFFICIENT_FUNDS (error code: 21), Message: need 100 have 40", err.Error())
	})

	t.Run("with wrapped error", func(t *testing.T) {
		err := New(ERR_CONNECTOR, "listunspent failed", errors.New("connection refused"))
		assert.Equal(t, "Error: CONNECTOR (error code: 42), Message: listunspent failed, Wrapped err: connection refused", err.Error())
	})

	t.Run("nil error", func(t *testing.T) {
		var err *Error
		assert.Equal(t, "<nil>", err.Error())
		assert.Equal(t, ERR_UNKNOWN, err.Code())
	})

	t.Run("invalid code", func(t *testing.T) {
		err := New(ERR(9999), "whatever")
		assert.Equal(t, "invalid error code", err.Message())
	})
}

func Test_ErrorsIs(t *testing.T) {
	err := NewInvalidCurrencyError("currency %q longer than 8 bytes", "ABCDEFGHI")

	require.True(t, Is(err, ErrInvalidCurrency))
	require.False(t, Is(err, ErrBadAddress))

	wrapped := NewServiceError("[ProposeSwap] failed", err)
	require.True(t, Is(wrapped, ErrInvalidCurrency))
	require.True(t, Is(wrapped, ErrServiceError))

	ctxErr := NewConnectorError("rpc aborted", context.Canceled)
	require.True(t, Is(ctxErr, context.Canceled))
}

func Test_ErrorsAs(t *testing.T) {
	err := NewNoSessionError("no connector for %s", "LTC")

	var tErr *Error
	require.True(t, As(err, &tErr))
	require.Equal(t, ERR_NO_SESSION, tErr.Code())
}

func Test_SetGetData(t *testing.T) {
	err := New(ERR_PROCESSING, "test error with data")
	err.SetData("txid", "abc")

	assert.Equal(t, "abc", err.GetData("txid"))
	assert.Nil(t, err.GetData("missing"))
	assert.Contains(t, err.Error(), "txid")
}

func Test_ReservationConflictData(t *testing.T) {
	err := NewReservationConflictError("BTC", []string{"aa:0", "bb:1"})
	require.True(t, Is(err, ErrDuplicateReservation))

	var data *ReservationConflictErrData
	require.True(t, AsData(err, &data))
	assert.Equal(t, "BTC", data.Currency)
	assert.Equal(t, []string{"aa:0", "bb:1"}, data.Outpoints)

	decoded, decodeErr := GetErrorData(ERR_DUPLICATE_RESERVATION, data.EncodeErrorData())
	require.NoError(t, decodeErr)
	assert.Equal(t, "BTC", decoded.GetData("currency"))
}

func Test_Join(t *testing.T) {
	assert.Nil(t, Join(nil, nil))

	err := Join(errors.New("first"), nil, errors.New("second"))
	require.Error(t, err)
	assert.Equal(t, "first, second", err.Error())
}
