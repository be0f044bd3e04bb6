package xbridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/bsv-blockchain/xbridge/services/xbridge/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()

	s.e.ServeHTTP(rec, req)

	return rec
}

func TestHTTP(t *testing.T) {
	btc, ltc := aliceWallets()
	s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc})

	id, err := s.ProposeSwap(context.Background(), "alice-btc", "BTC", 100, "alice-ltc", "LTC", 50)
	require.NoError(t, err)

	t.Run("health", func(t *testing.T) {
		rec := get(t, s, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"resource": "Wallets"`)

		rec = get(t, s, "/alive")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("transactions", func(t *testing.T) {
		rec := get(t, s, "/transactions")
		require.Equal(t, http.StatusOK, rec.Code)

		var list []model.TransactionInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, id.String(), list[0].ID)
		assert.Equal(t, "NEW", list[0].State)
	})

	t.Run("one transaction", func(t *testing.T) {
		rec := get(t, s, "/transactions/"+id.String())
		require.Equal(t, http.StatusOK, rec.Code)

		var info model.TransactionInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
		assert.Equal(t, uint64(100), info.FromAmount)
		assert.Equal(t, "A", info.Local)

		rec = get(t, s, "/transactions/"+chainhash.DoubleHashH([]byte("nope")).String())
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = get(t, s, "/transactions/xyz")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("history", func(t *testing.T) {
		require.NoError(t, s.CancelSwap(context.Background(), id, model.ReasonUserRequest))

		rec := get(t, s, "/history")
		require.Equal(t, http.StatusOK, rec.Code)

		var list []model.TransactionInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		require.Len(t, list, 1)
		assert.Equal(t, "CANCELLED", list[0].State)
		assert.Equal(t, "user request", list[0].Reason)
	})

	t.Run("currencies", func(t *testing.T) {
		rec := get(t, s, "/currencies")
		require.Equal(t, http.StatusOK, rec.Code)

		var currencies []string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &currencies))
		assert.Equal(t, []string{"BTC", "LTC"}, currencies)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := get(t, s, "/metrics")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "xbridge_coordinator_packets_sent")
	})
}
