package xbridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/services/xbridge/router"
	"github.com/bsv-blockchain/xbridge/services/xbridge/wallet"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteProposal(seed string) *packet.Propose {
	return &packet.Propose{
		TxID:         chainhash.DoubleHashH([]byte(seed)),
		From:         bobLTC,
		FromCurrency: "LTC",
		FromAmount:   50,
		To:           bobBTC,
		ToCurrency:   "BTC",
		ToAmount:     100,
	}
}

func TestReceiveFiltering(t *testing.T) {
	btc, ltc := aliceWallets()
	s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc})

	t.Run("duplicates are dropped", func(t *testing.T) {
		before := testutil.ToFloat64(prometheusPacketsDuplicate)

		msg := remoteProposal("dup")
		raw := inject(t, s, msg)
		s.OnBroadcastReceived(raw)

		waitForState(t, s, msg.TxID, model.StateNew)
		assert.Equal(t, before+1, testutil.ToFloat64(prometheusPacketsDuplicate))
	})

	t.Run("foreign version", func(t *testing.T) {
		before := testutil.ToFloat64(prometheusVersionMismatches)

		msg := remoteProposal("v2")

		raw, err := packet.EncodeAt(msg, packet.Version+1, 1)
		require.NoError(t, err)

		s.OnBroadcastReceived(raw)

		assert.Equal(t, before+1, testutil.ToFloat64(prometheusVersionMismatches))

		_, err = s.Transaction(msg.TxID)
		require.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		before := testutil.ToFloat64(prometheusDecodeErrors)

		s.OnBroadcastReceived([]byte{1, 2, 3})

		assert.Equal(t, before+1, testutil.ToFloat64(prometheusDecodeErrors))
	})

	t.Run("direct packets run on the address worker", func(t *testing.T) {
		w := &inlineWorker{address: aliceBTC}
		s.router.AddWorker(w, [][]byte{aliceBTC}, nil)

		msg := remoteProposal("direct")
		msg.FromAmount = 51

		raw, err := packet.Encode(msg)
		require.NoError(t, err)

		s.OnPacketReceived(aliceBTC, raw)

		assert.Equal(t, 1, w.count())
		assert.Equal(t, model.StateNew.String(), stateOf(s, msg.TxID))
	})

	t.Run("direct packets for an unrouted wallet go to its currency worker", func(t *testing.T) {
		_, bobLtc := bobWallets()
		s.connectors.set(bobLtc)

		w := &inlineWorker{address: address(0xcc)}
		s.router.AddWorker(w, nil, []string{"LTC"})

		msg := remoteProposal("direct to wallet")
		msg.FromAmount = 52

		raw, err := packet.Encode(msg)
		require.NoError(t, err)

		s.OnPacketReceived(bobLTC, raw)

		assert.Equal(t, 1, w.count())
		assert.Equal(t, model.StateNew.String(), stateOf(s, msg.TxID))
	})
}

// inlineWorker runs posted tasks on the caller's goroutine.
type inlineWorker struct {
	mu      sync.Mutex
	address []byte
	posted  int
}

func (w *inlineWorker) Post(task router.Task) bool {
	w.mu.Lock()
	w.posted++
	w.mu.Unlock()

	task()

	return true
}

func (w *inlineWorker) Address() []byte {
	return w.address
}

func (w *inlineWorker) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.posted
}

func TestHandlePropose(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh keeps one record", func(t *testing.T) {
		clock := newFakeClock()
		btc, ltc := aliceWallets()
		s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc}, WithClock(clock.Now))

		msg := remoteProposal("refresh")
		s.handlePropose(msg)

		info, err := s.Transaction(msg.TxID)
		require.NoError(t, err)
		assert.Equal(t, "none", info.Local)
		assert.Equal(t, clock.Now(), info.Created)

		clock.Advance(time.Minute)
		s.handlePropose(msg)

		info, err = s.Transaction(msg.TxID)
		require.NoError(t, err)
		assert.Equal(t, clock.Now(), info.Created)
		assert.Len(t, s.Transactions(), 1)
	})

	t.Run("same terms under a new id", func(t *testing.T) {
		btc, ltc := aliceWallets()
		s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc})

		first := remoteProposal("first")
		second := remoteProposal("second")

		s.handlePropose(first)
		s.handlePropose(second)

		assert.Len(t, s.Transactions(), 1)

		_, err := s.Transaction(second.TxID)
		require.Error(t, err)
	})

	t.Run("coins pledged locally", func(t *testing.T) {
		btc, ltc := aliceWallets()
		s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc})

		_, err := s.ProposeSwap(ctx, "alice-btc", "BTC", 100, "alice-ltc", "LTC", 50)
		require.NoError(t, err)

		pledged := coin("BTC", "alice", 0, 60)

		msg := &packet.Propose{
			TxID:         chainhash.DoubleHashH([]byte("thief")),
			From:         bobBTC,
			FromCurrency: "BTC",
			FromAmount:   60,
			To:           bobLTC,
			ToCurrency:   "LTC",
			ToAmount:     30,
			Utxos:        []packet.Outpoint{{TxID: pledged.TxID, Vout: pledged.Vout}},
		}

		s.handlePropose(msg)

		_, err = s.Transaction(msg.TxID)
		require.Error(t, err)
		assert.Len(t, s.Transactions(), 1)
	})

	t.Run("historic swaps are not revived", func(t *testing.T) {
		btc, ltc := aliceWallets()
		s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc})

		msg := remoteProposal("old")
		s.handlePropose(msg)
		s.handleCancel(msg.TxID, model.ReasonTimeout)

		s.handlePropose(msg)

		assert.Empty(t, s.Transactions())
		assert.Equal(t, model.StateCancelled.String(), stateOf(s, msg.TxID))
	})

	t.Run("confirmations follow the local wallets", func(t *testing.T) {
		btc, ltc := aliceWallets()
		s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc})

		assert.Equal(t, 1, s.requiredConfirmations("BTC", "LTC"))
		assert.Equal(t, model.DefaultRequiredConfirmations, s.requiredConfirmations("DOGE"))
	})
}

func TestHandleAccept(t *testing.T) {
	t.Run("accept before proposal waits in pending", func(t *testing.T) {
		btc, ltc := aliceWallets()
		s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc})

		id := chainhash.DoubleHashH([]byte("early"))

		inject(t, s, &packet.Accept{
			Hub:          s.hubAddress,
			TxID:         id,
			From:         aliceBTC,
			FromCurrency: "BTC",
			FromAmount:   100,
			To:           aliceLTC,
			ToCurrency:   "LTC",
			ToAmount:     50,
		})

		require.Eventually(t, func() bool {
			_, ok := s.pending.get(id)
			return ok
		}, 5*time.Second, 5*time.Millisecond)

		msg := remoteProposal("unused")
		msg.TxID = id
		s.handlePropose(msg)

		before := testutil.ToFloat64(prometheusPendingFlushed)

		s.flushPending()

		waitForState(t, s, id, model.StateJoined)
		assert.Equal(t, before+1, testutil.ToFloat64(prometheusPendingFlushed))
		assert.Equal(t, 0, s.pending.len())
	})

	t.Run("terms must mirror the proposal", func(t *testing.T) {
		btc, ltc := aliceWallets()
		s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc})

		msg := remoteProposal("mirror")
		s.handlePropose(msg)

		accept := &packet.Accept{
			TxID:         msg.TxID,
			From:         aliceBTC,
			FromCurrency: "BTC",
			FromAmount:   99,
			To:           aliceLTC,
			ToCurrency:   "LTC",
			ToAmount:     50,
		}

		s.handleAccept(pendingPacket{}, accept)
		assert.Equal(t, model.StateNew.String(), stateOf(s, msg.TxID))

		accept.FromAmount = 100
		s.handleAccept(pendingPacket{}, accept)
		assert.Equal(t, model.StateJoined.String(), stateOf(s, msg.TxID))

		// a repeated accept from the same party is ignored
		s.handleAccept(pendingPacket{}, accept)
		assert.Equal(t, model.StateJoined.String(), stateOf(s, msg.TxID))
	})
}

func TestHandleCancel(t *testing.T) {
	btc, ltc := aliceWallets()
	s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc})

	t.Run("unknown swap clears pending", func(t *testing.T) {
		id := chainhash.DoubleHashH([]byte("gone"))
		s.pending.add(id, pendingPacket{})

		s.handleCancel(id, model.ReasonUserRequest)

		_, ok := s.pending.get(id)
		assert.False(t, ok)
	})

	t.Run("remote cancel releases local coins", func(t *testing.T) {
		id, err := s.ProposeSwap(context.Background(), "alice-btc", "BTC", 100, "alice-ltc", "LTC", 50)
		require.NoError(t, err)
		assert.Equal(t, 2, s.reservations.Len())

		inject(t, s, &packet.Rollback{TxID: id})

		waitForState(t, s, id, model.StateCancelled)

		require.Eventually(t, func() bool {
			return s.reservations.Len() == 0
		}, 5*time.Second, 5*time.Millisecond)

		info, err := s.Transaction(id)
		require.NoError(t, err)
		assert.Equal(t, "rollback", info.Reason)
	})
}

func TestHandleStateReport(t *testing.T) {
	btc, ltc := aliceWallets()
	s := newTestServer(t, &fakeTransport{}, []wallet.Connector{btc, ltc})

	id := proposeAndJoin(t, s)

	t.Run("mismatch leaves the swap alone", func(t *testing.T) {
		before := testutil.ToFloat64(prometheusStateMismatches)

		s.handleStateReport(pendingPacket{}, &packet.StateReport{TxID: id, From: bobLTC, State: uint32(model.StateSigned)})

		assert.Equal(t, before+1, testutil.ToFloat64(prometheusStateMismatches))
		assert.Equal(t, model.StateJoined.String(), stateOf(s, id))
	})

	t.Run("stranger", func(t *testing.T) {
		before := testutil.ToFloat64(prometheusStateMismatches)

		s.handleStateReport(pendingPacket{}, &packet.StateReport{TxID: id, From: address(0xee), State: uint32(model.StateJoined)})

		assert.Equal(t, before+1, testutil.ToFloat64(prometheusStateMismatches))
	})

	t.Run("unknown swap is deferred", func(t *testing.T) {
		unknown := chainhash.DoubleHashH([]byte("later"))

		s.handleStateReport(pendingPacket{}, &packet.StateReport{TxID: unknown, From: bobLTC, State: uint32(model.StateJoined)})
		s.handleConfirm(pendingPacket{}, &packet.Confirm{TxID: unknown, From: bobLTC})

		_, ok := s.pending.get(unknown)
		assert.True(t, ok)
	})

	t.Run("confirm before commit", func(t *testing.T) {
		before := testutil.ToFloat64(prometheusStateMismatches)

		s.handleConfirm(pendingPacket{}, &packet.Confirm{TxID: id, From: bobLTC})

		assert.Equal(t, before+1, testutil.ToFloat64(prometheusStateMismatches))
	})
}

func TestReceiveBeforeInit(t *testing.T) {
	btc, ltc := aliceWallets()

	s, err := New(context.Background(), ulogger.TestLogger{}, testSettings(), &fakeTransport{}, []wallet.Connector{btc, ltc})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})

	msg := remoteProposal("early bird")
	inject(t, s, msg)

	assert.Equal(t, 1, s.pending.len())

	require.NoError(t, s.Init(context.Background()))

	s.flushPending()

	waitForState(t, s, msg.TxID, model.StateNew)
}
