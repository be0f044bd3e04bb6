package xbridge

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/services/xbridge/wallet"
	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	aliceBTC = address(0xa1)
	aliceLTC = address(0xa2)
	bobBTC   = address(0xb1)
	bobLTC   = address(0xb2)
)

func address(b byte) []byte {
	return bytes.Repeat([]byte{b}, packet.AddressSize)
}

func coin(currency string, seed string, vout uint32, amount uint64) model.UtxoEntry {
	return model.UtxoEntry{TxID: chainhash.DoubleHashH([]byte(seed)), Vout: vout, Amount: amount, Currency: currency}
}

// mockWallet returns a connector that knows the given human addresses and always lists
// coins as unspent.
func mockWallet(currency string, names map[string][]byte, coins []model.UtxoEntry) *wallet.MockConnector {
	c := &wallet.MockConnector{}

	list := make([]string, 0, len(names))
	for name := range names {
		list = append(list, name)
	}

	sort.Strings(list)

	c.On("Currency").Return(currency).Maybe()
	c.On("Addresses").Return(list).Maybe()

	for name, addr := range names {
		c.On("ToNetworkAddress", name).Return(addr, nil).Maybe()
	}

	c.On("ToNetworkAddress", mock.Anything).Return(nil, errors.NewBadAddressError("unknown address")).Maybe()
	c.On("GetUnspentOutputs", mock.Anything).Return(coins, nil).Maybe()
	c.On("LockUnspent", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	c.On("RequiredConfirmations").Return(1).Maybe()

	return c
}

type sentPacket struct {
	to  []byte
	raw []byte
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sentPacket
	err  error
}

func (f *fakeTransport) Broadcast(_ context.Context, to []byte, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, sentPacket{to: to, raw: payload})

	return nil
}

func (f *fakeTransport) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

// last decodes the most recent packet sent.
func (f *fakeTransport) last(t *testing.T) (sentPacket, *packet.Packet) {
	f.mu.Lock()
	defer f.mu.Unlock()

	require.NotEmpty(t, f.sent)

	sp := f.sent[len(f.sent)-1]

	p, err := packet.Decode(sp.raw)
	require.NoError(t, err)

	return sp, p
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.sent)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type stateRecorder struct {
	mu     sync.Mutex
	states map[chainhash.Hash][]model.State
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{states: make(map[chainhash.Hash][]model.State)}
}

func (r *stateRecorder) notify(id chainhash.Hash, state model.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[id] = append(r.states[id], state)
}

func (r *stateRecorder) get(id chainhash.Hash) []model.State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]model.State(nil), r.states[id]...)
}

func testSettings() *settings.Settings {
	return &settings.Settings{
		XBridge: settings.XBridgeSettings{
			Workers:            2,
			WorkerQueueSize:    64,
			TimerInterval:      time.Hour,
			NotificationBuffer: 64,
		},
	}
}

func newTestServer(t *testing.T, transport Transport, connectors []wallet.Connector, opts ...Option) *Server {
	t.Helper()

	s, err := New(context.Background(), ulogger.TestLogger{}, testSettings(), transport, connectors, opts...)
	require.NoError(t, err)

	require.NoError(t, s.Init(context.Background()))

	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})

	return s
}

// aliceWallets funds alice with two BTC coins of 60.
func aliceWallets() (*wallet.MockConnector, *wallet.MockConnector) {
	btc := mockWallet("BTC", map[string][]byte{"alice-btc": aliceBTC}, []model.UtxoEntry{
		coin("BTC", "alice", 0, 60),
		coin("BTC", "alice", 1, 60),
	})
	ltc := mockWallet("LTC", map[string][]byte{"alice-ltc": aliceLTC}, nil)

	return btc, ltc
}

// bobWallets funds bob with two LTC coins of 50.
func bobWallets() (*wallet.MockConnector, *wallet.MockConnector) {
	btc := mockWallet("BTC", map[string][]byte{"bob-btc": bobBTC}, nil)
	ltc := mockWallet("LTC", map[string][]byte{"bob-ltc": bobLTC}, []model.UtxoEntry{
		coin("LTC", "bob", 0, 50),
		coin("LTC", "bob", 1, 50),
	})

	return btc, ltc
}

func stateOf(s *Server, id chainhash.Hash) string {
	info, err := s.Transaction(id)
	if err != nil {
		return ""
	}

	return info.State
}

func waitForState(t *testing.T, s *Server, id chainhash.Hash, state model.State) {
	t.Helper()

	require.Eventually(t, func() bool {
		return stateOf(s, id) == state.String()
	}, 5*time.Second, 5*time.Millisecond, "waiting for %s", state)
}

func inject(t *testing.T, s *Server, msg packet.Message) []byte {
	t.Helper()

	raw, err := packet.Encode(msg)
	require.NoError(t, err)

	s.OnBroadcastReceived(raw)

	return raw
}

func TestNew(t *testing.T) {
	t.Run("hub address", func(t *testing.T) {
		tSettings := testSettings()
		tSettings.XBridge.HubAddress = "0707070707070707070707070707070707070707"

		s, err := New(context.Background(), ulogger.TestLogger{}, tSettings, &fakeTransport{}, nil)
		require.NoError(t, err)
		assert.Equal(t, address(0x07), s.hubAddress)
	})

	t.Run("default hub is broadcast", func(t *testing.T) {
		s, err := New(context.Background(), ulogger.TestLogger{}, testSettings(), &fakeTransport{}, nil)
		require.NoError(t, err)
		assert.Equal(t, make([]byte, packet.AddressSize), s.hubAddress)
	})

	t.Run("bad hub address", func(t *testing.T) {
		for _, hub := range []string{"zz", "0707"} {
			tSettings := testSettings()
			tSettings.XBridge.HubAddress = hub

			_, err := New(context.Background(), ulogger.TestLogger{}, tSettings, &fakeTransport{}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfiguration))
		}
	})

	t.Run("transport required", func(t *testing.T) {
		_, err := New(context.Background(), ulogger.TestLogger{}, testSettings(), nil, nil)
		require.Error(t, err)
	})
}

func TestLifecycle(t *testing.T) {
	btc, ltc := aliceWallets()

	s, err := New(context.Background(), ulogger.TestLogger{}, testSettings(), &fakeTransport{}, []wallet.Connector{btc, ltc})
	require.NoError(t, err)

	status, _, err := s.Health(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 503, status, "no workers before Init")

	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, s.Init(context.Background()))

	assert.Equal(t, 2, s.router.PoolSize())
	assert.NotNil(t, s.router.RouteByAddress(aliceBTC))
	assert.NotNil(t, s.router.RouteByCurrency("LTC"))

	status, _, err = s.Health(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 200, status)

	status, body, err := s.Health(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
	assert.Equal(t, "OK", body)

	ctx, cancel := context.WithCancel(context.Background())
	readyCh := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- s.Start(ctx, readyCh)
	}()

	<-readyCh
	cancel()

	require.NoError(t, <-done)
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
