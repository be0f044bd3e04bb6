package daemon

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/bsv-blockchain/xbridge/services/p2p"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/services/xbridge/wallet"
	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testSettings() *settings.Settings {
	return &settings.Settings{
		ClientName: "test",
		XBridge: settings.XBridgeSettings{
			Workers:            1,
			WorkerQueueSize:    16,
			TimerInterval:      time.Hour,
			NotificationBuffer: 16,
		},
	}
}

func testWallet(currency string, name string, addr byte, coins []model.UtxoEntry) *wallet.MockConnector {
	c := &wallet.MockConnector{}

	c.On("Currency").Return(currency).Maybe()
	c.On("Addresses").Return([]string{name}).Maybe()
	c.On("ToNetworkAddress", name).Return(bytes.Repeat([]byte{addr}, packet.AddressSize), nil).Maybe()
	c.On("ToNetworkAddress", mock.Anything).Return(nil, errors.NewBadAddressError("unknown")).Maybe()
	c.On("GetUnspentOutputs", mock.Anything).Return(coins, nil).Maybe()
	c.On("LockUnspent", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	c.On("RequiredConfirmations").Return(1).Maybe()

	return c
}

type node struct {
	daemon *Daemon
	cancel context.CancelFunc
	done   chan error
}

func startNode(t *testing.T, bus *p2p.MemoryBus, connectors ...wallet.Connector) *node {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	d := New(
		WithContext(ctx),
		WithLoggerFactory(func(string) ulogger.Logger { return ulogger.TestLogger{} }),
		WithTransport(bus.Join()),
		WithConnectors(connectors...),
	)

	n := &node{daemon: d, cancel: cancel, done: make(chan error, 1)}
	readyCh := make(chan struct{})

	go func() {
		n.done <- d.Start(ulogger.TestLogger{}, testSettings(), readyCh)
	}()

	select {
	case <-readyCh:
	case err := <-n.done:
		t.Fatalf("daemon stopped before it was ready: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon not ready")
	}

	return n
}

func (n *node) stop(t *testing.T) {
	t.Helper()

	n.cancel()

	select {
	case err := <-n.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestDaemonsExchangeProposals(t *testing.T) {
	bus := p2p.NewMemoryBus()

	alice := startNode(t, bus,
		testWallet("BTC", "alice-btc", 0xa1, []model.UtxoEntry{{TxID: chainhash.DoubleHashH([]byte("a")), Amount: 100, Currency: "BTC"}}),
		testWallet("LTC", "alice-ltc", 0xa2, nil),
	)
	defer alice.stop(t)

	bob := startNode(t, bus,
		testWallet("BTC", "bob-btc", 0xb1, nil),
		testWallet("LTC", "bob-ltc", 0xb2, []model.UtxoEntry{{TxID: chainhash.DoubleHashH([]byte("b")), Amount: 50, Currency: "LTC"}}),
	)
	defer bob.stop(t)

	ctx := context.Background()

	id, err := alice.daemon.XBridge.ProposeSwap(ctx, "alice-btc", "BTC", 100, "alice-ltc", "LTC", 50)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		info, err := bob.daemon.XBridge.Transaction(id)
		return err == nil && info.State == model.StateNew.String()
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, bob.daemon.XBridge.AcceptSwap(ctx, id, "bob-ltc", "bob-btc"))

	require.Eventually(t, func() bool {
		info, err := alice.daemon.XBridge.Transaction(id)
		return err == nil && info.State == model.StateJoined.String()
	}, 5*time.Second, 10*time.Millisecond)

	status, _, err := alice.daemon.ServiceManager.HealthHandler(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 200, status)
}

func TestDaemonBadWalletSettings(t *testing.T) {
	tSettings := testSettings()
	tSettings.Wallets = []settings.WalletSettings{{Currency: "XMR", Method: "MONERO"}}

	d := New(WithLoggerFactory(func(string) ulogger.Logger { return ulogger.TestLogger{} }), WithTransport(p2p.NewMemoryBus().Join()))

	err := d.Start(ulogger.TestLogger{}, tSettings)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfiguration))
}
