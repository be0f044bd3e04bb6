package wallet

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/bsv-blockchain/xbridge/util/retry"
	"github.com/ordishs/go-bitcoin"
)

const (
	listUnspentRetries = 3
	listUnspentBackoff = 100 * time.Millisecond
)

// bitcoinRPC is the subset of the bitcoind JSON-RPC client the connectors use.
type bitcoinRPC interface {
	ListUnspent(addresses []string) ([]*bitcoin.UnspentTransaction, error)
	SendRawTransaction(hexString string) (string, error)
}

func newBitcoinRPC(cfg settings.WalletSettings) (bitcoinRPC, error) {
	if cfg.RPCURL == nil {
		return nil, errors.NewConfigurationError("[wallet][%s] no rpc url configured", cfg.Currency)
	}

	client, err := bitcoin.NewFromURL(cfg.RPCURL, cfg.RPCURL.Scheme == "https")
	if err != nil {
		return nil, errors.NewConfigurationError("[wallet][%s] could not create rpc client", cfg.Currency, err)
	}

	return client, nil
}

// rpcConnector holds what every bitcoind-compatible wallet shares. Coins locked by the
// coordinator are tracked locally and filtered out of the unspent listing.
type rpcConnector struct {
	logger ulogger.Logger
	cfg    settings.WalletSettings
	client bitcoinRPC

	mu     sync.Mutex
	locked map[string]struct{}
}

func newRPCConnector(logger ulogger.Logger, cfg settings.WalletSettings, client bitcoinRPC) *rpcConnector {
	if cfg.Coin == 0 {
		cfg.Coin = 100_000_000
	}

	return &rpcConnector{
		logger: logger,
		cfg:    cfg,
		client: client,
		locked: make(map[string]struct{}),
	}
}

func (c *rpcConnector) Currency() string {
	return c.cfg.Currency
}

func (c *rpcConnector) Addresses() []string {
	return c.cfg.Addresses
}

func (c *rpcConnector) RequiredConfirmations() int {
	if c.cfg.Confirmations <= 0 {
		return model.DefaultRequiredConfirmations
	}

	return c.cfg.Confirmations
}

func (c *rpcConnector) GetUnspentOutputs(ctx context.Context) ([]model.UtxoEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewContextCanceledError("[GetUnspentOutputs][%s] context done", c.cfg.Currency, err)
	}

	unspent, err := retry.Retry(ctx, c.logger, func() ([]*bitcoin.UnspentTransaction, error) {
		return c.client.ListUnspent(c.cfg.Addresses)
	},
		retry.WithRetryCount(listUnspentRetries),
		retry.WithBackoffMultiplier(2),
		retry.WithBackoffDurationType(listUnspentBackoff),
		retry.WithMessage("[GetUnspentOutputs]["+c.cfg.Currency+"] listunspent failed, retrying"),
	)
	if err != nil {
		return nil, errors.NewConnectorError("[GetUnspentOutputs][%s] listunspent failed", c.cfg.Currency, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]model.UtxoEntry, 0, len(unspent))

	for _, u := range unspent {
		if u == nil {
			continue
		}

		txID, err := chainhash.NewHashFromStr(u.TXID)
		if err != nil {
			c.logger.Warnf("[GetUnspentOutputs][%s] skipping unspent with bad txid %q: %v", c.cfg.Currency, u.TXID, err)
			continue
		}

		entry := model.UtxoEntry{
			TxID:     *txID,
			Vout:     u.Vout,
			Amount:   uint64(math.Round(u.Amount * float64(c.cfg.Coin))),
			Currency: c.cfg.Currency,
		}

		if _, ok := c.locked[entry.Outpoint()]; ok {
			continue
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func (c *rpcConnector) LockUnspent(ctx context.Context, entries []model.UtxoEntry, lock bool) error {
	if err := ctx.Err(); err != nil {
		return errors.NewContextCanceledError("[LockUnspent][%s] context done", c.cfg.Currency, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entries {
		if lock {
			c.locked[e.Outpoint()] = struct{}{}
		} else {
			delete(c.locked, e.Outpoint())
		}
	}

	return nil
}

func (c *rpcConnector) ReverseTransaction(ctx context.Context, refTx string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.NewContextCanceledError("[ReverseTransaction][%s] context done", c.cfg.Currency, err)
	}

	txID, err := c.client.SendRawTransaction(refTx)
	if err != nil {
		return false, errors.NewConnectorError("[ReverseTransaction][%s] sendrawtransaction failed", c.cfg.Currency, err)
	}

	if txID == "" {
		return false, nil
	}

	c.logger.Infof("[ReverseTransaction][%s] refund broadcast as %s", c.cfg.Currency, txID)

	return true, nil
}
