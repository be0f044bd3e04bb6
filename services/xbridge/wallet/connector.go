// Package wallet defines the per-currency wallet connector the swap coordinator uses to
// find, lock and refund coins, and provides the RPC backed implementations.
package wallet

import (
	"context"
	"strings"

	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/ulogger"
)

const (
	MethodBTC = "BTC"
	MethodALT = "ALT"
)

// Connector is the coordinator's view of one local wallet.
type Connector interface {
	// Currency is the code of the coin this wallet holds.
	Currency() string
	// Addresses are the wallet's human readable receive addresses.
	Addresses() []string
	// GetUnspentOutputs lists spendable coins that are not locked.
	GetUnspentOutputs(ctx context.Context) ([]model.UtxoEntry, error)
	// ToNetworkAddress converts a wallet address to its 20 byte network form.
	ToNetworkAddress(address string) ([]byte, error)
	// LockUnspent locks or unlocks coins against use by the wallet.
	LockUnspent(ctx context.Context, entries []model.UtxoEntry, lock bool) error
	// ReverseTransaction broadcasts a signed refund transaction. It returns false when the
	// wallet refused it.
	ReverseTransaction(ctx context.Context, refTx string) (bool, error)
	// RequiredConfirmations is the number of confirmations a pay transaction needs.
	RequiredConfirmations() int
}

// NewConnector builds the connector for one configured wallet.
func NewConnector(logger ulogger.Logger, cfg settings.WalletSettings) (Connector, error) {
	if cfg.Currency == "" {
		return nil, errors.NewConfigurationError("[NewConnector] wallet without currency")
	}

	switch strings.ToUpper(cfg.Method) {
	case MethodBTC, "":
		return NewBitcoinConnector(logger, cfg)
	case MethodALT:
		return NewAltCoinConnector(logger, cfg)
	default:
		return nil, errors.NewConfigurationError("[NewConnector][%s] unknown wallet method %q", cfg.Currency, cfg.Method)
	}
}

// NewConnectors builds a connector for every configured wallet.
func NewConnectors(logger ulogger.Logger, wallets []settings.WalletSettings) ([]Connector, error) {
	connectors := make([]Connector, 0, len(wallets))

	for _, cfg := range wallets {
		c, err := NewConnector(logger.New(strings.ToLower(cfg.Currency)), cfg)
		if err != nil {
			return nil, err
		}

		connectors = append(connectors, c)
	}

	return connectors, nil
}
