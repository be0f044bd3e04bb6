package wallet

import (
	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/btcsuite/btcutil/base58"
)

// AltCoinConnector talks to a bitcoind fork whose addresses use their own base58
// version byte (AddressPrefix).
type AltCoinConnector struct {
	*rpcConnector
}

func NewAltCoinConnector(logger ulogger.Logger, cfg settings.WalletSettings) (*AltCoinConnector, error) {
	client, err := newBitcoinRPC(cfg)
	if err != nil {
		return nil, err
	}

	return newAltCoinConnector(logger, cfg, client), nil
}

func newAltCoinConnector(logger ulogger.Logger, cfg settings.WalletSettings, client bitcoinRPC) *AltCoinConnector {
	return &AltCoinConnector{
		rpcConnector: newRPCConnector(logger, cfg, client),
	}
}

func (c *AltCoinConnector) ToNetworkAddress(address string) ([]byte, error) {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return nil, errors.NewBadAddressError("[ToNetworkAddress][%s] invalid address %q", c.cfg.Currency, address, err)
	}

	if version != c.cfg.AddressPrefix {
		return nil, errors.NewBadAddressError("[ToNetworkAddress][%s] address %q has version %d, expected %d", c.cfg.Currency, address, version, c.cfg.AddressPrefix)
	}

	if err = packet.CheckAddress(payload); err != nil {
		return nil, err
	}

	return payload, nil
}
