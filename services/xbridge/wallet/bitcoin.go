package wallet

import (
	"encoding/hex"

	"github.com/bsv-blockchain/go-bt/v2/bscript"
	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/ulogger"
)

// BitcoinConnector talks to a bitcoind-compatible wallet whose addresses are base58
// P2PKH addresses with the Bitcoin version bytes.
type BitcoinConnector struct {
	*rpcConnector
}

func NewBitcoinConnector(logger ulogger.Logger, cfg settings.WalletSettings) (*BitcoinConnector, error) {
	client, err := newBitcoinRPC(cfg)
	if err != nil {
		return nil, err
	}

	return newBitcoinConnector(logger, cfg, client), nil
}

func newBitcoinConnector(logger ulogger.Logger, cfg settings.WalletSettings, client bitcoinRPC) *BitcoinConnector {
	return &BitcoinConnector{
		rpcConnector: newRPCConnector(logger, cfg, client),
	}
}

// ToNetworkAddress returns the public key hash behind address.
func (c *BitcoinConnector) ToNetworkAddress(address string) ([]byte, error) {
	addr, err := bscript.NewAddressFromString(address)
	if err != nil {
		return nil, errors.NewBadAddressError("[ToNetworkAddress][%s] invalid address %q", c.cfg.Currency, address, err)
	}

	pkh, err := hex.DecodeString(addr.PublicKeyHash)
	if err != nil {
		return nil, errors.NewBadAddressError("[ToNetworkAddress][%s] invalid public key hash for %q", c.cfg.Currency, address, err)
	}

	if err = packet.CheckAddress(pkh); err != nil {
		return nil, err
	}

	return pkh, nil
}
