package xbridge

import (
	"encoding/hex"
	"sort"

	"github.com/bsv-blockchain/xbridge/services/xbridge/wallet"
	"github.com/bsv-blockchain/xbridge/util"
)

// connectorRegistry maps currency codes and wallet network addresses to connectors.
type connectorRegistry struct {
	byCurrency *util.SyncedMap[string, wallet.Connector]
	byAddress  *util.SyncedMap[string, wallet.Connector]
}

func newConnectorRegistry() *connectorRegistry {
	return &connectorRegistry{
		byCurrency: util.NewSyncedMap[string, wallet.Connector](),
		byAddress:  util.NewSyncedMap[string, wallet.Connector](),
	}
}

// set registers c for its currency, replacing any earlier connector. It returns the
// network addresses of the wallet; addresses that do not convert are returned in bad.
func (r *connectorRegistry) set(c wallet.Connector) (addresses [][]byte, bad []string) {
	r.byCurrency.Set(c.Currency(), c)

	keys := make([]string, 0, len(c.Addresses()))

	for _, address := range c.Addresses() {
		addr, err := c.ToNetworkAddress(address)
		if err != nil {
			bad = append(bad, address)
			continue
		}

		addresses = append(addresses, addr)
		keys = append(keys, hex.EncodeToString(addr))
	}

	r.byAddress.SetMulti(keys, c)

	return addresses, bad
}

func (r *connectorRegistry) byCurrencyCode(currency string) (wallet.Connector, bool) {
	return r.byCurrency.Get(currency)
}

func (r *connectorRegistry) byNetworkAddress(addr []byte) (wallet.Connector, bool) {
	return r.byAddress.Get(hex.EncodeToString(addr))
}

func (r *connectorRegistry) currencies() []string {
	all := r.byCurrency.Range()

	currencies := make([]string, 0, len(all))
	for currency := range all {
		currencies = append(currencies, currency)
	}

	sort.Strings(currencies)

	return currencies
}

func (r *connectorRegistry) all() []wallet.Connector {
	all := r.byCurrency.Range()

	connectors := make([]wallet.Connector, 0, len(all))
	for _, currency := range r.currencies() {
		if c, ok := all[currency]; ok {
			connectors = append(connectors, c)
		}
	}

	return connectors
}

func (r *connectorRegistry) length() int {
	return r.byCurrency.Length()
}
