package model

import (
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// UtxoEntry is a spendable output held by a local wallet. Amount is in the smallest
// unit of Currency.
type UtxoEntry struct {
	TxID     chainhash.Hash `json:"txid"`
	Vout     uint32         `json:"vout"`
	Amount   uint64         `json:"amount"`
	Currency string         `json:"currency"`
}

// Outpoint returns the txid:vout form of the entry.
func (u UtxoEntry) Outpoint() string {
	return fmt.Sprintf("%s:%d", u.TxID, u.Vout)
}

// SumAmounts totals the amount of entries.
func SumAmounts(entries []UtxoEntry) uint64 {
	var total uint64

	for _, e := range entries {
		total += e.Amount
	}

	return total
}
