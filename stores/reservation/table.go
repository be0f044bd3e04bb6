// Package reservation keeps the set of local coins pledged to in-flight swaps so that the
// same coin is never offered to two swaps at once.
package reservation

import (
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/dolthub/swiss"
)

// key identifies a coin. Amount is not part of the identity.
type key struct {
	currency string
	txID     chainhash.Hash
	vout     uint32
}

func keyOf(e model.UtxoEntry) key {
	return key{currency: e.Currency, txID: e.TxID, vout: e.Vout}
}

// Table is a mutex guarded set of reserved coins. All batch operations are atomic with
// respect to each other.
type Table struct {
	mu sync.Mutex
	m  *swiss.Map[key, model.UtxoEntry]
}

func New(capacity uint32) *Table {
	initPrometheusMetrics()

	return &Table{
		m: swiss.NewMap[key, model.UtxoEntry](capacity),
	}
}

// Check returns true if none of entries is reserved.
func (t *Table) Check(entries []model.UtxoEntry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range entries {
		if t.m.Has(keyOf(e)) {
			return false
		}
	}

	return true
}

// Reserve adds all entries or none of them.
func (t *Table) Reserve(entries []model.UtxoEntry) bool {
	return t.TryReserve(entries) == nil
}

// TryReserve is Reserve reporting the conflicting outpoints. A batch that names the same
// coin twice conflicts with itself.
func (t *Table) TryReserve(entries []model.UtxoEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		conflicts []string
		currency  string
		seen      = make(map[key]struct{}, len(entries))
	)

	for _, e := range entries {
		k := keyOf(e)

		_, dup := seen[k]
		if dup || t.m.Has(k) {
			conflicts = append(conflicts, e.Outpoint())
			currency = e.Currency

			continue
		}

		seen[k] = struct{}{}
	}

	if len(conflicts) > 0 {
		return errors.NewReservationConflictError(currency, conflicts)
	}

	for _, e := range entries {
		t.m.Put(keyOf(e), e)
	}

	prometheusReservedCoins.Set(float64(t.m.Count()))

	return nil
}

// Release removes entries. Unknown entries are ignored.
func (t *Table) Release(entries []model.UtxoEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range entries {
		t.m.Delete(keyOf(e))
	}

	prometheusReservedCoins.Set(float64(t.m.Count()))
}

func (t *Table) IsReserved(e model.UtxoEntry) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.m.Has(keyOf(e))
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.m.Count()
}

// Entries returns a copy of the reserved coins.
func (t *Table) Entries() []model.UtxoEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]model.UtxoEntry, 0, t.m.Count())

	t.m.Iter(func(_ key, e model.UtxoEntry) bool {
		entries = append(entries, e)
		return false
	})

	return entries
}
