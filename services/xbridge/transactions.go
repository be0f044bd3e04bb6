package xbridge

import (
	"sort"
	"sync"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/dolthub/swiss"
)

// transactionStore holds swaps in progress and swaps that reached a terminal state.
// Its lock may be held while taking a record lock, never the other way round.
type transactionStore struct {
	mu      sync.RWMutex
	active  *swiss.Map[chainhash.Hash, *model.Transaction]
	history *swiss.Map[chainhash.Hash, *model.Transaction]
	byHash1 map[chainhash.Hash]chainhash.Hash
	hash1Of map[chainhash.Hash]chainhash.Hash
}

func newTransactionStore() *transactionStore {
	return &transactionStore{
		active:  swiss.NewMap[chainhash.Hash, *model.Transaction](64),
		history: swiss.NewMap[chainhash.Hash, *model.Transaction](64),
		byHash1: make(map[chainhash.Hash]chainhash.Hash),
		hash1Of: make(map[chainhash.Hash]chainhash.Hash),
	}
}

// add stores a new active swap under its id and the hash of its proposal terms. It
// returns false when the id is already known, active or historic.
func (s *transactionStore) add(tx *model.Transaction, hash1 chainhash.Hash) bool {
	id := tx.ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active.Has(id) || s.history.Has(id) {
		return false
	}

	s.active.Put(id, tx)
	s.byHash1[hash1] = id
	s.hash1Of[id] = hash1

	s.updateGauges()

	return true
}

func (s *transactionStore) get(id chainhash.Hash) (*model.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.active.Get(id)
}

// lookup finds a swap in the active set or in history.
func (s *transactionStore) lookup(id chainhash.Hash) (*model.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tx, ok := s.active.Get(id); ok {
		return tx, true
	}

	return s.history.Get(id)
}

func (s *transactionStore) isHistoric(id chainhash.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.history.Has(id)
}

// idByHash1 returns the active swap proposed with the given terms hash.
func (s *transactionStore) idByHash1(hash1 chainhash.Hash) (chainhash.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash1[hash1]

	return id, ok
}

// moveToHistory moves an active swap to history. It returns false if the swap was not
// active.
func (s *transactionStore) moveToHistory(id chainhash.Hash) (*model.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.active.Get(id)
	if !ok {
		return nil, false
	}

	s.active.Delete(id)
	s.history.Put(id, tx)

	if hash1, ok := s.hash1Of[id]; ok {
		delete(s.hash1Of, id)

		if s.byHash1[hash1] == id {
			delete(s.byHash1, hash1)
		}
	}

	s.updateGauges()

	return tx, true
}

func (s *transactionStore) activeList() []*model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.active)
}

func (s *transactionStore) historyList() []*model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.history)
}

func (s *transactionStore) counts() (active int, historic int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.active.Count(), s.history.Count()
}

func (s *transactionStore) updateGauges() {
	prometheusActiveTransactions.Set(float64(s.active.Count()))
	prometheusHistoricTransactions.Set(float64(s.history.Count()))
}

func collect(m *swiss.Map[chainhash.Hash, *model.Transaction]) []*model.Transaction {
	list := make([]*model.Transaction, 0, m.Count())

	m.Iter(func(_ chainhash.Hash, tx *model.Transaction) bool {
		list = append(list, tx)
		return false
	})

	// ids are immutable, no record lock needed
	sort.Slice(list, func(i, j int) bool {
		return list[i].ID().String() < list[j].ID().String()
	})

	return list
}
