package xbridge

import (
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/services/xbridge/router"
)

// onTimer posts the periodic maintenance to the pool and re-dispatches pending packets.
// It only posts: none of the work runs on the timer goroutine.
func (s *Server) onTimer() {
	tasks := []struct {
		name string
		task router.Task
	}{
		{"checkFinishedTransactions", s.checkFinishedTransactions},
		{"sendListOfTransactions", s.sendListOfTransactions},
		{"eraseExpiredPendingTransactions", s.eraseExpiredPendingTransactions},
		{"releaseLockedCoins", s.releaseLockedCoins},
		{"getAddressBook", s.getAddressBook},
	}

	for _, t := range tasks {
		w := s.router.NextWorker()
		if w == nil || !w.Post(t.task) {
			s.logger.Warnf("[xbridge][onTimer] could not schedule %s", t.name)
		}
	}

	s.flushPending()
}

// checkFinishedTransactions finishes confirmed swaps and moves terminal ones to history.
func (s *Server) checkFinishedTransactions() {
	done := make([]*model.Transaction, 0)

	for _, tx := range s.transactions.activeList() {
		tx.Lock()

		if tx.State() == model.StateConfirmed {
			if err := tx.Finish(); err != nil {
				s.logger.Warnf("[xbridge][checkFinishedTransactions][%s] %v", tx.ID(), err)
			}
		}

		terminal := tx.State().IsTerminal()
		tx.Unlock()

		if terminal {
			done = append(done, tx)
		}
	}

	for _, tx := range done {
		s.finalize(s.context(), tx)
	}
}

// sendListOfTransactions re-broadcasts the local proposals nobody has accepted yet,
// with a fresh timestamp so peers refresh their copy.
func (s *Server) sendListOfTransactions() {
	ctx := s.context()

	for _, tx := range s.transactions.activeList() {
		tx.Lock()

		if tx.LocalRole() != model.PartyA || tx.State() != model.StateNew {
			tx.Unlock()
			continue
		}

		command, previous := tx.Outbound()
		if command != packet.CommandPropose {
			tx.Unlock()
			continue
		}

		raw, err := reencode(previous)
		if err == nil {
			tx.SetOutbound(command, raw)
		}

		tx.Unlock()

		if err != nil {
			s.logger.Errorf("[xbridge][sendListOfTransactions][%s] %v", tx.ID(), err)
			continue
		}

		if err = s.send(ctx, nil, raw); err != nil {
			s.logger.Warnf("[xbridge][sendListOfTransactions][%s] %v", tx.ID(), err)
		}
	}
}

// eraseExpiredPendingTransactions drops swaps that outlived their ttl.
func (s *Server) eraseExpiredPendingTransactions() {
	now := s.now()
	expired := make([]*model.Transaction, 0)

	for _, tx := range s.transactions.activeList() {
		tx.Lock()

		if tx.IsExpired(now) {
			if err := tx.Drop(); err == nil {
				expired = append(expired, tx)
			}
		}

		tx.Unlock()
	}

	for _, tx := range expired {
		prometheusExpired.Inc()
		s.logger.Infof("[xbridge][eraseExpiredPendingTransactions][%s] expired", tx.ID())
		s.finalize(s.context(), tx)
	}
}

// releaseLockedCoins frees the coins of swaps whose pledge lock time has elapsed.
func (s *Server) releaseLockedCoins() {
	now := s.now()

	for _, tx := range s.transactions.activeList() {
		tx.Lock()

		local, isParty := tx.Local()
		coins := tx.UsedCoins()

		if !isParty || len(coins) == 0 || !tx.LockExpired(now) {
			tx.Unlock()
			continue
		}

		tx.SetUsedCoins(nil)
		tx.Unlock()

		s.logger.Infof("[xbridge][releaseLockedCoins][%s] lock time elapsed, releasing %d coins", tx.ID(), len(coins))
		s.releaseCoins(s.context(), local.Currency, coins)
	}
}

// getAddressBook routes the wallet addresses of every connector to its currency worker.
func (s *Server) getAddressBook() {
	for _, c := range s.connectors.all() {
		addresses := make([][]byte, 0, len(c.Addresses()))

		for _, address := range c.Addresses() {
			addr, err := c.ToNetworkAddress(address)
			if err != nil {
				continue
			}

			addresses = append(addresses, addr)
		}

		s.routeWallet(c.Currency(), addresses)
	}
}

// flushPending hands every pending packet to the next pool worker. Packets older than
// the pending ttl are dropped.
func (s *Server) flushPending() {
	now := s.now()

	for id, pp := range s.pending.drain() {
		if now.Sub(pp.received) > model.PendingTTL {
			prometheusPendingExpired.Inc()
			s.logger.Debugf("[xbridge][flushPending][%s] dropping %s packet", id, pp.packet.Command)

			continue
		}

		prometheusPendingFlushed.Inc()
		s.dispatch(s.router.NextWorker(), pp)
	}
}

func reencode(raw []byte) ([]byte, error) {
	p, err := packet.Decode(raw)
	if err != nil {
		return nil, err
	}

	return packet.Encode(p.Message)
}
