package xbridge

import (
	"bytes"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/services/xbridge/router"
)

// OnPacketReceived handles a packet addressed to addr. It is routed to the worker
// registered for addr, or the next pool worker.
func (s *Server) OnPacketReceived(addr []byte, raw []byte) {
	s.receive(addr, raw, false)
}

// OnBroadcastReceived handles a packet addressed to every node.
func (s *Server) OnBroadcastReceived(raw []byte) {
	s.receive(nil, raw, true)
}

func (s *Server) receive(addr []byte, raw []byte, broadcast bool) {
	prometheusPacketsReceived.Inc()

	if !s.known.add(raw) {
		prometheusPacketsDuplicate.Inc()
		return
	}

	p, err := packet.Decode(raw)
	if err != nil {
		prometheusDecodeErrors.Inc()
		s.logger.Warnf("[xbridge][receive] dropping packet: %v", err)

		return
	}

	if !packet.CheckVersion(p) {
		prometheusVersionMismatches.Inc()
		s.logger.Debugf("[xbridge][receive] dropping %s packet with version %#x", p.Command, p.Version)

		return
	}

	var w router.Worker
	if !broadcast {
		w = s.routeDirect(addr)
	}

	if w == nil {
		w = s.router.NextWorker()
	}

	s.dispatch(w, pendingPacket{addr: addr, packet: p, received: s.now()})
}

// routeDirect finds the worker for a packet sent to addr: the worker registered for the
// address, else the currency worker of the local wallet owning it.
func (s *Server) routeDirect(addr []byte) router.Worker {
	if w := s.router.RouteByAddress(addr); w != nil {
		return w
	}

	if c, ok := s.connectors.byNetworkAddress(addr); ok {
		return s.router.RouteByCurrency(c.Currency())
	}

	return nil
}

// dispatch posts the packet to w, parking it in the pending queue when w is missing or
// full.
func (s *Server) dispatch(w router.Worker, pp pendingPacket) {
	if w != nil && w.Post(func() { s.handlePacket(pp) }) {
		return
	}

	id := packet.TxIDOf(pp.packet.Message)

	s.logger.Warnf("[xbridge][dispatch][%s] no worker available for %s, deferring", id, pp.packet.Command)
	s.pending.add(id, pp)
}

func (s *Server) handlePacket(pp pendingPacket) {
	start := time.Now()
	defer func() {
		s.stats.NewStat("handle_" + pp.packet.Command.String()).AddTime(start)
	}()

	switch m := pp.packet.Message.(type) {
	case *packet.Propose:
		s.handlePropose(m)
	case *packet.Accept:
		s.handleAccept(pp, m)
	case *packet.Cancel:
		s.handleCancel(m.TxID, model.CancelReason(m.Reason))
	case *packet.Rollback:
		s.handleCancel(m.TxID, model.ReasonRollback)
	case *packet.StateReport:
		s.handleStateReport(pp, m)
	case *packet.Confirm:
		s.handleConfirm(pp, m)
	default:
		s.logger.Warnf("[xbridge][handlePacket] unhandled command %s", pp.packet.Command)
	}
}

func (s *Server) handlePropose(m *packet.Propose) {
	if tx, ok := s.transactions.get(m.TxID); ok {
		tx.Lock()
		tx.UpdateTimestamp()
		tx.Unlock()

		return
	}

	if s.transactions.isHistoric(m.TxID) {
		return
	}

	tx := model.NewTransaction(m.TxID, model.Party{
		Address:     m.From,
		Destination: m.To,
		Currency:    m.FromCurrency,
		Amount:      m.FromAmount,
		Utxos:       m.Utxos,
	}, m.ToCurrency, m.ToAmount,
		model.WithObserver(s.notifications.push),
		model.WithHubAddress(s.hubAddress),
		model.WithRequiredConfirmations(s.requiredConfirmations(m.FromCurrency, m.ToCurrency)),
		model.WithLocalParty(model.PartyNone),
		model.WithClock(s.now),
	)

	hash1 := tx.Hash1()

	if existing, ok := s.transactions.idByHash1(hash1); ok && existing != m.TxID {
		s.logger.Debugf("[xbridge][Propose][%s] same terms as %s, dropping", m.TxID, existing)
		return
	}

	for _, o := range m.Utxos {
		if s.reservations.IsReserved(model.UtxoEntry{TxID: o.TxID, Vout: o.Vout, Currency: m.FromCurrency}) {
			s.logger.Warnf("[xbridge][Propose][%s] coin %s is pledged to a local swap, dropping", m.TxID, o)
			return
		}
	}

	if !s.transactions.add(tx, hash1) {
		return
	}

	prometheusProposals.WithLabelValues("remote").Inc()
	s.notifications.push(m.TxID, model.StateNew)

	s.logger.Infof("[xbridge][Propose][%s] %d %s for %d %s", m.TxID, m.FromAmount, m.FromCurrency, m.ToAmount, m.ToCurrency)
}

func (s *Server) handleAccept(pp pendingPacket, m *packet.Accept) {
	tx, ok := s.transactions.get(m.TxID)
	if !ok {
		if !s.transactions.isHistoric(m.TxID) {
			s.pending.add(m.TxID, pp)
		}

		return
	}

	counter := model.NewTransaction(m.TxID, model.Party{
		Address:     m.From,
		Destination: m.To,
		Currency:    m.FromCurrency,
		Amount:      m.FromAmount,
		Utxos:       m.Utxos,
	}, m.ToCurrency, m.ToAmount)

	tx.Lock()
	joined := tx.TryJoin(counter)
	alreadyJoined := !joined && tx.Joined() && bytes.Equal(tx.B().Address, m.From)
	state := tx.State()
	tx.Unlock()

	if !joined {
		if !alreadyJoined {
			s.logger.Warnf("[xbridge][Accept][%s] rejected in state %s", m.TxID, state)
		}

		return
	}

	s.pending.remove(m.TxID)

	prometheusAccepts.WithLabelValues("remote").Inc()

	s.logger.Infof("[xbridge][Accept][%s] joined by %x", m.TxID, m.From)
}

func (s *Server) handleCancel(id chainhash.Hash, reason model.CancelReason) {
	tx, ok := s.transactions.get(id)
	if !ok {
		s.pending.remove(id)
		return
	}

	tx.Lock()
	err := tx.Cancel(reason)
	tx.Unlock()

	if err != nil {
		s.logger.Debugf("[xbridge][Cancel][%s] %v", id, err)
		return
	}

	prometheusCancels.WithLabelValues(reason.String()).Inc()

	s.finalize(s.context(), tx)
}

func (s *Server) handleStateReport(pp pendingPacket, m *packet.StateReport) {
	tx, ok := s.transactions.get(m.TxID)
	if !ok {
		if !s.transactions.isHistoric(m.TxID) {
			s.pending.add(m.TxID, pp)
		}

		return
	}

	tx.Lock()
	state, err := tx.IncreaseStateCounter(model.State(m.State), m.From)
	tx.Unlock()

	if err != nil {
		prometheusStateMismatches.Inc()
		s.logger.Warnf("[xbridge][StateReport][%s] %v", m.TxID, err)

		return
	}

	s.logger.Debugf("[xbridge][StateReport][%s] %x reported %s, swap is %s", m.TxID, m.From, model.State(m.State), state)
}

func (s *Server) handleConfirm(pp pendingPacket, m *packet.Confirm) {
	tx, ok := s.transactions.get(m.TxID)
	if !ok {
		if !s.transactions.isHistoric(m.TxID) {
			s.pending.add(m.TxID, pp)
		}

		return
	}

	tx.Lock()
	state, err := tx.Confirm(m.From, m.ChainTxID)
	tx.Unlock()

	if err != nil {
		prometheusStateMismatches.Inc()
		s.logger.Warnf("[xbridge][Confirm][%s] %v", m.TxID, err)

		return
	}

	s.logger.Debugf("[xbridge][Confirm][%s] %x confirmed %s, swap is %s", m.TxID, m.From, m.ChainTxID, state)
}

// requiredConfirmations is the strictest threshold of the local wallets for the two
// currencies, or the default when neither is local.
func (s *Server) requiredConfirmations(currencies ...string) int {
	confirmations := 0

	for _, currency := range currencies {
		if c, ok := s.connectors.byCurrencyCode(currency); ok && c.RequiredConfirmations() > confirmations {
			confirmations = c.RequiredConfirmations()
		}
	}

	if confirmations == 0 {
		return model.DefaultRequiredConfirmations
	}

	return confirmations
}
