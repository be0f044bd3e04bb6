package xbridge

import (
	"context"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/services/xbridge/wallet"
)

// ProposeSwap offers fromAmount of fromCurrency paid from the wallet address from, in
// exchange for toAmount of toCurrency paid to the wallet address to. The coins covering
// fromAmount are reserved before the proposal is broadcast.
func (s *Server) ProposeSwap(ctx context.Context, from string, fromCurrency string, fromAmount uint64, to string, toCurrency string, toAmount uint64) (chainhash.Hash, error) {
	start := time.Now()
	defer func() {
		s.stats.NewStat("ProposeSwap").AddTime(start)
	}()

	if err := checkCurrencies(fromCurrency, toCurrency); err != nil {
		return chainhash.Hash{}, err
	}

	fromConnector, toConnector, err := s.connectorPair(fromCurrency, toCurrency)
	if err != nil {
		return chainhash.Hash{}, err
	}

	fromAddr, err := fromConnector.ToNetworkAddress(from)
	if err != nil {
		return chainhash.Hash{}, err
	}

	toAddr, err := toConnector.ToNetworkAddress(to)
	if err != nil {
		return chainhash.Hash{}, err
	}

	coins, err := s.pledgeCoins(ctx, fromConnector, fromAmount)
	if err != nil {
		return chainhash.Hash{}, err
	}

	id := model.NewTransactionID(fromAddr, fromCurrency, fromAmount, toAddr, toCurrency, toAmount, uint64(s.now().UnixNano()))

	tx := model.NewTransaction(id, model.Party{
		Address:     fromAddr,
		Destination: toAddr,
		Currency:    fromCurrency,
		Amount:      fromAmount,
		Utxos:       outpoints(coins),
	}, toCurrency, toAmount, s.recordOptions(model.PartyA, fromConnector, toConnector)...)

	tx.SetUsedCoins(coins)

	raw, err := packet.Encode(&packet.Propose{
		TxID:         id,
		From:         fromAddr,
		FromCurrency: fromCurrency,
		FromAmount:   fromAmount,
		To:           toAddr,
		ToCurrency:   toCurrency,
		ToAmount:     toAmount,
		Utxos:        outpoints(coins),
	})
	if err != nil {
		s.releaseCoins(ctx, fromCurrency, coins)
		return chainhash.Hash{}, err
	}

	tx.SetOutbound(packet.CommandPropose, raw)

	if !s.transactions.add(tx, tx.Hash1()) {
		s.releaseCoins(ctx, fromCurrency, coins)
		return chainhash.Hash{}, errors.NewTransactionExistsError("[ProposeSwap][%s] swap already exists", id)
	}

	prometheusProposals.WithLabelValues("local").Inc()
	s.notifications.push(id, model.StateNew)

	s.logger.Infof("[ProposeSwap][%s] %d %s for %d %s, %d coins pledged", id, fromAmount, fromCurrency, toAmount, toCurrency, len(coins))

	// the timer resends own proposals, a failed first send is not fatal
	if err = s.send(ctx, nil, raw); err != nil {
		s.logger.Warnf("[ProposeSwap][%s] broadcast failed: %v", id, err)
	}

	return id, nil
}

// AcceptSwap takes the counter leg of the proposal id: the local wallet at from pays the
// amount the proposer asked for and receives the proposer's leg at to.
func (s *Server) AcceptSwap(ctx context.Context, id chainhash.Hash, from string, to string) error {
	start := time.Now()
	defer func() {
		s.stats.NewStat("AcceptSwap").AddTime(start)
	}()

	tx, ok := s.transactions.get(id)
	if !ok {
		return errors.NewTransactionNotFoundError("[AcceptSwap][%s] unknown swap", id)
	}

	tx.Lock()
	payCurrency, payAmount := tx.ToCurrency(), tx.ToAmount()
	wantCurrency, wantAmount := tx.FromCurrency(), tx.FromAmount()
	role, proposer := tx.LocalRole(), tx.A().Address
	tx.Unlock()

	if role != model.PartyNone {
		return errors.NewStateMismatchError("[AcceptSwap][%s] already party %s to this swap", id, role)
	}

	if _, own := s.connectors.byNetworkAddress(proposer); own {
		return errors.NewInvalidArgumentError("[AcceptSwap][%s] proposed from a local wallet", id)
	}

	payConnector, wantConnector, err := s.connectorPair(payCurrency, wantCurrency)
	if err != nil {
		return err
	}

	fromAddr, err := payConnector.ToNetworkAddress(from)
	if err != nil {
		return err
	}

	toAddr, err := wantConnector.ToNetworkAddress(to)
	if err != nil {
		return err
	}

	coins, err := s.pledgeCoins(ctx, payConnector, payAmount)
	if err != nil {
		return err
	}

	counter := model.NewTransaction(id, model.Party{
		Address:     fromAddr,
		Destination: toAddr,
		Currency:    payCurrency,
		Amount:      payAmount,
		Utxos:       outpoints(coins),
	}, wantCurrency, wantAmount)

	tx.Lock()

	if tx.LocalRole() != model.PartyNone || !tx.TryJoin(counter) {
		state := tx.State()
		tx.Unlock()

		s.releaseCoins(ctx, payCurrency, coins)

		return errors.NewStateMismatchError("[AcceptSwap][%s] cannot join swap in state %s", id, state)
	}

	tx.SetLocalParty(model.PartyB)
	tx.SetUsedCoins(coins)

	hub := tx.HubAddress()

	raw, err := packet.Encode(&packet.Accept{
		Hub:          hub,
		TxID:         id,
		From:         fromAddr,
		FromCurrency: payCurrency,
		FromAmount:   payAmount,
		To:           toAddr,
		ToCurrency:   wantCurrency,
		ToAmount:     wantAmount,
		Utxos:        outpoints(coins),
	})
	if err == nil {
		tx.SetOutbound(packet.CommandAccept, raw)
	}

	tx.Unlock()

	if err != nil {
		return err
	}

	prometheusAccepts.WithLabelValues("local").Inc()

	s.logger.Infof("[AcceptSwap][%s] joined as party B, %d coins pledged", id, len(coins))

	return s.send(ctx, hub, raw)
}

// CancelSwap tells the network the swap is off and releases the local coins.
func (s *Server) CancelSwap(ctx context.Context, id chainhash.Hash, reason model.CancelReason) error {
	tx, ok := s.transactions.get(id)
	if !ok {
		return errors.NewTransactionNotFoundError("[CancelSwap][%s] unknown swap", id)
	}

	raw, err := packet.Encode(&packet.Cancel{TxID: id, Reason: uint32(reason)})
	if err != nil {
		return err
	}

	if err = s.send(ctx, nil, raw); err != nil {
		return err
	}

	tx.Lock()
	err = tx.Cancel(reason)
	tx.Unlock()

	if err != nil {
		return err
	}

	prometheusCancels.WithLabelValues(reason.String()).Inc()

	s.finalize(ctx, tx)

	return nil
}

// RollbackSwap broadcasts the local party's refund transaction and cancels the swap.
func (s *Server) RollbackSwap(ctx context.Context, id chainhash.Hash) error {
	tx, ok := s.transactions.get(id)
	if !ok {
		return errors.NewTransactionNotFoundError("[RollbackSwap][%s] unknown swap", id)
	}

	tx.Lock()
	local, isParty := tx.Local()
	tx.Unlock()

	if !isParty {
		return errors.NewInvalidArgumentError("[RollbackSwap][%s] not a party to this swap", id)
	}

	if local.RefTx == "" {
		return errors.NewInvalidArgumentError("[RollbackSwap][%s] no refund transaction recorded", id)
	}

	connector, ok := s.connectors.byCurrencyCode(local.Currency)
	if !ok {
		return errors.NewUnknownSessionError("[RollbackSwap][%s] no wallet for %s", id, local.Currency)
	}

	reverted, err := connector.ReverseTransaction(ctx, local.RefTx)
	if err != nil {
		return errors.NewConnectorError("[RollbackSwap][%s] refund broadcast failed", id, err)
	}

	if !reverted {
		return errors.NewRevertTxFailedError("[RollbackSwap][%s] refund transaction was not accepted", id)
	}

	prometheusRollbacks.Inc()

	raw, err := packet.Encode(&packet.Rollback{TxID: id})
	if err != nil {
		return err
	}

	if err = s.send(ctx, nil, raw); err != nil {
		s.logger.Warnf("[RollbackSwap][%s] broadcast failed: %v", id, err)
	}

	tx.Lock()
	err = tx.Cancel(model.ReasonRollback)
	tx.Unlock()

	if err != nil {
		return err
	}

	prometheusCancels.WithLabelValues(model.ReasonRollback.String()).Inc()

	s.finalize(ctx, tx)

	return nil
}

// ReportState records that the local party completed the step for state and tells the
// counterparty.
func (s *Server) ReportState(ctx context.Context, id chainhash.Hash, state model.State) error {
	tx, ok := s.transactions.get(id)
	if !ok {
		return errors.NewTransactionNotFoundError("[ReportState][%s] unknown swap", id)
	}

	tx.Lock()

	local, isParty := tx.Local()
	if !isParty {
		tx.Unlock()
		return errors.NewInvalidArgumentError("[ReportState][%s] not a party to this swap", id)
	}

	newState, err := tx.IncreaseStateCounter(state, local.Address)
	tx.Unlock()

	if err != nil {
		prometheusStateMismatches.Inc()
		return err
	}

	s.logger.Debugf("[ReportState][%s] reported %s, swap is %s", id, state, newState)

	raw, err := packet.Encode(&packet.StateReport{TxID: id, From: local.Address, State: uint32(state)})
	if err != nil {
		return err
	}

	return s.send(ctx, nil, raw)
}

// ConfirmSwap reports an on-chain confirmation of the local party's payment.
func (s *Server) ConfirmSwap(ctx context.Context, id chainhash.Hash, chainTxID chainhash.Hash) error {
	tx, ok := s.transactions.get(id)
	if !ok {
		return errors.NewTransactionNotFoundError("[ConfirmSwap][%s] unknown swap", id)
	}

	tx.Lock()
	local, isParty := tx.Local()
	state := tx.State()
	tx.Unlock()

	if !isParty {
		return errors.NewInvalidArgumentError("[ConfirmSwap][%s] not a party to this swap", id)
	}

	if state != model.StateCommitted {
		prometheusStateMismatches.Inc()
		return errors.NewStateMismatchError("[ConfirmSwap][%s] confirmation in state %s", id, state)
	}

	raw, err := packet.Encode(&packet.Confirm{TxID: id, From: local.Address, ChainTxID: chainTxID})
	if err != nil {
		return err
	}

	// counted locally only once the peer has been told
	if err = s.send(ctx, nil, raw); err != nil {
		return err
	}

	tx.Lock()
	_, err = tx.Confirm(local.Address, chainTxID)
	tx.Unlock()

	if err != nil {
		prometheusStateMismatches.Inc()
		return err
	}

	return nil
}

// SetBindingTx stores the local party's binding transaction, the signed refund
// transaction used by RollbackSwap and the redeem script.
func (s *Server) SetBindingTx(_ context.Context, id chainhash.Hash, binTxID string, refTx string, innerScript []byte) error {
	tx, ok := s.transactions.get(id)
	if !ok {
		return errors.NewTransactionNotFoundError("[SetBindingTx][%s] unknown swap", id)
	}

	tx.Lock()
	defer tx.Unlock()

	local, isParty := tx.Local()
	if !isParty || !tx.SetBinTxID(local.Address, binTxID, refTx, innerScript) {
		return errors.NewInvalidArgumentError("[SetBindingTx][%s] not a party to this swap", id)
	}

	return nil
}

// Transaction returns a view of an active or historic swap.
func (s *Server) Transaction(id chainhash.Hash) (model.TransactionInfo, error) {
	tx, ok := s.transactions.lookup(id)
	if !ok {
		return model.TransactionInfo{}, errors.NewTransactionNotFoundError("[Transaction][%s] unknown swap", id)
	}

	tx.Lock()
	defer tx.Unlock()

	return tx.Info(), nil
}

// Transactions lists the swaps in progress.
func (s *Server) Transactions() []model.TransactionInfo {
	return infos(s.transactions.activeList())
}

// History lists the swaps that reached a terminal state.
func (s *Server) History() []model.TransactionInfo {
	return infos(s.transactions.historyList())
}

// Currencies lists the currencies with a registered wallet.
func (s *Server) Currencies() []string {
	return s.connectors.currencies()
}

func (s *Server) HasCurrency(currency string) bool {
	_, ok := s.connectors.byCurrencyCode(currency)
	return ok
}

// UpdateConnector registers c for its currency, replacing an earlier connector, and
// routes packets addressed to its wallet addresses.
func (s *Server) UpdateConnector(c wallet.Connector) {
	s.registerConnector(c, true)
}

func (s *Server) registerConnector(c wallet.Connector, route bool) {
	addresses, bad := s.connectors.set(c)

	for _, address := range bad {
		s.logger.Warnf("[xbridge][%s] skipping wallet address %q", c.Currency(), address)
	}

	if route {
		s.routeWallet(c.Currency(), addresses)
	}
}

func (s *Server) routeWallet(currency string, addresses [][]byte) {
	w := s.router.RouteByCurrency(currency)
	if w == nil {
		w = s.router.NextWorker()
	}

	if w == nil {
		return
	}

	s.router.AddWorker(w, addresses, []string{currency})
}

func (s *Server) connectorPair(fromCurrency string, toCurrency string) (wallet.Connector, wallet.Connector, error) {
	fromConnector, ok := s.connectors.byCurrencyCode(fromCurrency)
	if !ok {
		return nil, nil, errors.NewNoSessionError("no wallet for %s", fromCurrency)
	}

	toConnector, ok := s.connectors.byCurrencyCode(toCurrency)
	if !ok {
		return nil, nil, errors.NewNoSessionError("no wallet for %s", toCurrency)
	}

	return fromConnector, toConnector, nil
}

func (s *Server) recordOptions(role model.PartyRole, connectors ...wallet.Connector) []model.Option {
	confirmations := 0

	for _, c := range connectors {
		if n := c.RequiredConfirmations(); n > confirmations {
			confirmations = n
		}
	}

	return []model.Option{
		model.WithObserver(s.notifications.push),
		model.WithHubAddress(s.hubAddress),
		model.WithRequiredConfirmations(confirmations),
		model.WithLocalParty(role),
		model.WithClock(s.now),
	}
}

// pledgeCoins selects unreserved coins of the connector's wallet covering amount,
// reserves them and locks them in the wallet.
func (s *Server) pledgeCoins(ctx context.Context, connector wallet.Connector, amount uint64) ([]model.UtxoEntry, error) {
	unspent, err := connector.GetUnspentOutputs(ctx)
	if err != nil {
		return nil, errors.NewConnectorError("[xbridge][%s] could not list unspent outputs", connector.Currency(), err)
	}

	coins, ok := selectCoins(unspent, amount, s.reservations.IsReserved)
	if !ok {
		return nil, errors.NewInsufficientFundsError("[xbridge][%s] unreserved coins do not cover %d", connector.Currency(), amount)
	}

	if err = s.reservations.TryReserve(coins); err != nil {
		return nil, err
	}

	if err = connector.LockUnspent(ctx, coins, true); err != nil {
		s.reservations.Release(coins)
		return nil, errors.NewConnectorError("[xbridge][%s] could not lock coins", connector.Currency(), err)
	}

	return coins, nil
}

// selectCoins accumulates entries in order, skipping reserved ones, until amount is
// covered.
func selectCoins(unspent []model.UtxoEntry, amount uint64, reserved func(model.UtxoEntry) bool) ([]model.UtxoEntry, bool) {
	var (
		selected []model.UtxoEntry
		sum      uint64
	)

	for _, entry := range unspent {
		if sum >= amount && len(selected) > 0 {
			break
		}

		if reserved(entry) {
			continue
		}

		selected = append(selected, entry)
		sum += entry.Amount
	}

	if sum < amount || len(selected) == 0 {
		return nil, false
	}

	return selected, true
}

func (s *Server) releaseCoins(ctx context.Context, currency string, coins []model.UtxoEntry) {
	if len(coins) == 0 {
		return
	}

	s.reservations.Release(coins)

	connector, ok := s.connectors.byCurrencyCode(currency)
	if !ok {
		return
	}

	if err := connector.LockUnspent(ctx, coins, false); err != nil {
		s.logger.Warnf("[xbridge][%s] could not unlock %d coins: %v", currency, len(coins), err)
	}
}

// finalize moves a terminal swap to history, frees its coins and forgets its pending
// packet. Callers must not hold the record lock.
func (s *Server) finalize(ctx context.Context, tx *model.Transaction) {
	id := tx.ID()

	if _, moved := s.transactions.moveToHistory(id); !moved {
		return
	}

	s.pending.remove(id)

	tx.Lock()
	coins := tx.UsedCoins()
	tx.SetUsedCoins(nil)
	local, isParty := tx.Local()
	state := tx.State()
	tx.Unlock()

	if isParty {
		s.releaseCoins(ctx, local.Currency, coins)
	}

	s.logger.Infof("[xbridge][%s] moved to history in state %s", id, state)
}

// send hands raw to the transport and remembers it so an echo is not processed.
func (s *Server) send(ctx context.Context, to []byte, raw []byte) error {
	s.known.add(raw)

	if err := s.transport.Broadcast(ctx, to, raw); err != nil {
		return errors.NewNetworkError("[xbridge] could not send packet", err)
	}

	prometheusPacketsSent.Inc()

	return nil
}

func checkCurrencies(currencies ...string) error {
	for _, currency := range currencies {
		if _, err := packet.CurrencyField(currency); err != nil {
			return err
		}
	}

	return nil
}

func outpoints(coins []model.UtxoEntry) []packet.Outpoint {
	list := make([]packet.Outpoint, 0, len(coins))

	for _, c := range coins {
		list = append(list, packet.Outpoint{TxID: c.TxID, Vout: c.Vout})
	}

	return list
}

func infos(list []*model.Transaction) []model.TransactionInfo {
	result := make([]model.TransactionInfo, 0, len(list))

	for _, tx := range list {
		tx.Lock()
		result = append(result, tx.Info())
		tx.Unlock()
	}

	return result
}
