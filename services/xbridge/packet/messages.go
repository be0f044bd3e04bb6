package packet

import (
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// Outpoint references a coin advertised in a Propose or Accept.
type Outpoint struct {
	TxID chainhash.Hash
	Vout uint32
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Vout)
}

// Propose announces a new swap offer. From pays FromAmount of FromCurrency and wants
// ToAmount of ToCurrency delivered to To.
type Propose struct {
	TxID         chainhash.Hash
	From         []byte
	FromCurrency string
	FromAmount   uint64
	To           []byte
	ToCurrency   string
	ToAmount     uint64
	Utxos        []Outpoint
}

func (m *Propose) Command() Command { return CommandPropose }

func (m *Propose) encode(w *writer) error {
	w.hash(m.TxID)

	if err := w.address(m.From); err != nil {
		return err
	}

	if err := w.currency(m.FromCurrency); err != nil {
		return err
	}

	w.uint64(m.FromAmount)

	if err := w.address(m.To); err != nil {
		return err
	}

	if err := w.currency(m.ToCurrency); err != nil {
		return err
	}

	w.uint64(m.ToAmount)
	w.outpoints(m.Utxos)

	return nil
}

func (m *Propose) decode(r *reader) {
	m.TxID = r.hash()
	m.From = r.address()
	m.FromCurrency = r.currency()
	m.FromAmount = r.uint64()
	m.To = r.address()
	m.ToCurrency = r.currency()
	m.ToAmount = r.uint64()
	m.Utxos = r.outpoints()
}

// Accept answers a Propose. The acceptor (From) pays the proposal's counter leg and
// receives the proposer's leg at To. Hub is the peer the packet is addressed to.
type Accept struct {
	Hub          []byte
	TxID         chainhash.Hash
	From         []byte
	FromCurrency string
	FromAmount   uint64
	To           []byte
	ToCurrency   string
	ToAmount     uint64
	Utxos        []Outpoint
}

func (m *Accept) Command() Command { return CommandAccept }

func (m *Accept) encode(w *writer) error {
	if err := w.address(m.Hub); err != nil {
		return err
	}

	w.hash(m.TxID)

	if err := w.address(m.From); err != nil {
		return err
	}

	if err := w.currency(m.FromCurrency); err != nil {
		return err
	}

	w.uint64(m.FromAmount)

	if err := w.address(m.To); err != nil {
		return err
	}

	if err := w.currency(m.ToCurrency); err != nil {
		return err
	}

	w.uint64(m.ToAmount)
	w.outpoints(m.Utxos)

	return nil
}

func (m *Accept) decode(r *reader) {
	m.Hub = r.address()
	m.TxID = r.hash()
	m.From = r.address()
	m.FromCurrency = r.currency()
	m.FromAmount = r.uint64()
	m.To = r.address()
	m.ToCurrency = r.currency()
	m.ToAmount = r.uint64()
	m.Utxos = r.outpoints()
}

// Cancel aborts a swap with a reason code.
type Cancel struct {
	TxID   chainhash.Hash
	Reason uint32
}

func (m *Cancel) Command() Command { return CommandCancel }

func (m *Cancel) encode(w *writer) error {
	w.hash(m.TxID)
	w.uint32(m.Reason)

	return nil
}

func (m *Cancel) decode(r *reader) {
	m.TxID = r.hash()
	m.Reason = r.uint32()
}

// Rollback tells the counterparty that the sender reverted its pledge.
type Rollback struct {
	TxID chainhash.Hash
}

func (m *Rollback) Command() Command { return CommandRollback }

func (m *Rollback) encode(w *writer) error {
	w.hash(m.TxID)

	return nil
}

func (m *Rollback) decode(r *reader) {
	m.TxID = r.hash()
}

// StateReport tells the counterparty that From has completed the step for State.
type StateReport struct {
	TxID  chainhash.Hash
	From  []byte
	State uint32
}

func (m *StateReport) Command() Command { return CommandStateReport }

func (m *StateReport) encode(w *writer) error {
	w.hash(m.TxID)

	if err := w.address(m.From); err != nil {
		return err
	}

	w.uint32(m.State)

	return nil
}

func (m *StateReport) decode(r *reader) {
	m.TxID = r.hash()
	m.From = r.address()
	m.State = r.uint32()
}

// Confirm reports that From saw ChainTxID confirmed on its chain.
type Confirm struct {
	TxID      chainhash.Hash
	From      []byte
	ChainTxID chainhash.Hash
}

func (m *Confirm) Command() Command { return CommandConfirm }

func (m *Confirm) encode(w *writer) error {
	w.hash(m.TxID)

	if err := w.address(m.From); err != nil {
		return err
	}

	w.hash(m.ChainTxID)

	return nil
}

func (m *Confirm) decode(r *reader) {
	m.TxID = r.hash()
	m.From = r.address()
	m.ChainTxID = r.hash()
}

// TxIDOf returns the swap id carried by msg.
func TxIDOf(msg Message) chainhash.Hash {
	switch m := msg.(type) {
	case *Propose:
		return m.TxID
	case *Accept:
		return m.TxID
	case *Cancel:
		return m.TxID
	case *Rollback:
		return m.TxID
	case *StateReport:
		return m.TxID
	case *Confirm:
		return m.TxID
	default:
		return chainhash.Hash{}
	}
}
