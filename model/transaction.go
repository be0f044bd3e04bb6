package model

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/looplab/fsm"
)

// PartyRole identifies which slot of a swap the local node owns.
type PartyRole int

const (
	PartyNone PartyRole = iota
	PartyA
	PartyB
)

func (r PartyRole) String() string {
	switch r {
	case PartyA:
		return "A"
	case PartyB:
		return "B"
	default:
		return "none"
	}
}

// Party is one side of a swap. Address pays Amount of Currency, Destination receives
// the counter leg.
type Party struct {
	Address     []byte
	Destination []byte
	Currency    string
	Amount      uint64
	Utxos       []packet.Outpoint

	PayTxID     string
	RefTx       string
	BinTxID     string
	InnerScript []byte
	DataTxID    chainhash.Hash
	PubKey      []byte

	StateChanged  bool
	Confirmations int
}

// Observer is told about every state a swap enters.
type Observer func(id chainhash.Hash, state State)

// Option configures a Transaction.
type Option func(*Transaction)

func WithObserver(o Observer) Option {
	return func(t *Transaction) {
		t.observer = o
	}
}

func WithHubAddress(addr []byte) Option {
	return func(t *Transaction) {
		t.hubAddress = addr
	}
}

func WithRequiredConfirmations(n int) Option {
	return func(t *Transaction) {
		if n > 0 {
			t.requiredConfirmations = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Transaction) {
		t.now = now
	}
}

func WithLocalParty(role PartyRole) Option {
	return func(t *Transaction) {
		t.localParty = role
	}
}

// Transaction is the shared record of one swap. Party A proposed it, party B is filled
// in by a successful TryJoin.
//
// Methods are not synchronized: callers hold Lock for the duration of any read or
// mutation of a record that is reachable from more than one goroutine.
type Transaction struct {
	mu sync.Mutex

	id         chainhash.Hash
	created    time.Time
	pledgedAt  time.Time
	fsm        *fsm.FSM
	a          Party
	b          Party
	toCurrency string
	toAmount   uint64

	hubAddress            []byte
	reason                CancelReason
	localParty            PartyRole
	usedCoins             []UtxoEntry
	requiredConfirmations int

	outboundCommand packet.Command
	outbound        []byte

	observer Observer
	now      func() time.Time
}

// NewTransaction creates a record in state New. a holds the proposer's leg, toCurrency
// and toAmount the leg it wants in return.
func NewTransaction(id chainhash.Hash, a Party, toCurrency string, toAmount uint64, opts ...Option) *Transaction {
	t := &Transaction{
		id:                    id,
		a:                     a,
		toCurrency:            toCurrency,
		toAmount:              toAmount,
		requiredConfirmations: DefaultRequiredConfirmations,
		now:                   time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	t.created = t.now()
	t.fsm = t.newStateMachine()

	return t
}

func (t *Transaction) newStateMachine() *fsm.FSM {
	active := []string{
		StateNew.String(),
		StateJoined.String(),
		StateHold.String(),
		StateInitialized.String(),
		StateCreated.String(),
		StateSigned.String(),
		StateCommitted.String(),
		StateConfirmed.String(),
	}

	return fsm.NewFSM(
		StateNew.String(),
		fsm.Events{
			{Name: EventJoin, Src: []string{StateNew.String()}, Dst: StateJoined.String()},
			{Name: EventHold, Src: []string{StateJoined.String()}, Dst: StateHold.String()},
			{Name: EventInitialize, Src: []string{StateHold.String()}, Dst: StateInitialized.String()},
			{Name: EventCreate, Src: []string{StateInitialized.String()}, Dst: StateCreated.String()},
			{Name: EventSign, Src: []string{StateCreated.String()}, Dst: StateSigned.String()},
			{Name: EventCommit, Src: []string{StateSigned.String()}, Dst: StateCommitted.String()},
			{Name: EventConfirm, Src: []string{StateCommitted.String()}, Dst: StateConfirmed.String()},
			{Name: EventFinish, Src: []string{StateConfirmed.String()}, Dst: StateFinished.String()},
			{Name: EventCancel, Src: active, Dst: StateCancelled.String()},
			{Name: EventDrop, Src: active, Dst: StateDropped.String()},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				state := ParseState(e.Dst)
				if state == StateInitialized {
					t.pledgedAt = t.now()
				}

				if t.observer != nil {
					t.observer(t.id, state)
				}
			},
		},
	)
}

func (t *Transaction) fire(event string) error {
	if err := t.fsm.Event(context.Background(), event); err != nil {
		return errors.NewStateMismatchError("[Transaction][%s] %s not allowed in state %s", t.id, event, t.fsm.Current(), err)
	}

	return nil
}

func (t *Transaction) Lock()   { t.mu.Lock() }
func (t *Transaction) Unlock() { t.mu.Unlock() }

func (t *Transaction) ID() chainhash.Hash         { return t.id }
func (t *Transaction) State() State               { return ParseState(t.fsm.Current()) }
func (t *Transaction) Created() time.Time         { return t.created }
func (t *Transaction) PledgedAt() time.Time       { return t.pledgedAt }
func (t *Transaction) A() Party                   { return t.a }
func (t *Transaction) B() Party                   { return t.b }
func (t *Transaction) Joined() bool               { return t.b.Address != nil }
func (t *Transaction) FromCurrency() string       { return t.a.Currency }
func (t *Transaction) FromAmount() uint64         { return t.a.Amount }
func (t *Transaction) ToCurrency() string         { return t.toCurrency }
func (t *Transaction) ToAmount() uint64           { return t.toAmount }
func (t *Transaction) HubAddress() []byte         { return t.hubAddress }
func (t *Transaction) Reason() CancelReason       { return t.reason }
func (t *Transaction) LocalRole() PartyRole       { return t.localParty }
func (t *Transaction) RequiredConfirmations() int { return t.requiredConfirmations }

// Local returns the slot owned by this node.
func (t *Transaction) Local() (Party, bool) {
	switch t.localParty {
	case PartyA:
		return t.a, true
	case PartyB:
		return t.b, true
	default:
		return Party{}, false
	}
}

func (t *Transaction) SetLocalParty(role PartyRole) {
	t.localParty = role
}

// UsedCoins returns the local coins reserved for this swap.
func (t *Transaction) UsedCoins() []UtxoEntry {
	return append([]UtxoEntry(nil), t.usedCoins...)
}

func (t *Transaction) SetUsedCoins(coins []UtxoEntry) {
	t.usedCoins = append([]UtxoEntry(nil), coins...)
}

// SetOutbound keeps the last packet sent for this swap so it can be resent.
func (t *Transaction) SetOutbound(command packet.Command, raw []byte) {
	t.outboundCommand = command
	t.outbound = raw
}

func (t *Transaction) Outbound() (packet.Command, []byte) {
	return t.outboundCommand, t.outbound
}

// TryJoin fills party B from other, a record built from the counterparty's terms.
// Both records must be New, the legs must mirror each other and B must be empty.
func (t *Transaction) TryJoin(other *Transaction) bool {
	if other == nil || t.State() != StateNew || other.State() != StateNew || t.Joined() {
		return false
	}

	if other.a.Currency != t.toCurrency || other.a.Amount != t.toAmount ||
		other.toCurrency != t.a.Currency || other.toAmount != t.a.Amount {
		return false
	}

	t.b = other.a

	if err := t.fire(EventJoin); err != nil {
		t.b = Party{}
		return false
	}

	return true
}

// IncreaseStateCounter records that from has completed the step for state. When both
// parties have reported the current state the swap moves one step forward.
func (t *Transaction) IncreaseStateCounter(state State, from []byte) (State, error) {
	current := t.State()

	if state != current {
		return current, errors.NewStateMismatchError("[IncreaseStateCounter][%s] report for %s in state %s", t.id, state, current)
	}

	event, ok := advanceEvents[current]
	if !ok {
		return current, errors.NewStateMismatchError("[IncreaseStateCounter][%s] state %s does not advance on reports", t.id, current)
	}

	party := t.party(from)
	if party == nil {
		return current, errors.NewStateMismatchError("[IncreaseStateCounter][%s] %x is not a party", t.id, from)
	}

	party.StateChanged = true

	if !t.a.StateChanged || !t.b.StateChanged {
		return current, nil
	}

	if err := t.fire(event); err != nil {
		party.StateChanged = false
		return current, err
	}

	t.a.StateChanged = false
	t.b.StateChanged = false

	return t.State(), nil
}

// Confirm counts an on-chain confirmation reported by from. The swap becomes Confirmed
// once both parties reached the required count.
func (t *Transaction) Confirm(from []byte, chainTxID chainhash.Hash) (State, error) {
	current := t.State()

	if current != StateCommitted {
		return current, errors.NewStateMismatchError("[Confirm][%s] confirmation in state %s", t.id, current)
	}

	party := t.party(from)
	if party == nil {
		return current, errors.NewStateMismatchError("[Confirm][%s] %x is not a party", t.id, from)
	}

	if party.PayTxID == "" {
		party.PayTxID = chainTxID.String()
	}

	party.Confirmations++

	if t.a.Confirmations < t.requiredConfirmations || t.b.Confirmations < t.requiredConfirmations {
		return current, nil
	}

	if err := t.fire(EventConfirm); err != nil {
		return current, err
	}

	return t.State(), nil
}

func (t *Transaction) Cancel(reason CancelReason) error {
	previous := t.reason
	t.reason = reason

	if err := t.fire(EventCancel); err != nil {
		t.reason = previous
		return err
	}

	return nil
}

func (t *Transaction) Drop() error {
	return t.fire(EventDrop)
}

func (t *Transaction) Finish() error {
	return t.fire(EventFinish)
}

// IsExpired reports whether the swap outlived its TTL. Terminal swaps never expire.
func (t *Transaction) IsExpired(now time.Time) bool {
	switch state := t.State(); {
	case state.IsTerminal(), state == StateInvalid:
		return false
	case state == StateNew:
		return now.Sub(t.created) > PendingTTL
	default:
		return now.Sub(t.created) > TTL
	}
}

// LockExpired reports whether the pledge lock of an initialized swap has elapsed.
func (t *Transaction) LockExpired(now time.Time) bool {
	return !t.pledgedAt.IsZero() && now.Sub(t.pledgedAt) > LockTime
}

func (t *Transaction) UpdateTimestamp() {
	t.created = t.now()
}

// Reset puts the record back to New with an empty B slot.
func (t *Transaction) Reset() {
	t.fsm.SetState(StateNew.String())
	t.b = Party{}
	t.a.StateChanged = false
	t.a.Confirmations = 0
	t.reason = ReasonUnknown
	t.pledgedAt = time.Time{}
}

// Hash1 identifies party A's trade independently of the swap id.
func (t *Transaction) Hash1() chainhash.Hash {
	return hashTerms(t.a.Address, t.a.Currency, t.a.Amount, t.toCurrency, t.toAmount)
}

// Hash2 identifies party B's trade.
func (t *Transaction) Hash2() chainhash.Hash {
	return hashTerms(t.b.Address, t.toCurrency, t.toAmount, t.a.Currency, t.a.Amount)
}

// SetKeys stores the data transaction and public key of the party at addr.
func (t *Transaction) SetKeys(addr []byte, dataTxID chainhash.Hash, pubKey []byte) bool {
	party := t.party(addr)
	if party == nil {
		return false
	}

	party.DataTxID = dataTxID
	party.PubKey = pubKey

	return true
}

// SetBinTxID stores the binding transaction, refund transaction and redeem script of the
// party at addr.
func (t *Transaction) SetBinTxID(addr []byte, binTxID string, refTx string, innerScript []byte) bool {
	party := t.party(addr)
	if party == nil {
		return false
	}

	party.BinTxID = binTxID
	party.RefTx = refTx
	party.InnerScript = innerScript

	return true
}

// IsParty reports whether addr pays one of the legs.
func (t *Transaction) IsParty(addr []byte) bool {
	return t.party(addr) != nil
}

func (t *Transaction) party(addr []byte) *Party {
	if len(addr) == 0 {
		return nil
	}

	if bytes.Equal(addr, t.a.Address) {
		return &t.a
	}

	if t.Joined() && bytes.Equal(addr, t.b.Address) {
		return &t.b
	}

	return nil
}

// TransactionInfo is a read-only view of a swap.
type TransactionInfo struct {
	ID           string    `json:"id"`
	State        string    `json:"state"`
	Created      time.Time `json:"created"`
	FromCurrency string    `json:"fromCurrency"`
	FromAmount   uint64    `json:"fromAmount"`
	ToCurrency   string    `json:"toCurrency"`
	ToAmount     uint64    `json:"toAmount"`
	PartyA       string    `json:"partyA"`
	PartyB       string    `json:"partyB,omitempty"`
	Local        string    `json:"local"`
	Reason       string    `json:"reason,omitempty"`
}

func (t *Transaction) Info() TransactionInfo {
	info := TransactionInfo{
		ID:           t.id.String(),
		State:        t.State().String(),
		Created:      t.created,
		FromCurrency: t.a.Currency,
		FromAmount:   t.a.Amount,
		ToCurrency:   t.toCurrency,
		ToAmount:     t.toAmount,
		PartyA:       hex.EncodeToString(t.a.Address),
		PartyB:       hex.EncodeToString(t.b.Address),
		Local:        t.localParty.String(),
	}

	if t.State() == StateCancelled {
		info.Reason = t.reason.String()
	}

	return info
}

// NewTransactionID derives a swap id from the proposal terms and a timestamp.
func NewTransactionID(from []byte, fromCurrency string, fromAmount uint64, to []byte, toCurrency string, toAmount uint64, timestamp uint64) chainhash.Hash {
	var buf bytes.Buffer

	buf.Write(from)
	writeCurrency(&buf, fromCurrency)
	writeUint64(&buf, fromAmount)
	buf.Write(to)
	writeCurrency(&buf, toCurrency)
	writeUint64(&buf, toAmount)
	writeUint64(&buf, timestamp)

	return chainhash.DoubleHashH(buf.Bytes())
}

func hashTerms(addr []byte, giveCurrency string, giveAmount uint64, wantCurrency string, wantAmount uint64) chainhash.Hash {
	var buf bytes.Buffer

	buf.Write(addr)
	writeCurrency(&buf, giveCurrency)
	writeUint64(&buf, giveAmount)
	writeCurrency(&buf, wantCurrency)
	writeUint64(&buf, wantAmount)

	return chainhash.DoubleHashH(buf.Bytes())
}

func writeCurrency(buf *bytes.Buffer, code string) {
	field, err := packet.CurrencyField(code)
	if err != nil {
		// over-long codes never reach the wire, hash them verbatim
		buf.WriteString(code)
		return
	}

	buf.Write(field[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte

	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
