package model

import (
	"time"
)

const (
	// LockTime is how long pledged coins stay reserved after a swap reaches Initialized.
	LockTime = 600 * time.Second
	// PendingTTL is the lifetime of an unmatched (New) proposal.
	PendingTTL = 72 * time.Hour
	// TTL is the lifetime of a swap that is in progress.
	TTL = 60 * time.Minute

	// DefaultRequiredConfirmations is used when no wallet overrides it.
	DefaultRequiredConfirmations = 2
)

// State is the lifecycle position of a swap.
type State uint32

const (
	StateInvalid State = iota
	StateNew
	StateJoined
	StateHold
	StateInitialized
	StateCreated
	StateSigned
	StateCommitted
	StateConfirmed
	StateFinished
	StateCancelled
	StateDropped
)

var stateNames = [...]string{
	StateInvalid:     "INVALID",
	StateNew:         "NEW",
	StateJoined:      "JOINED",
	StateHold:        "HOLD",
	StateInitialized: "INITIALIZED",
	StateCreated:     "CREATED",
	StateSigned:      "SIGNED",
	StateCommitted:   "COMMITTED",
	StateConfirmed:   "CONFIRMED",
	StateFinished:    "FINISHED",
	StateCancelled:   "CANCELLED",
	StateDropped:     "DROPPED",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}

	return stateNames[StateInvalid]
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateFinished || s == StateCancelled || s == StateDropped
}

// ParseState returns the state named s, or StateInvalid.
func ParseState(s string) State {
	for i, name := range stateNames {
		if name == s {
			return State(i)
		}
	}

	return StateInvalid
}

// fsm event names
const (
	EventJoin       = "join"
	EventHold       = "hold"
	EventInitialize = "initialize"
	EventCreate     = "create"
	EventSign       = "sign"
	EventCommit     = "commit"
	EventConfirm    = "confirm"
	EventFinish     = "finish"
	EventCancel     = "cancel"
	EventDrop       = "drop"
)

// advanceEvents maps a state that both parties report to the event that leaves it.
var advanceEvents = map[State]string{
	StateJoined:      EventHold,
	StateHold:        EventInitialize,
	StateInitialized: EventCreate,
	StateCreated:     EventSign,
	StateSigned:      EventCommit,
}

// CancelReason is sent with a Cancel packet.
type CancelReason uint32

const (
	ReasonUnknown CancelReason = iota
	ReasonBadSettings
	ReasonUserRequest
	ReasonNoMoney
	ReasonBadUtxo
	ReasonDust
	ReasonRPCError
	ReasonNotSigned
	ReasonNotAccepted
	ReasonRollback
	ReasonTimeout
)

var reasonNames = [...]string{
	ReasonUnknown:     "unknown",
	ReasonBadSettings: "bad settings",
	ReasonUserRequest: "user request",
	ReasonNoMoney:     "no money",
	ReasonBadUtxo:     "bad utxo",
	ReasonDust:        "dust",
	ReasonRPCError:    "rpc error",
	ReasonNotSigned:   "not signed",
	ReasonNotAccepted: "not accepted",
	ReasonRollback:    "rollback",
	ReasonTimeout:     "timeout",
}

func (r CancelReason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}

	return reasonNames[ReasonUnknown]
}
