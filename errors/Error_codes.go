package errors

import "strconv"

// ERR is the numeric error code carried by every *Error.
// Codes are grouped in ranges of ten, see GetErrorCategory.
type ERR int32

const (
	ERR_UNKNOWN          ERR = 0
	ERR_INVALID_ARGUMENT ERR = 1
	ERR_NOT_FOUND        ERR = 3
	ERR_PROCESSING       ERR = 4
	ERR_CONFIGURATION    ERR = 5
	ERR_CONTEXT          ERR = 6
	ERR_CONTEXT_CANCELED ERR = 7
	ERR_ERROR            ERR = 9

	// wire
	ERR_DECODE           ERR = 10
	ERR_BAD_ADDRESS      ERR = 11
	ERR_VERSION_MISMATCH ERR = 12
	ERR_INVALID_CURRENCY ERR = 13

	// swap
	ERR_TRANSACTION_NOT_FOUND ERR = 20
	ERR_INSUFFICIENT_FUNDS    ERR = 21
	ERR_STATE_MISMATCH        ERR = 22
	ERR_REVERT_TX_FAILED      ERR = 23
	ERR_TRANSACTION_EXISTS    ERR = 24

	// reservation
	ERR_DUPLICATE_RESERVATION ERR = 30

	// wallet
	ERR_NO_SESSION      ERR = 40
	ERR_UNKNOWN_SESSION ERR = 41
	ERR_CONNECTOR       ERR = 42

	ERR_SERVICE_UNAVAILABLE ERR = 50
	ERR_SERVICE_NOT_STARTED ERR = 51
	ERR_SERVICE_ERROR       ERR = 52

	ERR_NETWORK_ERROR              ERR = 110
	ERR_NETWORK_TIMEOUT            ERR = 111
	ERR_NETWORK_CONNECTION_REFUSED ERR = 112
	ERR_NETWORK_INVALID_RESPONSE   ERR = 113
	ERR_NETWORK_PEER_MALICIOUS     ERR = 114
)

var ERR_name = map[int32]string{
	0:   "UNKNOWN",
	1:   "INVALID_ARGUMENT",
	3:   "NOT_FOUND",
	4:   "PROCESSING",
	5:   "CONFIGURATION",
	6:   "CONTEXT",
	7:   "CONTEXT_CANCELED",
	9:   "ERROR",
	10:  "DECODE",
	11:  "BAD_ADDRESS",
	12:  "VERSION_MISMATCH",
	13:  "INVALID_CURRENCY",
	20:  "TRANSACTION_NOT_FOUND",
	21:  "INSUFFICIENT_FUNDS",
	22:  "STATE_MISMATCH",
	23:  "REVERT_TX_FAILED",
	24:  "TRANSACTION_EXISTS",
	30:  "DUPLICATE_RESERVATION",
	40:  "NO_SESSION",
	41:  "UNKNOWN_SESSION",
	42:  "CONNECTOR",
	50:  "SERVICE_UNAVAILABLE",
	51:  "SERVICE_NOT_STARTED",
	52:  "SERVICE_ERROR",
	110: "NETWORK_ERROR",
	111: "NETWORK_TIMEOUT",
	112: "NETWORK_CONNECTION_REFUSED",
	113: "NETWORK_INVALID_RESPONSE",
	114: "NETWORK_PEER_MALICIOUS",
}

var ERR_value = func() map[string]int32 {
	m := make(map[string]int32, len(ERR_name))
	for k, v := range ERR_name {
		m[v] = k
	}

	return m
}()

func (x ERR) Enum() *ERR {
	p := new(ERR)
	*p = x

	return p
}

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return strconv.Itoa(int(x))
}
