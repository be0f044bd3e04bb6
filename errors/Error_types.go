package errors

var (
	ErrUnknown              = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument      = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrNotFound             = New(ERR_NOT_FOUND, "not found")
	ErrProcessing           = New(ERR_PROCESSING, "error processing")
	ErrConfiguration        = New(ERR_CONFIGURATION, "configuration error")
	ErrContext              = New(ERR_CONTEXT, "context error")
	ErrContextCanceled      = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrError                = New(ERR_ERROR, "generic error")
	ErrDecode               = New(ERR_DECODE, "packet decode error")
	ErrBadAddress           = New(ERR_BAD_ADDRESS, "bad address")
	ErrVersionMismatch      = New(ERR_VERSION_MISMATCH, "protocol version mismatch")
	ErrInvalidCurrency      = New(ERR_INVALID_CURRENCY, "invalid currency")
	ErrTransactionNotFound  = New(ERR_TRANSACTION_NOT_FOUND, "transaction not found")
	ErrInsufficientFunds    = New(ERR_INSUFFICIENT_FUNDS, "insufficient funds")
	ErrStateMismatch        = New(ERR_STATE_MISMATCH, "state mismatch")
	ErrRevertTxFailed       = New(ERR_REVERT_TX_FAILED, "revert tx failed")
	ErrTransactionExists    = New(ERR_TRANSACTION_EXISTS, "transaction exists")
	ErrDuplicateReservation = New(ERR_DUPLICATE_RESERVATION, "utxo already reserved")
	ErrNoSession            = New(ERR_NO_SESSION, "no session for currency")
	ErrUnknownSession       = New(ERR_UNKNOWN_SESSION, "unknown session")
	ErrConnector            = New(ERR_CONNECTOR, "wallet connector error")
	ErrServiceUnavailable   = New(ERR_SERVICE_UNAVAILABLE, "service unavailable")
	ErrServiceNotStarted    = New(ERR_SERVICE_NOT_STARTED, "service not started")
	ErrServiceError         = New(ERR_SERVICE_ERROR, "service error")
	ErrNetwork              = New(ERR_NETWORK_ERROR, "network error")
	ErrNetworkTimeout       = New(ERR_NETWORK_TIMEOUT, "network timeout")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewNotFoundError(message string, params ...interface{}) error {
	return New(ERR_NOT_FOUND, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewContextError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewError(message string, params ...interface{}) error {
	return New(ERR_ERROR, message, params...)
}
func NewDecodeError(message string, params ...interface{}) error {
	return New(ERR_DECODE, message, params...)
}
func NewBadAddressError(message string, params ...interface{}) error {
	return New(ERR_BAD_ADDRESS, message, params...)
}
func NewVersionMismatchError(message string, params ...interface{}) error {
	return New(ERR_VERSION_MISMATCH, message, params...)
}
func NewInvalidCurrencyError(message string, params ...interface{}) error {
	return New(ERR_INVALID_CURRENCY, message, params...)
}
func NewTransactionNotFoundError(message string, params ...interface{}) error {
	return New(ERR_TRANSACTION_NOT_FOUND, message, params...)
}
func NewInsufficientFundsError(message string, params ...interface{}) error {
	return New(ERR_INSUFFICIENT_FUNDS, message, params...)
}
func NewStateMismatchError(message string, params ...interface{}) error {
	return New(ERR_STATE_MISMATCH, message, params...)
}
func NewRevertTxFailedError(message string, params ...interface{}) error {
	return New(ERR_REVERT_TX_FAILED, message, params...)
}
func NewTransactionExistsError(message string, params ...interface{}) error {
	return New(ERR_TRANSACTION_EXISTS, message, params...)
}
func NewDuplicateReservationError(message string, params ...interface{}) error {
	return New(ERR_DUPLICATE_RESERVATION, message, params...)
}
func NewNoSessionError(message string, params ...interface{}) error {
	return New(ERR_NO_SESSION, message, params...)
}
func NewUnknownSessionError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN_SESSION, message, params...)
}
func NewConnectorError(message string, params ...interface{}) error {
	return New(ERR_CONNECTOR, message, params...)
}
func NewServiceUnavailableError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_UNAVAILABLE, message, params...)
}
func NewServiceNotStartedError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_NOT_STARTED, message, params...)
}
func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}
func NewNetworkError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_ERROR, message, params...)
}
func NewNetworkTimeoutError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_TIMEOUT, message, params...)
}
func NewNetworkConnectionRefusedError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_CONNECTION_REFUSED, message, params...)
}
func NewNetworkInvalidResponseError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_INVALID_RESPONSE, message, params...)
}
func NewNetworkPeerMaliciousError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_PEER_MALICIOUS, message, params...)
}
