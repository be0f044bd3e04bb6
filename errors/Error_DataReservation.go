package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReservationConflictErrData lists the outpoints that were already reserved when a
// reservation batch was rejected.
type ReservationConflictErrData struct {
	Currency  string   `json:"currency"`
	Outpoints []string `json:"outpoints"`
}

func (e *ReservationConflictErrData) Error() string {
	return fmt.Sprintf("%s outpoints already reserved: %s", e.Currency, strings.Join(e.Outpoints, ", "))
}

func (e *ReservationConflictErrData) EncodeErrorData() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return []byte{}
	}

	return data
}

func (e *ReservationConflictErrData) GetData(key string) interface{} {
	switch key {
	case "currency":
		return e.Currency
	case "outpoints":
		return e.Outpoints
	}

	return nil
}

func (e *ReservationConflictErrData) SetData(key string, value interface{}) {
	switch key {
	case "currency":
		if s, ok := value.(string); ok {
			e.Currency = s
		}
	case "outpoints":
		if s, ok := value.([]string); ok {
			e.Outpoints = s
		}
	}
}

func NewReservationConflictError(currency string, outpoints []string) error {
	data := &ReservationConflictErrData{
		Currency:  currency,
		Outpoints: outpoints,
	}

	return NewWithData(ERR_DUPLICATE_RESERVATION, data, "%d %s coins already reserved", len(outpoints), currency)
}
