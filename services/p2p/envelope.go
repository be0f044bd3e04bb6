package p2p

import (
	"encoding/binary"

	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
)

// EnvelopeHeaderSize is the destination address and send timestamp that prefix every
// packet on the topic.
const EnvelopeHeaderSize = packet.AddressSize + 8

// WrapEnvelope prefixes payload with its destination and timestamp. An empty
// destination is a broadcast.
func WrapEnvelope(to []byte, timestamp uint64, payload []byte) ([]byte, error) {
	if len(to) != 0 && len(to) != packet.AddressSize {
		return nil, errors.NewBadAddressError("[WrapEnvelope] destination must be %d bytes, got %d", packet.AddressSize, len(to))
	}

	msg := make([]byte, EnvelopeHeaderSize, EnvelopeHeaderSize+len(payload))
	copy(msg, to)
	binary.LittleEndian.PutUint64(msg[packet.AddressSize:EnvelopeHeaderSize], timestamp)

	return append(msg, payload...), nil
}

// SplitEnvelope is the inverse of WrapEnvelope.
func SplitEnvelope(msg []byte) (to []byte, timestamp uint64, payload []byte, err error) {
	if len(msg) < EnvelopeHeaderSize {
		return nil, 0, nil, errors.NewDecodeError("[SplitEnvelope] message of %d bytes is shorter than the envelope", len(msg))
	}

	to = msg[:packet.AddressSize]
	timestamp = binary.LittleEndian.Uint64(msg[packet.AddressSize:EnvelopeHeaderSize])
	payload = msg[EnvelopeHeaderSize:]

	return to, timestamp, payload, nil
}

// IsBroadcast reports whether to addresses every node.
func IsBroadcast(to []byte) bool {
	for _, b := range to {
		if b != 0 {
			return false
		}
	}

	return true
}
