package packet

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(b byte) []byte {
	return bytes.Repeat([]byte{b}, AddressSize)
}

func testHash(s string) chainhash.Hash {
	return chainhash.DoubleHashH([]byte(s))
}

func TestRoundTrip(t *testing.T) {
	utxos := []Outpoint{
		{TxID: testHash("coin-1"), Vout: 0},
		{TxID: testHash("coin-2"), Vout: 7},
	}

	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "propose",
			msg: &Propose{
				TxID:         testHash("swap"),
				From:         testAddress(0x01),
				FromCurrency: "BTC",
				FromAmount:   100_000,
				To:           testAddress(0x02),
				ToCurrency:   "LTC",
				ToAmount:     5_000_000,
				Utxos:        utxos,
			},
		},
		{
			name: "accept",
			msg: &Accept{
				Hub:          make([]byte, AddressSize),
				TxID:         testHash("swap"),
				From:         testAddress(0x03),
				FromCurrency: "LTC",
				FromAmount:   5_000_000,
				To:           testAddress(0x04),
				ToCurrency:   "BTC",
				ToAmount:     100_000,
				Utxos:        utxos[:1],
			},
		},
		{name: "cancel", msg: &Cancel{TxID: testHash("swap"), Reason: 2}},
		{name: "rollback", msg: &Rollback{TxID: testHash("swap")}},
		{name: "state report", msg: &StateReport{TxID: testHash("swap"), From: testAddress(0x05), State: 3}},
		{name: "confirm", msg: &Confirm{TxID: testHash("swap"), From: testAddress(0x06), ChainTxID: testHash("chain")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeAt(tt.msg, Version, 1700000000)
			require.NoError(t, err)

			p, err := Decode(raw)
			require.NoError(t, err)

			assert.True(t, CheckVersion(p))
			assert.Equal(t, tt.msg.Command(), p.Command)
			assert.Equal(t, uint64(1700000000), p.Timestamp)
			assert.Equal(t, tt.msg, p.Message)
			assert.Equal(t, TxIDOf(tt.msg), TxIDOf(p.Message))
		})
	}
}

func TestEncodeLayout(t *testing.T) {
	t.Run("header", func(t *testing.T) {
		raw, err := EncodeAt(&Cancel{TxID: testHash("swap"), Reason: 9}, Version, 42)
		require.NoError(t, err)
		require.Len(t, raw, HeaderSize+chainhash.HashSize+4)

		assert.Equal(t, Version, binary.LittleEndian.Uint32(raw[0:4]))
		assert.Equal(t, uint32(CommandCancel), binary.LittleEndian.Uint32(raw[4:8]))
		assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(raw[8:16]))
		assert.Equal(t, uint32(chainhash.HashSize+4), binary.LittleEndian.Uint32(raw[16:20]))
		assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(raw[HeaderSize+chainhash.HashSize:]))
	})

	t.Run("currency is zero padded", func(t *testing.T) {
		msg := &Propose{
			TxID:         testHash("swap"),
			From:         testAddress(0x01),
			FromCurrency: "BTC",
			FromAmount:   1,
			To:           testAddress(0x02),
			ToCurrency:   "DOGECOIN",
			ToAmount:     2,
		}

		raw, err := Encode(msg)
		require.NoError(t, err)

		off := HeaderSize + chainhash.HashSize + AddressSize
		assert.Equal(t, []byte{'B', 'T', 'C', 0, 0, 0, 0, 0}, raw[off:off+CurrencySize])

		off += CurrencySize + 8 + AddressSize
		assert.Equal(t, []byte("DOGECOIN"), raw[off:off+CurrencySize])

		// empty outpoint list is a zero count
		assert.Equal(t, []byte{0, 0, 0, 0}, raw[len(raw)-4:])
	})
}

func TestEncodeErrors(t *testing.T) {
	t.Run("currency longer than 8 bytes", func(t *testing.T) {
		_, err := Encode(&Propose{
			From:         testAddress(0x01),
			FromCurrency: "TOOLONGCUR",
			To:           testAddress(0x02),
			ToCurrency:   "BTC",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidCurrency))
	})

	t.Run("short address", func(t *testing.T) {
		_, err := Encode(&StateReport{From: make([]byte, 19)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBadAddress))
	})

	t.Run("long hub address", func(t *testing.T) {
		_, err := Encode(&Accept{Hub: make([]byte, 21), From: testAddress(1), To: testAddress(2)})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBadAddress))
	})

	t.Run("nil message", func(t *testing.T) {
		_, err := Encode(nil)
		require.Error(t, err)
	})
}

func TestDecodeErrors(t *testing.T) {
	valid, err := EncodeAt(&Propose{
		TxID:         testHash("swap"),
		From:         testAddress(0x01),
		FromCurrency: "BTC",
		FromAmount:   10,
		To:           testAddress(0x02),
		ToCurrency:   "LTC",
		ToAmount:     20,
		Utxos:        []Outpoint{{TxID: testHash("coin"), Vout: 1}},
	}, Version, 1)
	require.NoError(t, err)

	withLength := func(raw []byte, n uint32) []byte {
		out := append([]byte(nil), raw...)
		binary.LittleEndian.PutUint32(out[16:20], n)

		return out
	}

	unknown := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(unknown[4:8], 99)

	// declared count of 2 with room for one outpoint, length kept consistent
	badCount := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badCount[len(badCount)-outpointSize-4:], 2)

	trailing := append(append([]byte(nil), valid...), 0xff)
	trailing = withLength(trailing, uint32(len(trailing)-HeaderSize))

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "empty", raw: nil},
		{name: "short header", raw: valid[:HeaderSize-1]},
		{name: "length larger than payload", raw: withLength(valid, uint32(len(valid)))},
		{name: "length smaller than payload", raw: withLength(valid, 3)},
		{name: "truncated payload", raw: withLength(valid[:len(valid)-2], uint32(len(valid)-2-HeaderSize))},
		{name: "unknown command", raw: unknown},
		{name: "outpoint count exceeds payload", raw: badCount},
		{name: "trailing bytes", raw: trailing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode(tt.raw)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, errors.ErrDecode))
		})
	}
}

func TestVersionMismatch(t *testing.T) {
	raw, err := EncodeAt(&Rollback{TxID: testHash("swap")}, Version+1, 1)
	require.NoError(t, err)

	p, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, Version+1, p.Version)
	assert.Equal(t, CommandRollback, p.Command)
	assert.Nil(t, p.Message)
	assert.False(t, CheckVersion(p))
	assert.False(t, CheckVersion(nil))
}

func TestCurrencyField(t *testing.T) {
	field, err := CurrencyField("BSV")
	require.NoError(t, err)
	assert.Equal(t, "BSV", ParseCurrency(field[:]))

	_, err = CurrencyField("123456789")
	require.Error(t, err)

	t.Run("NUL is rejected", func(t *testing.T) {
		for _, code := range []string{"AB\x00", "\x00BC", "A\x00C"} {
			_, err := CurrencyField(code)
			require.Error(t, err, "%q", code)
			assert.True(t, errors.Is(err, errors.ErrInvalidCurrency))
		}

		_, err := Encode(&Propose{FromCurrency: "AB\x00", ToCurrency: "LTC", From: make([]byte, AddressSize), To: make([]byte, AddressSize)})
		require.Error(t, err)
	})

	assert.Equal(t, "Propose", CommandPropose.String())
	assert.Equal(t, "Invalid", Command(77).String())
}
