// Package packet implements the fixed-layout binary wire format exchanged between xbridge peers.
//
// Every packet starts with a 20 byte little endian header:
//
//	version u32 | command u32 | timestamp u64 | payload length u32
//
// followed by a command specific payload. Currencies are 8 byte ASCII fields padded with
// zeros, addresses are exactly 20 bytes and transaction ids are 32 raw bytes.
package packet

import (
	"bytes"
	"encoding/binary"
	"strings"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/errors"
)

const (
	// Version is the protocol version written by Encode. Packets carrying any other
	// version are decoded header-only and rejected by CheckVersion.
	Version uint32 = 0x0100

	HeaderSize   = 20
	AddressSize  = 20
	CurrencySize = 8

	outpointSize = chainhash.HashSize + 4
)

// Command identifies the payload layout of a packet.
type Command uint32

const (
	CommandInvalid Command = iota
	CommandPropose
	CommandAccept
	CommandCancel
	CommandRollback
	CommandStateReport
	CommandConfirm
)

func (c Command) String() string {
	switch c {
	case CommandPropose:
		return "Propose"
	case CommandAccept:
		return "Accept"
	case CommandCancel:
		return "Cancel"
	case CommandRollback:
		return "Rollback"
	case CommandStateReport:
		return "StateReport"
	case CommandConfirm:
		return "Confirm"
	default:
		return "Invalid"
	}
}

// Message is implemented by every command payload.
type Message interface {
	Command() Command
	encode(w *writer) error
	decode(r *reader)
}

// Packet is a decoded wire packet. Message is nil when the version does not match.
type Packet struct {
	Version   uint32
	Command   Command
	Timestamp uint64
	Message   Message
}

// Encode serializes msg with the current protocol version and a wall-clock timestamp in
// microseconds, so repeated reports of the same content hash differently.
func Encode(msg Message) ([]byte, error) {
	return EncodeAt(msg, Version, uint64(time.Now().UnixMicro()))
}

// EncodeAt serializes msg with an explicit version and timestamp.
func EncodeAt(msg Message, version uint32, timestamp uint64) ([]byte, error) {
	if msg == nil {
		return nil, errors.NewInvalidArgumentError("[Encode] nil message")
	}

	payload := &writer{}
	if err := msg.encode(payload); err != nil {
		return nil, err
	}

	raw := make([]byte, HeaderSize, HeaderSize+payload.buf.Len())
	binary.LittleEndian.PutUint32(raw[0:4], version)
	binary.LittleEndian.PutUint32(raw[4:8], uint32(msg.Command()))
	binary.LittleEndian.PutUint64(raw[8:16], timestamp)
	binary.LittleEndian.PutUint32(raw[16:20], uint32(payload.buf.Len()))

	return append(raw, payload.buf.Bytes()...), nil
}

// Decode parses a raw packet. The payload of a packet with a foreign version is not
// parsed; callers drop such packets after CheckVersion.
func Decode(raw []byte) (*Packet, error) {
	if len(raw) < HeaderSize {
		return nil, errors.NewDecodeError("[Decode] packet of %d bytes is shorter than the header", len(raw))
	}

	p := &Packet{
		Version:   binary.LittleEndian.Uint32(raw[0:4]),
		Command:   Command(binary.LittleEndian.Uint32(raw[4:8])),
		Timestamp: binary.LittleEndian.Uint64(raw[8:16]),
	}

	size := binary.LittleEndian.Uint32(raw[16:20])
	if uint64(size) != uint64(len(raw)-HeaderSize) {
		return nil, errors.NewDecodeError("[Decode] declared payload length %d, got %d bytes", size, len(raw)-HeaderSize)
	}

	if p.Version != Version {
		return p, nil
	}

	msg := newMessage(p.Command)
	if msg == nil {
		return nil, errors.NewDecodeError("[Decode] unknown command %d", uint32(p.Command))
	}

	r := &reader{b: raw[HeaderSize:]}
	msg.decode(r)

	if r.err != nil {
		return nil, errors.NewDecodeError("[Decode][%s] malformed payload", p.Command, r.err)
	}

	if r.remaining() != 0 {
		return nil, errors.NewDecodeError("[Decode][%s] %d trailing bytes", p.Command, r.remaining())
	}

	p.Message = msg

	return p, nil
}

// CheckVersion reports whether the packet was produced by a compatible peer.
func CheckVersion(p *Packet) bool {
	return p != nil && p.Version == Version && p.Message != nil
}

// CurrencyField packs a currency code into its fixed width wire form. The field is NUL
// padded, so codes containing NUL are rejected.
func CurrencyField(code string) ([CurrencySize]byte, error) {
	var field [CurrencySize]byte

	if len(code) > CurrencySize {
		return field, errors.NewInvalidCurrencyError("currency %q is longer than %d bytes", code, CurrencySize)
	}

	if strings.IndexByte(code, 0) >= 0 {
		return field, errors.NewInvalidCurrencyError("currency %q contains NUL", code)
	}

	copy(field[:], code)

	return field, nil
}

// ParseCurrency returns the currency code held in a wire field.
func ParseCurrency(field []byte) string {
	return string(bytes.TrimRight(field, "\x00"))
}

// CheckAddress verifies that addr is a network address of the wire width.
func CheckAddress(addr []byte) error {
	if len(addr) != AddressSize {
		return errors.NewBadAddressError("address must be %d bytes, got %d", AddressSize, len(addr))
	}

	return nil
}

func newMessage(c Command) Message {
	switch c {
	case CommandPropose:
		return &Propose{}
	case CommandAccept:
		return &Accept{}
	case CommandCancel:
		return &Cancel{}
	case CommandRollback:
		return &Rollback{}
	case CommandStateReport:
		return &StateReport{}
	case CommandConfirm:
		return &Confirm{}
	default:
		return nil
	}
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) uint32(v uint32) {
	var b [4]byte

	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) uint64(v uint64) {
	var b [8]byte

	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) hash(h chainhash.Hash) {
	w.buf.Write(h[:])
}

func (w *writer) address(addr []byte) error {
	if err := CheckAddress(addr); err != nil {
		return err
	}

	w.buf.Write(addr)

	return nil
}

func (w *writer) currency(code string) error {
	field, err := CurrencyField(code)
	if err != nil {
		return err
	}

	w.buf.Write(field[:])

	return nil
}

func (w *writer) outpoints(list []Outpoint) {
	w.uint32(uint32(len(list)))

	for _, o := range list {
		w.hash(o.TxID)
		w.uint32(o.Vout)
	}
}

// reader keeps the first error and returns zero values after it.
type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) remaining() int {
	return len(r.b) - r.off
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}

	if r.remaining() < n {
		r.err = errors.NewDecodeError("need %d bytes at offset %d, have %d", n, r.off, r.remaining())
		return nil
	}

	b := r.b[r.off : r.off+n]
	r.off += n

	return b
}

func (r *reader) uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint32(b)
}

func (r *reader) uint64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint64(b)
}

func (r *reader) hash() chainhash.Hash {
	var h chainhash.Hash

	if b := r.next(chainhash.HashSize); b != nil {
		copy(h[:], b)
	}

	return h
}

func (r *reader) address() []byte {
	b := r.next(AddressSize)
	if b == nil {
		return nil
	}

	addr := make([]byte, AddressSize)
	copy(addr, b)

	return addr
}

func (r *reader) currency() string {
	b := r.next(CurrencySize)
	if b == nil {
		return ""
	}

	return ParseCurrency(b)
}

func (r *reader) outpoints() []Outpoint {
	n := r.uint32()
	if r.err != nil {
		return nil
	}

	if uint64(n)*outpointSize > uint64(r.remaining()) {
		r.err = errors.NewDecodeError("outpoint count %d exceeds payload", n)
		return nil
	}

	list := make([]Outpoint, 0, n)
	for i := uint32(0); i < n; i++ {
		list = append(list, Outpoint{TxID: r.hash(), Vout: r.uint32()})
	}

	return list
}
