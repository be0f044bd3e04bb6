package p2p

import (
	"context"
	"sync"
	"time"

	"github.com/bsv-blockchain/xbridge/errors"
)

// MemoryBus connects nodes living in one process. Delivery is synchronous and never
// reaches the sending endpoint.
type MemoryBus struct {
	mu        sync.RWMutex
	endpoints []*MemoryEndpoint
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Join adds an endpoint to the bus. Its receiver is set with SetReceiver.
func (b *MemoryBus) Join() *MemoryEndpoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := &MemoryEndpoint{bus: b}
	b.endpoints = append(b.endpoints, e)

	return e
}

func (b *MemoryBus) peers(from *MemoryEndpoint) []*MemoryEndpoint {
	b.mu.RLock()
	defer b.mu.RUnlock()

	peers := make([]*MemoryEndpoint, 0, len(b.endpoints))

	for _, e := range b.endpoints {
		if e != from {
			peers = append(peers, e)
		}
	}

	return peers
}

type MemoryEndpoint struct {
	bus *MemoryBus

	mu       sync.RWMutex
	receiver Receiver
	closed   bool
	sent     int
}

func (e *MemoryEndpoint) SetReceiver(r Receiver) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.receiver = r
}

// Close detaches the endpoint: it neither sends nor receives afterwards.
func (e *MemoryEndpoint) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
}

// Sent returns the number of messages this endpoint has published.
func (e *MemoryEndpoint) Sent() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.sent
}

func (e *MemoryEndpoint) Broadcast(ctx context.Context, to []byte, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.NewContextCanceledError("[MemoryEndpoint][Broadcast] context done", err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errors.NewNetworkError("[MemoryEndpoint][Broadcast] endpoint closed")
	}
	e.sent++
	e.mu.Unlock()

	msg, err := WrapEnvelope(to, uint64(time.Now().Unix()), payload)
	if err != nil {
		return err
	}

	for _, peer := range e.bus.peers(e) {
		peer.deliver(msg)
	}

	return nil
}

func (e *MemoryEndpoint) deliver(msg []byte) {
	e.mu.RLock()
	receiver, closed := e.receiver, e.closed
	e.mu.RUnlock()

	if closed || receiver == nil {
		return
	}

	to, _, payload, err := SplitEnvelope(msg)
	if err != nil {
		return
	}

	// receivers may keep the slice
	payload = append([]byte(nil), payload...)

	if IsBroadcast(to) {
		receiver.OnBroadcastReceived(payload)
		return
	}

	receiver.OnPacketReceived(append([]byte(nil), to...), payload)
}
