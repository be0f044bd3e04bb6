package xbridge

import (
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/util"
)

// pendingPacket is a decoded packet that could not be handled yet, either because its
// swap was unknown or because no worker had room for it.
type pendingPacket struct {
	addr     []byte
	packet   *packet.Packet
	received time.Time
}

// pendingQueue keeps the most recent deferred packet per swap id.
type pendingQueue struct {
	m *util.SyncedSwissMap[chainhash.Hash, pendingPacket]
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{
		m: util.NewSyncedSwissMap[chainhash.Hash, pendingPacket](256),
	}
}

func (q *pendingQueue) add(id chainhash.Hash, p pendingPacket) {
	q.m.Set(id, p)

	prometheusPendingDeferred.Inc()
	prometheusPendingPackets.Set(float64(q.m.Length()))
}

func (q *pendingQueue) get(id chainhash.Hash) (pendingPacket, bool) {
	return q.m.Get(id)
}

func (q *pendingQueue) remove(id chainhash.Hash) {
	if q.m.Delete(id) {
		prometheusPendingPackets.Set(float64(q.m.Length()))
	}
}

// drain empties the queue and returns its packets.
func (q *pendingQueue) drain() map[chainhash.Hash]pendingPacket {
	items := q.m.Drain()

	prometheusPendingPackets.Set(float64(q.m.Length()))

	return items
}

func (q *pendingQueue) len() int {
	return q.m.Length()
}
