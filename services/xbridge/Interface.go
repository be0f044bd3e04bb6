package xbridge

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/model"
)

// Transport publishes encoded packets to the swap network. An empty or all-zero to
// addresses every node.
type Transport interface {
	Broadcast(ctx context.Context, to []byte, payload []byte) error
}

// Notifier receives every state a swap enters, in order per swap.
type Notifier func(id chainhash.Hash, state model.State)
