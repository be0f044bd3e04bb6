package p2p

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBus(t *testing.T) {
	bus := NewMemoryBus()

	a, b, c := bus.Join(), bus.Join(), bus.Join()

	recvA, recvB, recvC := &capture{}, &capture{}, &capture{}
	a.SetReceiver(recvA)
	b.SetReceiver(recvB)
	c.SetReceiver(recvC)

	ctx := context.Background()
	to := bytes.Repeat([]byte{0x09}, 20)

	require.NoError(t, a.Broadcast(ctx, nil, []byte("hello")))
	require.NoError(t, a.Broadcast(ctx, to, []byte("direct")))

	for _, r := range []*capture{recvB, recvC} {
		direct, broadcasts := r.counts()
		assert.Equal(t, 1, direct)
		assert.Equal(t, 1, broadcasts)
		assert.Equal(t, to, r.addresses[0])
		assert.Equal(t, []byte("direct"), r.direct[0])
		assert.Equal(t, []byte("hello"), r.broadcasts[0])
	}

	direct, broadcasts := recvA.counts()
	assert.Equal(t, 0, direct+broadcasts)
	assert.Equal(t, 2, a.Sent())

	t.Run("closed endpoint", func(t *testing.T) {
		c.Close()

		require.NoError(t, b.Broadcast(ctx, nil, []byte("again")))
		_, broadcasts := recvC.counts()
		assert.Equal(t, 1, broadcasts)

		require.Error(t, c.Broadcast(ctx, nil, []byte("x")))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		require.Error(t, a.Broadcast(cctx, nil, []byte("x")))
	})
}
