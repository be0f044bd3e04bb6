package xbridge

import (
	"context"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/bsv-blockchain/xbridge/model"
	"github.com/bsv-blockchain/xbridge/ulogger"
)

type notification struct {
	id    chainhash.Hash
	state model.State
}

// notifications decouples state observers from the record lock: records push onto a
// buffered channel and one goroutine calls the sinks.
type notifications struct {
	logger ulogger.Logger
	ch     chan notification
	sinks  []Notifier
	done   chan struct{}
}

func newNotifications(logger ulogger.Logger, buffer int, sinks []Notifier) *notifications {
	if buffer <= 0 {
		buffer = 1
	}

	return &notifications{
		logger: logger,
		ch:     make(chan notification, buffer),
		sinks:  sinks,
		done:   make(chan struct{}),
	}
}

// push never blocks. It is called with the record lock held.
func (n *notifications) push(id chainhash.Hash, state model.State) {
	select {
	case n.ch <- notification{id: id, state: state}:
	default:
		prometheusNotificationsDropped.Inc()
		n.logger.Warnf("[Notifications] buffer full, dropping %s for %s", state, id)
	}
}

// start drains the channel until ctx is done.
func (n *notifications) start(ctx context.Context) {
	go func() {
		defer close(n.done)

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-n.ch:
				n.logger.Debugf("[Notifications] %s entered %s", msg.id, msg.state)

				for _, sink := range n.sinks {
					sink(msg.id, msg.state)
				}
			}
		}
	}()
}

func (n *notifications) wait() {
	<-n.done
}
