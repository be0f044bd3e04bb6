// Package router maps peer addresses and currencies to the workers that handle them and
// keeps a round-robin pool of general purpose sessions.
package router

import (
	"context"
	"encoding/hex"
	"runtime"
	"sync"

	"github.com/bsv-blockchain/xbridge/ulogger"
)

type Router struct {
	logger     ulogger.Logger
	mu         sync.Mutex
	byAddress  map[string]Worker
	byCurrency map[string]Worker
	pool       []Worker
	sessions   []*Session
}

func New(logger ulogger.Logger) *Router {
	return &Router{
		logger:     logger,
		byAddress:  make(map[string]Worker),
		byCurrency: make(map[string]Worker),
	}
}

// StartSessions creates and starts n pool sessions (runtime.NumCPU() when n is 0) and
// registers the address of each one.
func (r *Router) StartSessions(ctx context.Context, n int, queueSize int) error {
	if n <= 0 {
		n = runtime.NumCPU()
	}

	for i := 0; i < n; i++ {
		s, err := NewSession(r.logger, queueSize)
		if err != nil {
			return err
		}

		s.Start(ctx)

		r.mu.Lock()
		r.sessions = append(r.sessions, s)
		r.byAddress[hex.EncodeToString(s.Address())] = s
		r.mu.Unlock()

		r.AddToPool(s)
	}

	r.logger.Infof("[Router] started %d sessions", n)

	return nil
}

// Wait blocks until every session started by StartSessions has exited.
func (r *Router) Wait() {
	r.mu.Lock()
	sessions := append([]*Session(nil), r.sessions...)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Wait()
	}
}

// AddWorker registers w for addresses and currencies. A later registration of the same
// address or currency replaces the earlier one; the number of replaced mappings is
// returned.
func (r *Router) AddWorker(w Worker, addresses [][]byte, currencies []string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	replaced := 0

	for _, addr := range addresses {
		key := hex.EncodeToString(addr)

		if existing, ok := r.byAddress[key]; ok && existing != w {
			replaced++
		}

		r.byAddress[key] = w
	}

	for _, currency := range currencies {
		if existing, ok := r.byCurrency[currency]; ok && existing != w {
			replaced++
		}

		r.byCurrency[currency] = w
	}

	if replaced > 0 {
		r.logger.Warnf("[Router][AddWorker] %d existing routes replaced", replaced)
	}

	return replaced
}

// AddToPool appends w to the round-robin pool.
func (r *Router) AddToPool(w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pool = append(r.pool, w)
}

// RouteByAddress returns the worker registered for addr, or nil.
func (r *Router) RouteByAddress(addr []byte) Worker {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.byAddress[hex.EncodeToString(addr)]
}

// RouteByCurrency returns the worker registered for currency, or nil.
func (r *Router) RouteByCurrency(currency string) Worker {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.byCurrency[currency]
}

// NextWorker takes the front of the pool, moves it to the back and returns it. It
// returns nil for an empty pool.
func (r *Router) NextWorker() Worker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pool) == 0 {
		return nil
	}

	w := r.pool[0]
	r.pool = append(r.pool[1:], w)

	return w
}

func (r *Router) PoolSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pool)
}
