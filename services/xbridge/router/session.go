package router

import (
	"context"
	"crypto/rand"
	"sync"

	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/ulogger"
)

// Task is a unit of work executed on a session goroutine.
type Task func()

// Worker executes tasks in the order they were posted.
type Worker interface {
	// Post queues task without blocking. It returns false when the queue is full.
	Post(task Task) bool
	// Address is the network address packets for this worker are sent to.
	Address() []byte
}

// Session is a Worker backed by one goroutine and a bounded queue.
type Session struct {
	logger  ulogger.Logger
	address []byte
	tasks   chan Task
	wg      sync.WaitGroup
}

// NewSession creates a session with a random address. Start must be called before
// posted tasks run.
func NewSession(logger ulogger.Logger, queueSize int) (*Session, error) {
	if queueSize <= 0 {
		return nil, errors.NewInvalidArgumentError("[NewSession] queue size must be positive, got %d", queueSize)
	}

	address := make([]byte, packet.AddressSize)
	if _, err := rand.Read(address); err != nil {
		return nil, errors.NewProcessingError("[NewSession] could not generate session address", err)
	}

	return &Session{
		logger:  logger,
		address: address,
		tasks:   make(chan Task, queueSize),
	}, nil
}

// Start runs queued tasks until ctx is done. Tasks still queued at that point are
// discarded.
func (s *Session) Start(ctx context.Context) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		for {
			select {
			case <-ctx.Done():
				return
			case task := <-s.tasks:
				s.run(task)
			}
		}
	}()
}

// Wait blocks until the session goroutine has exited.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("[Session][%x] task panicked: %v", s.address, r)
		}
	}()

	task()
}

func (s *Session) Post(task Task) bool {
	select {
	case s.tasks <- task:
		return true
	default:
		return false
	}
}

func (s *Session) Address() []byte {
	return s.address
}

// Pending returns the number of queued tasks.
func (s *Session) Pending() int {
	return len(s.tasks)
}
