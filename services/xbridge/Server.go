// Package xbridge coordinates peer-to-peer atomic swaps. It owns the swap records,
// reserves the coins pledged to them, exchanges protocol packets with the network
// and runs the periodic maintenance that finishes, expires and resends swaps.
package xbridge

import (
	"context"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/services/xbridge/packet"
	"github.com/bsv-blockchain/xbridge/services/xbridge/router"
	"github.com/bsv-blockchain/xbridge/services/xbridge/wallet"
	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/stores/reservation"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/bsv-blockchain/xbridge/util/health"
	"github.com/labstack/echo/v4"
	"github.com/ordishs/gocore"
)

// Option configures a Server.
type Option func(*Server)

// WithNotifier adds a sink for swap state changes.
func WithNotifier(n Notifier) Option {
	return func(s *Server) {
		s.sinks = append(s.sinks, n)
	}
}

// WithClock replaces the wall clock used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// Server is the swap coordinator service.
type Server struct {
	logger    ulogger.Logger
	settings  *settings.Settings
	transport Transport
	stats     *gocore.Stat
	now       func() time.Time

	router        *router.Router
	reservations  *reservation.Table
	transactions  *transactionStore
	connectors    *connectorRegistry
	known         *knownMessages
	pending       *pendingQueue
	notifications *notifications
	sinks         []Notifier
	hubAddress    []byte
	e             *echo.Echo

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	initialized bool
}

// New creates the coordinator. connectors are registered by currency; the hub address
// is read from xbridge_hubAddress (hex, empty for broadcast).
func New(ctx context.Context, logger ulogger.Logger, tSettings *settings.Settings, transport Transport, connectors []wallet.Connector, opts ...Option) (*Server, error) {
	initPrometheusMetrics()

	if transport == nil {
		return nil, errors.NewInvalidArgumentError("[xbridge] transport is required")
	}

	hubAddress := make([]byte, packet.AddressSize)

	if tSettings.XBridge.HubAddress != "" {
		decoded, err := hex.DecodeString(tSettings.XBridge.HubAddress)
		if err != nil {
			return nil, errors.NewConfigurationError("[xbridge] xbridge_hubAddress is not hex", err)
		}

		if err = packet.CheckAddress(decoded); err != nil {
			return nil, errors.NewConfigurationError("[xbridge] bad xbridge_hubAddress", err)
		}

		hubAddress = decoded
	}

	s := &Server{
		logger:       logger,
		settings:     tSettings,
		transport:    transport,
		stats:        gocore.NewStat("xbridge"),
		now:          time.Now,
		router:       router.New(logger),
		reservations: reservation.New(1024),
		transactions: newTransactionStore(),
		connectors:   newConnectorRegistry(),
		known:        newKnownMessages(tSettings.XBridge.KnownMessageTTL),
		pending:      newPendingQueue(),
		hubAddress:   hubAddress,
		ctx:          ctx,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.notifications = newNotifications(logger, tSettings.XBridge.NotificationBuffer, s.sinks)

	for _, c := range connectors {
		s.registerConnector(c, false)
	}

	s.e = s.newHTTP()

	return s, nil
}

// Health reports liveness unconditionally; readiness requires at least one wallet and
// running workers.
func (s *Server) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	checks := []health.Check{
		{Name: "Wallets", Check: health.CheckMinimum("wallets", 1, s.connectors.length)},
		{Name: "Workers", Check: health.CheckMinimum("workers", 1, s.router.PoolSize)},
	}

	if hc, ok := s.transport.(interface {
		Health(context.Context, bool) (int, string, error)
	}); ok {
		checks = append(checks, health.Check{Name: "Transport", Check: hc.Health})
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

// Init starts the worker sessions, the known-message expiry loop and the notification
// drain, and registers the wallet addresses with the router.
func (s *Server) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.router.StartSessions(s.ctx, s.settings.XBridge.Workers, s.settings.XBridge.WorkerQueueSize); err != nil {
		s.cancel()
		return errors.NewServiceError("[xbridge][Init] could not start sessions", err)
	}

	s.known.start()
	s.notifications.start(s.ctx)
	s.getAddressBook()

	s.initialized = true

	s.logger.Infof("[xbridge][Init] %d workers, wallets %v", s.router.PoolSize(), s.connectors.currencies())

	return nil
}

// Start serves the status HTTP endpoint and runs the maintenance timer until ctx is done.
func (s *Server) Start(ctx context.Context, readyCh chan<- struct{}) error {
	if addr := s.settings.XBridge.HTTPListenAddress; addr != "" {
		go func() {
			s.logger.Infof("[xbridge] HTTP listening on %s", addr)

			if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Errorf("[xbridge] HTTP server error: %v", err)
			}
		}()
	}

	close(readyCh)

	interval := s.settings.XBridge.TimerInterval
	if interval <= 0 {
		interval = time.Minute
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			s.onTimer()
			timer.Reset(interval)
		}
	}
}

// Stop shuts down the HTTP endpoint and waits for the workers to exit.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.e.Shutdown(ctx); err != nil {
		s.logger.Warnf("[xbridge][Stop] HTTP shutdown: %v", err)
	}

	s.mu.Lock()
	initialized := s.initialized
	s.initialized = false
	s.mu.Unlock()

	if !initialized {
		return nil
	}

	s.cancel()
	s.known.stop()
	s.router.Wait()
	s.notifications.wait()

	return nil
}

func (s *Server) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ctx
}
