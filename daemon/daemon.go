// Package daemon wires the wallet connectors, the p2p transport and the swap coordinator
// into one process under a service manager.
package daemon

import (
	"context"

	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/services/p2p"
	"github.com/bsv-blockchain/xbridge/services/xbridge"
	"github.com/bsv-blockchain/xbridge/services/xbridge/wallet"
	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/bsv-blockchain/xbridge/util/servicemanager"
)

// Transport is a packet transport that delivers received packets to a p2p.Receiver.
type Transport interface {
	xbridge.Transport
	SetReceiver(r p2p.Receiver)
}

// Option is a functional option type for configuring the Daemon.
type Option func(*Daemon)

// WithLoggerFactory provides a custom logger factory for the Daemon and its services.
func WithLoggerFactory(factory func(serviceName string) ulogger.Logger) Option {
	return func(d *Daemon) {
		d.loggerFactory = factory
	}
}

func WithContext(ctx context.Context) Option {
	return func(d *Daemon) {
		d.Ctx = ctx
	}
}

// WithTransport replaces the libp2p node, for example with an in-process bus.
func WithTransport(t Transport) Option {
	return func(d *Daemon) {
		d.transport = t
	}
}

// WithConnectors replaces the wallets built from settings.
func WithConnectors(connectors ...wallet.Connector) Option {
	return func(d *Daemon) {
		d.connectors = connectors
	}
}

// WithNotifier adds a sink for swap state changes.
func WithNotifier(n xbridge.Notifier) Option {
	return func(d *Daemon) {
		d.notifiers = append(d.notifiers, n)
	}
}

type Daemon struct {
	Ctx            context.Context
	ServiceManager *servicemanager.ServiceManager
	XBridge        *xbridge.Server

	loggerFactory func(serviceName string) ulogger.Logger
	transport     Transport
	connectors    []wallet.Connector
	notifiers     []xbridge.Notifier
}

func New(opts ...Option) *Daemon {
	d := &Daemon{
		Ctx: context.Background(),
		loggerFactory: func(serviceName string) ulogger.Logger {
			return ulogger.New(serviceName)
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	d.ServiceManager = servicemanager.NewServiceManager(d.Ctx, d.loggerFactory("ServiceManager"))

	return d
}

// Start registers the services and blocks until they have all stopped. readyCh, when
// given, is closed once every service is ready.
func (d *Daemon) Start(logger ulogger.Logger, tSettings *settings.Settings, readyCh ...chan struct{}) error {
	sm := d.ServiceManager

	if err := d.startServices(logger, tSettings); err != nil {
		logger.Errorf("error starting services: %v", err)
		sm.ForceShutdown()

		_ = sm.Wait()

		return err
	}

	if len(readyCh) > 0 {
		go func() {
			sm.WaitForServiceToBeReady()
			close(readyCh[0])
		}()
	}

	return sm.Wait()
}

func (d *Daemon) startServices(logger ulogger.Logger, tSettings *settings.Settings) error {
	sm := d.ServiceManager

	connectors := d.connectors
	if connectors == nil {
		var err error

		connectors, err = wallet.NewConnectors(d.loggerFactory("wallet"), tSettings.Wallets)
		if err != nil {
			return err
		}
	}

	if len(connectors) == 0 {
		logger.Warnf("no wallets configured, the node can relay but not trade")
	}

	transport := d.transport
	if transport == nil {
		p2pServer, err := p2p.NewServer(d.loggerFactory("p2p"), tSettings)
		if err != nil {
			return errors.NewServiceError("could not create p2p node", err)
		}

		if err = sm.AddService("P2P", p2pServer); err != nil {
			return err
		}

		transport = p2pServer
	}

	opts := make([]xbridge.Option, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		opts = append(opts, xbridge.WithNotifier(n))
	}

	server, err := xbridge.New(sm.Ctx, d.loggerFactory("xbridge"), tSettings, transport, connectors, opts...)
	if err != nil {
		return err
	}

	transport.SetReceiver(server)

	d.XBridge = server

	return sm.AddService("XBridge", server)
}
