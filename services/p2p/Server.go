package p2p

import (
	"context"
	"net/http"

	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/bsv-blockchain/xbridge/util/health"
)

// Server runs a P2PNode under the service manager and exposes it as the coordinator's
// transport.
type Server struct {
	logger   ulogger.Logger
	settings *settings.Settings
	node     *P2PNode
	minPeers int
}

func NewServer(logger ulogger.Logger, tSettings *settings.Settings) (*Server, error) {
	node, err := NewP2PNode(logger, tSettings.ClientName, tSettings.P2P)
	if err != nil {
		return nil, err
	}

	return &Server{
		logger:   logger,
		settings: tSettings,
		node:     node,
		minPeers: 1,
	}, nil
}

func (s *Server) Node() *P2PNode {
	return s.node
}

// SetReceiver must be called before Start.
func (s *Server) SetReceiver(r Receiver) {
	s.node.SetReceiver(r)
}

func (s *Server) Health(ctx context.Context, checkLiveness bool) (int, string, error) {
	if checkLiveness {
		return http.StatusOK, "OK", nil
	}

	checks := []health.Check{
		{Name: "Peers", Check: health.CheckMinimum("peers", s.minPeers, s.node.ConnectedPeers)},
	}

	return health.CheckAll(ctx, checkLiveness, checks)
}

func (s *Server) Init(_ context.Context) error {
	s.logger.Infof("[P2P] peer %s on topic %s", s.node.HostID(), s.settings.P2P.TopicName)
	return nil
}

// Start joins the topic and blocks until ctx is done.
func (s *Server) Start(ctx context.Context, readyCh chan<- struct{}) error {
	if err := s.node.Start(ctx); err != nil {
		return err
	}

	close(readyCh)

	<-ctx.Done()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.node.Stop(ctx)
}

func (s *Server) Broadcast(ctx context.Context, to []byte, payload []byte) error {
	return s.node.Broadcast(ctx, to, payload)
}
