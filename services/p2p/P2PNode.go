// Package p2p carries xbridge packets between nodes over a libp2p gossipsub topic.
package p2p

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bsv-blockchain/xbridge/errors"
	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/pnet"
	"github.com/libp2p/go-libp2p/core/protocol"
	dRouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	dUtil "github.com/libp2p/go-libp2p/p2p/discovery/util"
	"github.com/multiformats/go-multiaddr"
	"github.com/ordishs/gocore"
	"golang.org/x/time/rate"
)

const errorCreatingDhtMessage = "[P2PNode] error creating DHT"

// Receiver is handed every packet that arrives on the topic.
type Receiver interface {
	OnPacketReceived(addr []byte, raw []byte)
	OnBroadcastReceived(raw []byte)
}

type P2PNode struct {
	config    settings.P2PSettings
	name      string
	host      host.Host
	topic     atomic.Pointer[pubsub.Topic]
	logger    ulogger.Logger
	limiter   *rate.Limiter
	startTime time.Time

	receiverMu sync.RWMutex
	receiver   Receiver

	// The following variables must only be used atomically.
	bytesReceived uint64
	bytesSent     uint64
	lastRecv      int64
	lastSend      int64
}

func NewP2PNode(logger ulogger.Logger, name string, config settings.P2PSettings) (*P2PNode, error) {
	initPrometheusMetrics()

	logger.Infof("[P2PNode] Creating node")

	var (
		pk  *crypto.PrivKey
		err error
	)

	if config.PrivateKey == "" {
		privateKeyFilename := fmt.Sprintf("%s.%s.p2p.private_key", name, gocore.Config().GetContext())

		pk, err = readPrivateKey(privateKeyFilename)
		if err != nil {
			pk, err = generatePrivateKey(privateKeyFilename)
			if err != nil {
				return nil, errors.NewConfigurationError("[P2PNode] error generating private key", err)
			}
		}
	} else {
		pk, err = decodeHexEd25519PrivateKey(config.PrivateKey)
		if err != nil {
			return nil, errors.NewInvalidArgumentError("[P2PNode] error decoding private key", err)
		}
	}

	options := []libp2p.Option{
		libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/%s/tcp/%d", config.ListenIP, config.Port)),
		libp2p.Identity(*pk),
	}

	if config.SharedKey != "" {
		psk, err := decodeSharedKey(config.SharedKey)
		if err != nil {
			return nil, err
		}

		options = append(options, libp2p.PrivateNetwork(psk))
	}

	h, err := libp2p.New(options...)
	if err != nil {
		return nil, errors.NewServiceError("[P2PNode] error creating libp2p host", err)
	}

	logger.Infof("[P2PNode] peer ID: %s", h.ID().String())
	logger.Infof("[P2PNode] Connect to me on:")

	for _, addr := range h.Addrs() {
		logger.Infof("[P2PNode]   %s/p2p/%s", addr, h.ID().String())
	}

	limit := rate.Inf
	if config.PublishRate > 0 {
		limit = rate.Limit(config.PublishRate)
	}

	node := &P2PNode{
		config:    config,
		name:      name,
		logger:    logger,
		host:      h,
		limiter:   rate.NewLimiter(limit, 1),
		startTime: time.Now(),
	}

	h.Network().Notify(&network.NotifyBundle{
		ConnectedF: func(n network.Network, conn network.Conn) {
			node.logger.Debugf("[P2PNode] Peer connected: %s", conn.RemotePeer().String())
		},
		DisconnectedF: func(n network.Network, conn network.Conn) {
			node.logger.Debugf("[P2PNode] Peer disconnected: %s", conn.RemotePeer().String())
		},
	})

	return node, nil
}

func decodeSharedKey(sharedKey string) (pnet.PSK, error) {
	s := ""
	s += fmt.Sprintln("/key/swarm/psk/1.0.0/")
	s += fmt.Sprintln("/base16/")
	s += sharedKey

	psk, err := pnet.DecodeV1PSK(bytes.NewBuffer([]byte(s)))
	if err != nil {
		return nil, errors.NewInvalidArgumentError("[P2PNode] error decoding shared key", err)
	}

	return psk, nil
}

// SetReceiver installs the packet consumer. Packets that arrive before a receiver is set
// are dropped.
func (s *P2PNode) SetReceiver(r Receiver) {
	s.receiverMu.Lock()
	defer s.receiverMu.Unlock()

	s.receiver = r
}

func (s *P2PNode) getReceiver() Receiver {
	s.receiverMu.RLock()
	defer s.receiverMu.RUnlock()

	return s.receiver
}

// Start joins the xbridge topic, begins delivering received packets and connects to
// static and discovered peers.
func (s *P2PNode) Start(ctx context.Context) error {
	s.logger.Infof("[%s] starting", s.name)

	s.startStaticPeerConnector(ctx)

	if len(s.config.BootstrapAddresses) > 0 {
		go func() {
			if err := s.discoverPeers(ctx); err != nil {
				s.logger.Errorf("[P2PNode] error discovering peers: %+v", err)
			}
		}()
	}

	ps, err := pubsub.NewGossipSub(ctx, s.host,
		pubsub.WithMessageSignaturePolicy(pubsub.StrictSign))
	if err != nil {
		return errors.NewServiceError("[P2PNode] error creating gossipsub", err)
	}

	topic, err := ps.Join(s.config.TopicName)
	if err != nil {
		return errors.NewServiceError("[P2PNode] error joining topic %s", s.config.TopicName, err)
	}

	s.logger.Infof("[P2PNode] joined topic: %s", s.config.TopicName)

	sub, err := topic.Subscribe()
	if err != nil {
		return errors.NewServiceError("[P2PNode] error subscribing to topic %s", s.config.TopicName, err)
	}

	s.topic.Store(topic)

	go s.readLoop(ctx, sub)

	return nil
}

func (s *P2PNode) readLoop(ctx context.Context, sub *pubsub.Subscription) {
	defer sub.Cancel()

	for {
		m, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Infof("[P2PNode][readLoop] shutting down")
				return
			}

			s.logger.Errorf("[P2PNode][readLoop] error getting msg from %s topic: %v", s.config.TopicName, err)

			continue
		}

		if m.ReceivedFrom == s.host.ID() {
			continue
		}

		atomic.AddUint64(&s.bytesReceived, uint64(len(m.Data)))
		atomic.StoreInt64(&s.lastRecv, time.Now().Unix())
		prometheusBytesReceived.Add(float64(len(m.Data)))

		s.deliver(m.Data, m.ReceivedFrom.ShortString())
	}
}

func (s *P2PNode) deliver(data []byte, from string) {
	to, _, payload, err := SplitEnvelope(data)
	if err != nil {
		s.logger.Warnf("[P2PNode] dropping malformed envelope from %s: %v", from, err)
		return
	}

	receiver := s.getReceiver()
	if receiver == nil {
		return
	}

	if IsBroadcast(to) {
		receiver.OnBroadcastReceived(payload)
		return
	}

	receiver.OnPacketReceived(to, payload)
}

func (s *P2PNode) Stop(_ context.Context) error {
	s.logger.Infof("[P2PNode] stopping")

	if err := s.host.Close(); err != nil {
		return errors.NewServiceError("[P2PNode] error closing host", err)
	}

	return nil
}

// Broadcast publishes payload to the topic addressed to to. An empty or all-zero to
// reaches every node.
func (s *P2PNode) Broadcast(ctx context.Context, to []byte, payload []byte) error {
	topic := s.topic.Load()
	if topic == nil {
		return errors.NewServiceNotStartedError("[P2PNode][Broadcast] topic not joined")
	}

	msgBytes, err := WrapEnvelope(to, uint64(time.Now().Unix()), payload)
	if err != nil {
		return err
	}

	if err = s.limiter.Wait(ctx); err != nil {
		return errors.NewContextCanceledError("[P2PNode][Broadcast] rate limiter", err)
	}

	if err = topic.Publish(ctx, msgBytes); err != nil {
		return errors.NewNetworkError("[P2PNode][Broadcast] publish error", err)
	}

	s.logger.Debugf("[P2PNode][Broadcast] topic: %s - %d bytes to %x", s.config.TopicName, len(msgBytes), to)

	atomic.AddUint64(&s.bytesSent, uint64(len(msgBytes)))
	atomic.StoreInt64(&s.lastSend, time.Now().Unix())
	prometheusBytesSent.Add(float64(len(msgBytes)))

	return nil
}

func (s *P2PNode) HostID() peer.ID {
	return s.host.ID()
}

// Addrs returns the full p2p multiaddresses of this node.
func (s *P2PNode) Addrs() []string {
	addrs := make([]string, 0, len(s.host.Addrs()))

	for _, addr := range s.host.Addrs() {
		addrs = append(addrs, fmt.Sprintf("%s/p2p/%s", addr, s.host.ID()))
	}

	return addrs
}

func (s *P2PNode) startStaticPeerConnector(ctx context.Context) {
	if len(s.config.StaticPeers) == 0 {
		s.logger.Infof("[P2PNode] no static peers to connect to - skipping connection attempt")
		return
	}

	go func() {
		logged := false

		for {
			allConnected := s.connectToStaticPeers(ctx, s.config.StaticPeers)

			wait := 5 * time.Second

			if allConnected {
				if !logged {
					s.logger.Infof("[P2PNode] all static peers connected")
				}

				logged = true
				// it is possible that a peer disconnects, so we need to keep checking
				wait = 30 * time.Second
			} else {
				logged = false

				s.logger.Infof("[P2PNode] all static peers NOT connected")
			}

			select {
			case <-ctx.Done():
				s.logger.Infof("[P2PNode] static peer connector shutting down")
				return
			case <-time.After(wait):
			}
		}
	}()
}

func (s *P2PNode) connectToStaticPeers(ctx context.Context, staticPeers []string) bool {
	i := len(staticPeers)

	for _, peerAddr := range staticPeers {
		addr, err := multiaddr.NewMultiaddr(peerAddr)
		if err != nil {
			s.logger.Errorf("[P2PNode] invalid static peer address %s: %v", peerAddr, err)
			continue
		}

		peerInfo, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			s.logger.Errorf("[P2PNode] failed to get peerInfo from  %s: %v", peerAddr, err)
			continue
		}

		if s.host.Network().Connectedness(peerInfo.ID) == network.Connected {
			i--
			continue
		}

		err = s.host.Connect(ctx, *peerInfo)
		if err != nil {
			s.logger.Debugf("[P2PNode] failed to connect to static peer %s: %v", peerAddr, err)
		} else {
			i--

			s.logger.Infof("[P2PNode] connected to static peer: %s", peerAddr)
		}
	}

	return i == 0
}

func (s *P2PNode) discoverPeers(ctx context.Context) error {
	kademliaDHT, err := s.initPrivateDHT(ctx)
	if err != nil {
		return err
	}

	routingDiscovery := dRouting.NewRoutingDiscovery(kademliaDHT)

	if s.config.Advertise {
		s.logger.Infof("[P2PNode] advertising topic: %s", s.config.TopicName)
		dUtil.Advertise(ctx, routingDiscovery, s.config.TopicName)
	}

	for {
		addrChan, err := routingDiscovery.FindPeers(ctx, s.config.TopicName)
		if err != nil {
			s.logger.Errorf("[P2PNode] error finding peers: %+v", err)
		} else {
			for addr := range addrChan {
				if addr.ID == s.host.ID() || s.host.Network().Connectedness(addr.ID) == network.Connected {
					continue
				}

				go func(addr peer.AddrInfo) {
					if err := s.host.Connect(ctx, addr); err != nil {
						s.logger.Debugf("[P2PNode][%s] Connection failed : %+v", addr.String(), err)
					} else {
						s.logger.Infof("[P2PNode][%s] Connected in %s", addr.String(), time.Since(s.startTime))
					}
				}(addr)
			}
		}

		select {
		case <-ctx.Done():
			s.logger.Infof("[P2PNode] discovery shutting down")
			return nil
		case <-time.After(5 * time.Second):
		}
	}
}

func (s *P2PNode) initPrivateDHT(ctx context.Context) (*dht.IpfsDHT, error) {
	connectedToBootstrap := false

	for _, ba := range s.config.BootstrapAddresses {
		bootstrapAddr, err := multiaddr.NewMultiaddr(ba)
		if err != nil {
			s.logger.Warnf("[P2PNode] failed to create bootstrap multiaddress %s: %v", ba, err)
			continue
		}

		peerInfo, err := peer.AddrInfoFromP2pAddr(bootstrapAddr)
		if err != nil {
			s.logger.Warnf("[P2PNode] failed to get peerInfo from %s: %v", ba, err)
			continue
		}

		if err = s.host.Connect(ctx, *peerInfo); err != nil {
			s.logger.Warnf("[P2PNode] failed to connect to bootstrap address %s: %v", ba, err)
			continue
		}

		connectedToBootstrap = true

		s.logger.Infof("[P2PNode] successfully connected to bootstrap address %s", ba)
	}

	if !connectedToBootstrap {
		return nil, errors.NewServiceError("[P2PNode] failed to connect to any bootstrap addresses")
	}

	if s.config.DHTProtocolID == "" {
		return nil, errors.NewConfigurationError("[P2PNode] p2p_dht_protocol_id not set")
	}

	kademliaDHT, err := dht.New(ctx, s.host,
		dht.ProtocolPrefix(protocol.ID(s.config.DHTProtocolID)),
		dht.Mode(dht.ModeAuto),
	)
	if err != nil {
		return nil, errors.NewServiceError(errorCreatingDhtMessage, err)
	}

	if err = kademliaDHT.Bootstrap(ctx); err != nil {
		return nil, errors.NewServiceError("[P2PNode] error bootstrapping DHT", err)
	}

	return kademliaDHT, nil
}

// GeneratePrivateKey returns a new hex encoded Ed25519 private key for p2p_private_key.
func GeneratePrivateKey() (string, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return "", errors.NewProcessingError("[P2PNode] error generating key", err)
	}

	raw, err := priv.Raw()
	if err != nil {
		return "", errors.NewProcessingError("[P2PNode] error encoding key", err)
	}

	return hex.EncodeToString(raw), nil
}

// PeerIDFromPrivateKey returns the peer id a node using the hex encoded key announces.
func PeerIDFromPrivateKey(hexEncodedPrivateKey string) (peer.ID, error) {
	pk, err := decodeHexEd25519PrivateKey(hexEncodedPrivateKey)
	if err != nil {
		return "", errors.NewInvalidArgumentError("[P2PNode] error decoding private key", err)
	}

	return peer.IDFromPrivateKey(*pk)
}

func generatePrivateKey(privateKeyFilename string) (*crypto.PrivKey, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, err
	}

	privBytes, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, err
	}

	if err = os.WriteFile(privateKeyFilename, privBytes, 0600); err != nil {
		return nil, err
	}

	return &priv, nil
}

func readPrivateKey(privateKeyFilename string) (*crypto.PrivKey, error) {
	privBytes, err := os.ReadFile(privateKeyFilename)
	if err != nil {
		return nil, err
	}

	priv, err := crypto.UnmarshalPrivateKey(privBytes)
	if err != nil {
		return nil, err
	}

	return &priv, nil
}

func decodeHexEd25519PrivateKey(hexEncodedPrivateKey string) (*crypto.PrivKey, error) {
	privKeyBytes, err := hex.DecodeString(hexEncodedPrivateKey)
	if err != nil {
		return nil, err
	}

	privKey, err := crypto.UnmarshalEd25519PrivateKey(privKeyBytes)
	if err != nil {
		return nil, err
	}

	return &privKey, nil
}

// LastSend returns the last send time of the node.
//
// This function is safe for concurrent access.
func (s *P2PNode) LastSend() time.Time {
	return time.Unix(atomic.LoadInt64(&s.lastSend), 0)
}

// LastRecv returns the last receive time of the node.
//
// This function is safe for concurrent access.
func (s *P2PNode) LastRecv() time.Time {
	return time.Unix(atomic.LoadInt64(&s.lastRecv), 0)
}

// BytesSent returns the total number of bytes published by the node.
//
// This function is safe for concurrent access.
func (s *P2PNode) BytesSent() uint64 {
	return atomic.LoadUint64(&s.bytesSent)
}

// BytesReceived returns the total number of bytes received by the node.
//
// This function is safe for concurrent access.
func (s *P2PNode) BytesReceived() uint64 {
	return atomic.LoadUint64(&s.bytesReceived)
}

// ConnectedPeers returns the number of peers with an open connection.
func (s *P2PNode) ConnectedPeers() int {
	return len(s.host.Network().Peers())
}
