package settings

import (
	"net/url"
	"time"
)

type Settings struct {
	ClientName string
	LogLevel   string
	XBridge    XBridgeSettings
	P2P        P2PSettings
	Wallets    []WalletSettings
}

type XBridgeSettings struct {
	Workers            int
	WorkerQueueSize    int
	TimerInterval      time.Duration
	KnownMessageTTL    time.Duration
	HubAddress         string
	NotificationBuffer int
	HTTPListenAddress  string
}

type P2PSettings struct {
	ListenIP           string
	Port               int
	TopicName          string
	StaticPeers        []string
	BootstrapAddresses []string
	DHTProtocolID      string
	PrivateKey         string
	SharedKey          string
	UsePrivateDHT      bool
	Advertise          bool
	PublishRate        float64
}

// WalletSettings configures one wallet connector. Keys are read with the currency
// code as prefix, for example BTC_rpc.
type WalletSettings struct {
	Currency      string
	Title         string
	Method        string
	RPCURL        *url.URL
	Addresses     []string
	AddressPrefix byte
	Coin          uint64
	Confirmations int
}
