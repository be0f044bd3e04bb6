package xbridge

import (
	"sync"
	"time"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/jellydator/ttlcache/v3"
)

// knownMessages remembers the hash of every packet sent or received. With a zero ttl
// entries are kept for the life of the process.
type knownMessages struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[chainhash.Hash, struct{}]
}

func newKnownMessages(ttl time.Duration) *knownMessages {
	return &knownMessages{
		cache: ttlcache.New[chainhash.Hash, struct{}](
			ttlcache.WithTTL[chainhash.Hash, struct{}](ttl),
			ttlcache.WithDisableTouchOnHit[chainhash.Hash, struct{}](),
		),
	}
}

// add records raw and reports whether it was new.
func (k *knownMessages) add(raw []byte) bool {
	hash := chainhash.DoubleHashH(raw)

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cache.Has(hash) {
		return false
	}

	k.cache.Set(hash, struct{}{}, ttlcache.DefaultTTL)

	return true
}

func (k *knownMessages) has(raw []byte) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.cache.Has(chainhash.DoubleHashH(raw))
}

func (k *knownMessages) len() int {
	return k.cache.Len()
}

// start runs the expiry loop until stop is called.
func (k *knownMessages) start() {
	go k.cache.Start()
}

func (k *knownMessages) stop() {
	k.cache.Stop()
}
