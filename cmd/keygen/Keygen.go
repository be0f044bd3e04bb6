// Package keygen prints a fresh p2p identity for the p2p_private_key setting.
package keygen

import (
	"fmt"
	"io"

	"github.com/bsv-blockchain/xbridge/services/p2p"
)

// Run writes a new hex encoded Ed25519 private key and the peer id it announces.
func Run(w io.Writer) error {
	key, err := p2p.GeneratePrivateKey()
	if err != nil {
		return err
	}

	id, err := p2p.PeerIDFromPrivateKey(key)
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintf(w, "p2p_private_key=%s\n", key); err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "# peer id %s\n", id)

	return err
}
