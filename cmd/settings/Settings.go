// Package settings prints the resolved configuration of a node.
package settings

import (
	"fmt"
	"io"

	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/ordishs/gocore"
)

func CmdSettings(w io.Writer, version string, commit string, tSettings *settings.Settings) {
	stats := gocore.Config().Stats()
	_, _ = fmt.Fprintf(w, "STATS\n%s\nVERSION\n-------\n%s (%s)\n\n", stats, version, commit)

	_, _ = fmt.Fprintf(w, "WALLETS\n-------\n")

	for _, wallet := range tSettings.Wallets {
		host := ""
		if wallet.RPCURL != nil {
			host = wallet.RPCURL.Host
		}

		_, _ = fmt.Fprintf(w, "%-8s %-4s %s, %d addresses, %d confirmations\n", wallet.Currency, wallet.Method, host, len(wallet.Addresses), wallet.Confirmations)
	}
}
