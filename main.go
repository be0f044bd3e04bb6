package main

import (
	"fmt"
	"os"

	"github.com/bsv-blockchain/xbridge/cmd/keygen"
	cmdSettings "github.com/bsv-blockchain/xbridge/cmd/settings"
	"github.com/bsv-blockchain/xbridge/daemon"
	"github.com/bsv-blockchain/xbridge/settings"
	"github.com/bsv-blockchain/xbridge/ulogger"
	"github.com/ordishs/gocore"
	"github.com/urfave/cli/v2"
)

// Name used by build script for the binaries. (Please keep on single line)
const progname = "xbridge"

// Version & commit strings injected at build with -ldflags -X...
var version string
var commit string

func init() {
	gocore.SetInfo(progname, version, commit)
}

func main() {
	app := &cli.App{
		Name:           progname,
		Usage:          "peer-to-peer atomic swap coordinator",
		Version:        fmt.Sprintf("%s (%s)", version, commit),
		DefaultCommand: "start",
		Commands: []*cli.Command{
			{
				Name:   "start",
				Usage:  "Run the swap coordinator",
				Action: start,
			},
			{
				Name:  "keygen",
				Usage: "Print a new p2p private key",
				Action: func(c *cli.Context) error {
					return keygen.Run(c.App.Writer)
				},
			},
			{
				Name:  "settings",
				Usage: "Print the resolved settings",
				Action: func(c *cli.Context) error {
					cmdSettings.CmdSettings(c.App.Writer, version, commit, settings.NewSettings())
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func start(c *cli.Context) error {
	tSettings := settings.NewSettings()

	logger := ulogger.New(progname, ulogger.WithLevel(tSettings.LogLevel))

	stats := gocore.Config().Stats()
	logger.Infof("STATS\n%s\nVERSION\n-------\n%s (%s)\n\n", stats, version, commit)

	d := daemon.New(
		daemon.WithContext(c.Context),
		daemon.WithLoggerFactory(func(serviceName string) ulogger.Logger {
			return ulogger.New(serviceName, ulogger.WithLevel(tSettings.LogLevel))
		}),
	)

	return d.Start(logger, tSettings)
}
