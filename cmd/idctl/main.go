package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/identity-contracts/internal/config"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// env is shared by all commands.
type env struct {
	cfg config.Config
	log *zap.Logger
}

var (
	accountFlag = cli.StringFlag{
		Name:     "account, a",
		Usage:    "Account key, i.e. account identifier without contract suffix",
		Required: true,
	}
	blobFlag = cli.StringSliceFlag{
		Name:  "blob",
		Usage: "Other blob of the transaction as '<contract>:<hex data>', repeatable",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	var e env

	app := cli.NewApp()
	app.Name = "idctl"
	app.Usage = "Execute identity contracts against the local snapshot ledger"
	app.Version = common.VersionString()
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "Path to YAML configuration file, $" + config.EnvPath + " by default",
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "Enable debug logs",
		},
	}
	app.Before = func(c *cli.Context) error {
		var err error

		e.cfg, err = config.Load(c.GlobalString("config"))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		e.log, err = newLogger(c.GlobalBool("debug"))
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	}
	app.After = func(*cli.Context) error {
		if e.log != nil {
			_ = e.log.Sync()
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:   "init",
			Usage:  "Write empty state of the configured contract",
			Action: e.initCmd,
		},
		{
			Name:   "show",
			Usage:  "Print latest state of the configured contract",
			Action: e.showCmd,
		},
		{
			Name:   "info",
			Usage:  "Print record of the account from the latest state",
			Flags:  []cli.Flag{accountFlag},
			Action: e.infoCmd,
		},
		ecdsaCommand(&e),
		oidcCommand(&e),
		webAuthnCommand(&e),
	}

	return app
}

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func (x *env) initCmd(*cli.Context) error {
	return initLedger(x.cfg, x.log)
}

func (x *env) showCmd(c *cli.Context) error {
	l, err := openLedger(x.cfg, x.log)
	if err != nil {
		return err
	}

	w := c.App.Writer

	fmt.Fprintf(w, "contract: %s (%s)\n", l.contract, l.scheme)
	fmt.Fprintf(w, "height: %d\n", l.height)
	fmt.Fprintf(w, "state: %s\n", commitment(l.state))
	fmt.Fprintf(w, "accounts: %d\n", l.state.Len())

	l.state.Iterate(func(key string, rec common.AccountRecord) {
		fmt.Fprintf(w, "  %s: hash=%s nonce=%d\n", common.AccountID(key, l.contract), rec.Hash, rec.Nonce)
	})

	return nil
}

func (x *env) infoCmd(c *cli.Context) error {
	l, err := openLedger(x.cfg, x.log)
	if err != nil {
		return err
	}

	info, err := common.IdentityInfo(l.state, c.String("account"))
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, info)

	return nil
}

// submit executes action of the account and reports the outcome.
func (x *env) submit(c *cli.Context, l *localLedger, ctr contract, account string, data, privateInput []byte, others []common.Blob) error {
	res, err := l.submit(ctr, common.AccountID(account, l.contract), data, privateInput, others)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, res.Output)

	if !res.Success {
		return cli.NewExitError("", 2)
	}

	return nil
}

func decodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return b, nil
}
