package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/identity-contracts/internal/config"
	"github.com/nspcc-dev/identity-contracts/oidcid"
	"github.com/urfave/cli"
)

var oidcFlags = []cli.Flag{
	accountFlag,
	cli.StringFlag{
		Name:     "provider",
		Usage:    "Name of the configured identity provider",
		Required: true,
	},
	cli.StringFlag{
		Name:     "token-file",
		Usage:    "File with ID token issued by the provider",
		Required: true,
	},
	cli.Uint64Flag{
		Name:  "valid-at",
		Usage: "Unix time the token must not be expired at, 0 disables the check",
	},
}

func oidcCommand(e *env) cli.Command {
	return cli.Command{
		Name:  config.SchemeOIDC,
		Usage: "OpenID Connect identity contract",
		Subcommands: []cli.Command{
			{
				Name:   "register",
				Usage:  "Register account with the token subject",
				Flags:  oidcFlags,
				Action: e.oidcRegister,
			},
			{
				Name:   "verify",
				Usage:  "Prove possession of the token for the account subject",
				Flags:  append(oidcFlags[:len(oidcFlags):len(oidcFlags)], blobFlag),
				Action: e.oidcVerify,
			},
			{
				Name:   "info",
				Usage:  "Execute info action for the account",
				Flags:  []cli.Flag{accountFlag},
				Action: e.oidcInfo,
			},
		},
	}
}

type oidcProof struct {
	ctx   oidcid.OpenIdContext
	key   oidcid.JwkPublicKey
	token string
}

func (x *env) oidcContract() (*oidcid.Contract, error) {
	if x.cfg.Contract.Scheme != config.SchemeOIDC {
		return nil, fmt.Errorf("configured contract uses '%s' scheme", x.cfg.Contract.Scheme)
	}
	return oidcid.New(x.log), nil
}

func (x *env) oidcProof(c *cli.Context) (oidcProof, error) {
	var res oidcProof

	p, err := x.cfg.Provider(c.String("provider"))
	if err != nil {
		return res, err
	}

	if p.JWKSFile == "" {
		return res, errors.New("missing JWKS file of the provider in config")
	}

	tok, err := os.ReadFile(c.String("token-file"))
	if err != nil {
		return res, fmt.Errorf("read token file: %w", err)
	}

	res.token = strings.TrimSpace(string(tok))

	doc, err := os.ReadFile(p.JWKSFile)
	if err != nil {
		return res, fmt.Errorf("read JWKS file: %w", err)
	}

	res.key, err = oidcid.KeyFromJWKS(doc, res.token)
	if err != nil {
		return res, err
	}

	res.ctx = oidcid.OpenIdContext{Issuer: p.Issuer, Audience: p.Audience}

	return res, nil
}

func (x *env) oidcRegister(c *cli.Context) error {
	ctr, err := x.oidcContract()
	if err != nil {
		return err
	}

	l, err := openLedger(x.cfg, x.log)
	if err != nil {
		return err
	}

	p, err := x.oidcProof(c)
	if err != nil {
		return err
	}

	account := c.String("account")

	data := oidcid.RegisterAction{
		Account: common.AccountID(account, l.contract),
		Context: p.ctx,
		Key:     p.key,
		ValidAt: c.Uint64("valid-at"),
	}.Bytes()

	return x.submit(c, l, ctr, account, data, []byte(p.token), nil)
}

func (x *env) oidcVerify(c *cli.Context) error {
	ctr, err := x.oidcContract()
	if err != nil {
		return err
	}

	l, err := openLedger(x.cfg, x.log)
	if err != nil {
		return err
	}

	others, err := parseBlobs(c.StringSlice("blob"))
	if err != nil {
		return err
	}

	p, err := x.oidcProof(c)
	if err != nil {
		return err
	}

	account := c.String("account")

	nonce, err := l.state.Nonce(account)
	if err != nil {
		return err
	}

	data := oidcid.VerifyAction{
		Account: common.AccountID(account, l.contract),
		Nonce:   nonce,
		Context: p.ctx,
		Key:     p.key,
		ValidAt: c.Uint64("valid-at"),
	}.Bytes()

	return x.submit(c, l, ctr, account, data, []byte(p.token), others)
}

func (x *env) oidcInfo(c *cli.Context) error {
	ctr, err := x.oidcContract()
	if err != nil {
		return err
	}

	l, err := openLedger(x.cfg, x.log)
	if err != nil {
		return err
	}

	account := c.String("account")

	data := oidcid.InfoAction{Account: common.AccountID(account, l.contract)}.Bytes()

	return x.submit(c, l, ctr, account, data, nil, nil)
}
