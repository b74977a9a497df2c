package main

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/identity-contracts/ecdsaid"
	"github.com/nspcc-dev/identity-contracts/internal/config"
	"github.com/nspcc-dev/identity-contracts/internal/keystore"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var passwordFlag = cli.StringFlag{
	Name:   "password, p",
	Usage:  "Password of the account key file",
	EnvVar: "IDCTL_PASSWORD",
}

func ecdsaCommand(e *env) cli.Command {
	return cli.Command{
		Name:  config.SchemeECDSA,
		Usage: "ECDSA P-384 identity contract",
		Subcommands: []cli.Command{
			{
				Name:   "register",
				Usage:  "Register account with the key from keystore, key is generated if missing",
				Flags:  []cli.Flag{accountFlag, passwordFlag},
				Action: e.ecdsaRegister,
			},
			{
				Name:   "verify",
				Usage:  "Prove control of the account key for the current nonce",
				Flags:  []cli.Flag{accountFlag, passwordFlag, blobFlag},
				Action: e.ecdsaVerify,
			},
		},
	}
}

func (x *env) ecdsaContract() (*ecdsaid.Contract, error) {
	if x.cfg.Contract.Scheme != config.SchemeECDSA {
		return nil, fmt.Errorf("configured contract uses '%s' scheme", x.cfg.Contract.Scheme)
	}

	return ecdsaid.New(ecdsaid.Prm{
		AppName: x.cfg.Contract.AppName,
		Logger:  x.log,
	}), nil
}

func (x *env) keyDir(password string) (keystore.Dir, error) {
	if password == "" {
		return "", errors.New("missing key file password")
	}
	if x.cfg.KeystoreDir == "" {
		return "", errors.New("missing keystore directory in config")
	}
	return keystore.Dir(x.cfg.KeystoreDir), nil
}

func (x *env) ecdsaRegister(c *cli.Context) error {
	ctr, err := x.ecdsaContract()
	if err != nil {
		return err
	}

	l, err := openLedger(x.cfg, x.log)
	if err != nil {
		return err
	}

	account, password := c.String("account"), c.String("password")

	ks, err := x.keyDir(password)
	if err != nil {
		return err
	}

	key, created, err := ks.LoadOrCreate(account, password)
	if err != nil {
		return fmt.Errorf("load account key: %w", err)
	}

	if created {
		x.log.Info("new account key generated", zap.String("account", account))
	}

	pub, sig, err := keystore.Sign(key, ctr.RegistrationMessage())
	if err != nil {
		return err
	}

	data := ecdsaid.RegisterAction{
		Account:   common.AccountID(account, l.contract),
		PublicKey: pub,
		Signature: sig,
	}.Bytes()

	return x.submit(c, l, ctr, account, data, nil, nil)
}

func (x *env) ecdsaVerify(c *cli.Context) error {
	ctr, err := x.ecdsaContract()
	if err != nil {
		return err
	}

	l, err := openLedger(x.cfg, x.log)
	if err != nil {
		return err
	}

	account, password := c.String("account"), c.String("password")

	others, err := parseBlobs(c.StringSlice("blob"))
	if err != nil {
		return err
	}

	nonce, err := l.state.Nonce(account)
	if err != nil {
		return err
	}

	ks, err := x.keyDir(password)
	if err != nil {
		return err
	}

	key, err := ks.Load(account, password)
	if err != nil {
		return fmt.Errorf("load account key: %w", err)
	}

	pub, sig, err := keystore.Sign(key, common.Call{Transcript: others}.VerificationMessage(nonce))
	if err != nil {
		return err
	}

	data := ecdsaid.VerifyAction{
		Account:   common.AccountID(account, l.contract),
		Nonce:     nonce,
		PublicKey: pub,
		Signature: sig,
	}.Bytes()

	return x.submit(c, l, ctr, account, data, nil, others)
}
