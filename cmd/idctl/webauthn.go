package main

import (
	"fmt"

	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/identity-contracts/internal/config"
	"github.com/nspcc-dev/identity-contracts/webauthnid"
	"github.com/urfave/cli"
)

var webAuthnFlags = []cli.Flag{
	accountFlag,
	cli.StringFlag{Name: "credential-id", Usage: "Hex-encoded credential ID", Required: true},
	cli.StringFlag{Name: "public-key", Usage: "Hex-encoded SEC1 P-256 public key of the credential", Required: true},
	cli.StringFlag{Name: "authenticator-data", Usage: "Hex-encoded authenticator data", Required: true},
	cli.StringFlag{Name: "client-data", Usage: "Hex-encoded client data JSON", Required: true},
	cli.StringFlag{Name: "signature", Usage: "Hex-encoded DER signature", Required: true},
}

func webAuthnCommand(e *env) cli.Command {
	return cli.Command{
		Name:  config.SchemeWebAuthn,
		Usage: "WebAuthn identity contract",
		Subcommands: []cli.Command{
			{
				Name:   "challenge",
				Usage:  "Print challenge to be signed by the authenticator for the next action of the account",
				Flags:  []cli.Flag{accountFlag, blobFlag},
				Action: e.webAuthnChallenge,
			},
			{
				Name:   "register",
				Usage:  "Register account with the credential",
				Flags:  webAuthnFlags,
				Action: e.webAuthnRegister,
			},
			{
				Name:   "verify",
				Usage:  "Prove possession of the registered credential",
				Flags:  append(webAuthnFlags[:len(webAuthnFlags):len(webAuthnFlags)], blobFlag),
				Action: e.webAuthnVerify,
			},
		},
	}
}

func (x *env) webAuthnContract() (*webauthnid.Contract, error) {
	if x.cfg.Contract.Scheme != config.SchemeWebAuthn {
		return nil, fmt.Errorf("configured contract uses '%s' scheme", x.cfg.Contract.Scheme)
	}

	return webauthnid.New(webauthnid.Prm{
		AppName: x.cfg.Contract.AppName,
		RelyingParty: webauthnid.RelyingParty{
			ID:     x.cfg.WebAuthn.RPID,
			Origin: x.cfg.WebAuthn.Origin,
		},
		Logger: x.log,
	}), nil
}

// Challenges are derived from the nonce, so the authenticator signs the
// registration challenge for a new account and the verification one
// otherwise.
func (x *env) webAuthnChallenge(c *cli.Context) error {
	ctr, err := x.webAuthnContract()
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

	msg := ctr.RegistrationMessage()
	if nonce, err := l.state.Nonce(c.String("account")); err == nil {
		msg = common.Call{Transcript: others}.VerificationMessage(nonce)
	}

	fmt.Fprintln(c.App.Writer, webauthnid.Challenge(msg))

	return nil
}

type webAuthnProof struct {
	credID, pub []byte
	assertion   webauthnid.Assertion
}

func decodeWebAuthnProof(c *cli.Context) (webAuthnProof, error) {
	var (
		res webAuthnProof
		err error
	)

	for _, f := range []struct {
		name string
		dst  *[]byte
	}{
		{"credential-id", &res.credID},
		{"public-key", &res.pub},
		{"authenticator-data", &res.assertion.AuthenticatorData},
		{"client-data", &res.assertion.ClientDataJSON},
		{"signature", &res.assertion.Signature},
	} {
		if *f.dst, err = decodeHex(c.String(f.name)); err != nil {
			return res, fmt.Errorf("%s: %w", f.name, err)
		}
	}

	return res, nil
}

func (x *env) webAuthnRegister(c *cli.Context) error {
	ctr, err := x.webAuthnContract()
	if err != nil {
		return err
	}

	l, err := openLedger(x.cfg, x.log)
	if err != nil {
		return err
	}

	p, err := decodeWebAuthnProof(c)
	if err != nil {
		return err
	}

	account := c.String("account")

	data := webauthnid.RegisterAction{
		Account:      common.AccountID(account, l.contract),
		CredentialID: p.credID,
		PublicKey:    p.pub,
		Assertion:    p.assertion,
	}.Bytes()

	return x.submit(c, l, ctr, account, data, nil, nil)
}

func (x *env) webAuthnVerify(c *cli.Context) error {
	ctr, err := x.webAuthnContract()
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

	p, err := decodeWebAuthnProof(c)
	if err != nil {
		return err
	}

	account := c.String("account")

	nonce, err := l.state.Nonce(account)
	if err != nil {
		return err
	}

	data := webauthnid.VerifyAction{
		Account:      common.AccountID(account, l.contract),
		Nonce:        nonce,
		CredentialID: p.credID,
		PublicKey:    p.pub,
		Assertion:    p.assertion,
	}.Bytes()

	return x.submit(c, l, ctr, account, data, nil, others)
}
