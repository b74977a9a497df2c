package oidcid

import (
	"github.com/nspcc-dev/identity-contracts/common"
	"go.uber.org/zap"
)

// Contract is the OIDC identity contract.
type Contract struct {
	log *zap.Logger
}

// New returns OIDC identity contract. Logger is optional.
func New(log *zap.Logger) *Contract {
	if log == nil {
		log = zap.NewNop()
	}

	return &Contract{log: log}
}

// Execute decodes the action addressed to the contract and applies it to the
// initial state.
func (x *Contract) Execute(in common.ContractInput) (common.Result, error) {
	return common.Executor[Proof]{
		Scheme: x,
		Decode: DecodeAction,
		Logger: x.log,
	}.Execute(in)
}

// Register checks the token and binds its subject to the account.
func (x *Contract) Register(st *common.Store, key string, p Proof) error {
	claims, err := verify(p)
	if err != nil {
		return err
	}

	x.log.Debug("identity token accepted",
		zap.String("account", key),
		zap.String("issuer", claims.Issuer))

	return common.RegisterCredential(st, key, claims.CredentialReference())
}

// Verify checks the token and matches its subject with the registered one.
func (x *Contract) Verify(st *common.Store, key string, nonce uint32, p Proof) (bool, error) {
	if _, err := common.CheckNonce(st, key, nonce); err != nil {
		return false, err
	}

	claims, err := verify(p)
	if err != nil {
		return false, err
	}

	return common.CommitVerification(st, key, claims.CredentialReference()), nil
}

func verify(p Proof) (Claims, error) {
	claims, err := VerifyToken(p.Token, p.Key, p.Context)
	if err != nil {
		return claims, err
	}

	return claims, CheckExpiry(claims, p.ValidAt)
}
