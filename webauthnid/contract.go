package webauthnid

import (
	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"go.uber.org/zap"
)

// Prm groups parameters of the WebAuthn identity contract.
type Prm struct {
	// Application name used in the registration challenge.
	AppName string

	// Optional relying party checks.
	RelyingParty RelyingParty

	// Optional logger of executed actions.
	Logger *zap.Logger
}

// Contract is the WebAuthn identity contract.
type Contract struct {
	app string
	rp  RelyingParty
	log *zap.Logger
}

// New returns WebAuthn identity contract with the given parameters.
func New(prm Prm) *Contract {
	log := prm.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Contract{
		app: prm.AppName,
		rp:  prm.RelyingParty,
		log: log,
	}
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

// RegistrationMessage returns the message whose challenge is signed on
// registration.
func (x *Contract) RegistrationMessage() []byte {
	return common.RegistrationMessage(x.app)
}

// Register checks the creation assertion and binds the credential to the
// account.
func (x *Contract) Register(st *common.Store, key string, p Proof) error {
	pub, err := credential(p)
	if err != nil {
		return err
	}

	if err = VerifyAssertion(pub, p.Assertion, TypeCreate, x.RegistrationMessage(), x.rp); err != nil {
		return err
	}

	return common.RegisterCredential(st, key, CredentialReference(p.CredentialID, pub))
}

// Verify checks the authentication assertion over the verification message
// for the nonce and matches the credential with the registered one.
func (x *Contract) Verify(st *common.Store, key string, nonce uint32, p Proof) (bool, error) {
	if _, err := common.CheckNonce(st, key, nonce); err != nil {
		return false, err
	}

	pub, err := credential(p)
	if err != nil {
		return false, err
	}

	if err = VerifyAssertion(pub, p.Assertion, TypeGet, p.Call.VerificationMessage(nonce), x.rp); err != nil {
		return false, err
	}

	return common.CommitVerification(st, key, CredentialReference(p.CredentialID, pub)), nil
}

func credential(p Proof) (*keys.PublicKey, error) {
	if len(p.CredentialID) == 0 {
		return nil, common.NewError("decode credential", common.ErrDecode, "missing credential ID")
	}

	return DecodePublicKey(p.PublicKey)
}
