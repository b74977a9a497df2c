package ecdsaid

import (
	"github.com/nspcc-dev/identity-contracts/common"
	"go.uber.org/zap"
)

// Prm groups parameters of the ECDSA identity contract.
type Prm struct {
	// Application name used in the registration challenge.
	AppName string

	// Optional logger of executed actions.
	Logger *zap.Logger
}

// Contract is the ECDSA identity contract.
type Contract struct {
	app string
	log *zap.Logger
}

// New returns ECDSA identity contract with the given parameters.
func New(prm Prm) *Contract {
	log := prm.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Contract{
		app: prm.AppName,
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

// RegistrationMessage returns the message signed on registration.
func (x *Contract) RegistrationMessage() []byte {
	return common.RegistrationMessage(x.app)
}

// Register checks that the proof is a valid signature of the registration
// challenge and binds the key to the account.
func (x *Contract) Register(st *common.Store, key string, p Proof) error {
	const op = "register ECDSA identity"

	pub, err := DecodePublicKey(publicKeyOf(key, p))
	if err != nil {
		return err
	}

	ok, err := verify(pub, p.Signature, x.RegistrationMessage())
	if err != nil {
		return err
	}

	if !ok {
		return common.NewError(op, common.ErrInvalidSignature, "registration challenge")
	}

	return common.RegisterCredential(st, key, CredentialReference(pub))
}

// Verify checks that the proof is a valid signature of the verification
// message for the nonce and, if the key matches the registered one,
// increments the nonce.
func (x *Contract) Verify(st *common.Store, key string, nonce uint32, p Proof) (bool, error) {
	const op = "verify ECDSA identity"

	if _, err := common.CheckNonce(st, key, nonce); err != nil {
		return false, err
	}

	pub, err := DecodePublicKey(publicKeyOf(key, p))
	if err != nil {
		return false, err
	}

	ok, err := verify(pub, p.Signature, p.Call.VerificationMessage(nonce))
	if err != nil {
		return false, err
	}

	if !ok {
		return false, common.NewError(op, common.ErrInvalidSignature, "verification message for nonce %d", nonce)
	}

	return common.CommitVerification(st, key, CredentialReference(pub)), nil
}

func publicKeyOf(key string, p Proof) string {
	if p.PublicKey == "" {
		return key
	}
	return p.PublicKey
}
