package webauthnid

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	contractName = "passkey"
	account      = "alice." + contractName
	testRPID     = "example.com"
	testOrigin   = "https://example.com"
)

type authenticator struct {
	t      *testing.T
	key    *keys.PrivateKey
	credID []byte
	rpID   string
	origin string
	flags  byte
}

func newAuthenticator(t *testing.T, credID string) *authenticator {
	k, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return &authenticator{
		t:      t,
		key:    k,
		credID: []byte(credID),
		rpID:   testRPID,
		origin: testOrigin,
		flags:  flagUserPresent,
	}
}

func (x *authenticator) assert(typ string, msg []byte) Assertion {
	authData := append(hash.Sha256([]byte(x.rpID)).BytesBE(), x.flags, 0, 0, 0, 1)

	cd, err := json.Marshal(clientData{Type: typ, Challenge: Challenge(msg), Origin: x.origin})
	require.NoError(x.t, err)

	signed := append(append([]byte{}, authData...), hash.Sha256(cd).BytesBE()...)
	sig, err := ecdsa.SignASN1(rand.Reader, &x.key.PrivateKey, hash.Sha256(signed).BytesBE())
	require.NoError(x.t, err)

	return Assertion{AuthenticatorData: authData, ClientDataJSON: cd, Signature: sig}
}

func (x *authenticator) register(c *Contract) []byte {
	return RegisterAction{
		Account:      account,
		CredentialID: x.credID,
		PublicKey:    x.key.PublicKey().Bytes(),
		Assertion:    x.assert(TypeCreate, c.RegistrationMessage()),
	}.Bytes()
}

func (x *authenticator) verify(nonce uint32, transcript ...common.Blob) []byte {
	return VerifyAction{
		Account:      account,
		Nonce:        nonce,
		CredentialID: x.credID,
		PublicKey:    x.key.PublicKey().UncompressedBytes(),
		Assertion:    x.assert(TypeGet, common.Call{Transcript: transcript}.VerificationMessage(nonce)),
	}.Bytes()
}

func newContract(t *testing.T) *Contract {
	return New(Prm{
		AppName:      contractName,
		RelyingParty: RelyingParty{ID: testRPID, Origin: testOrigin},
		Logger:       zaptest.NewLogger(t),
	})
}

func execute(c *Contract, state []byte, blobs ...common.Blob) (common.Result, error) {
	return c.Execute(common.ContractInput{
		InitialState: state,
		Identity:     account,
		Blobs:        blobs,
		Index:        len(blobs) - 1,
	})
}

func blob(data []byte) common.Blob {
	return common.Blob{Contract: contractName, Data: data}
}

func TestContract(t *testing.T) {
	c := newContract(t)
	a := newAuthenticator(t, "cred-1")
	empty := common.EncodeStore(new(common.Store))

	res, err := execute(c, empty, blob(a.register(c)))
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "Successfully registered identity for account: "+account, res.Output)
	registered := res.State

	st, err := common.DecodeStore(registered)
	require.NoError(t, err)
	rec, ok := st.Get("alice")
	require.True(t, ok)
	require.Equal(t, common.CredentialHash(CredentialReference(a.credID, a.key.PublicKey())), rec.Hash)

	t.Run("verify", func(t *testing.T) {
		res, err := execute(c, registered, blob(a.verify(0)))
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, "Identity verified for account: "+account, res.Output)

		_, err = execute(c, res.State, blob(a.verify(0)))
		require.ErrorIs(t, err, common.ErrInvalidNonce)

		res, err = execute(c, res.State, blob(a.verify(1)))
		require.NoError(t, err)
		require.True(t, res.Success)
	})

	t.Run("another credential", func(t *testing.T) {
		res, err := execute(c, registered, blob(newAuthenticator(t, "cred-2").verify(0)))
		require.NoError(t, err)
		require.False(t, res.Success)
		require.Equal(t, registered, res.State)

		// same key under another ID
		b := *a
		b.credID = []byte("cred-3")
		res, err = execute(c, registered, blob(b.verify(0)))
		require.NoError(t, err)
		require.False(t, res.Success)
	})

	t.Run("transcript binding", func(t *testing.T) {
		swap := common.Blob{Contract: "amm", Data: []byte("swap")}

		res, err := execute(c, registered, swap, blob(a.verify(0, swap)))
		require.NoError(t, err)
		require.True(t, res.Success)

		_, err = execute(c, registered, common.Blob{Contract: "amm", Data: []byte("drain")}, blob(a.verify(0, swap)))
		require.ErrorIs(t, err, common.ErrClaimMismatch)
	})

	t.Run("registration assertion reused", func(t *testing.T) {
		data := VerifyAction{
			Account:      account,
			CredentialID: a.credID,
			PublicKey:    a.key.PublicKey().Bytes(),
			Assertion:    a.assert(TypeCreate, c.RegistrationMessage()),
		}.Bytes()
		_, err := execute(c, registered, blob(data))
		require.ErrorIs(t, err, common.ErrClaimMismatch)
	})

	t.Run("register twice", func(t *testing.T) {
		_, err := execute(c, registered, blob(a.register(c)))
		require.ErrorIs(t, err, common.ErrAlreadyRegistered)
	})

	t.Run("relying party", func(t *testing.T) {
		b := newAuthenticator(t, "cred-1")
		b.rpID = "evil.com"
		_, err := execute(c, empty, blob(b.register(c)))
		require.ErrorIs(t, err, common.ErrClaimMismatch)

		b = newAuthenticator(t, "cred-1")
		b.origin = "https://evil.com"
		_, err = execute(c, empty, blob(b.register(c)))
		require.ErrorIs(t, err, common.ErrClaimMismatch)

		// not checked unless configured
		_, err = execute(New(Prm{AppName: contractName}), empty, blob(b.register(c)))
		require.NoError(t, err)
	})

	t.Run("user not present", func(t *testing.T) {
		b := newAuthenticator(t, "cred-1")
		b.flags = 0x04
		_, err := execute(c, empty, blob(b.register(c)))
		require.ErrorIs(t, err, common.ErrClaimMismatch)
	})

	t.Run("malformed credential", func(t *testing.T) {
		data := RegisterAction{
			Account:      account,
			CredentialID: a.credID,
			PublicKey:    []byte{2, 1, 2, 3},
			Assertion:    a.assert(TypeCreate, c.RegistrationMessage()),
		}.Bytes()
		_, err := execute(c, empty, blob(data))
		require.ErrorIs(t, err, common.ErrDecode)

		data = RegisterAction{
			Account:   account,
			PublicKey: a.key.PublicKey().Bytes(),
			Assertion: a.assert(TypeCreate, c.RegistrationMessage()),
		}.Bytes()
		_, err = execute(c, empty, blob(data))
		require.ErrorIs(t, err, common.ErrDecode)
	})
}

func TestVerifyAssertion(t *testing.T) {
	a := newAuthenticator(t, "cred")
	msg := []byte("verify 0")
	pub := a.key.PublicKey()
	rp := RelyingParty{ID: testRPID, Origin: testOrigin}

	require.NoError(t, VerifyAssertion(pub, a.assert(TypeGet, msg), TypeGet, msg, rp))

	t.Run("wrong type", func(t *testing.T) {
		err := VerifyAssertion(pub, a.assert(TypeCreate, msg), TypeGet, msg, rp)
		require.ErrorIs(t, err, common.ErrClaimMismatch)
	})

	t.Run("short authenticator data", func(t *testing.T) {
		as := a.assert(TypeGet, msg)
		as.AuthenticatorData = as.AuthenticatorData[:36]
		require.ErrorIs(t, VerifyAssertion(pub, as, TypeGet, msg, rp), common.ErrDecode)
	})

	t.Run("invalid client data", func(t *testing.T) {
		as := a.assert(TypeGet, msg)
		as.ClientDataJSON = []byte("{")
		require.ErrorIs(t, VerifyAssertion(pub, as, TypeGet, msg, rp), common.ErrDecode)
	})

	t.Run("signature", func(t *testing.T) {
		as := a.assert(TypeGet, msg)
		as.AuthenticatorData[36]++
		require.ErrorIs(t, VerifyAssertion(pub, as, TypeGet, msg, rp), common.ErrInvalidSignature)

		as = a.assert(TypeGet, msg)
		as.Signature = []byte{0x30, 0}
		require.ErrorIs(t, VerifyAssertion(pub, as, TypeGet, msg, rp), common.ErrInvalidSignature)

		other := newAuthenticator(t, "cred")
		require.ErrorIs(t, VerifyAssertion(other.key.PublicKey(), a.assert(TypeGet, msg), TypeGet, msg, rp), common.ErrInvalidSignature)
	})
}

func TestDecodeAction(t *testing.T) {
	want := VerifyAction{
		Account:      account,
		Nonce:        5,
		CredentialID: []byte{1},
		PublicKey:    []byte{2},
		Assertion: Assertion{
			AuthenticatorData: []byte{3},
			ClientDataJSON:    []byte("{}"),
			Signature:         []byte{4},
		},
	}
	call := common.Call{Identity: account}

	act, err := DecodeAction(want.Bytes(), call)
	require.NoError(t, err)
	require.Equal(t, common.ActionVerify, act.Kind)
	require.EqualValues(t, 5, act.Nonce)
	require.Equal(t, Proof{
		CredentialID: want.CredentialID,
		PublicKey:    want.PublicKey,
		Assertion:    want.Assertion,
		Call:         call,
	}, act.Proof)

	_, err = DecodeAction([]byte{0x1a, 0}, call)
	require.ErrorIs(t, err, common.ErrInvalidAction)
}
