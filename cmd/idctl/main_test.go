package main

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/identity-contracts/webauthnid"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(data), 0600))
	return p
}

type testApp struct {
	t      *testing.T
	config string
}

func newTestApp(t *testing.T, cfg string) testApp {
	return testApp{t: t, config: writeFile(t, t.TempDir(), "config.yml", cfg)}
}

func (x testApp) run(args ...string) (string, error) {
	app := newApp()
	var buf bytes.Buffer
	app.Writer = &buf
	err := app.Run(append([]string{"idctl", "--config", x.config}, args...))
	return buf.String(), err
}

func (x testApp) mustRun(args ...string) string {
	out, err := x.run(args...)
	require.NoError(x.t, err, args)
	return out
}

func TestECDSA(t *testing.T) {
	app := newTestApp(t, `
contract:
  name: myapp
  scheme: ecdsa
  app_name: myapp
ledger_dir: ledger
keystore_dir: keys
`)

	_, err := app.run("show")
	require.Error(t, err)

	app.mustRun("init")
	_, err = app.run("init")
	require.Error(t, err)

	out := app.mustRun("ecdsa", "register", "-a", "alice", "-p", "secret")
	require.Equal(t, "Successfully registered identity for account: alice.myapp\n", out)

	_, err = app.run("ecdsa", "register", "-a", "alice", "-p", "secret")
	require.ErrorIs(t, err, common.ErrAlreadyRegistered)

	out = app.mustRun("ecdsa", "verify", "-a", "alice", "-p", "secret", "--blob", "token:0102")
	require.Equal(t, "Identity verified for account: alice.myapp\n", out)

	_, err = app.run("ecdsa", "verify", "-a", "alice", "-p", "wrong")
	require.Error(t, err)

	out = app.mustRun("info", "-a", "alice")
	require.Contains(t, out, `"nonce":1`)

	out = app.mustRun("show")
	require.Contains(t, out, "height: 2\n")
	require.Contains(t, out, "accounts: 1\n")
	require.Contains(t, out, "alice.myapp: hash=")

	_, err = app.run("oidc", "info", "-a", "alice")
	require.Error(t, err)
}

func TestOIDC(t *testing.T) {
	dir := t.TempDir()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks, err := json.Marshal(map[string]any{"keys": []map[string]string{{
		"kty": "RSA",
		"kid": "k1",
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}}})
	require.NoError(t, err)
	writeFile(t, dir, "jwks.json", string(jwks))

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "u1",
		"iss": "https://idp.example",
		"aud": "app1",
		"exp": 2000,
	})
	tok.Header["kid"] = "k1"
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	tokenFile := writeFile(t, dir, "token", s+"\n")

	app := testApp{t: t, config: writeFile(t, dir, "config.yml", `
contract:
  name: oidc
  scheme: oidc
ledger_dir: ledger
identity_providers:
  idp:
    issuer: https://idp.example
    audience: app1
    jwks_file: jwks.json
`)}

	app.mustRun("init")

	out := app.mustRun("oidc", "register", "-a", "alice", "--provider", "idp", "--token-file", tokenFile, "--valid-at", "1999")
	require.Equal(t, "Successfully registered identity for account: alice.oidc\n", out)

	out = app.mustRun("oidc", "verify", "-a", "alice", "--provider", "idp", "--token-file", tokenFile)
	require.Equal(t, "Identity verified for account: alice.oidc\n", out)

	_, err = app.run("oidc", "verify", "-a", "alice", "--provider", "idp", "--token-file", tokenFile, "--valid-at", "2000")
	require.ErrorIs(t, err, common.ErrTokenExpired)

	_, err = app.run("oidc", "verify", "-a", "alice", "--provider", "other", "--token-file", tokenFile)
	require.Error(t, err)

	out = app.mustRun("oidc", "info", "-a", "alice")
	require.True(t, strings.HasPrefix(out, "Retrieved identity info for account: alice.oidc: {"), out)
	require.Contains(t, out, `"nonce":1`)
}

func TestWebAuthn(t *testing.T) {
	app := newTestApp(t, `
contract:
  name: passkey
  scheme: webauthn
  app_name: Passkey
ledger_dir: ledger
webauthn:
  rp_id: example.com
`)

	app.mustRun("init")

	k, err := keys.NewPrivateKey()
	require.NoError(t, err)

	assert := func(typ, challenge string) []string {
		authData := append(hash.Sha256([]byte("example.com")).BytesBE(), 0x01, 0, 0, 0, 0)
		cd, err := json.Marshal(map[string]string{"type": typ, "challenge": challenge, "origin": "https://example.com"})
		require.NoError(t, err)
		signed := append(append([]byte{}, authData...), hash.Sha256(cd).BytesBE()...)
		sig, err := ecdsa.SignASN1(rand.Reader, &k.PrivateKey, hash.Sha256(signed).BytesBE())
		require.NoError(t, err)

		return []string{
			"-a", "alice",
			"--credential-id", "c0ffee",
			"--public-key", hex.EncodeToString(k.PublicKey().Bytes()),
			"--authenticator-data", hex.EncodeToString(authData),
			"--client-data", hex.EncodeToString(cd),
			"--signature", hex.EncodeToString(sig),
		}
	}

	challenge := strings.TrimSpace(app.mustRun("webauthn", "challenge", "-a", "alice"))
	require.Equal(t, webauthnid.Challenge([]byte("Passkey Registration")), challenge)

	out := app.mustRun(append([]string{"webauthn", "register"}, assert(webauthnid.TypeCreate, challenge)...)...)
	require.Equal(t, "Successfully registered identity for account: alice.passkey\n", out)

	challenge = strings.TrimSpace(app.mustRun("webauthn", "challenge", "-a", "alice", "--blob", "amm:ff"))
	require.Equal(t, webauthnid.Challenge([]byte("verify 0 amm ff")), challenge)

	args := append([]string{"webauthn", "verify"}, assert(webauthnid.TypeGet, challenge)...)
	out = app.mustRun(append(args, "--blob", "amm:ff")...)
	require.Equal(t, "Identity verified for account: alice.passkey\n", out)
}
