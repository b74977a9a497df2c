package oidcid

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://idp.example"
	testAudience = "app1"
)

var testContext = OpenIdContext{Issuer: testIssuer, Audience: testAudience}

type provider struct {
	t   testing.TB
	key *rsa.PrivateKey
	kid string
}

func newProvider(t testing.TB, kid string) provider {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return provider{t: t, key: k, kid: kid}
}

func (x provider) jwk() JwkPublicKey {
	return JwkPublicKey{
		N: base64.RawURLEncoding.EncodeToString(x.key.N.Bytes()),
		E: base64.RawURLEncoding.EncodeToString(big.NewInt(int64(x.key.E)).Bytes()),
	}
}

func (x provider) issue(claims jwt.MapClaims) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if x.kid != "" {
		tok.Header["kid"] = x.kid
	}
	s, err := tok.SignedString(x.key)
	require.NoError(x.t, err)
	return s
}

func (x provider) token(sub string) string {
	return x.issue(jwt.MapClaims{
		"sub":   sub,
		"iss":   testIssuer,
		"aud":   testAudience,
		"exp":   2000,
		"email": sub + "@idp.example",
	})
}

// issueRaw signs the payload as is, bypassing claims marshaling.
func (x provider) issueRaw(payload string) string {
	enc := base64.RawURLEncoding
	signing := enc.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." + enc.EncodeToString([]byte(payload))
	sig, err := jwt.SigningMethodRS256.Sign(signing, x.key)
	require.NoError(x.t, err)
	return signing + "." + enc.EncodeToString(sig)
}

func TestVerifyToken(t *testing.T) {
	p := newProvider(t, "")

	claims, err := VerifyToken(p.token("u1"), p.jwk(), testContext)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Subject)
	require.Equal(t, testIssuer, claims.Issuer)
	require.Equal(t, jwt.ClaimStrings{testAudience}, claims.Audience)
	require.NotNil(t, claims.Expiry)
	require.EqualValues(t, 2000, *claims.Expiry)
	require.Equal(t, "u1@idp.example", claims.Email)
	require.Equal(t, "u1:"+testIssuer, claims.CredentialReference())

	t.Run("audience array", func(t *testing.T) {
		tok := p.issue(jwt.MapClaims{"sub": "u1", "iss": testIssuer, "aud": []string{"other", testAudience}})
		_, err := VerifyToken(tok, p.jwk(), testContext)
		require.NoError(t, err)
	})

	t.Run("standard alphabet", func(t *testing.T) {
		enc := func(v any) string {
			b, err := json.Marshal(v)
			require.NoError(t, err)
			return base64.StdEncoding.EncodeToString(b)
		}

		input := enc(map[string]string{"alg": "RS256", "typ": "JWT"}) + "." +
			enc(map[string]any{"sub": "u1", "iss": testIssuer, "aud": testAudience})
		sig, err := jwt.SigningMethodRS256.Sign(input, p.key)
		require.NoError(t, err)

		jwk := JwkPublicKey{
			N: base64.StdEncoding.EncodeToString(p.key.N.Bytes()),
			E: base64.StdEncoding.EncodeToString(big.NewInt(int64(p.key.E)).Bytes()),
		}

		claims, err := VerifyToken(input+"."+base64.StdEncoding.EncodeToString(sig), jwk, testContext)
		require.NoError(t, err)
		require.Equal(t, "u1", claims.Subject)
	})

	for _, tc := range []struct {
		name  string
		token string
		jwk   JwkPublicKey
		ctx   OpenIdContext
		err   error
	}{
		{name: "two segments", token: "aaa.bbb", err: common.ErrMalformedToken},
		{name: "four segments", token: p.token("u1") + ".x", err: common.ErrMalformedToken},
		{name: "invalid header", token: "!!.a.b", err: common.ErrMalformedToken},
		{
			name:  "unsupported algorithm",
			token: base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256"}`)) + ".e30.AAAA",
			err:   common.ErrInvalidToken,
		},
		{name: "foreign key", token: p.token("u1"), jwk: newProvider(t, "").jwk(), err: common.ErrInvalidSignature},
		{name: "invalid key", token: p.token("u1"), jwk: JwkPublicKey{N: "!!", E: "AQAB"}, err: common.ErrDecode},
		{name: "zero exponent", token: p.token("u1"), jwk: JwkPublicKey{N: p.jwk().N, E: "AA"}, err: common.ErrDecode},
		{name: "issuer mismatch", token: p.token("u1"), ctx: OpenIdContext{Issuer: "https://evil", Audience: testAudience}, err: common.ErrClaimMismatch},
		{name: "audience mismatch", token: p.token("u1"), ctx: OpenIdContext{Issuer: testIssuer, Audience: "app2"}, err: common.ErrClaimMismatch},
		{name: "no subject", token: p.issue(jwt.MapClaims{"iss": testIssuer, "aud": testAudience}), err: common.ErrClaimsDecode},
		{name: "invalid claims", token: p.issue(jwt.MapClaims{"sub": 1}), err: common.ErrClaimsDecode},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if tc.jwk == (JwkPublicKey{}) {
				tc.jwk = p.jwk()
			}
			if tc.ctx == (OpenIdContext{}) {
				tc.ctx = testContext
			}
			_, err := VerifyToken(tc.token, tc.jwk, tc.ctx)
			require.ErrorIs(t, err, tc.err)
		})
	}

	t.Run("tampered payload", func(t *testing.T) {
		tok := strings.Split(p.token("u1"), ".")
		other := strings.Split(p.token("u2"), ".")

		forged := tok[0] + "." + other[1] + "." + tok[2]
		_, err := VerifyToken(forged, p.jwk(), testContext)
		require.ErrorIs(t, err, common.ErrInvalidSignature)
	})
}

func TestCheckExpiry(t *testing.T) {
	const exp = 2000
	e := ExpiryTime(exp)
	claims := Claims{Expiry: &e}

	require.NoError(t, CheckExpiry(claims, 0))
	require.NoError(t, CheckExpiry(claims, exp-1))
	require.ErrorIs(t, CheckExpiry(claims, exp), common.ErrTokenExpired)
	require.ErrorIs(t, CheckExpiry(claims, exp+1), common.ErrTokenExpired)

	require.NoError(t, CheckExpiry(Claims{}, 0))
	require.ErrorIs(t, CheckExpiry(Claims{}, 1), common.ErrTokenExpired)
}

func TestVerifyToken_Expiry(t *testing.T) {
	p := newProvider(t, "")

	payload := func(exp string) string {
		return `{"sub":"u1","iss":"` + testIssuer + `","aud":"` + testAudience + `","exp":` + exp + `}`
	}

	t.Run("beyond float precision", func(t *testing.T) {
		claims, err := VerifyToken(p.issueRaw(payload("9007199254740993")), p.jwk(), testContext)
		require.NoError(t, err)
		require.EqualValues(t, uint64(9007199254740993), *claims.Expiry)
		require.NoError(t, CheckExpiry(claims, 9007199254740992))
		require.ErrorIs(t, CheckExpiry(claims, 9007199254740993), common.ErrTokenExpired)
	})

	t.Run("max", func(t *testing.T) {
		claims, err := VerifyToken(p.issueRaw(payload("18446744073709551615")), p.jwk(), testContext)
		require.NoError(t, err)
		require.NoError(t, CheckExpiry(claims, 1<<63))
	})

	t.Run("null", func(t *testing.T) {
		claims, err := VerifyToken(p.issueRaw(payload("null")), p.jwk(), testContext)
		require.NoError(t, err)
		require.Nil(t, claims.Expiry)
	})

	for _, exp := range []string{
		"1e30",
		"2000.9",
		"2000.0",
		"-1",
		"18446744073709551616",
		`"2000"`,
		"true",
	} {
		t.Run("invalid "+exp, func(t *testing.T) {
			_, err := VerifyToken(p.issueRaw(payload(exp)), p.jwk(), testContext)
			require.ErrorIs(t, err, common.ErrClaimsDecode)
		})
	}
}
