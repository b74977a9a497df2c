// Package keystore keeps password-protected P-384 keys of the ECDSA identity
// accounts.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	formatVersion = 1

	saltLen    = 16
	nonceLen   = 12
	headerLen  = 1 + saltLen + nonceLen
	kdfIter    = 100_000
	kdfKeySize = 32
)

// ErrDecrypt is returned when the key file cannot be decrypted with the
// password.
var ErrDecrypt = errors.New("wrong password or corrupted key file")

// Seal encrypts the private key with the password. Result is
//
//	version || salt || nonce || AES-256-GCM(PKCS#8 key)
//
// with random salt and nonce.
func Seal(key *ecdsa.PrivateKey, password string) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("encode private key: %w", err)
	}

	res := make([]byte, headerLen, headerLen+len(der)+16)
	res[0] = formatVersion

	if _, err = rand.Read(res[1:headerLen]); err != nil {
		return nil, fmt.Errorf("generate salt and nonce: %w", err)
	}

	aead, err := newAEAD(password, res[1:1+saltLen])
	if err != nil {
		return nil, err
	}

	return aead.Seal(res, res[1+saltLen:headerLen], der, res[:1]), nil
}

// Open decrypts the private key sealed with Seal.
func Open(data []byte, password string) (*ecdsa.PrivateKey, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrDecrypt, len(data))
	}

	if data[0] != formatVersion {
		return nil, fmt.Errorf("unsupported key file version %d", data[0])
	}

	aead, err := newAEAD(password, data[1:1+saltLen])
	if err != nil {
		return nil, err
	}

	der, err := aead.Open(nil, data[1+saltLen:headerLen], data[headerLen:], data[:1])
	if err != nil {
		return nil, ErrDecrypt
	}

	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	key, ok := k.(*ecdsa.PrivateKey)
	if !ok || key.Curve != elliptic.P384() {
		return nil, errors.New("not a P-384 private key")
	}

	return key, nil
}

func newAEAD(password string, salt []byte) (cipher.AEAD, error) {
	b, err := aes.NewCipher(pbkdf2.Key([]byte(password), salt, kdfIter, kdfKeySize, sha256.New))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	return cipher.NewGCM(b)
}

// Sign signs SHA-384 of the message. It returns hex-encoded uncompressed SEC1
// public key and DER signature.
func Sign(key *ecdsa.PrivateKey, msg []byte) (string, string, error) {
	h := sha512.Sum384(msg)

	sig, err := ecdsa.SignASN1(rand.Reader, key, h[:])
	if err != nil {
		return "", "", fmt.Errorf("sign: %w", err)
	}

	pub, err := key.PublicKey.ECDH()
	if err != nil {
		return "", "", fmt.Errorf("encode public key: %w", err)
	}

	return hex.EncodeToString(pub.Bytes()), hex.EncodeToString(sig), nil
}

// Dir is a directory of key files named after accounts.
type Dir string

func (x Dir) path(account string) (string, error) {
	if account == "" || strings.HasPrefix(account, ".") || strings.ContainsAny(account, `/\`) {
		return "", fmt.Errorf("invalid account name for key file '%s'", account)
	}
	return filepath.Join(string(x), account), nil
}

// Load reads and decrypts the key of the account.
func (x Dir) Load(account, password string) (*ecdsa.PrivateKey, error) {
	p, err := x.path(account)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	return Open(data, password)
}

// LoadOrCreate reads the key of the account or generates and stores the new
// one. The flag is true if the key has been generated.
func (x Dir) LoadOrCreate(account, password string) (*ecdsa.PrivateKey, bool, error) {
	key, err := x.Load(account, password)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return key, false, err
	}

	key, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, false, fmt.Errorf("generate key: %w", err)
	}

	data, err := Seal(key, password)
	if err != nil {
		return nil, false, err
	}

	if err = os.MkdirAll(string(x), 0o700); err != nil {
		return nil, false, fmt.Errorf("create key directory: %w", err)
	}

	p, _ := x.path(account)
	if err = os.WriteFile(p, data, 0o600); err != nil {
		return nil, false, fmt.Errorf("write key file: %w", err)
	}

	return key, true, nil
}
