package common

import (
	"crypto/subtle"
	"encoding/hex"
	"math"
	"slices"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
)

// AccountRecord is a registered identity.
type AccountRecord struct {
	// Hex-encoded SHA-256 of the credential reference. Set on registration and
	// never changed.
	Hash string `json:"hash"`
	// Number of successful verifications.
	Nonce uint32 `json:"nonce"`
}

type storeEntry struct {
	key string
	rec AccountRecord
}

// Store maps credential keys to account records. Records are kept sorted by
// key so that iteration order, and hence the state digest, depends on the
// logical content only. Zero value is an empty Store.
type Store struct {
	entries []storeEntry
}

// Len returns number of registered accounts.
func (x *Store) Len() int {
	return len(x.entries)
}

func (x *Store) search(key string) (int, bool) {
	return slices.BinarySearchFunc(x.entries, key, func(e storeEntry, k string) int {
		return strings.Compare(e.key, k)
	})
}

// Get returns record of the account referenced by key.
func (x *Store) Get(key string) (AccountRecord, bool) {
	i, ok := x.search(key)
	if !ok {
		return AccountRecord{}, false
	}
	return x.entries[i].rec, true
}

// Nonce returns current nonce of the account referenced by key.
func (x *Store) Nonce(key string) (uint32, error) {
	rec, ok := x.Get(key)
	if !ok {
		return 0, NewError("get nonce", ErrNotFound, "%s", key)
	}
	return rec.Nonce, nil
}

// Insert adds new record. Insert never overwrites: it fails with
// ErrAlreadyRegistered if key is already present.
func (x *Store) Insert(key string, rec AccountRecord) error {
	i, ok := x.search(key)
	if ok {
		return NewError("insert", ErrAlreadyRegistered, "%s", key)
	}

	x.entries = slices.Insert(x.entries, i, storeEntry{key: key, rec: rec})

	return nil
}

// Iterate passes all records to f in ascending key order.
func (x *Store) Iterate(f func(key string, rec AccountRecord)) {
	for i := range x.entries {
		f(x.entries[i].key, x.entries[i].rec)
	}
}

// Clone returns independent copy of the Store.
func (x *Store) Clone() *Store {
	return &Store{entries: slices.Clone(x.entries)}
}

// CredentialHash returns hex-encoded SHA-256 of the canonical credential
// reference.
func CredentialHash(ref string) string {
	h := hash.Sha256([]byte(ref))
	return hex.EncodeToString(h.BytesBE())
}

// RegisterCredential stores new account bound to the credential reference
// with zero nonce.
func RegisterCredential(st *Store, key, ref string) error {
	return st.Insert(key, AccountRecord{Hash: CredentialHash(ref)})
}

// CheckNonce returns record of the registered account if nonce equals the
// stored one exactly.
func CheckNonce(st *Store, key string, nonce uint32) (AccountRecord, error) {
	const op = "check nonce"

	rec, ok := st.Get(key)
	if !ok {
		return rec, NewError(op, ErrNotFound, "%s", key)
	}

	if nonce != rec.Nonce {
		return rec, NewError(op, ErrInvalidNonce, "expected %d, got %d", rec.Nonce, nonce)
	}

	if rec.Nonce == math.MaxUint32 {
		return rec, NewError(op, ErrInvalidNonce, "nonce space exhausted")
	}

	return rec, nil
}

// CommitVerification compares hash of the presented credential reference
// with the stored one and increments nonce on match. Mismatch is reported as
// false and leaves the record untouched.
func CommitVerification(st *Store, key, ref string) bool {
	i, ok := st.search(key)
	if !ok {
		return false
	}

	e := &st.entries[i]
	if subtle.ConstantTimeCompare([]byte(e.rec.Hash), []byte(CredentialHash(ref))) != 1 {
		return false
	}

	e.rec.Nonce++

	return true
}
