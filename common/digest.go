package common

import (
	"bytes"
	"encoding/hex"
	"errors"

	"github.com/nspcc-dev/neo-go/pkg/io"
)

const (
	credentialHashLength = 64

	// smallest possible encoded record: 1-byte key, hash and nonce.
	minRecordSize = 1 + 1 + 1 + credentialHashLength + 4
)

// EncodeStore returns state digest of the Store: var-uint number of records
// followed by records in ascending key order, each one encoded as var-string
// key, var-string hash and little-endian uint32 nonce.
func EncodeStore(st *Store) []byte {
	w := io.NewBufBinWriter()

	w.WriteVarUint(uint64(st.Len()))
	st.Iterate(func(key string, rec AccountRecord) {
		w.WriteString(key)
		w.WriteString(rec.Hash)
		w.WriteU32LE(rec.Nonce)
	})

	return w.Bytes()
}

// DecodeStore restores Store from the state digest produced by EncodeStore.
// Any other input, including a differently encoded equivalent, is rejected
// with ErrCorruptState.
func DecodeStore(b []byte) (*Store, error) {
	const op = "decode state"

	buf := bytes.NewReader(b)
	r := io.NewBinReaderFromIO(buf)

	n := r.ReadVarUint()
	if r.Err != nil {
		return nil, Wrap(op, ErrCorruptState, r.Err)
	}

	if n > uint64(buf.Len()/minRecordSize) {
		return nil, NewError(op, ErrCorruptState, "%d records do not fit %d bytes", n, buf.Len())
	}

	st := &Store{entries: make([]storeEntry, 0, n)}

	for i := uint64(0); i < n; i++ {
		var e storeEntry

		e.key = r.ReadString(MaxAccountKeyLength)
		e.rec.Hash = r.ReadString(credentialHashLength)
		e.rec.Nonce = r.ReadU32LE()
		if r.Err != nil {
			return nil, Wrap(op, ErrCorruptState, r.Err)
		}

		if e.key == "" {
			return nil, NewError(op, ErrCorruptState, "empty key of record #%d", i)
		}

		if err := checkCredentialHash(e.rec.Hash); err != nil {
			return nil, Wrap(op, ErrCorruptState, err)
		}

		if i > 0 && st.entries[i-1].key >= e.key {
			return nil, NewError(op, ErrCorruptState, "records are not sorted at #%d", i)
		}

		st.entries = append(st.entries, e)
	}

	if buf.Len() != 0 {
		return nil, NewError(op, ErrCorruptState, "%d trailing bytes", buf.Len())
	}

	if !bytes.Equal(EncodeStore(st), b) {
		return nil, NewError(op, ErrCorruptState, "non-canonical encoding")
	}

	return st, nil
}

func checkCredentialHash(h string) error {
	if len(h) != credentialHashLength {
		return errors.New("invalid credential hash length")
	}

	b, err := hex.DecodeString(h)
	if err != nil {
		return err
	}

	if hex.EncodeToString(b) != h {
		return errors.New("credential hash is not lowercase")
	}

	return nil
}
