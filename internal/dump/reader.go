package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nspcc-dev/identity-contracts/common"
)

// IterateDumps iterates over all snapshots collected by the Creator model in
// the specified directory, and passes ID and Reader of each snapshot into f.
// Missing directory is treated as empty.
func IterateDumps(dir string, f func(ID, *Reader)) error {
	var id ID
	var streams dumpStreams

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, e error) error {
		if e != nil {
			if errors.Is(e, fs.ErrNotExist) {
				return nil
			}
			return e
		}

		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()

		if !strings.HasSuffix(name, snapshotFileSuffix) {
			return nil
		}

		err := id.decodeFileName(name, snapshotFileSuffix)
		if err != nil {
			return fmt.Errorf("decode snapshot ID from file name '%s': %w", name, err)
		}

		err = initDumpStreams(&streams, dir, id, true)
		if err != nil {
			return fmt.Errorf("init snapshot streams ('%s'): %w", name, err)
		}

		var r Reader

		err = r.fromDumpStreams(streams.snapshot, streams.accounts)
		streams.close()
		if err != nil {
			return fmt.Errorf("init snapshot reader ('%s'): %w", name, err)
		}

		f(id, &r)

		return nil
	})
}

// Latest returns the snapshot of the named contract with the highest height.
// The flag is false if there are no snapshots of the contract.
func Latest(dir, contract string) (ID, *Reader, bool, error) {
	var (
		resID ID
		res   *Reader
	)

	err := IterateDumps(dir, func(id ID, r *Reader) {
		if id.Contract == contract && (res == nil || id.Height > resID.Height) {
			resID, res = id, r
		}
	})
	if err != nil {
		return resID, nil, false, err
	}

	return resID, res, res != nil, nil
}

// Reader reads the superior snapshot.
type Reader struct {
	snapshot Snapshot
	store    *common.Store
}

func (x *Reader) fromDumpStreams(rSnapshot, rAccounts io.Reader) error {
	err := json.NewDecoder(rSnapshot).Decode(&x.snapshot)
	if err != nil {
		return fmt.Errorf("decode snapshot descriptor from JSON: %w", err)
	}

	var (
		rec   []string
		nonce uint64
	)

	_csv := csv.NewReader(rAccounts)
	_csv.FieldsPerRecord = 3
	_csv.ReuseRecord = true

	x.store = new(common.Store)

	for {
		rec, err = _csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		// out-of-range safety guaranteed by csv settings
		nonce, err = strconv.ParseUint(rec[2], 10, 32)
		if err != nil {
			return fmt.Errorf("decode nonce of account '%s': %w", rec[0], err)
		}

		err = x.store.Insert(rec[0], common.AccountRecord{Hash: rec[1], Nonce: uint32(nonce)})
		if err != nil {
			return fmt.Errorf("restore account '%s': %w", rec[0], err)
		}
	}
}

// Snapshot returns descriptor of the snapshot.
func (x *Reader) Snapshot() Snapshot {
	return x.snapshot
}

// Store returns contract state of the snapshot. The state is validated with
// the state digest codec.
func (x *Reader) Store() (*common.Store, error) {
	st, err := common.DecodeStore(common.EncodeStore(x.store))
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot state: %w", err)
	}
	return st, nil
}
