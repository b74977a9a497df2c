package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/nspcc-dev/identity-contracts/common"
)

// Creator dumps states of the identity contracts. Output file format:
//
//	'<contract>-<height>-snapshot.json': JSON snapshot descriptor
//	'<contract>-<height>-accounts.csv': CSV of account records
//
// Account CSV are 'key,hash,nonce' in the order of the contract state.
//
// Use IterateDumps or Latest to access existing snapshots.
type Creator struct {
	dumpStreams

	accountsCSV *csv.Writer
}

// NewCreator returns Creator which dumps snapshot into given directory. The
// snapshot is identified by specified ID. Resulting Creator should be closed
// when finished working with it.
//
// NewCreator fails if snapshot with provided ID already exists.
func NewCreator(dir string, id ID) (*Creator, error) {
	var res Creator

	err := initDumpStreams(&res.dumpStreams, dir, id, false)
	if err != nil {
		return nil, err
	}

	res.accountsCSV = csv.NewWriter(res.dumpStreams.accounts)

	return &res, nil
}

// Write saves the snapshot descriptor along with all accounts of the state.
func (x *Creator) Write(s Snapshot, st *common.Store) error {
	jEnc := json.NewEncoder(x.dumpStreams.snapshot)
	jEnc.SetIndent("", " ")

	err := jEnc.Encode(s)
	if err != nil {
		return fmt.Errorf("encode snapshot descriptor to JSON: %w", err)
	}

	st.Iterate(func(key string, rec common.AccountRecord) {
		if err == nil {
			err = x.accountsCSV.Write([]string{key, rec.Hash, strconv.FormatUint(uint64(rec.Nonce), 10)})
		}
	})
	if err != nil {
		return fmt.Errorf("write account record as CSV data: %w", err)
	}

	x.accountsCSV.Flush()

	err = x.accountsCSV.Error()
	if err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	return nil
}

// Discard closes the Creator and removes the files written so far, so the
// snapshot ID can be used again. Use it instead of Close when Write fails.
func (x *Creator) Discard() error {
	x.close()

	err := os.Remove(x.dumpStreams.pathSnapshot)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove snapshot descriptor: %w", err)
	}

	err = os.Remove(x.dumpStreams.pathAccounts)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove account records: %w", err)
	}

	return nil
}

// Close releases underlying resources of the Creator and makes it unusable.
func (x *Creator) Close() {
	x.close()
}
