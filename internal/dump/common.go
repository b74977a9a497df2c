package dump

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ID is a unique identifier of the snapshot prepared according to the model
// described in the current package.
type ID struct {
	// Name of the contract deployment.
	Contract string
	// Number of transactions executed by the contract before the snapshot.
	Height uint32
}

// String returns hyphen-separated ID fields.
func (x ID) String() string {
	return x.Contract + sep + strconv.FormatUint(uint64(x.Height), 10)
}

// decodes ID fields from the file name with the given suffix. Contract names
// may contain separator, so height is taken from the right.
func (x *ID) decodeFileName(name, suffix string) error {
	s, ok := strings.CutSuffix(name, sep+suffix)
	if !ok {
		return fmt.Errorf("missing '%s' suffix", suffix)
	}

	i := strings.LastIndex(s, sep)
	if i <= 0 {
		return fmt.Errorf("expected '%s'-separated contract name and height", sep)
	}

	n, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil {
		return fmt.Errorf("decode height from '%s': %w", s[i+1:], err)
	}

	x.Contract = s[:i]
	x.Height = uint32(n)

	return nil
}

// Snapshot describes the transaction the state resulted from.
type Snapshot struct {
	// Credential scheme of the contract.
	Scheme string `json:"scheme"`
	// Local identifier of the transaction.
	TxID uuid.UUID `json:"tx_id"`
	// Account submitted the transaction.
	Identity string `json:"identity,omitempty"`
	// Output message of the contract.
	Output string `json:"output,omitempty"`
	// Outcome of the action.
	Success bool `json:"success"`
}

// dumpStreams groups data streams for snapshot descriptor and accounts.
type dumpStreams struct {
	snapshot, accounts io.ReadWriteCloser

	pathSnapshot, pathAccounts string
}

// close closes all streams.
func (x *dumpStreams) close() {
	_ = x.accounts.Close()
	_ = x.snapshot.Close()
}

const (
	// word separator used in snapshot file naming
	sep = "-"
	// suffix of file with snapshot descriptor
	snapshotFileSuffix = "snapshot.json"
	// suffix of file with account records
	accountsFileSuffix = "accounts.csv"
)

// initDumpStreams opens data streams for the snapshot files located in the
// specified directory. If read flag is set, streams are read-only. Otherwise,
// files must not exist, and streams are write only.
func initDumpStreams(d *dumpStreams, dir string, id ID, read bool) error {
	var err error

	pathAccounts := filepath.Join(dir, strings.Join([]string{id.String(), accountsFileSuffix}, sep))
	if !read {
		if err = checkFileNotExists(pathAccounts); err != nil {
			return err
		}
	}

	pathSnapshot := filepath.Join(dir, strings.Join([]string{id.String(), snapshotFileSuffix}, sep))
	if !read {
		if err = checkFileNotExists(pathSnapshot); err != nil {
			return err
		}
	}

	var flag int
	var perm os.FileMode

	if read {
		flag = os.O_RDONLY
	} else {
		flag = os.O_CREATE | os.O_WRONLY
		perm = 0600
	}

	d.accounts, err = os.OpenFile(pathAccounts, flag, perm)
	if err != nil {
		return fmt.Errorf("open file with account records: %w", err)
	}

	d.snapshot, err = os.OpenFile(pathSnapshot, flag, perm)
	if err != nil {
		_ = d.accounts.Close()
		if !read {
			_ = os.Remove(pathAccounts)
		}
		return fmt.Errorf("open file with snapshot descriptor: %w", err)
	}

	d.pathSnapshot, d.pathAccounts = pathSnapshot, pathAccounts

	return nil
}
