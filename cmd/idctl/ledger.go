package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/nspcc-dev/identity-contracts/internal/config"
	"github.com/nspcc-dev/identity-contracts/internal/dump"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"go.uber.org/zap"
)

// contract is an identity contract executed by the ledger.
type contract interface {
	Execute(common.ContractInput) (common.Result, error)
}

// wrapper over snapshot directory providing contract services needed for
// current commands. Each submitted transaction is executed against the latest
// state and the resulting state is persisted as the next snapshot.
type localLedger struct {
	dir      string
	contract string
	scheme   string
	log      *zap.Logger

	height uint32
	state  *common.Store
}

// initLedger writes empty state of the configured contract as the zero
// snapshot.
func initLedger(cfg config.Config, log *zap.Logger) error {
	_, _, ok, err := dump.Latest(cfg.LedgerDir, cfg.Contract.Name)
	if err != nil {
		return fmt.Errorf("read latest snapshot: %w", err)
	}

	if ok {
		return fmt.Errorf("contract '%s' is already initialized in '%s'", cfg.Contract.Name, cfg.LedgerDir)
	}

	err = os.MkdirAll(cfg.LedgerDir, 0700)
	if err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	l := &localLedger{
		dir:      cfg.LedgerDir,
		contract: cfg.Contract.Name,
		scheme:   cfg.Contract.Scheme,
		log:      log,
		state:    new(common.Store),
	}

	err = l.persist(dump.ID{Contract: l.contract}, dump.Snapshot{Scheme: l.scheme, TxID: uuid.New(), Success: true}, l.state)
	if err != nil {
		return err
	}

	log.Info("contract initialized",
		zap.String("contract", l.contract),
		zap.String("scheme", l.scheme),
		zap.String("state", commitment(l.state)))

	return nil
}

// openLedger reads the latest snapshot of the configured contract.
func openLedger(cfg config.Config, log *zap.Logger) (*localLedger, error) {
	id, r, ok, err := dump.Latest(cfg.LedgerDir, cfg.Contract.Name)
	if err != nil {
		return nil, fmt.Errorf("read latest snapshot: %w", err)
	}

	if !ok {
		return nil, fmt.Errorf("contract '%s' is not initialized in '%s'", cfg.Contract.Name, cfg.LedgerDir)
	}

	if s := r.Snapshot().Scheme; s != cfg.Contract.Scheme {
		return nil, fmt.Errorf("contract '%s' uses '%s' scheme, configured '%s'", cfg.Contract.Name, s, cfg.Contract.Scheme)
	}

	st, err := r.Store()
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}

	return &localLedger{
		dir:      cfg.LedgerDir,
		contract: cfg.Contract.Name,
		scheme:   cfg.Contract.Scheme,
		log:      log,
		height:   id.Height,
		state:    st,
	}, nil
}

// submit executes transaction consisting of the given foreign blobs followed
// by the blob of the ledger contract. The resulting state becomes the latest
// one.
func (x *localLedger) submit(c contract, identity string, data []byte, privateInput []byte, others []common.Blob) (common.Result, error) {
	txID := uuid.New()

	blobs := append(others[:len(others):len(others)], common.Blob{Contract: x.contract, Data: data})

	res, err := c.Execute(common.ContractInput{
		InitialState: common.EncodeStore(x.state),
		Identity:     identity,
		TxHash:       txID.String(),
		PrivateInput: privateInput,
		Blobs:        blobs,
		Index:        len(blobs) - 1,
	})
	if err != nil {
		return res, err
	}

	st, err := common.DecodeStore(res.State)
	if err != nil {
		return res, fmt.Errorf("decode resulting state: %w", err)
	}

	id := dump.ID{Contract: x.contract, Height: x.height + 1}

	err = x.persist(id, dump.Snapshot{
		Scheme:   x.scheme,
		TxID:     txID,
		Identity: identity,
		Output:   res.Output,
		Success:  res.Success,
	}, st)
	if err != nil {
		return res, err
	}

	x.height, x.state = id.Height, st

	x.log.Info("transaction executed",
		zap.Stringer("tx", txID),
		zap.Uint32("height", x.height),
		zap.Bool("success", res.Success),
		zap.String("state", commitment(st)))

	return res, nil
}

func (x *localLedger) persist(id dump.ID, s dump.Snapshot, st *common.Store) error {
	d, err := dump.NewCreator(x.dir, id)
	if err != nil {
		return fmt.Errorf("init snapshot %s: %w", id, err)
	}

	err = d.Write(s, st)
	if err != nil {
		if dErr := d.Discard(); dErr != nil {
			x.log.Warn("failed to remove incomplete snapshot", zap.Stringer("id", id), zap.Error(dErr))
		}
		return fmt.Errorf("write snapshot %s: %w", id, err)
	}

	d.Close()

	return nil
}

// commitment returns base58-encoded SHA-256 of the state digest.
func commitment(st *common.Store) string {
	return base58.Encode(hash.Sha256(common.EncodeStore(st)).BytesBE())
}

// parseBlobs decodes '<contract>:<hex data>' blobs of the transaction.
func parseBlobs(ss []string) ([]common.Blob, error) {
	res := make([]common.Blob, 0, len(ss))

	for _, s := range ss {
		name, data, ok := strings.Cut(s, ":")
		if !ok || !common.CheckContractName(name) {
			return nil, fmt.Errorf("invalid blob '%s', expected '<contract>:<hex data>'", s)
		}

		b, err := decodeHex(data)
		if err != nil {
			return nil, fmt.Errorf("blob of '%s': %w", name, err)
		}

		res = append(res, common.Blob{Contract: name, Data: b})
	}

	return res, nil
}
