package dump

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/nspcc-dev/identity-contracts/common"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, accounts ...string) *common.Store {
	st := new(common.Store)
	for i, acc := range accounts {
		require.NoError(t, st.Insert(acc, common.AccountRecord{
			Hash:  common.CredentialHash(acc),
			Nonce: uint32(i),
		}))
	}
	return st
}

func write(t *testing.T, dir string, id ID, s Snapshot, st *common.Store) {
	c, err := NewCreator(dir, id)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Write(s, st))
}

func TestID(t *testing.T) {
	id := ID{Contract: "my-app", Height: 12}
	require.Equal(t, "my-app-12", id.String())

	var res ID
	require.NoError(t, res.decodeFileName(id.String()+sep+snapshotFileSuffix, snapshotFileSuffix))
	require.Equal(t, id, res)

	for _, name := range []string{
		"my-app-12-accounts.csv",
		"12-snapshot.json",
		"app-x-snapshot.json",
		"app-4294967296-snapshot.json",
	} {
		require.Error(t, res.decodeFileName(name, snapshotFileSuffix), name)
	}
}

func TestCreatorReader(t *testing.T) {
	dir := t.TempDir()

	s := Snapshot{
		Scheme:   "ecdsa",
		TxID:     uuid.New(),
		Identity: "bob.myapp",
		Output:   "Successfully registered identity for account: bob.myapp",
		Success:  true,
	}
	st := testStore(t, "carol", "alice", "bob")

	write(t, dir, ID{Contract: "myapp", Height: 0}, Snapshot{Scheme: "ecdsa"}, new(common.Store))
	write(t, dir, ID{Contract: "myapp", Height: 3}, s, st)
	write(t, dir, ID{Contract: "myapp", Height: 2}, Snapshot{Scheme: "ecdsa"}, testStore(t, "alice"))
	write(t, dir, ID{Contract: "other", Height: 7}, Snapshot{Scheme: "oidc"}, new(common.Store))

	_, err := NewCreator(dir, ID{Contract: "myapp", Height: 3})
	require.ErrorIs(t, err, fs.ErrExist)

	var ids []ID
	require.NoError(t, IterateDumps(dir, func(id ID, _ *Reader) {
		ids = append(ids, id)
	}))
	require.ElementsMatch(t, []ID{
		{Contract: "myapp", Height: 0},
		{Contract: "myapp", Height: 2},
		{Contract: "myapp", Height: 3},
		{Contract: "other", Height: 7},
	}, ids)

	id, r, ok, err := Latest(dir, "myapp")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 3, id.Height)
	require.Equal(t, s, r.Snapshot())

	res, err := r.Store()
	require.NoError(t, err)
	require.Equal(t, common.EncodeStore(st), common.EncodeStore(res))

	_, _, ok, err = Latest(dir, "none")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, ok, err = Latest(filepath.Join(dir, "missing"), "myapp")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReader_Corrupted(t *testing.T) {
	dir := t.TempDir()
	id := ID{Contract: "myapp", Height: 1}

	write(t, dir, id, Snapshot{}, testStore(t, "alice"))

	p := filepath.Join(dir, id.String()+sep+accountsFileSuffix)

	require.NoError(t, os.WriteFile(p, []byte("alice,zz,0\n"), 0600))
	_, r, _, err := Latest(dir, "myapp")
	require.NoError(t, err)
	_, err = r.Store()
	require.ErrorIs(t, err, common.ErrCorruptState)

	require.NoError(t, os.WriteFile(p, []byte("alice,"+common.CredentialHash("a")+",x\n"), 0600))
	_, _, _, err = Latest(dir, "myapp")
	require.Error(t, err)
}

func TestCreator_Discard(t *testing.T) {
	dir := t.TempDir()
	id := ID{Contract: "myapp", Height: 1}

	c, err := NewCreator(dir, id)
	require.NoError(t, err)

	// writes to closed files fail halfway
	c.close()
	require.Error(t, c.Write(Snapshot{Scheme: "ecdsa"}, testStore(t, "alice")))
	require.NoError(t, c.Discard())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)

	_, _, ok, err := Latest(dir, "myapp")
	require.NoError(t, err)
	require.False(t, ok)

	write(t, dir, id, Snapshot{Scheme: "ecdsa"}, testStore(t, "alice"))

	id, _, ok, err = Latest(dir, "myapp")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, id.Height)
}
