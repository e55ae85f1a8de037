package coordinator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datastack/internal/ir"
	"github.com/roach88/datastack/internal/schema"
	"github.com/roach88/datastack/internal/store"
	"github.com/roach88/datastack/internal/testutil"
)

func durableConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Kind:        store.Durable,
		ModelName:   "Notes",
		Bundle:      testutil.NotesBundle(),
		Dir:         t.TempDir(),
		AutoMigrate: true,
	}
}

func open(t *testing.T, cfg Config) *Coordinator {
	t.Helper()
	c, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func noteCount(t *testing.T, st store.Store) int {
	t.Helper()
	snaps, err := st.Fetch(context.Background(), store.FetchRequest{Entity: "Note"})
	require.NoError(t, err)
	return len(snaps)
}

func TestOpenInMemory(t *testing.T) {
	c := open(t, Config{Kind: store.InMemory, ModelName: "Notes", Bundle: testutil.NotesBundle()})

	assert.Equal(t, "Notes", c.Model().Name)
	assert.Equal(t, store.InMemory, c.Store().Kind())
	assert.Empty(t, c.Location())
}

func TestOpenDisposableIsPrivate(t *testing.T) {
	a, err := OpenDisposable(testutil.NotesBundle(), "Notes")
	require.NoError(t, err)
	defer a.Close()
	b, err := OpenDisposable(testutil.NotesBundle(), "Notes")
	require.NoError(t, err)
	defer b.Close()

	assert.NotSame(t, a.Store(), b.Store())
	assert.Equal(t, store.InMemory, a.Store().Kind())
}

func TestOpenMissingModelIsFatal(t *testing.T) {
	_, err := Open(Config{Kind: store.InMemory, ModelName: "Missing", Bundle: testutil.NotesBundle()})
	require.Error(t, err)

	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, StageSchema, fe.Stage)
	assert.Equal(t, "Missing", fe.Model)
	assert.ErrorIs(t, err, schema.ErrModelNotFound)
	assert.True(t, IsFatal(err))
	assert.Equal(t, StageSchema, FatalStage(err))
}

func TestOpenDurableCreatesFile(t *testing.T) {
	cfg := durableConfig(t)
	c := open(t, cfg)

	want := filepath.Join(cfg.Dir, "Notes.sqlite")
	assert.Equal(t, want, c.Location())
	assert.Equal(t, store.Durable, c.Store().Kind())
	assert.FileExists(t, want)
}

func TestStoreNameOverridesFileName(t *testing.T) {
	cfg := durableConfig(t)
	cfg.StoreName = "Journal"
	c := open(t, cfg)
	assert.Equal(t, filepath.Join(cfg.Dir, "Journal.sqlite"), c.Location())
}

func TestLocationDoesNotTouchFilesystem(t *testing.T) {
	cfg := durableConfig(t)
	cfg.Dir = filepath.Join(cfg.Dir, "not", "yet")

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Dir, "Notes.sqlite"), loc)
	assert.NoDirExists(t, cfg.Dir)

	mem := Config{Kind: store.InMemory}
	loc, err = mem.Location()
	require.NoError(t, err)
	assert.Empty(t, loc)
}

// A file that is not a database is deleted and the store recreated empty.
func TestOpenRecoversUnreadableFile(t *testing.T) {
	cfg := durableConfig(t)
	path := filepath.Join(cfg.Dir, "Notes.sqlite")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database, just noise"), 0o644))
	require.NoError(t, os.WriteFile(path+"-wal", []byte("stale"), 0o644))

	c := open(t, cfg)
	assert.Equal(t, 0, noteCount(t, c.Store()))

	err := c.Store().Apply(context.Background(), ir.ChangeSet{Inserted: []ir.Snapshot{
		{ID: "n1", Entity: "Note", Attrs: ir.Attrs{"title": ir.String("after recovery")}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, noteCount(t, c.Store()))
}

func TestOpenDurableFailsTwiceIsFatal(t *testing.T) {
	cfg := durableConfig(t)
	cfg.Driver = "postgres"

	_, err := Open(cfg)
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, StageDurableAttach, fe.Stage)
	assert.Equal(t, filepath.Join(cfg.Dir, "Notes.sqlite"), fe.Path)
}

func TestOpenUnusableDirIsFatal(t *testing.T) {
	cfg := durableConfig(t)
	blocker := filepath.Join(cfg.Dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg.Dir = filepath.Join(blocker, "sub")

	_, err := Open(cfg)
	assert.Equal(t, StageDurableAttach, FatalStage(err))
}

func seedBytes(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.sqlite")
	st, err := store.OpenSQLite(path, testutil.NotesModel(t))
	require.NoError(t, err)
	err = st.Apply(context.Background(), ir.ChangeSet{Inserted: []ir.Snapshot{
		{ID: "seeded", Entity: "Note", Attrs: ir.Attrs{"title": ir.String("from seed"), "pinned": ir.Bool(false)}},
	}})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestOpenSeedsMissingFile(t *testing.T) {
	cfg := durableConfig(t)
	bundle := testutil.NotesBundle()
	bundle["Notes.sqlite"] = &fstest.MapFile{Data: seedBytes(t)}
	cfg.Bundle = bundle

	c := open(t, cfg)
	snap, err := c.Store().Get(context.Background(), "seeded")
	require.NoError(t, err)
	assert.Equal(t, ir.String("from seed"), snap.Attrs["title"])
}

func TestOpenDoesNotReseedExistingFile(t *testing.T) {
	cfg := durableConfig(t)
	first := open(t, cfg)
	require.NoError(t, first.Close())

	bundle := testutil.NotesBundle()
	bundle["Notes.sqlite"] = &fstest.MapFile{Data: seedBytes(t)}
	cfg.Bundle = bundle

	c := open(t, cfg)
	assert.Equal(t, 0, noteCount(t, c.Store()))
}

// A broken seed is copied, fails to attach, and is replaced by an empty store.
func TestOpenBrokenSeedRecovers(t *testing.T) {
	cfg := durableConfig(t)
	bundle := testutil.NotesBundle()
	bundle["Notes.sqlite"] = &fstest.MapFile{Data: []byte("garbage seed")}
	cfg.Bundle = bundle

	c := open(t, cfg)
	assert.Equal(t, 0, noteCount(t, c.Store()))
}

func TestStoreFilesAndRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Notes.sqlite")
	assert.Equal(t, []string{path, path + "-wal", path + "-shm"}, StoreFiles(path))

	for _, f := range StoreFiles(path) {
		require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))
	}
	require.NoError(t, RemoveFiles(path))
	for _, f := range StoreFiles(path) {
		assert.NoFileExists(t, f)
	}

	assert.NoError(t, RemoveFiles(path), "missing files are fine")
}

func TestFatalErrorMessage(t *testing.T) {
	err := &FatalError{Stage: StageDurableAttach, Model: "Notes", Path: "/x/Notes.sqlite", Err: errors.New("boom")}
	assert.Equal(t, `durable-attach: model "Notes" at /x/Notes.sqlite: boom`, err.Error())

	err = &FatalError{Stage: StageSchema, Model: "Notes", Err: errors.New("boom")}
	assert.Equal(t, `schema: model "Notes": boom`, err.Error())
	assert.False(t, IsFatal(errors.New("plain")))
}
