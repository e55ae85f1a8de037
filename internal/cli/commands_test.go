package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datastack/internal/ir"
	"github.com/roach88/datastack/internal/schema"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// cliEnv is an isolated config and store directory pair.
type cliEnv struct {
	configDir string
	storeDir  string
	ids       ir.IDGenerator
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	return &cliEnv{
		configDir: t.TempDir(),
		storeDir:  t.TempDir(),
		ids:       ir.NewSequenceGenerator("note"),
	}
}

// run executes one command line against the environment's store.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	base := []string{
		"--config-dir", e.configDir,
		"--dir", e.storeDir,
		"--bundle", "testdata/bundle",
		"--model", "Notes",
	}
	return execute(t, &RootOptions{ids: e.ids}, append(base, args...)...)
}

func execute(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestInfoMemoryJSON(t *testing.T) {
	out, err := execute(t, &RootOptions{},
		"--config-dir", t.TempDir(),
		"--bundle", "testdata/bundle",
		"--model", "Notes",
		"--memory",
		"--format", "json",
		"info")
	require.NoError(t, err)

	newGoldie(t).Assert(t, "info_memory", []byte(out))
}

func TestInfoText(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "info")
	require.NoError(t, err)

	assert.Contains(t, out, "model:    Notes (version 1)")
	assert.Contains(t, out, "kind:     durable")
	assert.Contains(t, out, filepath.Join(env.storeDir, "Notes.sqlite"))
	assert.Contains(t, out, "pinned")
	assert.Contains(t, out, "default=false")
}

func TestInsertAndList(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "insert", "Note", "title=first", "rank=3")
	require.NoError(t, err)
	assert.Equal(t, "inserted Note note-0001\n", out)

	out, err = env.run(t, "--format", "json", "insert", "Note", "title=second", "pinned=true")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"id": "note-0002", "entity": "Note"}, resp.Data)

	// Each command opens the store afresh, so this reads what was persisted.
	out, err = env.run(t, "--format", "json", "list", "Note")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "list_notes", []byte(out))

	out, err = env.run(t, "list", "Note")
	require.NoError(t, err)
	assert.Contains(t, out, "note-0001  pinned=false rank=3 title=first")
	assert.Contains(t, out, "note-0002  pinned=true title=second")
	assert.Contains(t, out, "2 Note object(s)")
}

func TestInsertNullOptional(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "insert", "Note", "title=a", "body=null")
	require.NoError(t, err)

	out, err := env.run(t, "--format", "json", "list", "Note")
	require.NoError(t, err)

	var resp struct {
		Data ListResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Objects, 1)
	assert.Nil(t, resp.Data.Objects[0].Attributes["body"])
	assert.Equal(t, "a", resp.Data.Objects[0].Attributes["title"])
}

func TestInsertErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		exitCode int
		errCode  string
	}{
		{"unknown entity", []string{"insert", "Nope", "title=x"}, ExitCommandError, ErrCodeInvalidArgs},
		{"not key=value", []string{"insert", "Note", "title"}, ExitCommandError, ErrCodeInvalidArgs},
		{"unknown attribute", []string{"insert", "Note", "title=x", "color=red"}, ExitCommandError, ErrCodeInvalidArgs},
		{"bad int", []string{"insert", "Note", "title=x", "rank=high"}, ExitCommandError, ErrCodeInvalidArgs},
		{"bad bool", []string{"insert", "Note", "title=x", "pinned=maybe"}, ExitCommandError, ErrCodeInvalidArgs},
		{"missing required", []string{"insert", "Note", "rank=1"}, ExitFailure, ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCLIEnv(t)

			out, err := env.run(t, append([]string{"--format", "json"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))

			resp := decodeResponse(t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.errCode, resp.Error.Code)
		})
	}
}

func TestInsertRejectedLeavesStoreEmpty(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "insert", "Note", "rank=1")
	require.Error(t, err)

	out, err := env.run(t, "list", "Note")
	require.NoError(t, err)
	assert.Equal(t, "0 Note object(s)\n", out)
}

func TestOpenErrors(t *testing.T) {
	t.Run("no model", func(t *testing.T) {
		out, err := execute(t, &RootOptions{},
			"--config-dir", t.TempDir(),
			"--memory",
			"--format", "json",
			"info")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Equal(t, ErrCodeInvalidArgs, decodeResponse(t, out).Error.Code)
	})

	t.Run("model not in bundle", func(t *testing.T) {
		out, err := execute(t, &RootOptions{},
			"--config-dir", t.TempDir(),
			"--bundle", "testdata/bundle",
			"--model", "Missing",
			"--memory",
			"--format", "json",
			"info")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Equal(t, ErrCodeModel, decodeResponse(t, out).Error.Code)
	})

	t.Run("store unusable", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

		out, err := execute(t, &RootOptions{},
			"--config-dir", t.TempDir(),
			"--dir", filepath.Join(blocker, "sub"),
			"--bundle", "testdata/bundle",
			"--model", "Notes",
			"--format", "json",
			"info")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Equal(t, ErrCodeStore, decodeResponse(t, out).Error.Code)
	})
}

func TestPurge(t *testing.T) {
	for _, batch := range []bool{false, true} {
		name := "context"
		if batch {
			name = "batch"
		}
		t.Run(name, func(t *testing.T) {
			env := newCLIEnv(t)
			if batch {
				require.NoError(t, os.WriteFile(
					filepath.Join(env.configDir, "datastack.yaml"),
					[]byte("batch-delete: true\n"), 0o600))
			}

			for _, title := range []string{"a", "b", "c"} {
				_, err := env.run(t, "insert", "Note", "title="+title)
				require.NoError(t, err)
			}
			_, err := env.run(t, "insert", "Tag", "label=keep")
			require.NoError(t, err)

			out, err := env.run(t, "--format", "json", "purge", "Note")
			require.NoError(t, err)
			resp := decodeResponse(t, out)
			assert.Equal(t, map[string]any{"entity": "Note", "batch": batch}, resp.Data)

			out, err = env.run(t, "list", "Note")
			require.NoError(t, err)
			assert.Equal(t, "0 Note object(s)\n", out)

			out, err = env.run(t, "list", "Tag")
			require.NoError(t, err)
			assert.Contains(t, out, "1 Tag object(s)")
		})
	}
}

func TestPurgeUnknownEntity(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "purge", "Nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDrop(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run(t, "insert", "Note", "title=gone")
	require.NoError(t, err)
	location := filepath.Join(env.storeDir, "Notes.sqlite")
	require.FileExists(t, location)

	out, err := env.run(t, "--format", "json", "drop")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"location": location}, decodeResponse(t, out).Data)
	assert.NoFileExists(t, location)
	assert.NoFileExists(t, location+"-wal")
	assert.NoFileExists(t, location+"-shm")

	out, err = env.run(t, "list", "Note")
	require.NoError(t, err)
	assert.Equal(t, "0 Note object(s)\n", out)
}

func TestDropNeverOpened(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "drop")
	require.NoError(t, err)
	assert.Equal(t, "dropped "+filepath.Join(env.storeDir, "Notes.sqlite")+"\n", out)
	assert.NoFileExists(t, filepath.Join(env.storeDir, "Notes.sqlite"))
}

func TestDropMemory(t *testing.T) {
	out, err := execute(t, &RootOptions{},
		"--config-dir", t.TempDir(),
		"--bundle", "testdata/bundle",
		"--model", "Notes",
		"--memory",
		"drop")
	require.NoError(t, err)
	assert.Equal(t, "dropped in-memory store\n", out)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		kind ir.ValueKind
		opt  bool
		want ir.Value
		err  bool
	}{
		{"hello", ir.KindString, false, ir.String("hello"), false},
		{"null", ir.KindString, false, ir.String("null"), false},
		{"null", ir.KindString, true, ir.Null{}, false},
		{"-7", ir.KindInt, false, ir.Int(-7), false},
		{"7.5", ir.KindInt, false, nil, true},
		{"true", ir.KindBool, false, ir.Bool(true), false},
		{"0", ir.KindBool, false, ir.Bool(false), false},
		{"yes", ir.KindBool, false, nil, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.raw, func(t *testing.T) {
			v, err := parseValue(schema.Attribute{Name: "a", Type: tt.kind, Optional: tt.opt}, tt.raw)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}
