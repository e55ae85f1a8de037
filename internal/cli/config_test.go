package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settingsFor parses args on a fresh root command and returns the
// resolved settings without running a subcommand.
func settingsFor(t *testing.T, args ...string) (Settings, error) {
	t.Helper()
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	var got Settings
	probe := &cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			got = opts.Settings
			return nil
		},
	}
	cmd.AddCommand(probe)
	cmd.SetArgs(append(args, "probe"))
	err := cmd.Execute()
	return got, err
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datastack.yaml"), []byte(body), 0o600))
}

func TestSettingsDefaults(t *testing.T) {
	s, err := settingsFor(t, "--config-dir", t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, Settings{
		Bundle:      ".",
		Driver:      "sqlite3",
		AutoMigrate: true,
	}, s)
}

func TestSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `model: Notes
bundle: models
dir: /var/lib/notes
store-name: archive
driver: sqlite
memory: true
restricted: true
batch-delete: true
auto-migrate: false
`)

	s, err := settingsFor(t, "--config-dir", dir)
	require.NoError(t, err)

	assert.Equal(t, Settings{
		Model:       "Notes",
		Bundle:      "models",
		Dir:         "/var/lib/notes",
		StoreName:   "archive",
		Driver:      "sqlite",
		Memory:      true,
		Restricted:  true,
		BatchDelete: true,
		AutoMigrate: false,
	}, s)
}

func TestSettingsPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "model: FromFile\nstore-name: file\n")

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("DATASTACK_MODEL", "FromEnv")
		t.Setenv("DATASTACK_BATCH_DELETE", "true")

		s, err := settingsFor(t, "--config-dir", dir)
		require.NoError(t, err)
		assert.Equal(t, "FromEnv", s.Model)
		assert.Equal(t, "file", s.StoreName)
		assert.True(t, s.BatchDelete)
	})

	t.Run("flag overrides env", func(t *testing.T) {
		t.Setenv("DATASTACK_MODEL", "FromEnv")
		t.Setenv("DATASTACK_STORE_NAME", "env")

		s, err := settingsFor(t, "--config-dir", dir, "--model", "FromFlag")
		require.NoError(t, err)
		assert.Equal(t, "FromFlag", s.Model)
		assert.Equal(t, "env", s.StoreName)
	})

	t.Run("unset flag keeps file value", func(t *testing.T) {
		writeConfig(t, dir, "driver: sqlite\n")

		s, err := settingsFor(t, "--config-dir", dir)
		require.NoError(t, err)
		assert.Equal(t, "sqlite", s.Driver)
	})
}

func TestSettingsBadFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "model: [unterminated\n")

	_, err := settingsFor(t, "--config-dir", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStackConfig(t *testing.T) {
	cfg := stackConfig(Settings{
		Model:       "Notes",
		Bundle:      "testdata/bundle",
		StoreName:   "n",
		Driver:      "sqlite",
		Memory:      true,
		BatchDelete: true,
		AutoMigrate: false,
	})

	assert.Equal(t, "Notes", cfg.ModelName)
	assert.Equal(t, "in-memory", cfg.StoreKind.String())
	assert.Equal(t, "n", cfg.StoreName)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.True(t, cfg.BatchDelete)
	assert.True(t, cfg.DisableAutoMigrate)

	_, err := cfg.Bundle.Open("Notes.cue")
	require.NoError(t, err)
}
