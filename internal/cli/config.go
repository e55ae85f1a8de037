package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/datastack/internal/paths"
)

const (
	configFileName = "datastack"
	configFileType = "yaml"
	envPrefix      = "DATASTACK"

	defaultBundle = "."
	defaultDriver = "sqlite3"
)

// Config keys. Keys that are also flags share the flag's name.
const (
	keyModel       = "model"
	keyBundle      = "bundle"
	keyDir         = "dir"
	keyStoreName   = "store-name"
	keyDriver      = "driver"
	keyMemory      = "memory"
	keyRestricted  = "restricted"
	keyBatchDelete = "batch-delete"
	keyAutoMigrate = "auto-migrate"
)

// boundFlags are the flags that override config file and environment.
var boundFlags = []string{keyModel, keyBundle, keyDir, keyStoreName, keyDriver, keyMemory}

// Settings is the effective configuration after layering defaults,
// datastack.yaml, DATASTACK_* variables, and flags.
type Settings struct {
	Model       string
	Bundle      string
	Dir         string
	StoreName   string
	Driver      string
	Memory      bool
	Restricted  bool
	BatchDelete bool
	AutoMigrate bool
}

// loadSettings reads datastack.yaml from the resolved config directory.
// A missing file is not an error.
func loadSettings(configDirFlag string, cmd *cobra.Command) (Settings, error) {
	configDir, err := paths.ResolveConfigDir(configDirFlag)
	if err != nil {
		return Settings{}, fmt.Errorf("resolve config dir: %w", err)
	}

	v := viper.New()
	v.SetDefault(keyBundle, defaultBundle)
	v.SetDefault(keyDriver, defaultDriver)
	v.SetDefault(keyAutoMigrate, true)

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for _, name := range boundFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(name, f); err != nil {
				return Settings{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	return Settings{
		Model:       v.GetString(keyModel),
		Bundle:      v.GetString(keyBundle),
		Dir:         v.GetString(keyDir),
		StoreName:   v.GetString(keyStoreName),
		Driver:      v.GetString(keyDriver),
		Memory:      v.GetBool(keyMemory),
		Restricted:  v.GetBool(keyRestricted),
		BatchDelete: v.GetBool(keyBatchDelete),
		AutoMigrate: v.GetBool(keyAutoMigrate),
	}, nil
}
