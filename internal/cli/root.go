package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/datastack/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	ConfigDir string
	Dir       string
	Model     string
	Bundle    string
	StoreName string
	Driver    string
	Memory    bool

	// Settings is resolved from flags, environment, and datastack.yaml
	// before any subcommand runs.
	Settings Settings

	ids ir.IDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the datastack CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datastack",
		Short: "datastack - managed object persistence",
		Long: `Inspect and edit a datastack store from the command line.

The model is read from <model>.cue or <model>.yaml in the bundle directory.
Durable stores live in <dir>/<store-name>.sqlite. Every flag may also be set
in datastack.yaml in the config directory or as a DATASTACK_* variable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			settings, err := loadSettings(opts.ConfigDir, cmd)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			opts.Settings = settings
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	flags.StringVar(&opts.Dir, keyDir, "", "store directory (default: platform documents dir)")
	flags.StringVarP(&opts.Model, keyModel, "m", "", "model name")
	flags.StringVar(&opts.Bundle, keyBundle, defaultBundle, "directory holding the model files")
	flags.StringVar(&opts.StoreName, keyStoreName, "", "store file name without extension (default: model name)")
	flags.StringVar(&opts.Driver, keyDriver, defaultDriver, "sqlite driver (sqlite3|sqlite)")
	flags.BoolVar(&opts.Memory, keyMemory, false, "use an in-memory store")

	// Add subcommands
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewInsertCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	cmd.AddCommand(NewDropCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
