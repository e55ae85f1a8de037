package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// PurgeResult reports a purged entity.
type PurgeResult struct {
	Entity string `json:"entity"`
	Batch  bool   `json:"batch"`
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <entity>",
		Short: "Delete every object of an entity and persist",
		Long: `Delete every object of an entity.

With batch-delete enabled in the configuration the store is cleared in one
statement. Otherwise objects are deleted through the main context. Neither
path follows relationships; this is a maintenance command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(rootOpts, args[0], cmd)
		},
	}
}

func runPurge(opts *RootOptions, entityName string, cmd *cobra.Command) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	entity, err := sess.entity(entityName)
	if err != nil {
		return err
	}

	if !sess.stack.PurgeEntities(entity.Name, nil) {
		return sess.formatter.fail(ExitFailure, ErrCodeStore, "purge failed for "+entity.Name, nil)
	}
	if err := sess.stack.PersistContext(cmd.Context()); err != nil {
		return sess.persistFailed(err)
	}

	result := PurgeResult{Entity: entity.Name, Batch: opts.Settings.BatchDelete}
	if sess.formatter.Format == "json" {
		return sess.formatter.Success(result)
	}
	fmt.Fprintf(sess.formatter.Writer, "purged %s\n", result.Entity)
	return nil
}
