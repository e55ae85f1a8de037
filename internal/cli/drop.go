package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DropResult reports the dropped store.
type DropResult struct {
	Location string `json:"location,omitempty"`
}

// NewDropCommand creates the drop command.
func NewDropCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Delete the store files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrop(rootOpts, cmd)
		},
	}
}

// runDrop deletes the store without opening it first.
func runDrop(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	s, err := newStack(opts, formatter, newLogger(formatter))
	if err != nil {
		return err
	}
	defer s.Close()

	location, err := s.Location()
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, "resolve store location", err)
	}
	s.Drop()

	result := DropResult{Location: location}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if location == "" {
		fmt.Fprintln(formatter.Writer, "dropped in-memory store")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "dropped %s\n", location)
	return nil
}
