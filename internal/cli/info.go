package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/datastack/internal/ir"
)

// InfoResult describes the open store and its model.
type InfoResult struct {
	Model    string       `json:"model"`
	Version  int64        `json:"version"`
	Kind     string       `json:"kind"`
	Location string       `json:"location,omitempty"`
	Entities []EntityInfo `json:"entities"`
}

// EntityInfo describes one entity of the model.
type EntityInfo struct {
	Name       string          `json:"name"`
	Attributes []AttributeInfo `json:"attributes"`
}

// AttributeInfo describes one attribute.
type AttributeInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Optional bool   `json:"optional,omitempty"`
	Default  any    `json:"default,omitempty"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the store location and model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(rootOpts, cmd)
		},
	}
}

func runInfo(opts *RootOptions, cmd *cobra.Command) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	coord, err := sess.stack.Coordinator()
	if err != nil {
		return sess.formatter.fail(ExitCommandError, ErrCodeStore, "open store", err)
	}

	result := InfoResult{
		Model:    sess.model.Name,
		Version:  sess.model.Version,
		Kind:     coord.Store().Kind().String(),
		Location: coord.Location(),
	}
	for _, name := range sess.model.EntityNames() {
		e, _ := sess.model.Entity(name)
		info := EntityInfo{Name: e.Name}
		for _, a := range e.Attributes {
			info.Attributes = append(info.Attributes, AttributeInfo{
				Name:     a.Name,
				Type:     string(a.Type),
				Optional: a.Optional,
				Default:  plainValue(a.Default),
			})
		}
		result.Entities = append(result.Entities, info)
	}

	if sess.formatter.Format == "json" {
		return sess.formatter.Success(result)
	}

	w := sess.formatter.Writer
	fmt.Fprintf(w, "model:    %s (version %d)\n", result.Model, result.Version)
	fmt.Fprintf(w, "kind:     %s\n", result.Kind)
	if result.Location != "" {
		fmt.Fprintf(w, "location: %s\n", result.Location)
	}
	for _, e := range result.Entities {
		fmt.Fprintf(w, "\n%s\n", e.Name)
		for _, a := range e.Attributes {
			line := fmt.Sprintf("  %-12s %s", a.Name, a.Type)
			if a.Optional {
				line += " optional"
			}
			if a.Default != nil {
				line += fmt.Sprintf(" default=%v", a.Default)
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

// plainValue converts a Value to the Go value encoding/json expects.
// nil stays nil.
func plainValue(v ir.Value) any {
	switch val := v.(type) {
	case ir.String:
		return string(val)
	case ir.Int:
		return int64(val)
	case ir.Bool:
		return bool(val)
	default:
		return nil
	}
}
