package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/datastack/internal/editing"
	"github.com/roach88/datastack/internal/store"
)

// ObjectRecord is one listed object.
type ObjectRecord struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// ListResult holds every object of one entity, ordered by id.
type ListResult struct {
	Entity  string         `json:"entity"`
	Count   int            `json:"count"`
	Objects []ObjectRecord `json:"objects"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <entity>",
		Short: "List every object of an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, args[0], cmd)
		},
	}
}

func runList(opts *RootOptions, entityName string, cmd *cobra.Command) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	entity, err := sess.entity(entityName)
	if err != nil {
		return err
	}

	main := sess.stack.MainContext()
	result := ListResult{Entity: entity.Name, Objects: []ObjectRecord{}}
	var fetchErr error
	main.PerformAndWait(func() {
		var objs []*editing.Object
		objs, fetchErr = main.Fetch(cmd.Context(), store.FetchRequest{Entity: entity.Name})
		if fetchErr != nil {
			return
		}
		for _, o := range objs {
			values, err := o.Values()
			if err != nil {
				fetchErr = err
				return
			}
			rec := ObjectRecord{ID: string(o.ID()), Attributes: make(map[string]any, len(values))}
			for k, v := range values {
				rec.Attributes[k] = plainValue(v)
			}
			result.Objects = append(result.Objects, rec)
		}
	})
	if fetchErr != nil {
		return sess.formatter.fail(ExitFailure, ErrCodeStore, "fetch failed", fetchErr)
	}
	result.Count = len(result.Objects)

	if sess.formatter.Format == "json" {
		return sess.formatter.Success(result)
	}

	w := sess.formatter.Writer
	for _, rec := range result.Objects {
		keys := make([]string, 0, len(rec.Attributes))
		for _, a := range entity.Attributes {
			if _, ok := rec.Attributes[a.Name]; ok {
				keys = append(keys, a.Name)
			}
		}
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, rec.Attributes[k])
		}
		fmt.Fprintf(w, "%s  %s\n", rec.ID, strings.Join(parts, " "))
	}
	fmt.Fprintf(w, "%d %s object(s)\n", result.Count, result.Entity)
	return nil
}
