package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/datastack/internal/ir"
	"github.com/roach88/datastack/internal/schema"
)

// InsertResult identifies the inserted object.
type InsertResult struct {
	ID     string `json:"id"`
	Entity string `json:"entity"`
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <entity> [key=value...]",
		Short: "Insert an object and persist it",
		Long: `Insert one object into the main context and persist the stack.

Values are parsed by the attribute's declared type. "null" clears an
optional attribute. Unset attributes take their model defaults.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(rootOpts, args[0], args[1:], cmd)
		},
	}
}

func runInsert(opts *RootOptions, entityName string, pairs []string, cmd *cobra.Command) error {
	sess, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer sess.close()

	entity, err := sess.entity(entityName)
	if err != nil {
		return err
	}
	attrs, err := parseAttrs(entity, pairs)
	if err != nil {
		return sess.formatter.fail(ExitCommandError, ErrCodeInvalidArgs, "invalid attributes", err)
	}

	main := sess.stack.MainContext()
	var (
		id        ir.ObjectID
		insertErr error
	)
	main.PerformAndWait(func() {
		o, err := main.Insert(entity.Name, attrs)
		if err != nil {
			insertErr = err
			return
		}
		id = o.ID()
	})
	if insertErr != nil {
		return sess.formatter.fail(ExitFailure, ErrCodeValidation, "insert rejected", insertErr)
	}
	sess.formatter.VerboseLog("Inserted %s %s", entity.Name, id)

	if err := sess.stack.PersistContext(cmd.Context()); err != nil {
		return sess.persistFailed(err)
	}

	result := InsertResult{ID: string(id), Entity: entity.Name}
	if sess.formatter.Format == "json" {
		return sess.formatter.Success(result)
	}
	fmt.Fprintf(sess.formatter.Writer, "inserted %s %s\n", result.Entity, result.ID)
	return nil
}

// parseAttrs parses key=value pairs by each attribute's declared type.
func parseAttrs(e *schema.Entity, pairs []string) (ir.Attrs, error) {
	attrs := make(ir.Attrs, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		a, ok := e.Attribute(key)
		if !ok {
			return nil, fmt.Errorf("%s has no attribute %q", e.Name, key)
		}
		v, err := parseValue(a, raw)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		attrs[key] = v
	}
	return attrs, nil
}

func parseValue(a schema.Attribute, raw string) (ir.Value, error) {
	if raw == "null" && a.Optional {
		return ir.Null{}, nil
	}
	switch a.Type {
	case ir.KindString:
		return ir.String(raw), nil
	case ir.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an int: %q", raw)
		}
		return ir.Int(n), nil
	case ir.KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("not a bool: %q", raw)
		}
		return ir.Bool(b), nil
	default:
		return nil, fmt.Errorf("unsupported type %s", a.Type)
	}
}
