package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/datastack/internal/coordinator"
	"github.com/roach88/datastack/internal/schema"
	"github.com/roach88/datastack/internal/stack"
	"github.com/roach88/datastack/internal/store"
)

// session is one command's view of the stack.
type session struct {
	stack     *stack.Stack
	model     *schema.Model
	formatter *OutputFormatter
	logger    *slog.Logger
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newLogger logs to the formatter's diagnostic writer so JSON output stays
// clean.
func newLogger(formatter *OutputFormatter) *slog.Logger {
	level := slog.LevelWarn
	if formatter.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{Level: level}))
}

// stackConfig maps the effective settings onto a stack configuration.
func stackConfig(s Settings) stack.Config {
	kind := store.Durable
	if s.Memory {
		kind = store.InMemory
	}
	return stack.Config{
		StoreKind:          kind,
		ModelName:          s.Model,
		Bundle:             os.DirFS(s.Bundle),
		StoreName:          s.StoreName,
		Dir:                s.Dir,
		Restricted:         s.Restricted,
		Driver:             s.Driver,
		DisableAutoMigrate: !s.AutoMigrate,
		BatchDelete:        s.BatchDelete,
	}
}

// newStack builds the stack without opening it.
func newStack(opts *RootOptions, formatter *OutputFormatter, logger *slog.Logger) (*stack.Stack, error) {
	if opts.Settings.Model == "" {
		return nil, formatter.fail(ExitCommandError, ErrCodeInvalidArgs, "no model: set --model or model in datastack.yaml", nil)
	}

	stackOpts := []stack.Option{stack.WithLogger(logger)}
	if opts.ids != nil {
		stackOpts = append(stackOpts, stack.WithIDGenerator(opts.ids))
	}
	s, err := stack.New(stackConfig(opts.Settings), stackOpts...)
	if err != nil {
		return nil, formatter.fail(ExitCommandError, ErrCodeInvalidArgs, "invalid configuration", err)
	}
	return s, nil
}

// openSession builds the stack and opens its store, reporting open
// failures instead of exiting.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	formatter := newFormatter(opts, cmd)
	logger := newLogger(formatter)

	s, err := newStack(opts, formatter, logger)
	if err != nil {
		return nil, err
	}

	coord, err := s.Coordinator()
	if err != nil {
		code := ErrCodeStore
		if coordinator.FatalStage(err) == coordinator.StageSchema {
			code = ErrCodeModel
		}
		return nil, formatter.fail(ExitCommandError, code, "open store", err)
	}
	formatter.VerboseLog("Opened %s store %s", opts.Settings.Model, coord.Location())

	return &session{stack: s, model: coord.Model(), formatter: formatter, logger: logger}, nil
}

func (s *session) close() {
	if err := s.stack.Close(); err != nil {
		s.logger.Warn("close store", "error", err)
	}
}

// entity resolves an entity name against the model.
func (s *session) entity(name string) (*schema.Entity, error) {
	e, ok := s.model.Entity(name)
	if !ok {
		return nil, s.formatter.fail(ExitCommandError, ErrCodeInvalidArgs, "unknown entity "+name, nil)
	}
	return e, nil
}

// persistFailed maps a persist error onto an exit error.
func (s *session) persistFailed(err error) error {
	if schema.IsValidationError(err) {
		return s.formatter.fail(ExitFailure, ErrCodeValidation, "save rejected", err)
	}
	return s.formatter.fail(ExitFailure, ErrCodeStore, "save failed", err)
}
