package schema

import (
	"errors"
	"fmt"
	"io/fs"
)

// Resource extensions, in lookup order.
const (
	ExtCUE  = ".cue"
	ExtYAML = ".yaml"
	// ExtSeed names a prebuilt store shipped next to the model.
	ExtSeed = ".sqlite"
)

// Resolve looks a model up by name in a bundle: <name>.cue first, then
// <name>.yaml. Returns ErrModelNotFound when neither exists.
func Resolve(bundle fs.FS, name string) (*Model, error) {
	if bundle == nil {
		return nil, fmt.Errorf("resolve %q: nil bundle: %w", name, ErrModelNotFound)
	}

	cuePath := name + ExtCUE
	src, err := fs.ReadFile(bundle, cuePath)
	switch {
	case err == nil:
		m, err := CompileCUE(src, cuePath, name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", cuePath, err)
		}
		return m, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", cuePath, err)
	}

	yamlPath := name + ExtYAML
	src, err = fs.ReadFile(bundle, yamlPath)
	switch {
	case err == nil:
		m, err := CompileYAML(src, name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", yamlPath, err)
		}
		return m, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("resolve %q: %w", name, ErrModelNotFound)
	default:
		return nil, fmt.Errorf("read %s: %w", yamlPath, err)
	}
}

// SeedPath returns the bundle path of the prebuilt store for a model and
// whether it exists.
func SeedPath(bundle fs.FS, name string) (string, bool) {
	if bundle == nil {
		return "", false
	}
	p := name + ExtSeed
	info, err := fs.Stat(bundle, p)
	if err != nil || info.IsDir() {
		return "", false
	}
	return p, true
}
