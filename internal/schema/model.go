// Package schema holds the object model a store is opened with: the entity
// kinds, their attributes, and the rules a commit is validated against.
//
// Models are declared in CUE (<name>.cue) or YAML (<name>.yaml) files that
// live in a bundle (any fs.FS). Resolve looks a model up by name the same way
// for every store kind. A compiled Model is immutable and safe to share
// across goroutines.
package schema

import (
	"fmt"
	"slices"

	"github.com/roach88/datastack/internal/ir"
)

// Attribute describes one named, typed property of an entity.
type Attribute struct {
	Name     string
	Type     ir.ValueKind
	Optional bool
	// Default is applied at insert time when the caller leaves the
	// attribute unset. Nil means no default.
	Default ir.Value
}

// Entity is one kind of managed object.
type Entity struct {
	Name       string
	Attributes []Attribute // sorted by name

	byName map[string]int
}

// Attribute looks up an attribute by name.
func (e *Entity) Attribute(name string) (Attribute, bool) {
	i, ok := e.byName[name]
	if !ok {
		return Attribute{}, false
	}
	return e.Attributes[i], true
}

// Defaults returns the default values of every attribute that has one.
func (e *Entity) Defaults() ir.Attrs {
	out := make(ir.Attrs)
	for _, a := range e.Attributes {
		if a.Default != nil {
			out[a.Name] = a.Default
		}
	}
	return out
}

// Model is a compiled object model.
type Model struct {
	Name     string
	Version  int64
	entities map[string]*Entity
	hash     string
}

// NewModel builds a model from entity definitions, validating names and
// attribute types. Attributes are sorted by name.
func NewModel(name string, version int64, entities []*Entity) (*Model, error) {
	if name == "" {
		return nil, &CompileError{Field: "name", Message: "model name is required"}
	}
	if len(entities) == 0 {
		return nil, &CompileError{Field: "entity", Message: "at least one entity is required"}
	}

	m := &Model{
		Name:     name,
		Version:  version,
		entities: make(map[string]*Entity, len(entities)),
	}
	for _, e := range entities {
		if e.Name == "" {
			return nil, &CompileError{Field: "entity", Message: "entity name is required"}
		}
		if _, dup := m.entities[e.Name]; dup {
			return nil, &CompileError{Field: "entity." + e.Name, Message: "duplicate entity"}
		}
		if err := e.index(); err != nil {
			return nil, err
		}
		m.entities[e.Name] = e
	}

	canonical, err := m.Canonical()
	if err != nil {
		return nil, err
	}
	m.hash = ir.ModelHash(canonical)
	return m, nil
}

func (e *Entity) index() error {
	slices.SortFunc(e.Attributes, func(a, b Attribute) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})

	e.byName = make(map[string]int, len(e.Attributes))
	for i, a := range e.Attributes {
		field := fmt.Sprintf("entity.%s.attribute.%s", e.Name, a.Name)
		if a.Name == "" {
			return &CompileError{Field: "entity." + e.Name, Message: "attribute name is required"}
		}
		if _, dup := e.byName[a.Name]; dup {
			return &CompileError{Field: field, Message: "duplicate attribute"}
		}
		switch a.Type {
		case ir.KindString, ir.KindInt, ir.KindBool:
		default:
			return &CompileError{Field: field + ".type", Message: fmt.Sprintf("unsupported type %q (string, int, bool)", a.Type)}
		}
		if a.Default != nil && a.Default.Kind() != a.Type {
			return &CompileError{Field: field + ".default", Message: fmt.Sprintf("default is %s, attribute is %s", a.Default.Kind(), a.Type)}
		}
		e.byName[a.Name] = i
	}
	return nil
}

// Entity looks up an entity by name.
func (m *Model) Entity(name string) (*Entity, bool) {
	e, ok := m.entities[name]
	return e, ok
}

// EntityNames returns entity names in sorted order.
func (m *Model) EntityNames() []string {
	names := make([]string, 0, len(m.entities))
	for n := range m.entities {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Hash is the content hash of the model's canonical form.
func (m *Model) Hash() string {
	return m.hash
}

// Canonical encodes the model deterministically. Two models with the same
// entities and attributes encode identically regardless of source format.
func (m *Model) Canonical() ([]byte, error) {
	// Reuse the attribute encoder: every entry is a flat string/int/bool map.
	out := []byte(`{"entities":[`)
	for i, name := range m.EntityNames() {
		if i > 0 {
			out = append(out, ',')
		}
		e := m.entities[name]
		head, err := ir.MarshalAttrs(ir.Attrs{"name": ir.String(e.Name)})
		if err != nil {
			return nil, err
		}
		out = append(out, `{"attributes":[`...)
		for j, a := range e.Attributes {
			if j > 0 {
				out = append(out, ',')
			}
			fields := ir.Attrs{
				"name":     ir.String(a.Name),
				"type":     ir.String(string(a.Type)),
				"optional": ir.Bool(a.Optional),
			}
			if a.Default != nil {
				fields["default"] = a.Default
			}
			enc, err := ir.MarshalAttrs(fields)
			if err != nil {
				return nil, err
			}
			out = append(out, enc...)
		}
		out = append(out, "],"...)
		out = append(out, head[1:]...) // splice {"name":...} into the entity object
	}
	tail, err := ir.MarshalAttrs(ir.Attrs{"name": ir.String(m.Name), "version": ir.Int(m.Version)})
	if err != nil {
		return nil, err
	}
	out = append(out, "],"...)
	out = append(out, tail[1:]...)
	return out, nil
}
