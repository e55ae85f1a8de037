package schema

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/datastack/internal/ir"
)

// yamlModel mirrors the CUE shape:
//
//	name: Notes
//	version: 1
//	entity:
//	  Note:
//	    attribute:
//	      title: {type: string}
//	      done: {type: bool, default: false}
type yamlModel struct {
	Name    string                `yaml:"name"`
	Version *int64                `yaml:"version"`
	Entity  map[string]yamlEntity `yaml:"entity"`
}

type yamlEntity struct {
	Attribute map[string]yamlAttribute `yaml:"attribute"`
}

type yamlAttribute struct {
	Type     string    `yaml:"type"`
	Optional bool      `yaml:"optional"`
	Default  yaml.Node `yaml:"default"`
}

// CompileYAML compiles a YAML model definition. Unknown fields are rejected.
func CompileYAML(src []byte, fallbackName string) (*Model, error) {
	var doc yamlModel
	decoder := yaml.NewDecoder(bytes.NewReader(src))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML model: %w", err)
	}

	name := doc.Name
	if name == "" {
		name = fallbackName
	}
	version := int64(1)
	if doc.Version != nil {
		version = *doc.Version
	}

	entities := make([]*Entity, 0, len(doc.Entity))
	for entityName, ye := range doc.Entity {
		e := &Entity{Name: entityName}
		for attrName, ya := range ye.Attribute {
			a := Attribute{
				Name:     attrName,
				Type:     ir.ValueKind(ya.Type),
				Optional: ya.Optional,
			}
			if !ya.Default.IsZero() {
				d, err := yamlScalar(&ya.Default)
				if err != nil {
					return nil, &CompileError{
						Field:   fmt.Sprintf("entity.%s.attribute.%s.default", entityName, attrName),
						Message: fmt.Sprintf("line %d: %v", ya.Default.Line, err),
					}
				}
				a.Default = d
			}
			e.Attributes = append(e.Attributes, a)
		}
		entities = append(entities, e)
	}

	return NewModel(name, version, entities)
}

// yamlScalar converts a YAML scalar node into an ir.Value using the node's
// resolved tag, so `"1"` stays a string and `1` becomes an int.
func yamlScalar(n *yaml.Node) (ir.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("default must be a scalar")
	}
	switch n.ShortTag() {
	case "!!str":
		return ir.String(n.Value), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return ir.Int(i), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return ir.Bool(b), nil
	case "!!null":
		return ir.Null{}, nil
	case "!!float":
		return nil, fmt.Errorf("float defaults are not supported - use int")
	default:
		return nil, fmt.Errorf("unsupported default tag %s", n.ShortTag())
	}
}
