package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/datastack/internal/ir"
)

// CompileCUE compiles a CUE model definition. Uses the CUE SDK's Go API
// directly (not a CLI subprocess).
//
// Expected shape:
//
//	name:    "Notes"   // optional, defaults to fallbackName
//	version: 1         // optional, defaults to 1
//	entity: Note: attribute: {
//		title: {type: "string"}
//		rank:  {type: "int", optional: true}
//		done:  {type: "bool", default: false}
//		body:  "string"  // shorthand for {type: "string"}
//	}
func CompileCUE(src []byte, filename, fallbackName string) (*Model, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name := fallbackName
	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		s, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		name = s
	}

	version := int64(1)
	if verVal := v.LookupPath(cue.ParsePath("version")); verVal.Exists() {
		n, err := verVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		version = n
	}

	entityVal := v.LookupPath(cue.ParsePath("entity"))
	if !entityVal.Exists() {
		return nil, &CompileError{
			Field:   "entity",
			Message: "at least one entity is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := entityVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var entities []*Entity
	for iter.Next() {
		e, err := compileCUEEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	return NewModel(name, version, entities)
}

func compileCUEEntity(name string, v cue.Value) (*Entity, error) {
	e := &Entity{Name: name}

	attrVal := v.LookupPath(cue.ParsePath("attribute"))
	if !attrVal.Exists() {
		return e, nil
	}

	iter, err := attrVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		a, err := compileCUEAttribute(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		e.Attributes = append(e.Attributes, a)
	}
	return e, nil
}

func compileCUEAttribute(entity, name string, v cue.Value) (Attribute, error) {
	a := Attribute{Name: name}
	field := fmt.Sprintf("entity.%s.attribute.%s", entity, name)

	// Shorthand: `title: "string"`.
	if s, err := v.String(); err == nil {
		a.Type = ir.ValueKind(s)
		return a, nil
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return a, &CompileError{Field: field + ".type", Message: "attribute type is required", Pos: v.Pos()}
	}
	t, err := typeVal.String()
	if err != nil {
		return a, formatCUEError(err)
	}
	a.Type = ir.ValueKind(t)

	if optVal := v.LookupPath(cue.ParsePath("optional")); optVal.Exists() {
		b, err := optVal.Bool()
		if err != nil {
			return a, formatCUEError(err)
		}
		a.Optional = b
	}

	if defVal := v.LookupPath(cue.ParsePath("default")); defVal.Exists() {
		d, err := cueScalar(defVal)
		if err != nil {
			return a, &CompileError{Field: field + ".default", Message: err.Error(), Pos: defVal.Pos()}
		}
		a.Default = d
	}
	return a, nil
}

// cueScalar converts a concrete CUE scalar into an ir.Value.
func cueScalar(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		return ir.String(s), err
	case cue.IntKind:
		n, err := v.Int64()
		return ir.Int(n), err
	case cue.BoolKind:
		b, err := v.Bool()
		return ir.Bool(b), err
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, fmt.Errorf("float defaults are not supported - use int")
	default:
		return nil, fmt.Errorf("unsupported default kind: %v", v.IncompleteKind())
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
