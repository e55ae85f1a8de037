package schema

import (
	"fmt"

	"github.com/roach88/datastack/internal/ir"
)

// Validate checks an object's attributes against its entity definition:
// every attribute must be declared, typed correctly, and every required
// attribute must hold a non-null value.
func (m *Model) Validate(s ir.Snapshot) error {
	e, ok := m.entities[s.Entity]
	if !ok {
		return &ValidationError{
			Code:     ValidationUnknownEntity,
			Entity:   s.Entity,
			ObjectID: string(s.ID),
			Message:  fmt.Sprintf("model %q has no such entity", m.Name),
		}
	}

	for _, name := range s.Attrs.SortedKeys() {
		v := s.Attrs[name]
		a, ok := e.Attribute(name)
		if !ok {
			return &ValidationError{
				Code:      ValidationUnknownAttribute,
				Entity:    e.Name,
				Attribute: name,
				ObjectID:  string(s.ID),
				Message:   "attribute is not declared",
			}
		}
		if v.Kind() == ir.KindNull {
			continue
		}
		if v.Kind() != a.Type {
			return &ValidationError{
				Code:      ValidationTypeMismatch,
				Entity:    e.Name,
				Attribute: name,
				ObjectID:  string(s.ID),
				Message:   fmt.Sprintf("expected %s, got %s", a.Type, v.Kind()),
			}
		}
	}

	for _, a := range e.Attributes {
		if a.Optional {
			continue
		}
		v, ok := s.Attrs[a.Name]
		if !ok || v.Kind() == ir.KindNull {
			return &ValidationError{
				Code:      ValidationMissingRequired,
				Entity:    e.Name,
				Attribute: a.Name,
				ObjectID:  string(s.ID),
				Message:   "required attribute has no value",
			}
		}
	}
	return nil
}

// CheckAttribute verifies a single assignment before it is applied. Null is
// accepted for any declared attribute; Validate enforces required values at
// commit time.
func (m *Model) CheckAttribute(entity, name string, v ir.Value) error {
	e, ok := m.entities[entity]
	if !ok {
		return &ValidationError{Code: ValidationUnknownEntity, Entity: entity, Message: "no such entity"}
	}
	a, ok := e.Attribute(name)
	if !ok {
		return &ValidationError{Code: ValidationUnknownAttribute, Entity: entity, Attribute: name, Message: "attribute is not declared"}
	}
	if v.Kind() != ir.KindNull && v.Kind() != a.Type {
		return &ValidationError{
			Code:      ValidationTypeMismatch,
			Entity:    entity,
			Attribute: name,
			Message:   fmt.Sprintf("expected %s, got %s", a.Type, v.Kind()),
		}
	}
	return nil
}
