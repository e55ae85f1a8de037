package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datastack/internal/ir"
)

func noteModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel("Notes", 1, []*Entity{{
		Name: "Note",
		Attributes: []Attribute{
			{Name: "title", Type: ir.KindString},
			{Name: "rank", Type: ir.KindInt, Optional: true},
		},
	}})
	require.NoError(t, err)
	return m
}

func TestValidate(t *testing.T) {
	m := noteModel(t)

	tests := []struct {
		name string
		snap ir.Snapshot
		code ValidationCode
	}{
		{
			name: "valid",
			snap: ir.Snapshot{ID: "n1", Entity: "Note", Attrs: ir.Attrs{"title": ir.String("a")}},
		},
		{
			name: "optional null",
			snap: ir.Snapshot{ID: "n1", Entity: "Note", Attrs: ir.Attrs{"title": ir.String("a"), "rank": ir.Null{}}},
		},
		{
			name: "unknown entity",
			snap: ir.Snapshot{ID: "x1", Entity: "Ghost", Attrs: ir.Attrs{}},
			code: ValidationUnknownEntity,
		},
		{
			name: "unknown attribute",
			snap: ir.Snapshot{ID: "n1", Entity: "Note", Attrs: ir.Attrs{"title": ir.String("a"), "color": ir.String("red")}},
			code: ValidationUnknownAttribute,
		},
		{
			name: "type mismatch",
			snap: ir.Snapshot{ID: "n1", Entity: "Note", Attrs: ir.Attrs{"title": ir.Int(3)}},
			code: ValidationTypeMismatch,
		},
		{
			name: "missing required",
			snap: ir.Snapshot{ID: "n1", Entity: "Note", Attrs: ir.Attrs{"rank": ir.Int(1)}},
			code: ValidationMissingRequired,
		},
		{
			name: "required null",
			snap: ir.Snapshot{ID: "n1", Entity: "Note", Attrs: ir.Attrs{"title": ir.Null{}}},
			code: ValidationMissingRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Validate(tt.snap)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.code, ve.Code)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestCheckAttribute(t *testing.T) {
	m := noteModel(t)

	assert.NoError(t, m.CheckAttribute("Note", "title", ir.String("x")))
	assert.NoError(t, m.CheckAttribute("Note", "title", ir.Null{}))

	err := m.CheckAttribute("Note", "rank", ir.String("high"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ValidationTypeMismatch, ve.Code)
	assert.Equal(t, "TYPE_MISMATCH: Note.rank: expected int, got string", err.Error())
}
