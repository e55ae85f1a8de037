package schema

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datastack/internal/ir"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestResolveCUE(t *testing.T) {
	m, err := Resolve(os.DirFS("testdata/bundle"), "Notes")
	require.NoError(t, err)

	assert.Equal(t, "Notes", m.Name)
	assert.Equal(t, int64(1), m.Version)
	assert.Equal(t, []string{"Note", "Tag"}, m.EntityNames())

	note, ok := m.Entity("Note")
	require.True(t, ok)
	title, ok := note.Attribute("title")
	require.True(t, ok)
	assert.Equal(t, ir.KindString, title.Type)
	assert.False(t, title.Optional)

	pinned, ok := note.Attribute("pinned")
	require.True(t, ok)
	assert.Equal(t, ir.Bool(false), pinned.Default)
	assert.Equal(t, ir.Attrs{"pinned": ir.Bool(false)}, note.Defaults())

	canonical, err := m.Canonical()
	require.NoError(t, err)
	newGoldie(t).Assert(t, "notes_model", canonical)
}

func TestResolveYAML(t *testing.T) {
	m, err := Resolve(os.DirFS("testdata/bundle"), "Tasks")
	require.NoError(t, err)

	// Name falls back to the resource name.
	assert.Equal(t, "Tasks", m.Name)
	assert.Equal(t, int64(2), m.Version)

	canonical, err := m.Canonical()
	require.NoError(t, err)
	newGoldie(t).Assert(t, "tasks_model", canonical)
}

func TestResolvePrefersCUE(t *testing.T) {
	bundle := fstest.MapFS{
		"M.cue":  {Data: []byte(`entity: FromCUE: attribute: a: "string"`)},
		"M.yaml": {Data: []byte("entity:\n  FromYAML:\n    attribute:\n      a: {type: string}\n")},
	}
	m, err := Resolve(bundle, "M")
	require.NoError(t, err)
	assert.Equal(t, []string{"FromCUE"}, m.EntityNames())
}

func TestResolveNotFound(t *testing.T) {
	_, err := Resolve(fstest.MapFS{}, "Missing")
	require.ErrorIs(t, err, ErrModelNotFound)

	_, err = Resolve(nil, "Missing")
	require.ErrorIs(t, err, ErrModelNotFound)
}

func TestSameModelSameHashAcrossFormats(t *testing.T) {
	fromCUE, err := CompileCUE([]byte(`
		name: "X"
		entity: Item: attribute: {
			label: "string"
			count: {type: "int", default: 0}
		}
	`), "x.cue", "")
	require.NoError(t, err)

	fromYAML, err := CompileYAML([]byte(`
name: X
entity:
  Item:
    attribute:
      count: {type: int, default: 0}
      label: {type: string}
`), "")
	require.NoError(t, err)

	assert.Equal(t, fromCUE.Hash(), fromYAML.Hash())
	assert.Len(t, fromCUE.Hash(), 64)
}

func TestCompileCUEErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"no entities", `name: "X"`, "entity"},
		{"bad type", `entity: E: attribute: a: "float"`, "entity.E.attribute.a.type"},
		{"missing type", `entity: E: attribute: a: {optional: true}`, "entity.E.attribute.a.type"},
		{"default kind mismatch", `entity: E: attribute: a: {type: "int", default: "zero"}`, "entity.E.attribute.a.default"},
		{"float default", `entity: E: attribute: a: {type: "int", default: 1.5}`, "entity.E.attribute.a.default"},
		{"syntax", `entity: {`, "cue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileCUE([]byte(tt.src), "bad.cue", "Bad")
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileCUEErrorPosition(t *testing.T) {
	_, err := CompileCUE([]byte("entity: E: attribute: a: {\n"), "broken.cue", "Broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.cue:")
}

func TestCompileYAMLErrors(t *testing.T) {
	t.Run("unknown field", func(t *testing.T) {
		_, err := CompileYAML([]byte("entity:\n  E:\n    attributes: {}\n"), "X")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML model")
	})
	t.Run("float default", func(t *testing.T) {
		_, err := CompileYAML([]byte("entity:\n  E:\n    attribute:\n      a: {type: int, default: 2.5}\n"), "X")
		var ce *CompileError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "entity.E.attribute.a.default", ce.Field)
	})
	t.Run("quoted number stays string", func(t *testing.T) {
		m, err := CompileYAML([]byte("entity:\n  E:\n    attribute:\n      a: {type: string, default: \"1\"}\n"), "X")
		require.NoError(t, err)
		e, _ := m.Entity("E")
		a, _ := e.Attribute("a")
		assert.Equal(t, ir.String("1"), a.Default)
	})
}

func TestNewModelRejectsDuplicates(t *testing.T) {
	_, err := NewModel("X", 1, []*Entity{{Name: "A"}, {Name: "A"}})
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "entity.A", ce.Field)

	_, err = NewModel("X", 1, []*Entity{{
		Name: "A",
		Attributes: []Attribute{
			{Name: "a", Type: ir.KindString},
			{Name: "a", Type: ir.KindInt},
		},
	}})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "entity.A.attribute.a", ce.Field)
}

func TestSeedPath(t *testing.T) {
	bundle := fstest.MapFS{"Notes.sqlite": {Data: []byte("seed")}}

	p, ok := SeedPath(bundle, "Notes")
	assert.True(t, ok)
	assert.Equal(t, "Notes.sqlite", p)

	_, ok = SeedPath(bundle, "Other")
	assert.False(t, ok)
	_, ok = SeedPath(nil, "Notes")
	assert.False(t, ok)
}
