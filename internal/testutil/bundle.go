// Package testutil holds fixtures shared by package tests: model bundles,
// deterministic id generators, counters, and channel helpers.
package testutil

import (
	"testing"
	"testing/fstest"

	"github.com/roach88/datastack/internal/schema"
)

// NotesCUE is the model most tests run against.
const NotesCUE = `name:    "Notes"
version: 1

entity: Note: attribute: {
	title: "string"
	body: {type: "string", optional: true}
	pinned: {type: "bool", default: false}
	rank: {type: "int", optional: true}
}

entity: Tag: attribute: label: "string"
`

// NotesBundle returns a bundle holding Notes.cue.
func NotesBundle() fstest.MapFS {
	return fstest.MapFS{
		"Notes.cue": {Data: []byte(NotesCUE)},
	}
}

// NotesModel resolves the Notes model or fails the test.
func NotesModel(t testing.TB) *schema.Model {
	t.Helper()
	m, err := schema.Resolve(NotesBundle(), "Notes")
	if err != nil {
		t.Fatalf("resolve Notes model: %v", err)
	}
	return m
}
