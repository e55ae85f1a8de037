package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelHashDeterministic(t *testing.T) {
	a := ModelHash([]byte(`{"name":"Notes"}`))
	b := ModelHash([]byte(`{"name":"Notes"}`))
	c := ModelHash([]byte(`{"name":"Other"}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestModelHashDomainSeparated(t *testing.T) {
	// The raw SHA-256 of the same bytes must differ from the domain hash.
	assert.NotEqual(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		ModelHash(nil),
	)
}
