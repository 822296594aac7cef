package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAddRemoveCount(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Count())

	c := &Conn{ID: "c1"}
	r.Add(c)
	assert.Equal(t, 1, r.Count())

	r.Remove("c1")
	assert.Equal(t, 0, r.Count())
}

func TestRegistryRemoveUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Remove("never-added")
	assert.Equal(t, 0, r.Count())
}

func TestDecodeRawBareKeyCode(t *testing.T) {
	cmd, err := DecodeRaw([]byte("39"))
	require.NoError(t, err)
	assert.True(t, cmd.HasKey)
	assert.Equal(t, 39, cmd.KeyCode)
}

func TestDecodeRawJoinTag(t *testing.T) {
	cmd, err := DecodeRaw([]byte(`["join"]`))
	require.NoError(t, err)
	assert.Equal(t, "join", cmd.Tag)
}

func TestDecodeRawRejectsGarbage(t *testing.T) {
	_, err := DecodeRaw([]byte(`not json`))
	assert.Error(t, err)
}
