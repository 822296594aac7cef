package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBareKeyCode(t *testing.T) {
	cmd, err := DecodeClientCommand([]byte("38"))
	require.NoError(t, err)
	assert.True(t, cmd.HasKey)
	assert.Equal(t, 38, cmd.KeyCode)
}

func TestDecodeNewPlayer(t *testing.T) {
	cmd, err := DecodeClientCommand([]byte(`["new_player", "alice", "some-id"]`))
	require.NoError(t, err)
	assert.Equal(t, TagNewPlayer, cmd.Tag)
	assert.Equal(t, "alice", cmd.Name)
	assert.Equal(t, "some-id", cmd.ID)
	assert.False(t, cmd.HasKey)
}

func TestDecodeNewPlayerWithoutID(t *testing.T) {
	cmd, err := DecodeClientCommand([]byte(`["new_player", "bob"]`))
	require.NoError(t, err)
	assert.Equal(t, "bob", cmd.Name)
	assert.Empty(t, cmd.ID)
}

func TestDecodeJoin(t *testing.T) {
	cmd, err := DecodeClientCommand([]byte(`["join"]`))
	require.NoError(t, err)
	assert.Equal(t, TagJoin, cmd.Tag)
}

func TestDecodePingEchoesArgs(t *testing.T) {
	cmd, err := DecodeClientCommand([]byte(`["ping", 1, "x"]`))
	require.NoError(t, err)
	assert.Equal(t, TagPing, cmd.Tag)
	require.Len(t, cmd.PingArgs, 2)
	assert.InDelta(t, 1.0, cmd.PingArgs[0], 0.0001)
	assert.Equal(t, "x", cmd.PingArgs[1])
}

func TestDecodeEmptyArrayIsInvalid(t *testing.T) {
	_, err := DecodeClientCommand([]byte(`[]`))
	assert.Error(t, err)
}

func TestDecodeGarbageIsInvalid(t *testing.T) {
	_, err := DecodeClientCommand([]byte(`{"not":"an array or int"}`))
	assert.Error(t, err)
}

func TestMessageConstructorsMarshalAsTaggedArray(t *testing.T) {
	m := Sync(3, 2.5)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `["sync",3,2.5]`, string(data))
}

func TestPongEchoesArgs(t *testing.T) {
	m := Pong(1, "abc")
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `["pong",1,"abc"]`, string(data))
}

func TestBatchMarshalsAsNestedArrays(t *testing.T) {
	batch := Batch{PGameover("p1"), Error("boom")}
	data, err := json.Marshal(batch)
	require.NoError(t, err)
	assert.JSONEq(t, `[["p_gameover","p1"],["error","boom"]]`, string(data))
}
