package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openpoker/cardroom/engine"
)

func TestCodec_RoundTrip(t *testing.T) {
	msg := Message{
		Type:  TypeLogin,
		Login: &Login{Username: "alice"},
	}

	frame, err := Encode(msg)
	assert.NoError(t, err)
	assert.Equal(t, uint32(len(frame)-4), binary.BigEndian.Uint32(frame[:4]))

	decoded, err := ReadMessage(bufio.NewReader(bytes.NewReader(frame)))
	assert.NoError(t, err)
	assert.Equal(t, TypeLogin, decoded.Type)
	assert.NotNil(t, decoded.Login)
	assert.Equal(t, "alice", decoded.Login.Username)
}

func TestCodec_WriteThenReadSeveral(t *testing.T) {
	var buf bytes.Buffer
	msgs := []Message{
		{Type: TypeListTables},
		{Type: TypeJoinTable, JoinTable: &JoinTable{TableID: "t1", BuyIn: 400}},
		{Type: TypeAction, Action: &Action{
			RequestID: "req-1",
			Action:    engine.Action{Type: engine.ActionRaise, Chips: 60},
		}},
	}
	for _, msg := range msgs {
		assert.NoError(t, WriteMessage(&buf, msg))
	}

	r := bufio.NewReader(&buf)
	for _, want := range msgs {
		got, err := ReadMessage(r)
		assert.NoError(t, err)
		assert.Equal(t, want.Type, got.Type)
	}

	got, err := ReadMessage(r)
	assert.Error(t, err)
	assert.Equal(t, MessageType(""), got.Type)
}

func TestCodec_RejectsOversizeFrame(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(MaxFrameSize+1))

	_, err := ReadMessage(bufio.NewReader(&buf))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestCodec_RejectsUndecodablePayload(t *testing.T) {
	payload := []byte("{not json")
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(len(payload)))
	buf.Write(payload)

	_, err := ReadMessage(bufio.NewReader(&buf))
	assert.ErrorIs(t, err, ErrBadPayload)
}

func TestCodec_TruncatedFrame(t *testing.T) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(100))
	buf.WriteString("short")

	_, err := ReadMessage(bufio.NewReader(&buf))
	assert.Error(t, err)
}
