package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Frame layout: [u32 big-endian length][json payload], symmetric in both
// directions.

const MaxFrameSize = 1 * 1024 * 1024

var (
	ErrFrameTooLarge = errors.New("wire: frame exceeds size limit")
	ErrBadPayload    = errors.New("wire: undecodable payload")
)

// Encode serializes a message into one length-prefixed frame.
func Encode(msg Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if len(b) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(b))); err != nil {
		return nil, err
	}
	if _, err := buf.Write(b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteMessage frames and writes one message.
func WriteMessage(w io.Writer, msg Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// ReadMessage reads one framed message. A frame above the size limit or an
// undecodable payload is a protocol error; the caller must terminate the
// connection.
func ReadMessage(r *bufio.Reader) (Message, error) {
	var msg Message

	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return msg, err
	}
	if n > MaxFrameSize {
		return msg, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return msg, err
	}
	if err := json.Unmarshal(buf, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return msg, nil
}
