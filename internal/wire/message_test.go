package wire

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := NewCodec(Testnet)
	msg := Message{Command: CmdVerack, Payload: nil}

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, msg))

	got, err := c.Decode(&buf)
	require.NoError(t, err)
	require.Equal(t, msg.Command, got.Command)
	require.Empty(t, got.Payload)
}

func TestDecodeRejectsWrongMagic(t *testing.T) {
	writer := NewCodec(Mainnet)
	reader := NewCodec(Testnet)

	var buf bytes.Buffer
	require.NoError(t, writer.Encode(&buf, Message{Command: CmdVersion, Payload: []byte("hi")}))

	_, err := reader.Decode(&buf)
	require.ErrorIs(t, err, ErrMagicMismatch)
}

func TestDecodeRejectsOversizedMessage(t *testing.T) {
	c := NewCodec(Regtest)

	var buf bytes.Buffer
	atMax := Message{Command: CmdHeaders, Payload: make([]byte, MaxMessageSize)}
	require.NoError(t, c.Encode(&buf, atMax)) // sanity: max size itself is fine

	buf.Reset()
	oversized := Message{Command: CmdHeaders, Payload: make([]byte, MaxMessageSize+1)}
	require.ErrorIs(t, c.Encode(&buf, oversized), ErrMessageTooLarge)

	// A frame whose declared length exceeds MaxMessageSize is rejected by
	// Decode before the payload is even read.
	buf.Reset()
	var hdr [headerSize]byte
	// Correct magic, so only the declared length is at fault.
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(Regtest))
	hdr[4+commandSize] = 0xff // length low byte: force a huge declared length
	hdr[4+commandSize+1] = 0xff
	hdr[4+commandSize+2] = 0xff
	hdr[4+commandSize+3] = 0xff
	buf.Write(hdr[:])
	_, err := c.Decode(&buf)
	require.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestCommandRoundTrip(t *testing.T) {
	raw := encodeCommand(CmdVersion)
	require.Equal(t, CmdVersion, decodeCommand(raw))
}
