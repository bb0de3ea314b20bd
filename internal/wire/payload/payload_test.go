package payload

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionRoundTrip(t *testing.T) {
	v := &Version{
		ProtocolVersion: 70015,
		Services:        ServiceNetwork,
		Timestamp:       1700000000,
		Receiver: NetAddr{
			Services: ServiceNetwork | ServiceCompactFilters,
			IP:       net.ParseIP("127.0.0.2"),
			Port:     8333,
		},
		Sender: NetAddr{
			Services: ServiceNone,
			IP:       net.ParseIP("127.0.0.1"),
			Port:     8333,
		},
		Nonce:       0,
		UserAgent:   "/nakamoto:0.0.0/",
		StartHeight: 600000,
		Relay:       true,
	}

	var buf bytes.Buffer
	require.NoError(t, v.Encode(&buf))

	var got Version
	require.NoError(t, got.Decode(&buf))

	require.Equal(t, v.ProtocolVersion, got.ProtocolVersion)
	require.Equal(t, v.Services, got.Services)
	require.Equal(t, v.Timestamp, got.Timestamp)
	require.True(t, v.Receiver.IP.Equal(got.Receiver.IP))
	require.Equal(t, v.Receiver.Port, got.Receiver.Port)
	require.Equal(t, v.Receiver.Services, got.Receiver.Services)
	require.True(t, v.Sender.IP.Equal(got.Sender.IP))
	require.Equal(t, v.Sender.Port, got.Sender.Port)
	require.Equal(t, v.Nonce, got.Nonce)
	require.Equal(t, v.UserAgent, got.UserAgent)
	require.Equal(t, v.StartHeight, got.StartHeight)
	require.Equal(t, v.Relay, got.Relay)
}

func TestVerackRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Verack{}.Encode(&buf))
	require.Zero(t, buf.Len())

	var got Verack
	require.NoError(t, got.Decode(&buf))
}

func TestHeadersRoundTrip(t *testing.T) {
	h := &Headers{Headers: []BlockHeader{
		{Version: 1, Timestamp: 100, Bits: 0x1d00ffff, Nonce: 42},
		{Version: 1, Timestamp: 200, Bits: 0x1d00ffff, Nonce: 43},
	}}

	var buf bytes.Buffer
	require.NoError(t, h.Encode(&buf))

	var got Headers
	require.NoError(t, got.Decode(&buf))
	require.Equal(t, h.Headers, got.Headers)
}

func TestHeadersEmptyMeansDone(t *testing.T) {
	h := &Headers{}

	var buf bytes.Buffer
	require.NoError(t, h.Encode(&buf))

	var got Headers
	require.NoError(t, got.Decode(&buf))
	require.Empty(t, got.Headers)
}

func TestHeadersRejectsBadPadding(t *testing.T) {
	var buf bytes.Buffer
	bw := &writer{w: &buf}
	bw.varUint(1)
	hdr := BlockHeader{}
	hdr.encode(bw)
	bw.write(uint8(1)) // non-zero padding
	require.NoError(t, bw.err)

	var got Headers
	require.ErrorIs(t, got.Decode(&buf), ErrBadHeaderPadding)
}

func TestPingPongRoundTrip(t *testing.T) {
	p := &Ping{Nonce: 0xdeadbeef}
	var buf bytes.Buffer
	require.NoError(t, p.Encode(&buf))

	var got Ping
	require.NoError(t, got.Decode(&buf))
	require.Equal(t, p.Nonce, got.Nonce)

	pong := &Pong{Nonce: got.Nonce}
	var buf2 bytes.Buffer
	require.NoError(t, pong.Encode(&buf2))
	var gotPong Pong
	require.NoError(t, gotPong.Decode(&buf2))
	require.Equal(t, pong.Nonce, gotPong.Nonce)
}
