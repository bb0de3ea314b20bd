package engine

import (
	"github.com/nakamoto-go/nakamoto/internal/wire"
	"github.com/nakamoto-go/nakamoto/internal/wire/payload"
)

// Config holds the options spec §3/§6 recognize. There is no file or
// environment loader at this layer — configuration loading is out of
// scope (spec §1); callers build a Config directly.
type Config struct {
	Network         wire.Network
	ProtocolVersion int32
	Services        payload.ServiceFlag
	Relay           bool
	UserAgent       string
}

// DefaultUserAgent is used when Config.UserAgent is left empty.
const DefaultUserAgent = "/nakamoto:0.0.0/"

// DefaultConfig returns a Config for network with the reference client's
// default protocol version, services and user agent.
func DefaultConfig(network wire.Network) Config {
	return Config{
		Network:         network,
		ProtocolVersion: 70015,
		Services:        payload.ServiceNetwork,
		Relay:           true,
		UserAgent:       DefaultUserAgent,
	}
}
