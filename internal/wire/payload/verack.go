package payload

import "io"

// Verack is the (empty) payload of a verack message.
type Verack struct{}

// Encode writes nothing: verack carries no payload.
func (Verack) Encode(io.Writer) error { return nil }

// Decode reads nothing: verack carries no payload.
func (*Verack) Decode(io.Reader) error { return nil }
