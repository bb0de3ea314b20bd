package payload

import "io"

// Ping is an 8-byte nonce sent by the reactor's idle handler.
type Ping struct {
	Nonce uint64
}

// Encode writes the ping payload to w.
func (p *Ping) Encode(w io.Writer) error {
	bw := &writer{w: w}
	bw.write(p.Nonce)
	return bw.err
}

// Decode reads a ping payload from r.
func (p *Ping) Decode(r io.Reader) error {
	br := &reader{r: r}
	br.read(&p.Nonce)
	return br.err
}

// Pong echoes the nonce from a Ping.
type Pong struct {
	Nonce uint64
}

// Encode writes the pong payload to w.
func (p *Pong) Encode(w io.Writer) error {
	bw := &writer{w: w}
	bw.write(p.Nonce)
	return bw.err
}

// Decode reads a pong payload from r.
func (p *Pong) Decode(r io.Reader) error {
	br := &reader{r: r}
	br.read(&p.Nonce)
	return br.err
}
