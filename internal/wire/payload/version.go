package payload

import "io"

// Version is the payload of a version message: the fields exchanged at the
// start of every handshake, per the reference client's wire format.
type Version struct {
	ProtocolVersion int32
	Services        ServiceFlag
	Timestamp       int64
	Receiver        NetAddr
	Sender          NetAddr
	Nonce           uint64
	UserAgent       string
	StartHeight     int32
	Relay           bool
}

// Encode writes the version payload to w.
func (v *Version) Encode(w io.Writer) error {
	bw := &writer{w: w}
	bw.write(v.ProtocolVersion)
	bw.write(uint64(v.Services))
	bw.write(v.Timestamp)
	v.Receiver.encode(bw)
	v.Sender.encode(bw)
	bw.write(v.Nonce)
	bw.varString(v.UserAgent)
	bw.write(v.StartHeight)
	bw.write(v.Relay)
	return bw.err
}

// Decode reads a version payload from r.
func (v *Version) Decode(r io.Reader) error {
	br := &reader{r: r}
	br.read(&v.ProtocolVersion)

	var services uint64
	br.read(&services)
	v.Services = ServiceFlag(services)

	br.read(&v.Timestamp)
	v.Receiver.decode(br)
	v.Sender.decode(br)
	br.read(&v.Nonce)
	v.UserAgent = br.varString()
	br.read(&v.StartHeight)
	br.read(&v.Relay)
	return br.err
}
