package model

import (
	"encoding/json"
	"io"
)

// PayloadEncoder writes a self-delimited stream of PushPayload objects.
// encoding/json's own Encoder already self-delimits successive Encode calls
// (each value is followed by a newline), so no extra length-prefixing is
// needed.
type PayloadEncoder struct {
	enc *json.Encoder
}

// NewPayloadEncoder wraps w for streaming payload writes.
func NewPayloadEncoder(w io.Writer) *PayloadEncoder {
	return &PayloadEncoder{enc: json.NewEncoder(w)}
}

// Encode writes one payload to the stream.
func (e *PayloadEncoder) Encode(p PushPayload) error {
	return e.enc.Encode(p)
}

// PayloadDecoder reads a self-delimited stream of PushPayload objects.
type PayloadDecoder struct {
	dec *json.Decoder
}

// NewPayloadDecoder wraps r for streaming payload reads.
func NewPayloadDecoder(r io.Reader) *PayloadDecoder {
	return &PayloadDecoder{dec: json.NewDecoder(r)}
}

// More reports whether another payload follows in the stream. It may block
// reading from the underlying reader until it sees the next value or the
// end of the stream.
func (d *PayloadDecoder) More() bool {
	return d.dec.More()
}

// Decode reads the next payload from the stream.
func (d *PayloadDecoder) Decode() (PushPayload, error) {
	var p PushPayload
	err := d.dec.Decode(&p)
	return p, err
}
