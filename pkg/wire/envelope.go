package wire

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Envelope is a header + payload wrapper for a single channel transfer.
type Envelope struct {
	Header  Header
	Payload []byte
}

// NewCorrelation generates a random 16-byte id.
func NewCorrelation() (out [16]byte, err error) {
	_, err = io.ReadFull(rand.Reader, out[:])
	return
}

// HasFlag checks whether a flag is set.
func (e *Envelope) HasFlag(flag uint32) bool { return (e.Header.Flags & flag) != 0 }

// SetFlag sets/unsets a flag.
func (e *Envelope) SetFlag(flag uint32, on bool) {
	if on {
		e.Header.Flags |= flag
	} else {
		e.Header.Flags &^= flag
	}
}

// WriteTo writes header + payload to w.
func (e *Envelope) WriteTo(w io.Writer) (int64, error) {
	e.Header.PayloadLen = uint32(len(e.Payload))
	hb, err := e.Header.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n1, err := w.Write(hb)
	if err != nil {
		return int64(n1), err
	}
	n2, err := w.Write(e.Payload)
	return int64(n1 + n2), err
}

// ReadFrom reads header + payload from r.
func (e *Envelope) ReadFrom(r io.Reader) (int64, error) {
	hb := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hb); err != nil {
		return 0, err
	}
	if err := e.Header.UnmarshalBinary(hb); err != nil {
		return 0, err
	}
	if e.Header.PayloadLen > 0 {
		if e.Header.PayloadLen > (1 << 28) { // guard against absurd sizes
			return 0, fmt.Errorf("payload too large: %d", e.Header.PayloadLen)
		}
		e.Payload = make([]byte, int(e.Header.PayloadLen))
		if _, err := io.ReadFull(r, e.Payload); err != nil {
			return 0, err
		}
	} else {
		e.Payload = nil
	}
	return int64(headerSize + int(e.Header.PayloadLen)), nil
}
