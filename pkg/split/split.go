// Package split defines the unit of work handed to an execution daemon and
// the decoders for its opaque payloads.
package split

import (
	"errors"
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"

	"splitwire/pkg/wire"
)

// Descriptor is one decoded split: a single fragment of a larger query to
// execute on one instance. Produced once per split, immutable thereafter.
type Descriptor struct {
	// Locations lists target hosts in preference order; dispatch resolves
	// an instance for the first entry.
	Locations []string `cbor:"1,keyasint"`
	// PlanBytes carries the encoded SubmitWorkInfo.
	PlanBytes []byte `cbor:"2,keyasint"`
	// FragmentBytes carries the encoded runtime event handed through to
	// the daemon protocol.
	FragmentBytes []byte `cbor:"3,keyasint"`
	SplitIndex    int    `cbor:"4,keyasint"`
	// Schema describes the result records; decoding them is downstream's
	// concern.
	Schema string `cbor:"5,keyasint,omitempty"`
}

// TaskSpec is the opaque task specification carried inside a plan. Only
// the parallelism is interpreted here; Payload passes through untouched.
type TaskSpec struct {
	VertexName  string `cbor:"1,keyasint"`
	Parallelism int32  `cbor:"2,keyasint"`
	Payload     []byte `cbor:"3,keyasint,omitempty"`
}

// SubmitWorkInfo is decoded from a split's plan bytes. Owned exclusively by
// the dispatch call that decoded it; never shared across splits.
type SubmitWorkInfo struct {
	ApplicationID string   `cbor:"1,keyasint"`
	TokenID       string   `cbor:"2,keyasint"`
	TokenIdent    []byte   `cbor:"3,keyasint"`
	TokenSecret   []byte   `cbor:"4,keyasint"`
	Task          TaskSpec `cbor:"5,keyasint"`
	CreatedAtMs   int64    `cbor:"6,keyasint"`
}

// DecodeError reports a malformed split payload. Fatal, non-retryable.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.What, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrEnumerateUnsupported is returned by Enumerate unconditionally.
var ErrEnumerateUnsupported = errors.New("split enumeration is not supported: splits are produced by the query coordinator")

func encMode() (cbor.EncMode, error) {
	return cbor.CanonicalEncOptions().EncMode()
}

// Encode serializes the descriptor with canonical CBOR.
func (d *Descriptor) Encode() ([]byte, error) {
	em, err := encMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(d)
}

// DecodeDescriptor parses an encoded split descriptor.
func DecodeDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := cbor.Unmarshal(data, &d); err != nil {
		return nil, &DecodeError{What: "split descriptor", Err: err}
	}
	return &d, nil
}

// EncodeSubmitWorkInfo serializes info for embedding into plan bytes.
func EncodeSubmitWorkInfo(info *SubmitWorkInfo) ([]byte, error) {
	em, err := encMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(info)
}

// DecodeSubmitWorkInfo parses the plan bytes of a split.
func DecodeSubmitWorkInfo(data []byte) (*SubmitWorkInfo, error) {
	var info SubmitWorkInfo
	if err := cbor.Unmarshal(data, &info); err != nil {
		return nil, &DecodeError{What: "submit work info", Err: err}
	}
	return &info, nil
}

// EncodeTaskSpec serializes the task specification for the submission's
// fragment spec field.
func EncodeTaskSpec(ts *TaskSpec) ([]byte, error) {
	em, err := encMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(ts)
}

// DecodeTaskSpec parses a fragment spec produced by EncodeTaskSpec.
func DecodeTaskSpec(data []byte) (*TaskSpec, error) {
	var ts TaskSpec
	if err := cbor.Unmarshal(data, &ts); err != nil {
		return nil, &DecodeError{What: "task spec", Err: err}
	}
	return &ts, nil
}

// EncodeFragmentEvent serializes ev for embedding into fragment bytes.
func EncodeFragmentEvent(ev *wire.FragmentEvent) ([]byte, error) {
	em, err := encMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(ev)
}

// DecodeFragmentEvent parses the fragment bytes of a split into the runtime
// event structure the daemon protocol expects.
func DecodeFragmentEvent(data []byte) (*wire.FragmentEvent, error) {
	var ev wire.FragmentEvent
	if err := cbor.Unmarshal(data, &ev); err != nil {
		return nil, &DecodeError{What: "fragment event", Err: err}
	}
	return &ev, nil
}

// Enumerate is the split-generation entry point mandated by the input
// contract. Work partitioning happens in the query coordinator, so it fails
// for every input.
func Enumerate(query string, numSplits int) ([]*Descriptor, error) {
	return nil, ErrEnumerateUnsupported
}
