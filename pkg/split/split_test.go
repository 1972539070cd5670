package split

import (
	"bytes"
	"errors"
	"testing"
)

func TestDescriptorRoundtrip(t *testing.T) {
	d := &Descriptor{
		Locations:     []string{"worker-a", "worker-b"},
		PlanBytes:     []byte{1, 2, 3},
		FragmentBytes: []byte{4, 5},
		SplitIndex:    7,
		Schema:        "id:int64,name:string",
	}
	b, err := d.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeDescriptor(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SplitIndex != 7 || got.Locations[0] != "worker-a" || !bytes.Equal(got.PlanBytes, d.PlanBytes) {
		t.Fatalf("roundtrip mismatch: %#v", got)
	}
}

func TestDecodeSubmitWorkInfoMalformed(t *testing.T) {
	_, err := DecodeSubmitWorkInfo([]byte{0xff, 0x01, 0x02})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.What != "submit work info" {
		t.Fatalf("unexpected subject: %q", de.What)
	}
}

func TestSubmitWorkInfoRoundtrip(t *testing.T) {
	info := &SubmitWorkInfo{
		ApplicationID: "application_1449000000000_0001",
		TokenID:       "application_1449000000000_0001",
		TokenIdent:    []byte("ident"),
		TokenSecret:   []byte("secret"),
		Task:          TaskSpec{VertexName: "Map 1", Parallelism: 4, Payload: []byte("spec")},
		CreatedAtMs:   1449000000123,
	}
	b, err := EncodeSubmitWorkInfo(info)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSubmitWorkInfo(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Task.Parallelism != 4 || got.CreatedAtMs != info.CreatedAtMs || got.TokenID != info.TokenID {
		t.Fatalf("roundtrip mismatch: %#v", got)
	}
}

func TestEnumerateAlwaysFails(t *testing.T) {
	for _, n := range []int{0, 1, 64} {
		ds, err := Enumerate("select 1", n)
		if ds != nil || !errors.Is(err, ErrEnumerateUnsupported) {
			t.Fatalf("Enumerate(%d) = %v, %v; want unsupported error", n, ds, err)
		}
	}
}
