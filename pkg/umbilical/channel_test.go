package umbilical

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"splitwire/pkg/wire"
	"splitwire/pkg/wire/codec"
	"splitwire/pkg/wire/stream"
)

type recordingHandler struct {
	mu       sync.Mutex
	beats    []wire.Heartbeat
	statuses []wire.TaskStatus
}

func (h *recordingHandler) OnHeartbeat(hb wire.Heartbeat) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beats = append(h.beats, hb)
}

func (h *recordingHandler) OnTaskStatus(st wire.TaskStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, st)
}

func TestChannelReceivesCallbacks(t *testing.T) {
	h := &recordingHandler{}
	ch := NewChannel("127.0.0.1:0", h, nil)
	addr, err := ch.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer ch.Stop()

	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	reg := codec.NewRegistry()
	sc := stream.New(conn)

	hbBody, err := wire.EncodeBody(reg, wire.FormatJSON, wire.Heartbeat{ContainerID: "c1", TsUnixMs: 123})
	if err != nil {
		t.Fatalf("encode heartbeat: %v", err)
	}
	if err := sc.Send(&wire.Envelope{Header: wire.Header{Version: 1, Type: wire.MsgHeartbeat}, Payload: hbBody}); err != nil {
		t.Fatalf("send heartbeat: %v", err)
	}

	stBody, err := wire.EncodeBody(reg, wire.FormatJSON, wire.TaskStatus{ContainerID: "c1", State: "RUNNING"})
	if err != nil {
		t.Fatalf("encode status: %v", err)
	}
	if err := sc.Send(&wire.Envelope{Header: wire.Header{Version: 1, Type: wire.MsgTaskStatus}, Payload: stBody}); err != nil {
		t.Fatalf("send status: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		done := len(h.beats) == 1 && len(h.statuses) == 1
		h.mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("callbacks not delivered: beats=%d statuses=%d", len(h.beats), len(h.statuses))
		}
		time.Sleep(10 * time.Millisecond)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.beats[0].ContainerID != "c1" || h.statuses[0].State != "RUNNING" {
		t.Fatalf("unexpected callbacks: %#v %#v", h.beats, h.statuses)
	}
}

func TestChannelStopIdempotent(t *testing.T) {
	ch := NewChannel("127.0.0.1:0", nil, nil)
	if _, err := ch.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	ch.Stop()
	ch.Stop()
	if ch.Addr() != nil {
		t.Fatalf("expected nil addr after stop")
	}
}

func TestChannelStartError(t *testing.T) {
	ch := NewChannel("256.0.0.1:0", nil, nil)
	_, err := ch.Start(context.Background())
	if err == nil {
		t.Fatalf("expected bind failure")
	}
	if _, ok := err.(*StartError); !ok {
		t.Fatalf("expected *StartError, got %T", err)
	}
}
