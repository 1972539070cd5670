package submit

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"splitwire/pkg/registry"
	"splitwire/pkg/wire"
	"splitwire/pkg/wire/codec"
	"splitwire/pkg/wire/stream"
)

// fakeDaemon accepts one submission frame and answers with ack.
func fakeDaemon(t *testing.T, ack wire.SubmitAck, got chan<- wire.SubmitWork) registry.Instance {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		reg := codec.NewRegistry()
		if c, err := codec.CBOR(); err == nil {
			reg.Register(c)
		}
		sc := stream.New(conn)
		var env wire.Envelope
		if err := sc.Recv(&env); err != nil {
			return
		}
		var req wire.SubmitWork
		if _, err := wire.DecodeBody(reg, env.Payload, &req); err != nil {
			return
		}
		if got != nil {
			got <- req
		}
		body, _ := wire.EncodeBody(reg, wire.FormatCBOR, &ack)
		_ = sc.Send(&wire.Envelope{
			Header:  wire.Header{Version: 1, Type: wire.MsgSubmitAck, Correlation: env.Header.Correlation},
			Payload: body,
		})
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return registry.Instance{Host: "127.0.0.1", Hostname: "127.0.0.1", ExecutionPort: addr.Port, Alive: true}
}

func TestSubmitAccepted(t *testing.T) {
	got := make(chan wire.SubmitWork, 1)
	inst := fakeDaemon(t, wire.SubmitAck{Accepted: true}, got)

	c := NewClient(2*time.Second, nil)
	req := &wire.SubmitWork{User: "alice", ContainerID: "container_1_0001_00_000001", External: true}
	ev := wire.FragmentEvent{Kind: "data_movement", Payload: []byte("ev")}
	if err := c.Submit(context.Background(), inst, req, ev); err != nil {
		t.Fatalf("submit: %v", err)
	}

	seen := <-got
	if seen.ContainerID != req.ContainerID || !seen.External {
		t.Fatalf("daemon saw wrong request: %#v", seen)
	}
	if len(seen.Events) != 1 || seen.Events[0].Kind != "data_movement" {
		t.Fatalf("events not delivered: %#v", seen.Events)
	}
}

func TestSubmitRejected(t *testing.T) {
	inst := fakeDaemon(t, wire.SubmitAck{Accepted: false, Reason: "queue full"}, nil)

	c := NewClient(2*time.Second, nil)
	err := c.Submit(context.Background(), inst, &wire.SubmitWork{User: "alice"})
	var se *SubmitError
	if !errors.As(err, &se) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
	if se.Reason != "queue full" {
		t.Fatalf("reason = %q", se.Reason)
	}
}

func TestSubmitDialFailure(t *testing.T) {
	// grab a port and close it so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	c := NewClient(500*time.Millisecond, nil)
	inst := registry.Instance{Host: "127.0.0.1", ExecutionPort: port, Alive: true}
	err = c.Submit(context.Background(), inst, &wire.SubmitWork{})
	var se *SubmitError
	if !errors.As(err, &se) {
		t.Fatalf("expected SubmitError, got %v", err)
	}
}
