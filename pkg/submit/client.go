package submit

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"splitwire/pkg/registry"
	"splitwire/pkg/wire"
	"splitwire/pkg/wire/codec"
	"splitwire/pkg/wire/stream"
)

// SubmitError reports a transport failure or a daemon rejection. Single
// attempt, fatal for the split.
type SubmitError struct {
	Host   string
	Reason string
	Err    error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submit work to %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("submit work to %s: rejected: %s", e.Host, e.Reason)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Client delivers submissions to a daemon's execution endpoint over the
// framed wire protocol. One frame out, one ack frame back, no retry.
type Client struct {
	log         *zap.Logger
	reg         *codec.Registry
	dialTimeout time.Duration
}

func NewClient(dialTimeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	reg := codec.NewRegistry()
	if c, err := codec.CBOR(); err == nil {
		reg.Register(c)
	}
	return &Client{log: log, reg: reg, dialTimeout: dialTimeout}
}

// Submit sends req plus its runtime events to inst's execution endpoint and
// waits for the accept/reject ack.
func (c *Client) Submit(ctx context.Context, inst registry.Instance, req *wire.SubmitWork, events ...wire.FragmentEvent) error {
	target := net.JoinHostPort(inst.Host, strconv.Itoa(inst.ExecutionPort))

	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return &SubmitError{Host: target, Err: err}
	}
	defer conn.Close()

	body := *req
	body.Events = append(body.Events, events...)

	payload, err := wire.EncodeBody(c.reg, wire.FormatCBOR, &body)
	if err != nil {
		return &SubmitError{Host: target, Err: err}
	}

	corr, err := wire.NewCorrelation()
	if err != nil {
		return &SubmitError{Host: target, Err: err}
	}
	env := wire.Envelope{
		Header:  wire.Header{Version: 1, Type: wire.MsgSubmit, Flags: wire.FlagAck, Correlation: corr},
		Payload: payload,
	}

	sc := stream.New(conn)
	if err := sc.Send(&env); err != nil {
		return &SubmitError{Host: target, Err: err}
	}
	c.log.Info("submitted work",
		zap.String("target", target),
		zap.String("container", req.ContainerID))

	var ackEnv wire.Envelope
	if err := sc.Recv(&ackEnv); err != nil {
		return &SubmitError{Host: target, Err: err}
	}
	if ackEnv.Header.Type != wire.MsgSubmitAck {
		return &SubmitError{Host: target, Err: fmt.Errorf("unexpected response type %d", ackEnv.Header.Type)}
	}
	var ack wire.SubmitAck
	if _, err := wire.DecodeBody(c.reg, ackEnv.Payload, &ack); err != nil {
		return &SubmitError{Host: target, Err: err}
	}
	if !ack.Accepted {
		return &SubmitError{Host: target, Reason: ack.Reason}
	}
	return nil
}
