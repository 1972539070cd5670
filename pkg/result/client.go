// Package result opens the dedicated connection a daemon pushes split
// results on, separate from the execution endpoint used for submission.
package result

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"

	"splitwire/pkg/registry"
)

// ConnectError reports a result-socket connection or handshake failure.
// No partial-handshake recovery is attempted.
type ConnectError struct {
	Host string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect result stream to %s: %v", e.Host, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// RegistrationID derives the handshake identifier for one split of a query.
func RegistrationID(queryID string, splitIndex int) string {
	return queryID + "_" + strconv.Itoa(splitIndex)
}

// Client performs the one-shot registration handshake on a daemon's result
// endpoint. The protocol is one-way: the registration id's raw bytes
// followed by a single zero byte, no length prefix, no acknowledgment. The
// daemon starts pushing result bytes on the same connection once it has
// correlated the id; it never rejects a registration, so an unknown id
// simply yields a silent, empty stream.
type Client struct {
	log         *zap.Logger
	dialTimeout time.Duration
}

func NewClient(dialTimeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{log: log, dialTimeout: dialTimeout}
}

// Open connects to inst's result endpoint, registers registrationID and
// returns the inbound byte stream for downstream record decoding. The
// caller owns the returned stream and must close it.
func (c *Client) Open(ctx context.Context, inst registry.Instance, registrationID string) (io.ReadCloser, error) {
	target := net.JoinHostPort(inst.Host, strconv.Itoa(inst.ResultPort))

	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, &ConnectError{Host: target, Err: err}
	}
	c.log.Debug("result socket connected", zap.String("target", target))

	buf := make([]byte, 0, len(registrationID)+1)
	buf = append(buf, registrationID...)
	buf = append(buf, 0)
	if _, err := conn.Write(buf); err != nil {
		_ = conn.Close()
		return nil, &ConnectError{Host: target, Err: err}
	}
	c.log.Info("registered result stream", zap.String("id", registrationID))
	return conn, nil
}
