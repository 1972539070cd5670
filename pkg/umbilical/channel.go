// Package umbilical runs the callback channel an execution daemon uses to
// report task status back to the submitting client.
package umbilical

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"splitwire/pkg/wire"
	"splitwire/pkg/wire/codec"
	"splitwire/pkg/wire/stream"
)

// Handler consumes daemon callbacks. Implementations must be safe for
// concurrent calls; each daemon connection is served by its own goroutine.
type Handler interface {
	OnHeartbeat(hb wire.Heartbeat)
	OnTaskStatus(st wire.TaskStatus)
}

// NopHandler discards all callbacks.
type NopHandler struct{}

func (NopHandler) OnHeartbeat(wire.Heartbeat)   {}
func (NopHandler) OnTaskStatus(wire.TaskStatus) {}

// StartError reports that the callback channel failed to bind or start.
type StartError struct {
	Addr string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start umbilical channel on %q: %v", e.Addr, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// Channel is one client-side callback endpoint. It must be started before
// the submission is built (its bound address is part of the request) and
// stays open for the lifetime of the fragment's execution. The owner is
// responsible for Stop; the dispatcher guarantees it on every exit path.
type Channel struct {
	listenAddr string
	handler    Handler
	log        *zap.Logger
	reg        *codec.Registry

	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewChannel builds a channel bound to listenAddr on Start. An empty
// listenAddr binds an ephemeral port on all interfaces.
func NewChannel(listenAddr string, h Handler, log *zap.Logger) *Channel {
	if listenAddr == "" {
		listenAddr = ":0"
	}
	if h == nil {
		h = NopHandler{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{listenAddr: listenAddr, handler: h, log: log, reg: codec.NewRegistry()}
}

// Start binds the listener and begins serving daemon callbacks. The
// returned address is what the submission carries as its callback endpoint.
func (c *Channel) Start(ctx context.Context) (net.Addr, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", c.listenAddr)
	if err != nil {
		return nil, &StartError{Addr: c.listenAddr, Err: err}
	}
	c.mu.Lock()
	c.ln = ln
	c.conns = make(map[net.Conn]struct{})
	c.closeCh = make(chan struct{})
	c.mu.Unlock()

	c.wg.Add(1)
	go c.acceptLoop(ln)
	c.log.Info("umbilical channel started", zap.String("addr", ln.Addr().String()))
	return ln.Addr(), nil
}

// Addr returns the bound address, or nil before Start.
func (c *Channel) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ln == nil {
		return nil
	}
	return c.ln.Addr()
}

// Stop closes the listener and waits for connection goroutines to drain.
// Safe to call more than once.
func (c *Channel) Stop() {
	c.mu.Lock()
	ln, closeCh := c.ln, c.closeCh
	c.ln = nil
	c.mu.Unlock()
	if ln == nil {
		return
	}
	select {
	case <-closeCh:
	default:
		close(closeCh)
	}
	_ = ln.Close()
	c.mu.Lock()
	for conn := range c.conns {
		_ = conn.Close()
	}
	c.conns = nil
	c.mu.Unlock()
	c.wg.Wait()
	c.log.Info("umbilical channel stopped")
}

func (c *Channel) acceptLoop(ln net.Listener) {
	defer c.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		c.mu.Lock()
		if c.conns == nil {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conns[conn] = struct{}{}
		c.mu.Unlock()
		c.wg.Add(1)
		go c.serveConn(conn)
	}
}

func (c *Channel) serveConn(conn net.Conn) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		delete(c.conns, conn)
		c.mu.Unlock()
		_ = conn.Close()
	}()
	sc := stream.New(conn)
	for {
		var env wire.Envelope
		if err := sc.Recv(&env); err != nil {
			if !isClosed(err) {
				c.log.Debug("umbilical connection closed", zap.Error(err))
			}
			return
		}
		c.dispatch(&env)
	}
}

func (c *Channel) dispatch(env *wire.Envelope) {
	switch env.Header.Type {
	case wire.MsgHeartbeat:
		var hb wire.Heartbeat
		if _, err := wire.DecodeBody(c.reg, env.Payload, &hb); err != nil {
			c.log.Warn("bad heartbeat frame", zap.Error(err))
			return
		}
		c.handler.OnHeartbeat(hb)
	case wire.MsgTaskStatus:
		var st wire.TaskStatus
		if _, err := wire.DecodeBody(c.reg, env.Payload, &st); err != nil {
			c.log.Warn("bad task status frame", zap.Error(err))
			return
		}
		c.log.Info("task status",
			zap.String("container", st.ContainerID),
			zap.String("state", st.State))
		c.handler.OnTaskStatus(st)
	default:
		c.log.Warn("unexpected umbilical frame", zap.Uint8("type", env.Header.Type))
	}
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
