// Package dispatch hands one split directly to a resolved execution daemon
// and wires up the channels the daemon reports and streams back on.
package dispatch

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"splitwire/pkg/creds"
	"splitwire/pkg/registry"
	"splitwire/pkg/result"
	"splitwire/pkg/split"
	"splitwire/pkg/submit"
	"splitwire/pkg/umbilical"
)

// Options configures a Dispatcher.
type Options struct {
	// QueryID identifies the query this dispatcher serves; combined with
	// the split index it forms the result registration id.
	QueryID string
	// ListenAddr is the umbilical listen address. Empty binds an
	// ephemeral port on all interfaces.
	ListenAddr string
	// AdvertiseHost overrides the callback host the daemon dials back to;
	// defaults to the umbilical's bound address.
	AdvertiseHost string
	// DialTimeout bounds connection establishment to the daemon. Zero
	// means no timeout: a hung daemon blocks until the caller's context
	// imposes a deadline.
	DialTimeout time.Duration
	// Handler receives umbilical callbacks for the fragment.
	Handler umbilical.Handler
}

// Dispatcher executes the full dispatch sequence for one split at a time:
// decode, resolve, start umbilical, build, submit, open result stream.
// Every step is synchronous and any failure is terminal for that split; no
// retries. Safe for concurrent use: each dispatch owns its channel and
// sockets, only the registry is shared (reads only).
type Dispatcher struct {
	resolver *registry.Resolver
	builder  *submit.Builder
	submits  *submit.Client
	results  *result.Client
	opts     Options
	log      *zap.Logger
}

func New(resolver *registry.Resolver, opts Options, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		resolver: resolver,
		builder:  submit.NewBuilder(log),
		submits:  submit.NewClient(opts.DialTimeout, log),
		results:  result.NewClient(opts.DialTimeout, log),
		opts:     opts,
		log:      log,
	}
}

// Dispatch runs the split on a live instance of its primary target host and
// returns the result stream. The returned Stream owns the result connection
// and the umbilical channel; Close releases both. On error every resource
// acquired along the way has already been released.
func (d *Dispatcher) Dispatch(ctx context.Context, desc *split.Descriptor) (*Stream, error) {
	info, err := split.DecodeSubmitWorkInfo(desc.PlanBytes)
	if err != nil {
		return nil, err
	}
	if len(desc.Locations) == 0 {
		return nil, &split.DecodeError{What: "split descriptor", Err: errors.New("no target hosts")}
	}

	inst, err := d.resolver.Resolve(ctx, desc.Locations[0])
	if err != nil {
		return nil, err
	}
	d.log.Info("resolved service instance",
		zap.String("host", inst.Host),
		zap.Int("execution_port", inst.ExecutionPort),
		zap.Int("result_port", inst.ResultPort))

	ch := umbilical.NewChannel(d.opts.ListenAddr, d.opts.Handler, d.log)
	boundAddr, err := ch.Start(ctx)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			ch.Stop()
		}
	}()

	cbHost, cbPort, err := callbackEndpoint(boundAddr, d.opts.AdvertiseHost)
	if err != nil {
		return nil, &umbilical.StartError{Addr: boundAddr.String(), Err: err}
	}

	token := creds.Token{
		Kind:       "JOB_TOKEN",
		Service:    info.TokenID,
		Identifier: info.TokenIdent,
		Password:   info.TokenSecret,
	}
	req, err := d.builder.Build(info, desc.SplitIndex, cbHost, cbPort, token)
	if err != nil {
		return nil, err
	}

	ev, err := split.DecodeFragmentEvent(desc.FragmentBytes)
	if err != nil {
		return nil, err
	}

	if err := d.submits.Submit(ctx, inst, req, *ev); err != nil {
		return nil, err
	}

	id := result.RegistrationID(d.opts.QueryID, desc.SplitIndex)
	rc, err := d.results.Open(ctx, inst, id)
	if err != nil {
		return nil, err
	}

	ok = true
	return &Stream{rc: rc, ch: ch}, nil
}

// callbackEndpoint derives the host/port the daemon should dial back to
// from the umbilical's bound address.
func callbackEndpoint(addr net.Addr, advertiseHost string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	if advertiseHost != "" {
		host = advertiseHost
	}
	return host, port, nil
}

// Stream is the readable result byte stream of one dispatched split. It
// keeps the umbilical channel open for the lifetime of the fragment and
// releases both it and the result connection on Close.
type Stream struct {
	rc   io.ReadCloser
	ch   *umbilical.Channel
	once sync.Once
}

func (s *Stream) Read(p []byte) (int, error) { return s.rc.Read(p) }

func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.rc.Close()
		s.ch.Stop()
	})
	return err
}
