// Package lifecycle starts a hello server only when none is already listening,
// and tears it down only if this process started it.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/earthbuild/hello-earthly/pkg/config"
	"github.com/earthbuild/hello-earthly/pkg/probe"
	"github.com/earthbuild/hello-earthly/pkg/server"
	"github.com/earthbuild/hello-earthly/pkg/stats"
)

type options struct {
	prober  probe.Func
	logger  *logrus.Logger
	metrics *stats.MetricsRecorder
}

// Option configures Ensure
type Option func(*options)

// WithProber replaces the port probe
func WithProber(p probe.Func) Option {
	return func(o *options) {
		o.prober = p
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder shared with the server
func WithMetrics(mr *stats.MetricsRecorder) Option {
	return func(o *options) {
		o.metrics = mr
	}
}

// Instance is a hello server reachable at Addr, started by this process or not
type Instance struct {
	addr    string
	owned   bool
	srv     *server.Server
	done    chan struct{}
	err     error
	logger  *logrus.Logger
	metrics *stats.MetricsRecorder

	ownsMetrics bool
	closeOnce   sync.Once
	closeErr    error
}

// Ensure makes sure a hello server answers on the configured port.
//
// If the port already accepts connections the running instance is reused.
// Otherwise a server is started; losing a bind race to another process
// (address in use) is treated as the server already running. Any other bind
// error is returned.
func Ensure(ctx context.Context, cfg *config.Config, opts ...Option) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &options{
		prober: probe.IsOpen,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	inst := &Instance{
		addr:    cfg.ProbeAddress(),
		logger:  o.logger,
		metrics: o.metrics,
	}
	if inst.metrics == nil {
		inst.metrics = stats.NewMetricsRecorder()
		inst.ownsMetrics = true
	}

	// Port 0 asks for a fresh port, so there is nothing to probe
	if cfg.Port != 0 && o.prober(ctx, cfg.ProbeAddress(), cfg.ProbeTimeout) {
		o.logger.WithField("addr", inst.addr).Info("Server already running, skipping local startup")
		inst.metrics.RecordLifecycle(stats.OutcomeExternal)
		return inst, nil
	}

	srv, err := server.New(cfg, server.WithLogger(o.logger), server.WithMetrics(inst.metrics))
	if err != nil {
		inst.release()
		return nil, err
	}

	ln, err := srv.Listen()
	if err != nil {
		if errors.Is(err, server.ErrAddressInUse) {
			o.logger.WithField("addr", inst.addr).Warn("Address in use, assuming server already running")
			inst.metrics.RecordLifecycle(stats.OutcomeAddrInUse)
			return inst, nil
		}
		inst.metrics.RecordLifecycle(stats.OutcomeFailed)
		inst.release()
		return nil, fmt.Errorf("failed to start hello server: %w", err)
	}

	inst.owned = true
	inst.srv = srv
	inst.done = make(chan struct{})
	inst.addr = clientAddr(cfg, ln.Addr())

	inst.metrics.SetServerUp(true)
	go func() {
		inst.err = srv.Serve(ln)
		inst.metrics.SetServerUp(false)
		close(inst.done)
	}()

	inst.metrics.RecordLifecycle(stats.OutcomeStarted)
	o.logger.WithField("addr", inst.addr).Info("✅ Hello server started")

	return inst, nil
}

// clientAddr swaps the port of the configured probe address for the bound one
func clientAddr(cfg *config.Config, bound net.Addr) string {
	host, _, err := net.SplitHostPort(cfg.ProbeAddress())
	if err != nil {
		return bound.String()
	}
	tcp, ok := bound.(*net.TCPAddr)
	if !ok {
		return bound.String()
	}
	return net.JoinHostPort(host, strconv.Itoa(tcp.Port))
}

// Owned reports whether this process started the server
func (i *Instance) Owned() bool {
	return i.owned
}

// Addr returns the host:port clients should connect to
func (i *Instance) Addr() string {
	return i.addr
}

// BaseURL returns the http URL of the server
func (i *Instance) BaseURL() string {
	return "http://" + i.addr
}

// Done is closed when an owned server stops serving. It is nil, and so
// never ready, for an instance this process did not start.
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// Err returns the error the owned server stopped with. Only meaningful once
// Done is closed.
func (i *Instance) Err() error {
	select {
	case <-i.done:
		return i.err
	default:
		return nil
	}
}

// Close shuts the server down if this process started it; otherwise it does
// nothing. Connections still open when ctx expires are closed forcibly.
// Close is idempotent.
func (i *Instance) Close(ctx context.Context) error {
	i.closeOnce.Do(func() {
		defer i.release()

		if !i.owned {
			return
		}
		defer i.metrics.SetServerUp(false)

		if err := i.srv.Shutdown(ctx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				if cerr := i.srv.Close(); cerr != nil {
					i.logger.WithError(cerr).Warn("Failed to force-close hello server")
				}
			}
			i.closeErr = fmt.Errorf("failed to shut down hello server: %w", err)
			return
		}

		select {
		case <-i.done:
			i.closeErr = i.err
		case <-ctx.Done():
			i.closeErr = ctx.Err()
		}
	})
	return i.closeErr
}

func (i *Instance) release() {
	if i.ownsMetrics {
		i.metrics.Stop()
	}
}
