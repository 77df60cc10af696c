package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/earthbuild/hello-earthly/pkg/config"
	"github.com/earthbuild/hello-earthly/pkg/lifecycle"
	"github.com/earthbuild/hello-earthly/pkg/server"
)

func newServeCommand(a *app) *cobra.Command {
	var skipIfRunning bool

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the hello HTTP server",
		Long: `Start the HTTP server answering GET /hello, /health, /readyz and /metrics.

With --skip-if-running the port is probed first and nothing is started when
a server already answers there. SIGINT and SIGTERM shut the server down
gracefully.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if skipIfRunning {
				return a.serveIfNotRunning(ctx)
			}
			return a.serve(ctx)
		},
	}

	flags := serveCmd.Flags()
	flags.BoolVar(&skipIfRunning, "skip-if-running", false, "Do nothing if a server already answers on the port")
	d := config.Default()
	flags.String("default-name", d.DefaultName, "Name greeted when no who parameter is given")
	flags.Bool("enable-cors", d.EnableCORS, "Allow cross-origin requests")
	flags.Duration("shutdown-timeout", d.ShutdownTimeout, "Graceful shutdown timeout")
	a.bindFlags(serveCmd, "default-name", "enable-cors", "shutdown-timeout")

	return serveCmd
}

func (a *app) serve(ctx context.Context) error {
	srv, err := server.New(a.cfg)
	if err != nil {
		return err
	}
	defer srv.Metrics().Stop()

	logrus.WithFields(logrus.Fields{
		"addr":        a.cfg.Address(),
		"environment": a.cfg.Environment,
	}).Info("🚀 Starting hello server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *app) serveIfNotRunning(ctx context.Context) error {
	inst, err := lifecycle.Ensure(ctx, a.cfg)
	if err != nil {
		return err
	}
	if !inst.Owned() {
		logrus.WithField("addr", inst.Addr()).Info("Hello server already running, nothing to do")
		return inst.Close(ctx)
	}

	return waitInstance(ctx, inst, a.cfg.ShutdownTimeout)
}

// waitInstance blocks until ctx is cancelled or the owned server stops on its
// own, then closes the instance
func waitInstance(ctx context.Context, inst *lifecycle.Instance, shutdownTimeout time.Duration) error {
	select {
	case <-ctx.Done():
	case <-inst.Done():
		logrus.WithField("addr", inst.Addr()).Warn("Hello server stopped serving")
		if err := inst.Err(); err != nil {
			_ = inst.Close(context.Background())
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return inst.Close(shutdownCtx)
}
