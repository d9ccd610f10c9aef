package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// App runs a wired relay.
type App struct {
	wire *Wire
}

// New returns an App over w.
func New(w *Wire) *App { return &App{wire: w} }

// Run listens on the configured addresses and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.wire.Config.Server.Listen)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve serves the relay on ln, and metrics on the configured address if
// any, until ctx is done. Shutdown closes every session.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	cfg := a.wire.Config
	log := a.wire.Log.WithField("component", "app")

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, a.wire.Server)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	servers := []*http.Server{srv}
	var metricsLn net.Listener
	if cfg.Server.MetricsListen != "" {
		var err error
		metricsLn, err = net.Listen("tcp", cfg.Server.MetricsListen)
		if err != nil {
			_ = ln.Close()
			return err
		}
		mm := http.NewServeMux()
		mm.Handle("/metrics", a.wire.Metrics.Handler())
		servers = append(servers, &http.Server{Handler: mm, ReadHeaderTimeout: 10 * time.Second})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":        ln.Addr().String(),
			"path":        cfg.Server.Path,
			"fingerprint": a.wire.Fingerprint,
		}).Info("Relay listening")
		return ignoreClosed(srv.Serve(ln))
	})
	if metricsLn != nil {
		g.Go(func() error {
			log.WithField("addr", metricsLn.Addr().String()).Info("Metrics listening")
			return ignoreClosed(servers[1].Serve(metricsLn))
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, s := range servers {
			_ = s.Shutdown(sctx)
		}
		a.wire.Server.Close()
		log.Info("Relay stopped")
		return nil
	})
	return g.Wait()
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
