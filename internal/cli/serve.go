package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"envdesk/internal/gateway"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store over HTTP for other envdesk clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Backend != "" {
				return writeErr(cmd, errors.New("serve needs the local store; unset --backend"))
			}
			st, err := localStore(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			if !st.Exists() {
				return writeErr(cmd, errNoStore)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return writeErr(cmd, err)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			srv := &http.Server{
				Handler: gateway.NewServer(st, gateway.ServerOpts{
					Logger:   app.log.With().Str("component", "http").Logger(),
					Registry: reg,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			url := "http://" + ln.Addr().String()
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      ln.Addr().String(),
					"url":       url,
					"dir":       st.Dir,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{"envdesk --backend " + url + " state"},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "envdesk serving %s at %s\n", st.Dir, url)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, srv, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7420", "Bind address (host:port or :port)")
	return cmd
}

// serve runs srv on ln until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
