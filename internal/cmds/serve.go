package cmds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/chatwidget/internal/domain"
	internalhttp "github.com/xiaot623/gogo/chatwidget/internal/transport/http"
	"github.com/xiaot623/gogo/chatwidget/internal/transport/ws"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversation to browser widgets over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setupLogging(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				a.cfg.HTTPPort = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (env CHATWIDGET_HTTP_PORT)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := a.newService(reg)
	sessionID := domain.NewSessionID()

	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	wsServer := ws.NewServer(svc, sessionID, hub, ws.Options{
		PingInterval:   a.cfg.WSPingInterval(),
		WriteTimeout:   a.cfg.WSWriteTimeout(),
		ReadTimeout:    a.cfg.WSReadTimeout(),
		MaxMessageSize: a.cfg.WSMaxMessageSize,
	})
	e := internalhttp.NewServer(svc, sessionID, wsServer, reg)

	log.Info().
		Int("port", a.cfg.HTTPPort).
		Str("session_id", sessionID).
		Str("webhook_url", a.cfg.WebhookURL).
		Msg("starting widget server")

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.HTTPPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down widget server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown HTTP server gracefully")
	}

	log.Info().Msg("widget server stopped")
	return nil
}
