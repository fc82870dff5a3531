package cmds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/chatwidget/internal/mockhook"
)

func (a *app) newMockhookCommand() *cobra.Command {
	var (
		port  int
		mode  string
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mockhook",
		Short: "Run a local webhook that echoes messages in a chosen reply shape",
		Long: "Run a local webhook that echoes messages in a chosen reply shape.\n\n" +
			"Point the widget at http://localhost:<port>/webhook/chat. Append ?mode=<mode>\n" +
			"to the URL to override the mode for a single call.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setupLogging(cmd.ErrOrStderr()); err != nil {
				return err
			}
			m, err := mockhook.ParseMode(mode)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				a.cfg.MockPort = port
			}

			e := mockhook.NewServer(mockhook.NewHandler(m, delay))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info().
				Int("port", a.cfg.MockPort).
				Str("mode", string(m)).
				Dur("delay", delay).
				Msg("starting mock webhook")

			errCh := make(chan error, 1)
			go func() {
				if err := e.Start(fmt.Sprintf(":%d", a.cfg.MockPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (env CHATWIDGET_MOCK_PORT)")
	cmd.Flags().StringVar(&mode, "mode", string(mockhook.ModeText), "reply shape: text, output, message, response, string, raw, empty, unknown, error")
	cmd.Flags().DurationVar(&delay, "delay", 0, "wait this long before answering")
	return cmd
}
