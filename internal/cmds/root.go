// Package cmds wires the chatwidget command line.
package cmds

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/chatwidget/internal/adapter/webhook"
	"github.com/xiaot623/gogo/chatwidget/internal/config"
	"github.com/xiaot623/gogo/chatwidget/internal/conversation"
	"github.com/xiaot623/gogo/chatwidget/internal/logging"
	"github.com/xiaot623/gogo/chatwidget/internal/metrics"
	"github.com/xiaot623/gogo/chatwidget/internal/service"
)

// app carries state shared by the subcommands.
type app struct {
	cfg *config.Config

	webhookURL string
	userID     string
	logLevel   string
	logFormat  string

	logCloser io.Closer
}

// NewRootCommand builds the chatwidget command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "chatwidget",
		Short:         "Chat with an AI assistant behind a webhook",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logCloser != nil {
				a.logCloser.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.webhookURL, "webhook-url", "", "webhook URL (env CHATWIDGET_WEBHOOK_URL)")
	flags.StringVar(&a.userID, "user-id", "", "user identifier sent with every message (env CHATWIDGET_USER_ID)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(
		a.newChatCommand(),
		a.newSendCommand(),
		a.newServeCommand(),
		a.newMockhookCommand(),
	)

	return root
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("webhook-url") {
		cfg.WebhookURL = a.webhookURL
	}
	if flags.Changed("user-id") {
		cfg.UserID = a.userID
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// setupLogging installs the global logger writing to out.
func (a *app) setupLogging(out io.Writer) error {
	if _, err := logging.New(a.cfg.LogLevel, a.cfg.LogFormat, out); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	return nil
}

// setupFileLogging sends logs to the configured log file, or nowhere.
func (a *app) setupFileLogging() error {
	w, err := logging.OpenFile(a.cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	a.logCloser = w
	return a.setupLogging(w)
}

// newService builds the dispatch service. reg may be nil.
func (a *app) newService(reg prometheus.Registerer) *service.Service {
	client := webhook.NewClient(a.cfg.WebhookURL, a.cfg.WebhookTimeout())

	log.Debug().
		Str("webhook_url", a.cfg.WebhookURL).
		Str("user_id", a.cfg.UserID).
		Dur("timeout", a.cfg.WebhookTimeout()).
		Msg("dispatch configured")

	return service.New(
		conversation.NewStore(),
		client,
		a.cfg.UserID,
		service.WithMetrics(metrics.New(reg)),
	)
}
