package cmds

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/chatwidget/internal/domain"
	"github.com/xiaot623/gogo/chatwidget/internal/render"
	"github.com/xiaot623/gogo/chatwidget/internal/tui"
)

const plainWrapWidth = 80

func (a *app) newChatCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			interactive := isTerminal(os.Stdin) && isTerminal(os.Stdout)
			sessionID := domain.NewSessionID()

			if interactive && !plain {
				if err := a.setupFileLogging(); err != nil {
					return err
				}
				log.Info().Str("session_id", sessionID).Msg("starting terminal chat")
				return tui.Run(a.newService(nil), sessionID, tui.Options{
					Markdown:     a.cfg.Markdown,
					GlamourStyle: a.cfg.GlamourStyle,
				})
			}

			if err := a.setupLogging(cmd.ErrOrStderr()); err != nil {
				return err
			}

			var md *render.Terminal
			if a.cfg.Markdown && isTerminal(os.Stdout) {
				r, err := render.NewTerminal(a.cfg.GlamourStyle, plainWrapWidth)
				if err != nil {
					log.Warn().Err(err).Msg("markdown renderer unavailable, showing plain text")
				} else {
					md = r
				}
			}

			log.Debug().Str("session_id", sessionID).Msg("starting line chat")
			return tui.NewPlain(a.newService(nil), sessionID, cmd.InOrStdin(), cmd.OutOrStdout(), md).Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "use line mode even on a terminal")
	return cmd
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
