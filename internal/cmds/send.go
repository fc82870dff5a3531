package cmds

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/chatwidget/internal/domain"
)

// ErrReplyFailed is returned by send when the conversation entry is an error.
var ErrReplyFailed = errors.New("webhook call failed")

func (a *app) newSendCommand() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "send <text>",
		Short: "Send one message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setupLogging(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = domain.NewSessionID()
			}

			svc := a.newService(nil)
			msg, err := svc.Dispatch(cmd.Context(), sessionID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), msg.Text)
			if msg.IsError() {
				return ErrReplyFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session-id", "", "reuse an existing session identifier")
	return cmd
}
