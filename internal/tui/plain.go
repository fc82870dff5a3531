package tui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xiaot623/gogo/chatwidget/internal/domain"
	"github.com/xiaot623/gogo/chatwidget/internal/render"
	"github.com/xiaot623/gogo/chatwidget/internal/service"
)

// Plain is the line-oriented view used when stdin or stdout is not a
// terminal. Each line read is one dispatch; the reply is printed before the
// next prompt.
type Plain struct {
	svc       *service.Service
	sessionID string
	in        io.Reader
	out       io.Writer
	md        *render.Terminal
}

// NewPlain creates a line-mode view. md may be nil to print replies verbatim.
func NewPlain(svc *service.Service, sessionID string, in io.Reader, out io.Writer, md *render.Terminal) *Plain {
	return &Plain{svc: svc, sessionID: sessionID, in: in, out: out, md: md}
}

// Run reads lines until EOF, /quit or ctx is done.
func (p *Plain) Run(ctx context.Context) error {
	fmt.Fprintln(p.out, banner)
	fmt.Fprintln(p.out, "Type a message and press Enter to send.")
	fmt.Fprintln(p.out, "Commands: /quit to exit")

	scanner := bufio.NewScanner(p.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(p.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(p.out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Fprintln(p.out, "Bye!")
			return nil
		}

		msg, err := p.svc.Dispatch(ctx, p.sessionID, input)
		if err != nil {
			if errors.Is(err, service.ErrBusy) {
				fmt.Fprintln(p.out, "Still waiting for the previous reply.")
				continue
			}
			return fmt.Errorf("dispatch: %w", err)
		}
		p.print(msg)
	}
}

func (p *Plain) print(msg domain.Message) {
	text := msg.Text
	if p.md != nil && !msg.IsError() {
		text = p.md.Render(text)
	}
	label := "AI"
	if msg.IsError() {
		label = "!!"
	}
	fmt.Fprintf(p.out, "[%s] %s: %s\n", msg.TimestampDisplay, label, text)
}
