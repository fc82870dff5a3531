// Package render turns inbound markdown into something a view can display:
// ANSI-styled text for the terminal and HTML for the browser widget.
package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// StyleAuto picks a dark or light style from the terminal background.
const StyleAuto = "auto"

// ResolveStyle turns StyleAuto into a concrete style by querying the terminal
// background. Other names are returned unchanged. Call it before a program
// takes over stdin.
func ResolveStyle(style string) string {
	if style != "" && style != StyleAuto {
		return style
	}
	if lipgloss.HasDarkBackground() {
		return styles.DarkStyle
	}
	return styles.LightStyle
}

// Terminal renders markdown for a terminal of a given width.
type Terminal struct {
	renderer *glamour.TermRenderer
}

// NewTerminal creates a terminal renderer. Style is a glamour standard style
// name ("dark", "light", "notty", ...) or StyleAuto.
func NewTerminal(style string, width int) (*Terminal, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == StyleAuto {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Terminal{renderer: r}, nil
}

// Render returns md styled for the terminal. On failure the source is
// returned unchanged.
func (t *Terminal) Render(md string) string {
	out, err := t.renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

// HTML renders md to an HTML fragment. Links open in a new browsing context
// and raw HTML in the source is dropped.
func HTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.NoopenerLinks | html.NoreferrerLinks | html.SkipHTML,
	})
	return string(markdown.ToHTML([]byte(md), p, r))
}
