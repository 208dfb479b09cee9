package tui

import (
	"github.com/charmbracelet/glamour"

	"github.com/aretw0/slotflow/pkg/runner"
)

// NewRenderer returns a runner.ContentRenderer that renders bot answers as
// markdown. When glamour cannot build a renderer answers are printed as is.
func NewRenderer(wordWrap int) runner.ContentRenderer {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if wordWrap > 0 {
		opts = append(opts, glamour.WithWordWrap(wordWrap))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return func(s string) (string, error) { return s, nil }
	}
	return r.Render
}
