package cli

import (
	"io"
	"os"

	"golang.org/x/term"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// progress prints a label followed by a dot per tick on terminals and
// nothing elsewhere.
type progress struct {
	w       io.Writer
	label   string
	enabled bool
	dots    int
}

func newProgress(w io.Writer, label string) *progress {
	return &progress{w: w, label: label, enabled: isTerminal(w)}
}

func (p *progress) tick() {
	if !p.enabled {
		return
	}
	if p.dots == 0 {
		_, _ = io.WriteString(p.w, p.label)
	}
	p.dots++
	_, _ = io.WriteString(p.w, ".")
}

// done ends the dot line, if one was started.
func (p *progress) done() {
	if p.dots > 0 {
		_, _ = io.WriteString(p.w, "\n")
		p.dots = 0
	}
}
