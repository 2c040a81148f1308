package browser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrNotInteractive is returned when a hand-off needs a keyboard but stdin
// is not a terminal
var ErrNotInteractive = errors.New("stdin is not a terminal; interactive hand-off unavailable")

// Prompter blocks until the user acknowledges a message with Enter
type Prompter struct {
	In  io.Reader
	Out io.Writer

	// Interactive reports whether In is attached to a person
	Interactive func() bool
}

// NewTerminalPrompter prompts on stdout and reads stdin
func NewTerminalPrompter() *Prompter {
	return &Prompter{
		In:  os.Stdin,
		Out: os.Stdout,
		Interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// WaitForEnter prints msg and waits for a line on In.
// It returns ctx.Err() if ctx is done first.
func (p *Prompter) WaitForEnter(ctx context.Context, msg string) error {
	if p.Interactive != nil && !p.Interactive() {
		return ErrNotInteractive
	}

	fmt.Fprintf(p.Out, "\n%s\nPress Enter to continue...", msg)

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(p.In).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		fmt.Fprintln(p.Out)
		return err
	case <-ctx.Done():
		fmt.Fprintln(p.Out)
		return ctx.Err()
	}
}
