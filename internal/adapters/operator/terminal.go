package operator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mdp/qrterminal"
	"github.com/rs/zerolog/log"
)

// Terminal talks to the operator on the console the process runs in.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	readOnce sync.Once
	lines    chan line
}

type line struct {
	text string
	err  error
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out, lines: make(chan line, 1)}
}

// Prompt writes the question and waits for one line of input. A cancelled context abandons the wait; a line
// typed afterwards answers the next prompt.
func (t *Terminal) Prompt(ctx context.Context, question string) (string, error) {
	t.mu.Lock()
	_, err := fmt.Fprint(t.out, question)
	t.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	t.readOnce.Do(func() { go t.readLines() })

	select {
	case l, ok := <-t.lines:
		if !ok {
			return "", fmt.Errorf("failed to read answer: %w", io.EOF)
		}
		if l.err != nil {
			return "", fmt.Errorf("failed to read answer: %w", l.err)
		}
		return l.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// readLines feeds console input to prompts until the input fails.
func (t *Terminal) readLines() {
	defer close(t.lines)

	for {
		text, err := t.in.ReadString('\n')
		if err == io.EOF && text != "" {
			err = nil
		}

		t.lines <- line{text: strings.TrimSpace(text), err: err}
		if err != nil {
			return
		}
	}
}

func (t *Terminal) Status(message string) {
	log.Info().Msg(message)
}

func (t *Terminal) ShowQR(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	qrterminal.GenerateHalfBlock(code, qrterminal.L, t.out)
}

func (t *Terminal) ShowPairingCode(code string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "PAIRING CODE %s\n", code)
}
