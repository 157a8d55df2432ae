// Package prompt defines the interface the core invokes whenever it needs
// to ask something outside of a transaction - an ambiguous Matcher hit
// (spec.md §4.5 step 4b), a destructive confirmation before purge-roms, or
// free text - plus a non-interactive fallback and a terminal
// implementation. Grounded on
// other_examples/jkingsman-ROMCopyEngine's GetConfirmation (bufio.Reader
// over os.Stdin, loop-until-valid-answer).
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrCanceled is returned by ChooseOne when the user declines to pick any
// candidate, and by Unattended's ChooseOne and Input (there is nobody to
// ask).
var ErrCanceled = errors.New("prompt: canceled")

// Adapter is the prompt interface of spec.md §6: choose_one, confirm,
// input. The core only calls these outside of transactions.
type Adapter interface {
	ChooseOne(ctx context.Context, prompt string, candidates []string) (int, error)
	Confirm(ctx context.Context, prompt string) (bool, error)
	Input(ctx context.Context, prompt string) (string, error)
}

// Unattended never blocks: ChooseOne and Input always fail with
// ErrCanceled, Confirm always returns false. Used by any CLI invocation
// that must terminate without blocking on stdin, matching spec.md §6's
// batch-mode requirement.
type Unattended struct{}

func (Unattended) ChooseOne(context.Context, string, []string) (int, error) {
	return -1, ErrCanceled
}

func (Unattended) Confirm(context.Context, string) (bool, error) {
	return false, nil
}

func (Unattended) Input(context.Context, string) (string, error) {
	return "", ErrCanceled
}

// Terminal reads answers from an io.Reader (typically os.Stdin) and writes
// prompts to an io.Writer (typically os.Stderr), looping until it gets a
// well-formed answer - the same shape as GetConfirmation in
// jkingsman-ROMCopyEngine's cli_parsing.go, generalized to choose_one and
// input.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal wraps in/out for interactive prompting.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (t *Terminal) ChooseOne(ctx context.Context, prompt string, candidates []string) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}

		fmt.Fprintf(t.out, "%s\n", prompt)
		for i, c := range candidates {
			fmt.Fprintf(t.out, "  %d) %s\n", i+1, c)
		}
		fmt.Fprintf(t.out, "choice [1-%d, or 0 to cancel]: ", len(candidates))

		answer, err := t.readLine()
		if err != nil {
			return -1, err
		}

		n, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintln(t.out, "please enter a number")
			continue
		}
		if n == 0 {
			return -1, ErrCanceled
		}
		if n < 1 || n > len(candidates) {
			fmt.Fprintln(t.out, "out of range")
			continue
		}
		return n - 1, nil
	}
}

func (t *Terminal) Confirm(ctx context.Context, prompt string) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		fmt.Fprintf(t.out, "%s [y/n]: ", prompt)
		answer, err := t.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(t.out, "please enter 'y' or 'n'")
		}
	}
}

func (t *Terminal) Input(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprintf(t.out, "%s: ", prompt)
	return t.readLine()
}
