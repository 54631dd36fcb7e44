package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/storefront/cartsync/internal/reconcile"
)

// ErrPromptDismissed is returned when the user gives no usable answer.
var ErrPromptDismissed = errors.New("conflict prompt dismissed")

// TerminalPrompter asks the user to resolve a cart conflict on a terminal.
type TerminalPrompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

var _ reconcile.Prompter = (*TerminalPrompter)(nil)

func NewTerminalPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{in: bufio.NewReader(in), out: out}
}

// Choose prints both carts and their differences and reads one answer.
// "r"/"restore" adopts the account cart, "k"/"keep" keeps this one.
// Anything else, EOF or ctx cancellation dismisses the prompt.
func (p *TerminalPrompter) Choose(ctx context.Context, c reconcile.Conflict) (reconcile.Choice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.out, "Your account already has a different cart.")
	fmt.Fprintf(p.out, "  this device: %d items, %s\n", c.Local.TotalItems, c.Local.TotalAmount.StringFixed(2))
	fmt.Fprintf(p.out, "  account:     %d items, %s\n", c.Server.TotalItems, c.Server.TotalAmount.StringFixed(2))
	for _, l := range c.Diff.OnlyLocal {
		fmt.Fprintf(p.out, "  + %s x%d (only here)\n", lineLabel(l.Name, l.SizeName), l.Quantity)
	}
	for _, l := range c.Diff.OnlyServer {
		fmt.Fprintf(p.out, "  - %s x%d (only in account)\n", lineLabel(l.Name, l.SizeName), l.Quantity)
	}
	for _, ch := range c.Diff.Changed {
		fmt.Fprintf(p.out, "  ~ %s x%d here, x%d in account\n", lineLabel(ch.Line.Name, ch.Line.SizeName), ch.LocalQty, ch.ServerQty)
	}
	fmt.Fprint(p.out, "Restore account cart or keep this one? [restore/keep]: ")

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		answers <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return 0, ctx.Err()
	case a := <-answers:
		if a.err != nil && a.line == "" {
			fmt.Fprintln(p.out)
			return 0, ErrPromptDismissed
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "r", "restore":
			return reconcile.ChoiceAdoptServer, nil
		case "k", "keep":
			return reconcile.ChoiceKeepLocal, nil
		}
		return 0, ErrPromptDismissed
	}
}

func lineLabel(name, size string) string {
	if size == "" {
		return name
	}
	return name + " (" + size + ")"
}
