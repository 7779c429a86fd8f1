package reconcile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"example.com/crcheck/biblio"
)

// ConfirmationPolicy decides whether a new review record is written.
type ConfirmationPolicy interface {
	Confirm(c *biblio.Citation, preview, path string) (bool, error)
}

// AutoAccept writes every record without asking.
type AutoAccept struct{}

func (AutoAccept) Confirm(*biblio.Citation, string, string) (bool, error) { return true, nil }

// AutoReject declines every record; IDs are still consumed.
type AutoReject struct{}

func (AutoReject) Confirm(*biblio.Citation, string, string) (bool, error) { return false, nil }

// Prompt shows the record and waits for the operator. Only an answer
// starting with y or Y accepts; end of input declines.
type Prompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompt reads answers from in and writes the preview to out.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) Confirm(c *biblio.Citation, preview, path string) (bool, error) {
	fmt.Fprintln(p.out, preview)
	fmt.Fprintf(p.out, "Press Y if it should save the above xml to: %s. ", path)
	answer, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Fprintln(p.out)
	answer = strings.TrimSpace(answer)
	return strings.HasPrefix(answer, "y") || strings.HasPrefix(answer, "Y"), nil
}

// PolicyFor maps a config value to a policy.
func PolicyFor(name string, in io.Reader, out io.Writer) (ConfirmationPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "prompt":
		return NewPrompt(in, out), nil
	case "accept":
		return AutoAccept{}, nil
	case "reject":
		return AutoReject{}, nil
	}
	return nil, fmt.Errorf("unknown confirmation policy %q (want prompt, accept or reject)", name)
}
