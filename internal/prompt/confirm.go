// Package prompt asks yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer reads answers from In and writes questions to Out. Questions
// are refused unless IsInteractive reports a user at the other end.
type Confirmer struct {
	In            io.Reader
	Out           io.Writer
	IsInteractive func() bool
}

// DefaultConfirmer asks on stderr and reads stdin when it is a terminal.
func DefaultConfirmer() Confirmer {
	return Confirmer{
		In:            os.Stdin,
		Out:           os.Stderr,
		IsInteractive: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

func (c Confirmer) interactive() bool {
	return c.IsInteractive != nil && c.IsInteractive()
}

// Confirm prints question and reads a single line. Only "y" and "yes"
// count as agreement.
func (c Confirmer) Confirm(question string) (bool, error) {
	if !c.interactive() {
		return false, fmt.Errorf("non-interactive stdin: cannot ask %q", question)
	}
	if c.Out != nil {
		fmt.Fprintf(c.Out, "%s (y/n): ", question)
	}
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// ConfirmOverwrite asks before replacing an existing output document.
func (c Confirmer) ConfirmOverwrite(path string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if !c.interactive() {
		return false, fmt.Errorf("non-interactive stdin: use -y to overwrite existing output")
	}
	return c.Confirm(fmt.Sprintf("Warning: Output file %s already exists. Overwrite?", path))
}
