package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const historySize = 500

// LineEditor reads console lines.  On a terminal it offers readline
// editing and in-memory history; on pipes and files it falls back to a
// plain scanner and stays silent about prompts.
type LineEditor struct {
	rl      *readline.Instance
	scanner *bufio.Scanner
}

// NewLineEditor wraps in.  Readline is only used when in is a terminal.
func NewLineEditor(in io.Reader) *LineEditor {
	if f, ok := in.(*os.File); ok && IsTerminal(f) {
		rl, err := readline.NewFromConfig(&readline.Config{
			HistoryLimit:           historySize,
			DisableAutoSaveHistory: true,
		})
		if err == nil {
			return &LineEditor{rl: rl}
		}
		fmt.Fprintf(os.Stderr, "warning: readline init failed (%v), using basic input\n", err)
	}
	return &LineEditor{scanner: bufio.NewScanner(in)}
}

// Interactive reports whether readline is in use.
func (le *LineEditor) Interactive() bool { return le.rl != nil }

// ReadLine returns the next line without its terminator.  Ctrl-C and
// end of input both yield io.EOF.
func (le *LineEditor) ReadLine(prompt string) (string, error) {
	if le.rl != nil {
		le.rl.SetPrompt(prompt)
		line, err := le.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				return "", io.EOF
			}
			return "", err
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			le.rl.SaveToHistory(trimmed) //nolint:errcheck
		}
		return line, nil
	}

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Close releases the terminal.
func (le *LineEditor) Close() error {
	if le.rl != nil {
		return le.rl.Close()
	}
	return nil
}

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
