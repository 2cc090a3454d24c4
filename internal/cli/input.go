package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/humanist/internal/shared"
	"golang.org/x/term"
)

// Test seams for the terminal. Tests replace them to avoid touching a TTY.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
	stdinFd      = func() int { return int(os.Stdin.Fd()) }
)

// GetPassword prompts on w and reads a password. On a terminal the input is
// not echoed; otherwise a single line is read from reader, which lets the
// command be fed from a pipe.
func GetPassword(reader *bufio.Reader, w io.Writer) (string, error) {
	if !isTerminal(stdinFd()) {
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	if _, err := fmt.Fprint(w, "Enter password: "); err != nil {
		return "", err
	}
	pw, err := readPassword(stdinFd())
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	defer shared.Wipe(pw)
	return string(pw), nil
}
