package credentials

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PromptPair reads the key pair from the terminal. The key is echoed,
// the secret is read with echo disabled. The login command and the
// last resolver source share this prompt.
func PromptPair() (string, string, error) {
	fmt.Fprint(os.Stderr, "Alpaca API key: ")
	reader := bufio.NewReader(os.Stdin)
	key, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read key: %w", err)
	}

	fmt.Fprint(os.Stderr, "Alpaca API secret: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", "", fmt.Errorf("read secret: %w", err)
	}

	return strings.TrimSpace(key), strings.TrimSpace(string(raw)), nil
}
