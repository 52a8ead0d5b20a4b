package session

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dokzlo13/lumectl/internal/store"
)

// Setup is the interactive credential entry path. It collects all four
// credential fields, attempts one login, and persists credentials plus
// tokens on success. On failure the user may still persist the entered
// credentials so a later retry does not require re-typing them; nothing
// else is changed.
func (m *Manager) Setup(ctx context.Context) error {
	creds, err := promptCredentials()
	if err != nil {
		return err
	}

	pair, err := m.login(ctx, creds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Login failed: %v\n", err)
		save, promptErr := promptYesNo("Save credentials anyway for a later retry?")
		if promptErr == nil && save {
			if saveErr := m.store.SaveCredentials(creds); saveErr != nil {
				return saveErr
			}
			fmt.Fprintln(os.Stderr, "Credentials saved.")
		}
		return err
	}

	if err := m.store.SaveCredentials(creds); err != nil {
		return err
	}
	if err := m.store.SaveTokens(store.TokenPair(pair)); err != nil {
		return err
	}
	m.remote.SetTokens(pair)
	fmt.Fprintln(os.Stderr, "Logged in; credentials and session tokens saved.")
	return nil
}

func promptCredentials() (store.Credentials, error) {
	reader := bufio.NewReader(os.Stdin)

	email, err := promptLine(reader, "Email: ")
	if err != nil {
		return store.Credentials{}, err
	}
	password, err := promptSecret(reader, "Password: ")
	if err != nil {
		return store.Credentials{}, err
	}
	keyID, err := promptLine(reader, "API key ID: ")
	if err != nil {
		return store.Credentials{}, err
	}
	apiKey, err := promptSecret(reader, "API key: ")
	if err != nil {
		return store.Credentials{}, err
	}

	return store.Credentials{Email: email, Password: password, KeyID: keyID, APIKey: apiKey}, nil
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads with echo disabled when stdin is a terminal, falling
// back to a plain line read when it is not (piped input, tests).
func promptSecret(reader *bufio.Reader, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(reader, prompt)
	}
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func promptYesNo(prompt string) (bool, error) {
	reader := bufio.NewReader(os.Stdin)
	answer, err := promptLine(reader, prompt+" [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}
