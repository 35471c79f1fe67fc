package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ShowTokenGuide explains how to obtain an app-only bearer token
func ShowTokenGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "API BEARER TOKEN")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "followgraph calls the v1.1 users/search and followers/ids endpoints")
	fmt.Fprintln(w, "with an app-only bearer token.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Open the developer portal and select your project's app")
	fmt.Fprintln(w, "  2. Go to 'Keys and tokens'")
	fmt.Fprintln(w, "  3. Generate (or regenerate) the Bearer Token and copy it")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The token is stored in the system keychain when one is available,")
	fmt.Fprintln(w, "otherwise in an encrypted file. "+TokenEnv+" overrides both.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
}

// Prompter reads credentials interactively
type Prompter struct {
	In  io.Reader
	Out io.Writer
	// ReadSecret reads a line without echo. Defaults to term.ReadPassword
	// when In is a terminal, and to a plain line read otherwise.
	ReadSecret func() (string, error)

	reader *bufio.Reader
}

// NewPrompter creates a Prompter on stdin and stdout
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stdout}
}

// Line prints label and reads one trimmed line
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.Out, label)
	line, err := p.buffered().ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Secret prints label and reads a value without echoing it
func (p *Prompter) Secret(label string) (string, error) {
	fmt.Fprint(p.Out, label)

	if p.ReadSecret != nil {
		s, err := p.ReadSecret()
		return strings.TrimSpace(s), err
	}
	if f, ok := p.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", fmt.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := p.buffered().ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Credentials prompts for a token stored under name. An empty name is asked
// for, and defaults to DefaultName.
func (p *Prompter) Credentials(name string) (*Credentials, error) {
	if name == "" {
		input, err := p.Line(fmt.Sprintf("Credential name [%s]: ", DefaultName))
		if err != nil {
			return nil, fmt.Errorf("failed to read name: %w", err)
		}
		name = input
	}
	if name == "" {
		name = DefaultName
	}

	token, err := p.Secret("Bearer token: ")
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("%w: empty bearer token", ErrInvalidCredentials)
	}

	return &Credentials{Name: name, BearerToken: token}, nil
}

func (p *Prompter) buffered() *bufio.Reader {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	return p.reader
}
