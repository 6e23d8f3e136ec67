// Package secrets resolves credentials from an external secret manager
// addressed by URI.
//
// The manager itself is a collaborator: a configured lookup command (the
// KeePass CLI lineage) does the real work and may prompt the operator for a
// master credential on its own terminal. When no command is configured the
// operator is prompted directly for the value. Prompts and lookups carry
// bounded deadlines and fail closed as NotFound on timeout.
package secrets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/CJohnsonADAH/adpn-cli/internal/adpnerr"
	"github.com/CJohnsonADAH/adpn-cli/internal/logging"
)

// DefaultPromptTimeout bounds interactive prompts so an unattended pipeline
// fails closed instead of hanging.
const DefaultPromptTimeout = 60 * time.Second

// Prompter asks the operator for a credential.
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
}

// Manager resolves secret URIs like
//
//	keepass:///home/user/adpn.kdbx?title=ADPNet
//
// through a configured external lookup command, falling back to an
// interactive prompt when no command is configured.
type Manager struct {
	// Command is the argv prefix of the external lookup tool; database and
	// title switches are appended. Empty means prompt directly.
	Command []string

	Prompter Prompter
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Lookup resolves one secret URI. The lookup command's stdin and stderr stay
// attached to the process so the tool can run its own master-credential
// prompt; only stdout is captured. A nonzero exit surfaces as an upstream
// failure with the tool's status preserved.
func (m *Manager) Lookup(ctx context.Context, uri string) (string, error) {
	logger := logging.NewComponentLogger(m.Logger, "secrets")

	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" {
		return "", adpnerr.Wrap(adpnerr.ErrParse, "secrets", "lookup", fmt.Sprintf("bad secret URI %q", uri), err)
	}

	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultPromptTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if len(m.Command) == 0 {
		prompter := m.Prompter
		if prompter == nil {
			prompter = NewTerminalPrompter()
		}
		return prompter.Prompt(ctx, fmt.Sprintf("Secret for %s: ", uri))
	}

	args := append([]string(nil), m.Command[1:]...)
	if parsed.Path != "" {
		args = append(args, "--database="+parsed.Path)
	}
	if title := parsed.Query().Get("title"); title != "" {
		args = append(args, "--title="+title)
	}

	cmd := exec.CommandContext(ctx, m.Command[0], args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	logger.Debug("running secret lookup", logging.String("scheme", parsed.Scheme))
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", adpnerr.Wrap(adpnerr.ErrNotFound, "secrets", "lookup", "lookup timed out", err)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", adpnerr.Upstream("secrets", "lookup", exitErr.ExitCode(), err)
		}
		return "", fmt.Errorf("run secret lookup: %w", err)
	}

	value := firstLine(stdout.String())
	if value == "" {
		return "", adpnerr.Wrap(adpnerr.ErrNotFound, "secrets", "lookup", uri, nil)
	}
	return value, nil
}

// NewTerminalPrompter reads a credential from the controlling terminal with
// echo disabled. On a non-terminal stdin the prompt fails closed.
func NewTerminalPrompter() Prompter {
	return terminalPrompter{}
}

type terminalPrompter struct{}

func (terminalPrompter) Prompt(ctx context.Context, label string) (string, error) {
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return "", adpnerr.Wrap(adpnerr.ErrNotFound, "secrets", "prompt", "stdin is not a terminal", nil)
	}

	type result struct {
		value []byte
		err   error
	}
	results := make(chan result, 1)
	go func() {
		fmt.Fprint(os.Stderr, label)
		value, err := term.ReadPassword(int(fd))
		fmt.Fprintln(os.Stderr)
		results <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", adpnerr.Wrap(adpnerr.ErrNotFound, "secrets", "prompt", "prompt timed out", ctx.Err())
	case r := <-results:
		if r.err != nil {
			return "", fmt.Errorf("read credential: %w", r.err)
		}
		return strings.TrimSpace(string(r.value)), nil
	}
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(line)
}
