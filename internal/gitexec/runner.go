// ABOUTME: Git command execution via the system git binary
// ABOUTME: Applies per-command timeouts and normalizes failures into wrapped errors

package gitexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors for common git failure classes.
var (
	// ErrNotRepository indicates the target directory is not inside a git work tree.
	ErrNotRepository = errors.New("not a git repository")

	// ErrTimeout indicates the git command exceeded the configured timeout.
	ErrTimeout = errors.New("git command timed out")
)

// maxOutputBytes caps captured command output. Anything beyond the cap is
// truncated with a marker rather than failing the command.
const maxOutputBytes = 1 << 20

const truncationMarker = "\n... [output truncated]"

// Runner executes git commands against a working directory.
type Runner struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a Runner using the given git binary and per-command timeout.
// A zero timeout disables the deadline.
func NewRunner(binary string, timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		binary:  binary,
		timeout: timeout,
		logger:  logger.With("component", "gitexec"),
	}
}

// Run executes `git -C <dir> <args...>` and returns trimmed stdout.
// The directory must be absolute so option-like or cwd-relative values
// never reach git. Failures carry the command's stderr and classify common
// cases (ErrNotRepository, ErrTimeout) so callers can branch on errors.Is.
func (r *Runner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("git %s: no working directory set", firstArg(args))
	}
	if !filepath.IsAbs(dir) {
		return "", fmt.Errorf("git %s: working directory must be absolute (got %q)", firstArg(args), dir)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	full := append([]string{"-C", dir}, args...)
	cmd := exec.CommandContext(ctx, r.binary, full...)
	// Never let git block on credential or passphrase prompts
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	r.logger.Debug("git command finished",
		"args", args,
		"dir", dir,
		"duration", elapsed,
		"error", err)

	if err != nil {
		return "", r.classify(ctx, args, stderr.String(), err)
	}

	return truncate(strings.TrimRight(stdout.String(), "\n")), nil
}

// RunBare executes a git command with no working directory flag, for
// commands like `git --version` that are repository-independent.
func (r *Runner) RunBare(ctx context.Context, args ...string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", r.classify(ctx, args, stderr.String(), err)
	}

	return truncate(strings.TrimRight(stdout.String(), "\n")), nil
}

// Version reports the git binary's version string.
func (r *Runner) Version(ctx context.Context) (string, error) {
	return r.RunBare(ctx, "--version")
}

// IsRepo reports whether dir is inside a git work tree.
func (r *Runner) IsRepo(ctx context.Context, dir string) bool {
	out, err := r.Run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// ValidateArg rejects values git would parse as options rather than
// revisions or paths. Callers apply it to arguments that originate outside
// the process before splicing them into a command line.
func ValidateArg(s string) error {
	if strings.HasPrefix(s, "-") {
		return fmt.Errorf("argument %q would be parsed as an option", s)
	}
	return nil
}

// classify turns a failed command into an error that carries stderr and
// maps well-known failure text onto sentinel errors.
func (r *Runner) classify(ctx context.Context, args []string, stderr string, err error) error {
	op := firstArg(args)
	detail := strings.TrimSpace(stderr)

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("git %s: %w after %v", op, ErrTimeout, r.timeout)
	}

	if strings.Contains(detail, "not a git repository") {
		return fmt.Errorf("git %s: %w", op, ErrNotRepository)
	}

	if detail == "" {
		return fmt.Errorf("git %s: %w", op, err)
	}
	return fmt.Errorf("git %s: %w: %s", op, err, detail)
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return "(none)"
	}
	return args[0]
}

func truncate(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + truncationMarker
}
