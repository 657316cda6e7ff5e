package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrPushRejected means the remote refused the push because it has
	// commits we do not. The writer has already rebased onto the remote, so
	// pushing again may succeed.
	ErrPushRejected = errors.New("push rejected by remote")

	// ErrGit wraps any other git failure.
	ErrGit = errors.New("git command failed")
)

// Writer records one file in version control and publishes it.
type Writer interface {
	Commit(ctx context.Context, path, message string) error
}

// PendingLister is implemented by writers that can report files left
// uncommitted, for example by a run whose commit retries ran out.
type PendingLister interface {
	Pending(ctx context.Context, dir string) ([]string, error)
}

// Config selects the remote, branch and optional identity for commits.
type Config struct {
	Remote      string `yaml:"remote"`
	Branch      string `yaml:"branch"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
	// Push disabled keeps commits local.
	Push bool `yaml:"push"`
}

// DefaultConfig pushes to origin/main.
func DefaultConfig() Config {
	return Config{Remote: "origin", Branch: "main", Push: true}
}

// ExecWriter drives the git binary inside a working tree.
type ExecWriter struct {
	dir string
	cfg Config
	log *zap.Logger
}

// NewExecWriter returns a Writer for the working tree at dir.
func NewExecWriter(dir string, cfg Config, log *zap.Logger) *ExecWriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExecWriter{dir: dir, cfg: cfg, log: log}
}

// Check verifies dir is inside a git working tree.
func (w *ExecWriter) Check(ctx context.Context) error {
	out, err := w.git(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "true" {
		return fmt.Errorf("%w: %s is not a work tree", ErrGit, w.dir)
	}
	return nil
}

// Commit stages path, commits it if anything is staged, and pushes. Calling
// it again after a failure resumes where the last call stopped.
func (w *ExecWriter) Commit(ctx context.Context, path, message string) error {
	rel, err := filepath.Rel(w.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}

	if _, err := w.git(ctx, "add", "--", rel); err != nil {
		return err
	}

	staged, err := w.hasStaged(ctx)
	if err != nil {
		return err
	}
	if staged {
		if _, err := w.git(ctx, "commit", "-m", message); err != nil {
			return err
		}
		w.log.Debug("committed", zap.String("file", rel), zap.String("message", message))
	}

	if !w.cfg.Push {
		return nil
	}
	return w.push(ctx)
}

// Pending lists files under dir that are untracked, modified or staged but
// not yet committed. Paths are absolute and sorted.
func (w *ExecWriter) Pending(ctx context.Context, dir string) ([]string, error) {
	rel, err := filepath.Rel(w.dir, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, fmt.Errorf("%w: %s is outside %s", ErrGit, dir, w.dir)
	}

	untracked, err := w.git(ctx, "ls-files", "--others", "--modified", "--exclude-standard", "--", rel)
	if err != nil {
		return nil, err
	}
	staged, err := w.git(ctx, "diff", "--cached", "--name-only", "--relative", "--", rel)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var out []string
	for _, line := range strings.Split(untracked+staged, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, filepath.Join(w.dir, filepath.FromSlash(line)))
	}
	sort.Strings(out)
	return out, nil
}

func (w *ExecWriter) push(ctx context.Context) error {
	_, err := w.git(ctx, "push", w.cfg.Remote, "HEAD:refs/heads/"+w.cfg.Branch)
	if err == nil {
		return nil
	}
	if !isRejection(err.Error()) {
		return err
	}

	w.log.Warn("push rejected, rebasing onto remote",
		zap.String("remote", w.cfg.Remote), zap.String("branch", w.cfg.Branch))
	if _, perr := w.git(ctx, "pull", "--rebase", w.cfg.Remote, w.cfg.Branch); perr != nil {
		_, _ = w.git(ctx, "rebase", "--abort")
		return fmt.Errorf("%w: rebase failed: %w", ErrPushRejected, perr)
	}
	return fmt.Errorf("%w: %s/%s", ErrPushRejected, w.cfg.Remote, w.cfg.Branch)
}

func (w *ExecWriter) hasStaged(ctx context.Context) (bool, error) {
	cmd := w.command(ctx, "diff", "--cached", "--quiet")
	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("%w: git diff --cached: %v", ErrGit, err)
}

func (w *ExecWriter) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = w.dir
	cmd.Env = os.Environ()
	if w.cfg.AuthorName != "" {
		cmd.Env = append(cmd.Env, "GIT_AUTHOR_NAME="+w.cfg.AuthorName, "GIT_COMMITTER_NAME="+w.cfg.AuthorName)
	}
	if w.cfg.AuthorEmail != "" {
		cmd.Env = append(cmd.Env, "GIT_AUTHOR_EMAIL="+w.cfg.AuthorEmail, "GIT_COMMITTER_EMAIL="+w.cfg.AuthorEmail)
	}
	return cmd
}

func (w *ExecWriter) git(ctx context.Context, args ...string) (string, error) {
	cmd := w.command(ctx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: git %s: %v: %s", ErrGit, args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// isRejection matches git's messages for a push that lost a race with the
// remote.
func isRejection(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, marker := range []string{"non-fast-forward", "fetch first", "[rejected]", "updates were rejected"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// CommitMessage is the message used for a poem commit.
func CommitMessage(index, total int, title string) string {
	return fmt.Sprintf("Add poem %02d/%02d: %s", index, total, title)
}
