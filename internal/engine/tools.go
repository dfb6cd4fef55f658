// ABOUTME: Git tool definitions and handler implementations
// ABOUTME: Each tool wraps a git CLI invocation against the session working directory

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/2389/git-mcp/internal/gitexec"
)

// errNoWorkdir is returned by tool handlers before a working directory is set.
var errNoWorkdir = errors.New("no working directory set; call git_set_working_dir first")

// resolveDir picks the repository for one tool call: an explicit path
// argument wins, then the session working directory. Path arguments must be
// absolute so relative or option-like values never reach git.
func (e *Engine) resolveDir(req mcp.CallToolRequest) (string, error) {
	if path, ok := stringArg(req, "path"); ok && path != "" {
		if !filepath.IsAbs(path) {
			return "", fmt.Errorf("path must be absolute, got %q", path)
		}
		return path, nil
	}
	if dir := e.workingDir(); dir != "" {
		return dir, nil
	}
	return "", errNoWorkdir
}

// withPathOption is the shared schema fragment for the per-call repository
// override every repository-reading tool accepts.
func withPathOption() mcp.ToolOption {
	return mcp.WithString("path",
		mcp.Description("Absolute repository path for this call only. Defaults to the session working directory."),
	)
}

// gitTools returns the git tool set bound to this engine.
func (e *Engine) gitTools() []server.ServerTool {
	return []server.ServerTool{
		e.toolSetWorkingDir(),
		e.toolClearWorkingDir(),
		e.toolStatus(),
		e.toolLog(),
		e.toolDiff(),
		e.toolAdd(),
		e.toolCommit(),
		e.toolBranch(),
		e.toolCheckout(),
		e.toolShow(),
	}
}

func (e *Engine) toolSetWorkingDir() server.ServerTool {
	tool := mcp.NewTool("git_set_working_dir",
		mcp.WithDescription(`Set the working directory for subsequent git tools.

The path must be an absolute path to a directory inside a git repository.
The setting persists for the lifetime of the session.`),
		mcp.WithString("path",
			mcp.Description("Absolute filesystem path to a git repository."),
			mcp.Required(),
		),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleSetWorkingDir}
}

func (e *Engine) handleSetWorkingDir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, ok := stringArg(req, "path")
	if !ok || path == "" {
		return resultErr(errors.New("git_set_working_dir: path is required")), nil
	}
	if !filepath.IsAbs(path) {
		return resultErr(fmt.Errorf("git_set_working_dir: path must be absolute, got %q", path)), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return resultErr(fmt.Errorf("git_set_working_dir: %w", err)), nil
	}
	if !info.IsDir() {
		return resultErr(fmt.Errorf("git_set_working_dir: %q is not a directory", path)), nil
	}
	if !e.git.IsRepo(ctx, path) {
		return resultErr(fmt.Errorf("git_set_working_dir: %q is not a git repository", path)), nil
	}

	e.setWorkingDir(path)
	e.logger.Info("working directory set", "path", path)
	return resultText(fmt.Sprintf("Working directory set to %s", path)), nil
}

func (e *Engine) toolClearWorkingDir() server.ServerTool {
	tool := mcp.NewTool("git_clear_working_dir",
		mcp.WithDescription("Clear the session working directory set by git_set_working_dir."),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleClearWorkingDir}
}

func (e *Engine) handleClearWorkingDir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	e.clearWorkingDir()
	return resultText("Working directory cleared."), nil
}

func (e *Engine) toolStatus() server.ServerTool {
	tool := mcp.NewTool("git_status",
		mcp.WithDescription("Show the repository status: current branch, staged, modified, and untracked files."),
		withPathOption(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleStatus}
}

// statusSummary is a JSON-serialisable view of git status output.
type statusSummary struct {
	Branch         string   `json:"branch"`
	IsClean        bool     `json:"is_clean"`
	StagedFiles    []string `json:"staged_files,omitempty"`
	ModifiedFiles  []string `json:"modified_files,omitempty"`
	UntrackedFiles []string `json:"untracked_files,omitempty"`
}

func (e *Engine) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := e.resolveDir(req)
	if err != nil {
		return resultErr(fmt.Errorf("git_status: %w", err)), nil
	}

	porcelain, err := e.git.Run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return resultErr(fmt.Errorf("git_status: %w", err)), nil
	}
	branch, err := e.git.Run(ctx, dir, "branch", "--show-current")
	if err != nil {
		return resultErr(fmt.Errorf("git_status: %w", err)), nil
	}

	summary := statusSummary{
		Branch:  branch,
		IsClean: porcelain == "",
	}
	for _, line := range strings.Split(porcelain, "\n") {
		if len(line) < 3 {
			continue
		}
		status := line[:2]
		file := line[3:]
		switch {
		case status == "??":
			summary.UntrackedFiles = append(summary.UntrackedFiles, file)
		case status[0] != ' ':
			summary.StagedFiles = append(summary.StagedFiles, file)
		case status[1] != ' ':
			summary.ModifiedFiles = append(summary.ModifiedFiles, file)
		}
	}

	result, err := resultJSON(summary)
	if err != nil {
		return resultErr(fmt.Errorf("git_status: serialise: %w", err)), nil
	}
	return result, nil
}

func (e *Engine) toolLog() server.ServerTool {
	tool := mcp.NewTool("git_log",
		mcp.WithDescription("List recent commits, newest first."),
		mcp.WithNumber("max_count",
			mcp.Description("Maximum number of commits to return (default 10)."),
		),
		withPathOption(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleLog}
}

// commitSummary is a JSON-serialisable view of one log entry.
type commitSummary struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Subject string `json:"subject"`
}

func (e *Engine) handleLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := e.resolveDir(req)
	if err != nil {
		return resultErr(fmt.Errorf("git_log: %w", err)), nil
	}

	maxCount := intArg(req, "max_count", 10)
	if maxCount < 1 {
		maxCount = 1
	}

	// Unit separator keeps fields unambiguous regardless of subject content
	out, err := e.git.Run(ctx, dir,
		"log", fmt.Sprintf("-n%d", maxCount), "--pretty=format:%H%x1f%an%x1f%aI%x1f%s")
	if err != nil {
		// Covers missing repositories and empty ones with no HEAD yet.
		return resultErr(fmt.Errorf("git_log: %w", err)), nil
	}

	var commits []commitSummary
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\x1f", 4)
		if len(parts) != 4 {
			continue
		}
		commits = append(commits, commitSummary{
			Hash:    parts[0],
			Author:  parts[1],
			Date:    parts[2],
			Subject: parts[3],
		})
	}

	result, err := resultJSON(commits)
	if err != nil {
		return resultErr(fmt.Errorf("git_log: serialise: %w", err)), nil
	}
	return result, nil
}

func (e *Engine) toolDiff() server.ServerTool {
	tool := mcp.NewTool("git_diff",
		mcp.WithDescription("Show changes as a unified diff. By default diffs the work tree against the index."),
		mcp.WithString("ref",
			mcp.Description("Optional commit or range to diff against (e.g. HEAD, main...feature)."),
		),
		mcp.WithBoolean("staged",
			mcp.Description("Diff the index against HEAD instead of the work tree."),
		),
		withPathOption(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleDiff}
}

func (e *Engine) handleDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := e.resolveDir(req)
	if err != nil {
		return resultErr(fmt.Errorf("git_diff: %w", err)), nil
	}

	args := []string{"diff"}
	if boolArg(req, "staged", false) {
		args = append(args, "--staged")
	}
	if ref, ok := stringArg(req, "ref"); ok && ref != "" {
		if err := gitexec.ValidateArg(ref); err != nil {
			return resultErr(fmt.Errorf("git_diff: %w", err)), nil
		}
		args = append(args, ref)
	}

	out, err := e.git.Run(ctx, dir, args...)
	if err != nil {
		return resultErr(fmt.Errorf("git_diff: %w", err)), nil
	}
	if out == "" {
		return resultText("No changes."), nil
	}
	return resultText(out), nil
}

func (e *Engine) toolAdd() server.ServerTool {
	tool := mcp.NewTool("git_add",
		mcp.WithDescription("Stage files for the next commit."),
		mcp.WithArray("files",
			mcp.Description("Paths to stage, relative to the repository root. Defaults to all changes."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		withPathOption(),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleAdd}
}

func (e *Engine) handleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := e.resolveDir(req)
	if err != nil {
		return resultErr(fmt.Errorf("git_add: %w", err)), nil
	}

	files := stringSliceArg(req, "files")
	if len(files) == 0 {
		files = []string{"."}
	}

	args := append([]string{"add", "--"}, files...)
	if _, err := e.git.Run(ctx, dir, args...); err != nil {
		return resultErr(fmt.Errorf("git_add: %w", err)), nil
	}

	return resultText(fmt.Sprintf("Staged %s.", strings.Join(files, ", "))), nil
}

func (e *Engine) toolCommit() server.ServerTool {
	tool := mcp.NewTool("git_commit",
		mcp.WithDescription("Create a commit from the staged changes."),
		mcp.WithString("message",
			mcp.Description("Commit message."),
			mcp.Required(),
		),
		withPathOption(),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleCommit}
}

func (e *Engine) handleCommit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := e.resolveDir(req)
	if err != nil {
		return resultErr(fmt.Errorf("git_commit: %w", err)), nil
	}

	message, ok := stringArg(req, "message")
	if !ok || strings.TrimSpace(message) == "" {
		return resultErr(errors.New("git_commit: message is required")), nil
	}

	if _, err := e.git.Run(ctx, dir, "commit", "-m", message); err != nil {
		return resultErr(fmt.Errorf("git_commit: %w", err)), nil
	}

	hash, err := e.git.Run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return resultErr(fmt.Errorf("git_commit: %w", err)), nil
	}

	e.logger.Info("commit created", "hash", hash)
	return resultText(fmt.Sprintf("Created commit %s.", hash)), nil
}

func (e *Engine) toolBranch() server.ServerTool {
	tool := mcp.NewTool("git_branch",
		mcp.WithDescription("List local branches and report the current one."),
		withPathOption(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleBranch}
}

// branchSummary is a JSON-serialisable view of the local branch list.
type branchSummary struct {
	Current  string   `json:"current"`
	Branches []string `json:"branches"`
}

func (e *Engine) handleBranch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := e.resolveDir(req)
	if err != nil {
		return resultErr(fmt.Errorf("git_branch: %w", err)), nil
	}

	out, err := e.git.Run(ctx, dir, "branch", "--list")
	if err != nil {
		return resultErr(fmt.Errorf("git_branch: %w", err)), nil
	}

	summary := branchSummary{Branches: []string{}}
	for _, line := range strings.Split(out, "\n") {
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "*"))
		if name == "" {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "*") {
			summary.Current = name
		}
		summary.Branches = append(summary.Branches, name)
	}

	result, err := resultJSON(summary)
	if err != nil {
		return resultErr(fmt.Errorf("git_branch: serialise: %w", err)), nil
	}
	return result, nil
}

func (e *Engine) toolCheckout() server.ServerTool {
	tool := mcp.NewTool("git_checkout",
		mcp.WithDescription("Switch to a branch or commit, optionally creating a new branch."),
		mcp.WithString("ref",
			mcp.Description("Branch name or commit to check out."),
			mcp.Required(),
		),
		mcp.WithBoolean("create",
			mcp.Description("Create the branch before switching to it."),
		),
		withPathOption(),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleCheckout}
}

func (e *Engine) handleCheckout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := e.resolveDir(req)
	if err != nil {
		return resultErr(fmt.Errorf("git_checkout: %w", err)), nil
	}

	ref, ok := stringArg(req, "ref")
	if !ok || ref == "" {
		return resultErr(errors.New("git_checkout: ref is required")), nil
	}
	if err := gitexec.ValidateArg(ref); err != nil {
		return resultErr(fmt.Errorf("git_checkout: %w", err)), nil
	}

	args := []string{"checkout"}
	if boolArg(req, "create", false) {
		args = append(args, "-b")
	}
	args = append(args, ref)

	if _, err := e.git.Run(ctx, dir, args...); err != nil {
		return resultErr(fmt.Errorf("git_checkout: %w", err)), nil
	}

	return resultText(fmt.Sprintf("Checked out %s.", ref)), nil
}

func (e *Engine) toolShow() server.ServerTool {
	tool := mcp.NewTool("git_show",
		mcp.WithDescription("Show a commit: metadata, message, and the diff it introduced."),
		mcp.WithString("ref",
			mcp.Description("Commit to show (hash, branch, tag, or HEAD)."),
			mcp.Required(),
		),
		withPathOption(),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	return server.ServerTool{Tool: tool, Handler: e.handleShow}
}

func (e *Engine) handleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, err := e.resolveDir(req)
	if err != nil {
		return resultErr(fmt.Errorf("git_show: %w", err)), nil
	}

	ref, ok := stringArg(req, "ref")
	if !ok || ref == "" {
		return resultErr(errors.New("git_show: ref is required")), nil
	}
	if err := gitexec.ValidateArg(ref); err != nil {
		return resultErr(fmt.Errorf("git_show: %w", err)), nil
	}

	out, err := e.git.Run(ctx, dir, "show", ref)
	if err != nil {
		return resultErr(fmt.Errorf("git_show: %w", err)), nil
	}
	return resultText(out), nil
}
