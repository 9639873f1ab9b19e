package tui

import (
	"context"
	"os/exec"
	"runtime"
	"strings"

	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/logger"
	"github.com/roeyazroel/linear-ide/internal/workbench"
)

// FormatShortcut returns a human-readable string for a shortcut.
func FormatShortcut(r rune) string {
	if r == 0 {
		return ""
	}
	return string(r)
}

// Command is a tree action bound to a key.
type Command struct {
	ID           string
	Title        string
	ShortcutRune rune
	// NeedsIssue commands are skipped unless an issue row is selected.
	NeedsIssue bool
	Run        func(ctx context.Context, a *App, issue *issues.IssueRecord) workbench.Outcome
}

// DefaultCommands returns the tree key bindings.
func DefaultCommands() []Command {
	return []Command{
		{
			ID:           "refresh",
			Title:        "Refresh",
			ShortcutRune: 'r',
			Run: func(_ context.Context, a *App, _ *issues.IssueRecord) workbench.Outcome {
				return a.wb.Refresh()
			},
		},
		{
			ID:           "start_work",
			Title:        "Start work",
			ShortcutRune: 'b',
			NeedsIssue:   true,
			Run: func(ctx context.Context, a *App, issue *issues.IssueRecord) workbench.Outcome {
				out := a.wb.StartWorkOn(ctx, *issue)
				a.refreshStatusBar()
				return out
			},
		},
		{
			ID:           "update_status",
			Title:        "Update status",
			ShortcutRune: 's',
			NeedsIssue:   true,
			Run: func(ctx context.Context, a *App, issue *issues.IssueRecord) workbench.Outcome {
				return a.wb.UpdateStatus(ctx, *issue)
			},
		},
		{
			ID:           "copy_branch",
			Title:        "Copy branch name",
			ShortcutRune: 'y',
			NeedsIssue:   true,
			Run: func(ctx context.Context, a *App, issue *issues.IssueRecord) workbench.Outcome {
				return a.wb.CopyBranchName(ctx, *issue)
			},
		},
		{
			ID:           "open_browser",
			Title:        "Open in browser",
			ShortcutRune: 'o',
			NeedsIssue:   true,
			Run: func(_ context.Context, a *App, issue *issues.IssueRecord) workbench.Outcome {
				a.wb.OpenInBrowser(issue.URL)
				return workbench.Completed
			},
		},
		{
			ID:           "select_cycle",
			Title:        "Filter by cycle",
			ShortcutRune: 'c',
			Run: func(ctx context.Context, a *App, _ *issues.IssueRecord) workbench.Outcome {
				return a.wb.SelectCycle(ctx)
			},
		},
		{
			ID:           "select_project",
			Title:        "Filter by project",
			ShortcutRune: 'p',
			Run: func(ctx context.Context, a *App, _ *issues.IssueRecord) workbench.Outcome {
				return a.wb.SelectProject(ctx)
			},
		},
		{
			ID:           "clear_filter",
			Title:        "Clear filter",
			ShortcutRune: 'x',
			Run: func(_ context.Context, a *App, _ *issues.IssueRecord) workbench.Outcome {
				return a.wb.ClearFilter()
			},
		},
		{
			ID:           "login",
			Title:        "Sign in",
			ShortcutRune: 'L',
			Run: func(ctx context.Context, a *App, _ *issues.IssueRecord) workbench.Outcome {
				out := a.wb.Login(ctx)
				a.refreshStatusBar()
				return out
			},
		},
		{
			ID:           "logout",
			Title:        "Sign out",
			ShortcutRune: 'O',
			Run: func(ctx context.Context, a *App, _ *issues.IssueRecord) workbench.Outcome {
				out := a.wb.Logout(ctx)
				a.refreshStatusBar()
				return out
			},
		},
	}
}

// findCommand returns the command bound to r.
func findCommand(cmds []Command, r rune) (Command, bool) {
	for _, cmd := range cmds {
		if cmd.ShortcutRune == r {
			return cmd, true
		}
	}
	return Command{}, false
}

// helpText lists the bindings for the status bar.
func helpText(cmds []Command) string {
	parts := make([]string, 0, len(cmds)+2)
	parts = append(parts, "Enter: details")
	for _, cmd := range cmds {
		parts = append(parts, FormatShortcut(cmd.ShortcutRune)+": "+strings.ToLower(cmd.Title))
	}
	parts = append(parts, "q: quit")
	return strings.Join(parts, " | ")
}

// openURL opens a URL in the default browser.
func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		logger.Warning("tui.commands: unsupported OS for opening URLs os=%s", runtime.GOOS)
		return nil
	}

	if err := cmd.Start(); err != nil {
		logger.ErrorWithErr(err, "tui.commands: failed to open URL url=%s", url)
		return err
	}

	logger.Debug("tui.commands: opened URL in browser url=%s", url)
	return nil
}
