// Package tui is the terminal host: the issue tree, detail panels, pickers
// and notifications, driven by a workbench.Container.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/glamour"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/logger"
	"github.com/roeyazroel/linear-ide/internal/tree"
	"github.com/roeyazroel/linear-ide/internal/workbench"
)

const (
	pageMain   = "main"
	pagePrompt = "prompt"

	maxTitleWidth = 72
)

// App is the main application controller that manages all UI components.
type App struct {
	app      *tview.Application
	wb       *workbench.Container
	commands []Command

	// UI components
	pages      *tview.Pages
	mainLayout *tview.Flex
	issueTree  *tview.TreeView
	panels     *tview.Pages
	statusBar  *tview.TextView
	noticeBar  *tview.TextView

	queueUpdateDraw   func(func())
	uiUpdateMu        sync.Mutex
	refreshGeneration atomic.Int64
	promptActive      atomic.Bool

	rendererOnce sync.Once
	renderMu     sync.Mutex
	renderer     *glamour.TermRenderer

	promptMu sync.Mutex
	prompt   tview.Primitive

	mu          sync.Mutex
	openPanels  []*Panel
	unsubscribe func()
}

// NewApp creates the terminal host and its workbench. The Notifier,
// Prompter and Surfaces of opts are always provided by the App.
func NewApp(opts workbench.Options) *App {
	a := &App{
		app:      tview.NewApplication(),
		pages:    tview.NewPages(),
		commands: DefaultCommands(),
	}
	a.queueUpdateDraw = func(f func()) {
		a.app.QueueUpdateDraw(f)
	}

	opts.Notifier = a
	opts.Prompter = a
	opts.Surfaces = a.newPanel
	if opts.OpenURL == nil {
		opts.OpenURL = openURL
	}
	a.wb = workbench.New(opts)

	a.buildLayout()
	a.bindGlobalKeys()
	a.unsubscribe = a.wb.Tree.OnDidChange(a.reloadTree)
	return a
}

// Workbench returns the container driven by the App.
func (a *App) Workbench() *workbench.Container {
	return a.wb
}

// Run starts the application and blocks until it exits. The workbench is
// disposed on return.
func (a *App) Run(ctx context.Context) error {
	a.app.SetRoot(a.pages, true).EnableMouse(true)

	go a.start(ctx)

	err := a.app.Run()

	a.uiUpdateMu.Lock()
	a.queueUpdateDraw = func(func()) {}
	a.uiUpdateMu.Unlock()
	a.unsubscribe()
	a.wb.Dispose()
	return err
}

// start restores the session and loads the first tree.
func (a *App) start(ctx context.Context) {
	if err := a.wb.Initialize(ctx); err != nil {
		logger.ErrorWithErr(err, "tui.app: initialize failed")
		a.Error(err.Error())
	}
	a.refreshStatusBar()
	a.reloadTree()
}

func (a *App) buildLayout() {
	a.issueTree = tview.NewTreeView()
	a.issueTree.SetBorder(true).SetTitle(" My Issues ")
	a.issueTree.SetRoot(tview.NewTreeNode("Loading...").SetSelectable(false))
	a.issueTree.SetTopLevel(1)
	a.issueTree.SetSelectedFunc(a.onNodeSelected)

	a.panels = tview.NewPages()
	placeholder := tview.NewTextView().
		SetTextAlign(tview.AlignCenter).
		SetText("Select an issue and press Enter to open it")
	placeholder.SetBorder(true)
	a.panels.AddPage("empty", placeholder, true, true)

	a.statusBar = tview.NewTextView().SetDynamicColors(true)
	a.noticeBar = tview.NewTextView().SetDynamicColors(true)

	contentFlex := tview.NewFlex().
		AddItem(a.issueTree, 0, 2, true).
		AddItem(a.panels, 0, 3, false)

	a.mainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(contentFlex, 0, 1, true).
		AddItem(a.noticeBar, 1, 1, false).
		AddItem(a.statusBar, 1, 1, false)

	a.pages.AddPage(pageMain, a.mainLayout, true, true)
}

// bindGlobalKeys sets up global keyboard shortcuts.
func (a *App) bindGlobalKeys() {
	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if a.promptActive.Load() {
			return event
		}
		switch event.Key() {
		case tcell.KeyCtrlC:
			a.app.Stop()
			return nil
		case tcell.KeyTab:
			a.toggleFocus()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				a.app.Stop()
				return nil
			}
		}
		if a.issueTree.HasFocus() {
			return a.handleTreeKey(event)
		}
		return event
	})
}

func (a *App) toggleFocus() {
	if a.issueTree.HasFocus() {
		if p := a.frontPanel(); p != nil {
			a.app.SetFocus(p.view)
		}
		return
	}
	a.app.SetFocus(a.issueTree)
}

// handleTreeKey runs the command bound to the pressed rune.
func (a *App) handleTreeKey(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() != tcell.KeyRune {
		return event
	}
	cmd, ok := findCommand(a.commands, event.Rune())
	if !ok {
		return event
	}
	issue := selectedIssue(a.issueTree.GetCurrentNode())
	if cmd.NeedsIssue && issue == nil {
		a.Warn(cmd.Title + ": select an issue first")
		return nil
	}
	a.runCommand(cmd, issue)
	return nil
}

// runCommand executes cmd off the UI goroutine.
func (a *App) runCommand(cmd Command, issue *issues.IssueRecord) {
	go func() {
		out := cmd.Run(a.wb.Context(), a, issue)
		logger.Debug("tui.app: command %s %s", cmd.ID, out)
	}()
}

func (a *App) onNodeSelected(node *tview.TreeNode) {
	if issue := selectedIssue(node); issue != nil {
		rec := *issue
		go a.wb.ShowIssue(rec)
		return
	}
	node.SetExpanded(!node.IsExpanded())
}

// selectedIssue returns the issue of an issue row, or nil for group rows.
func selectedIssue(node *tview.TreeNode) *issues.IssueRecord {
	if node == nil {
		return nil
	}
	if rec, ok := node.GetReference().(issues.IssueRecord); ok {
		return &rec
	}
	return nil
}

// reloadTree queries the provider again. Results of superseded reloads are
// dropped.
func (a *App) reloadTree() {
	gen := a.refreshGeneration.Add(1)
	go func() {
		groups := a.wb.Tree.Roots(a.wb.Context())
		if gen != a.refreshGeneration.Load() {
			return
		}
		authenticated := a.wb.Auth.IsAuthenticated()
		status := a.statusText()
		a.QueueUpdateDraw(func() {
			if gen != a.refreshGeneration.Load() {
				return
			}
			a.renderTree(groups, authenticated)
			a.statusBar.SetText(status)
		})
	}()
}

// renderTree replaces the tree content, keeping the selected issue selected
// when it is still listed.
func (a *App) renderTree(groups []tree.Group, authenticated bool) {
	var keepID string
	if issue := selectedIssue(a.issueTree.GetCurrentNode()); issue != nil {
		keepID = issue.ID
	}

	root := a.buildTreeNodes(groups, authenticated)
	a.issueTree.SetRoot(root)

	current := firstSelectable(root)
	if keepID != "" {
		root.Walk(func(node, _ *tview.TreeNode) bool {
			if issue := selectedIssue(node); issue != nil && issue.ID == keepID {
				current = node
				return false
			}
			return true
		})
	}
	a.issueTree.SetCurrentNode(current)
}

// firstSelectable returns the first issue row, else the first group row.
func firstSelectable(root *tview.TreeNode) *tview.TreeNode {
	for _, group := range root.GetChildren() {
		for _, leaf := range group.GetChildren() {
			if selectedIssue(leaf) != nil {
				return leaf
			}
		}
	}
	for _, child := range root.GetChildren() {
		if child.GetReference() != nil {
			return child
		}
	}
	return root
}

// buildTreeNodes turns groups into tree nodes: one expanded node per group
// with its issues as leaves.
func (a *App) buildTreeNodes(groups []tree.Group, authenticated bool) *tview.TreeNode {
	root := tview.NewTreeNode("Issues").SetSelectable(false)
	if !authenticated {
		root.AddChild(tview.NewTreeNode("Not signed in. Press L to sign in.").
			SetSelectable(false).
			SetColor(tcell.ColorGray))
		return root
	}
	if len(groups) == 0 {
		root.AddChild(tview.NewTreeNode("No assigned issues").
			SetSelectable(false).
			SetColor(tcell.ColorGray))
		return root
	}

	for _, g := range groups {
		groupNode := tview.NewTreeNode(groupText(g)).
			SetReference(g.Key).
			SetExpanded(true).
			SetColor(tcell.ColorYellow)
		for _, issue := range a.wb.Tree.ChildrenOf(g) {
			icon := tree.StatusIcon(issue.State)
			groupNode.AddChild(tview.NewTreeNode(issueText(issue, maxTitleWidth)).
				SetReference(issue).
				SetColor(tintColor(icon.Tint)))
		}
		root.AddChild(groupNode)
	}
	return root
}

// groupText is the group label followed by its issue count.
func groupText(g tree.Group) string {
	return fmt.Sprintf("%s  %s", g.Label(), g.CountLabel())
}

// issueText is the status glyph, identifier and title, with the title cut to
// width terminal cells.
func issueText(issue issues.IssueRecord, width int) string {
	title := runewidth.Truncate(issue.Title, width, "…")
	return fmt.Sprintf("%s %s %s", tree.StatusIcon(issue.State).Glyph(), issue.Identifier, title)
}

func tintColor(t tree.Tint) tcell.Color {
	switch t {
	case tree.TintGreen:
		return tcell.ColorGreen
	case tree.TintBlue:
		return tcell.ColorDodgerBlue
	case tree.TintGray:
		return tcell.ColorGray
	default:
		return tcell.ColorWhite
	}
}

// refreshStatusBar redraws the status bar with the current sign-in state and
// branch.
func (a *App) refreshStatusBar() {
	text := a.statusText()
	a.QueueUpdateDraw(func() {
		a.statusBar.SetText(text)
	})
}

func (a *App) statusText() string {
	user := "[gray]not signed in[-]"
	if u := a.wb.Auth.User(); u != nil {
		user = "[teal]" + tview.Escape(u.Name) + "[-]"
	}
	branch, ok := a.wb.Branches.CurrentBranchName()
	if !ok {
		branch = "detached"
	}
	parts := []string{
		user,
		"[yellow]" + tview.Escape(branch) + "[-]",
		"[gray]" + tview.Escape(filterText(a.wb.Filter())) + "[-]",
		"[gray]" + helpText(a.commands) + "[-]",
	}
	return strings.Join(parts, " | ")
}

func filterText(f issues.Filter) string {
	if f.IsEmpty() {
		return "all issues"
	}
	var parts []string
	if f.CycleID != "" {
		parts = append(parts, "cycle")
	}
	if f.ProjectID != "" {
		parts = append(parts, "project")
	}
	if f.TeamID != "" {
		parts = append(parts, "team "+f.TeamID)
	}
	return "filtered by " + strings.Join(parts, ", ")
}

// QueueUpdateDraw queues a UI update function to be run in the main thread.
func (a *App) QueueUpdateDraw(f func()) {
	a.uiUpdateMu.Lock()
	defer a.uiUpdateMu.Unlock()
	a.queueUpdateDraw(f)
}
