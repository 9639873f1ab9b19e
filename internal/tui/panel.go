package tui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/roeyazroel/linear-ide/internal/events"
	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/logger"
	"github.com/roeyazroel/linear-ide/internal/webview"
)

const panelWrapWidth = 78

const panelHelp = "r: refresh | b: start work | o: open in browser | Tab: tree | Esc: close"

// Panel is the detail view of one issue. It is the display surface of a
// webview session: it renders outbound messages and sends inbound ones for
// its key bindings.
type Panel struct {
	app   *App
	issue issues.IssueRecord
	name  string
	view  *tview.TextView

	mu        sync.Mutex
	detail    *issues.IssueDetailRecord
	loading   bool
	errText   string
	readySent bool
	disposed  bool

	// inbound envelopes waiting for the dispatch goroutine, oldest first
	pending [][]byte
	wake    chan struct{}

	messages events.Emitter[[]byte]
	closed   events.Emitter[struct{}]
}

// newPanel is the webview.SurfaceFactory of the App.
func (a *App) newPanel(issue issues.IssueRecord) (webview.Surface, error) {
	p := &Panel{
		app:   a,
		issue: issue,
		name:  "issue:" + issue.ID,
		wake:  make(chan struct{}, 1),
	}
	go p.dispatch()
	p.view = tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(true).
		SetWordWrap(true)
	p.view.SetBorder(true).SetTitle(" " + issue.Identifier + " ")
	p.view.SetInputCapture(p.handleKey)
	p.view.SetText(p.content())

	a.mu.Lock()
	a.openPanels = append(a.openPanels, p)
	a.mu.Unlock()

	a.QueueUpdateDraw(func() {
		a.panels.AddPage(p.name, p.view, true, false)
	})
	return p, nil
}

// PostMessage renders an outbound envelope. Messages to a closed panel are
// dropped.
func (p *Panel) PostMessage(data []byte) error {
	msg, err := webview.DecodeOutbound(data)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil
	}
	switch m := msg.(type) {
	case webview.Update:
		detail := m.Issue
		p.detail = &detail
		p.errText = ""
	case webview.Loading:
		p.loading = m.IsLoading
	case webview.Error:
		p.errText = m.Message
	}
	p.mu.Unlock()

	text := p.content()
	p.app.QueueUpdateDraw(func() {
		p.view.SetText(text)
	})
	return nil
}

// Reveal brings the panel to the front. The first reveal reports ready.
func (p *Panel) Reveal() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	first := !p.readySent
	p.readySent = true
	p.mu.Unlock()

	p.app.QueueUpdateDraw(func() {
		p.app.panels.SwitchToPage(p.name)
		p.app.app.SetFocus(p.view)
	})
	if first {
		p.send(webview.Ready{})
	}
}

// Dispose removes the panel. Later calls do nothing.
func (p *Panel) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.pending = nil
	close(p.wake)
	p.mu.Unlock()

	a := p.app
	a.mu.Lock()
	for i, open := range a.openPanels {
		if open == p {
			a.openPanels = append(a.openPanels[:i], a.openPanels[i+1:]...)
			break
		}
	}
	a.mu.Unlock()

	a.QueueUpdateDraw(func() {
		a.panels.RemovePage(p.name)
		a.app.SetFocus(a.issueTree)
	})
	p.closed.Fire(struct{}{})
}

// OnDidReceiveMessage subscribes fn to inbound envelopes.
func (p *Panel) OnDidReceiveMessage(fn func(data []byte)) func() {
	return p.messages.Subscribe(fn)
}

// OnDidDispose subscribes fn to the closing of the panel.
func (p *Panel) OnDidDispose(fn func()) func() {
	return p.closed.Subscribe(func(struct{}) { fn() })
}

// send queues msg for the dispatch goroutine so loads never run on the UI
// goroutine. Messages are delivered in the order they were sent.
func (p *Panel) send(msg webview.Inbound) {
	data, err := webview.EncodeInbound(msg)
	if err != nil {
		logger.ErrorWithErr(err, "tui.panel: encode failed")
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	p.pending = append(p.pending, data)
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// dispatch fires queued inbound envelopes one at a time until the panel is
// disposed.
func (p *Panel) dispatch() {
	for range p.wake {
		for {
			p.mu.Lock()
			if len(p.pending) == 0 {
				p.mu.Unlock()
				break
			}
			data := p.pending[0]
			p.pending = p.pending[1:]
			p.mu.Unlock()
			p.messages.Fire(data)
		}
	}
}

func (p *Panel) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		go p.Dispose()
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'r':
			p.send(webview.Refresh{})
			return nil
		case 'b':
			p.send(webview.StartWork{})
			return nil
		case 'o':
			p.send(webview.OpenInBrowser{URL: p.issueURL()})
			return nil
		}
	}
	return event
}

func (p *Panel) issueURL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detail != nil && p.detail.URL != "" {
		return p.detail.URL
	}
	return p.issue.URL
}

// content renders the current panel state as tview text.
func (p *Panel) content() string {
	p.mu.Lock()
	detail := p.detail
	loading := p.loading
	errText := p.errText
	p.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "[::b]%s[::-] %s\n", tview.Escape(p.issue.Identifier), tview.Escape(p.issue.Title))
	if loading {
		b.WriteString("[yellow]Loading...[-]\n")
	}
	if errText != "" {
		fmt.Fprintf(&b, "[red]%s[-]\n", tview.Escape(errText))
	}
	if detail != nil {
		b.WriteString(tview.TranslateANSI(p.app.renderMarkdown(detailMarkdown(*detail))))
	}
	fmt.Fprintf(&b, "\n[gray]%s[-]", panelHelp)
	return b.String()
}

// renderMarkdown formats md for the terminal. The raw text is returned when
// no renderer is available.
func (a *App) renderMarkdown(md string) string {
	a.rendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(panelWrapWidth),
		)
		if err != nil {
			logger.ErrorWithErr(err, "tui.panel: markdown renderer unavailable")
			return
		}
		a.renderer = r
	})
	if a.renderer == nil {
		return md
	}
	a.renderMu.Lock()
	out, err := a.renderer.Render(md)
	a.renderMu.Unlock()
	if err != nil {
		logger.Warning("tui.panel: markdown render failed: %v", err)
		return md
	}
	return out
}

// detailMarkdown lays out an issue with its comments as a markdown document.
func detailMarkdown(d issues.IssueDetailRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", d.Identifier, d.Title)

	var meta []string
	if d.State != nil {
		meta = append(meta, "**Status:** "+d.State.Name)
	}
	if d.PriorityLabel != "" {
		meta = append(meta, "**Priority:** "+d.PriorityLabel)
	}
	if d.Assignee != nil {
		meta = append(meta, "**Assignee:** "+d.Assignee.Name)
	}
	if d.Cycle != nil {
		meta = append(meta, "**Cycle:** "+d.Cycle.Name)
	}
	if d.Project != nil {
		meta = append(meta, "**Project:** "+d.Project.Name)
	}
	if len(d.Labels) > 0 {
		names := make([]string, 0, len(d.Labels))
		for _, l := range d.Labels {
			names = append(names, l.Name)
		}
		meta = append(meta, "**Labels:** "+strings.Join(names, ", "))
	}
	if d.BranchName != "" {
		meta = append(meta, "**Branch:** `"+d.BranchName+"`")
	}
	for _, line := range meta {
		b.WriteString("- " + line + "\n")
	}

	b.WriteString("\n")
	if d.Description != nil && strings.TrimSpace(*d.Description) != "" {
		b.WriteString(*d.Description)
	} else {
		b.WriteString("_No description_")
	}
	b.WriteString("\n")

	if len(d.Comments) > 0 {
		fmt.Fprintf(&b, "\n## Comments (%d)\n", len(d.Comments))
		for _, c := range d.Comments {
			author := "Unknown"
			if c.Author != nil {
				author = c.Author.Name
			}
			when := c.CreatedAt
			if t, ok := issues.ParseTime(c.CreatedAt); ok {
				when = t.Local().Format("Jan 2, 15:04")
			}
			fmt.Fprintf(&b, "\n**%s** (%s):\n\n%s\n", author, when, c.Body)
		}
	}
	return b.String()
}

// frontPanel returns the most recently opened panel that is still open.
func (a *App) frontPanel() *Panel {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.openPanels) == 0 {
		return nil
	}
	return a.openPanels[len(a.openPanels)-1]
}
