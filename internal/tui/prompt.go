package tui

import (
	"context"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
	"github.com/roeyazroel/linear-ide/internal/logger"
	"github.com/roeyazroel/linear-ide/internal/workbench"
)

var (
	_ workbench.Notifier = (*App)(nil)
	_ workbench.Prompter = (*App)(nil)
)

const (
	pickerMaxHeight = 20
	pickerMinWidth  = 40
	inputWidth      = 60
)

// Info shows msg in the notice bar.
func (a *App) Info(msg string) {
	logger.Info("tui.notify: %s", msg)
	a.notify("green", msg)
}

// Warn shows msg in the notice bar.
func (a *App) Warn(msg string) {
	logger.Warning("tui.notify: %s", msg)
	a.notify("yellow", msg)
}

// Error shows msg in the notice bar.
func (a *App) Error(msg string) {
	logger.Error("tui.notify: %s", msg)
	a.notify("red", msg)
}

func (a *App) notify(color, msg string) {
	text := fmt.Sprintf("[%s]%s[-]", color, tview.Escape(msg))
	a.QueueUpdateDraw(func() {
		a.noticeBar.SetText(text)
	})
}

// Pick shows items in a modal list and blocks until one is chosen, the list
// is dismissed with Esc, or ctx is done.
func (a *App) Pick(ctx context.Context, title string, items []workbench.PickItem) (int, bool) {
	if len(items) == 0 {
		return 0, false
	}
	a.promptMu.Lock()
	defer a.promptMu.Unlock()

	result := make(chan int, 1)
	done := func(idx int) {
		select {
		case result <- idx:
		default:
		}
		a.hidePrompt()
	}

	width := runewidth.StringWidth(title) + 4
	list := tview.NewList().ShowSecondaryText(false)
	for i, item := range items {
		idx := i
		label := item.Label
		if item.Detail != "" {
			label = fmt.Sprintf("%s  [gray]%s[-]", tview.Escape(item.Label), tview.Escape(item.Detail))
		} else {
			label = tview.Escape(label)
		}
		if w := runewidth.StringWidth(item.Label) + runewidth.StringWidth(item.Detail) + 6; w > width {
			width = w
		}
		list.AddItem(label, "", 0, func() { done(idx) })
	}
	list.SetDoneFunc(func() { done(-1) })
	list.SetBorder(true).SetTitle(" " + title + " ")

	height := len(items) + 2
	if height > pickerMaxHeight {
		height = pickerMaxHeight
	}
	if width < pickerMinWidth {
		width = pickerMinWidth
	}
	a.showPrompt(list, width, height)

	select {
	case idx := <-result:
		if idx < 0 {
			return 0, false
		}
		return idx, true
	case <-ctx.Done():
		a.QueueUpdateDraw(a.hidePrompt)
		return 0, false
	}
}

// Input shows a one-line text field and blocks until Enter, Esc or ctx is
// done. secret masks the typed characters.
func (a *App) Input(ctx context.Context, title string, secret bool) (string, bool) {
	a.promptMu.Lock()
	defer a.promptMu.Unlock()

	type answer struct {
		value string
		ok    bool
	}
	result := make(chan answer, 1)

	field := tview.NewInputField().SetFieldWidth(inputWidth - 4)
	if secret {
		field.SetMaskCharacter('*')
	}
	field.SetDoneFunc(func(key tcell.Key) {
		ans := answer{}
		if key == tcell.KeyEnter {
			ans = answer{value: field.GetText(), ok: true}
		}
		select {
		case result <- ans:
		default:
		}
		a.hidePrompt()
	})
	field.SetBorder(true).SetTitle(" " + title + " ")
	a.showPrompt(field, inputWidth, 3)

	select {
	case ans := <-result:
		return ans.value, ans.ok
	case <-ctx.Done():
		a.QueueUpdateDraw(a.hidePrompt)
		return "", false
	}
}

// showPrompt centers p over the main page and gives it focus.
func (a *App) showPrompt(p tview.Primitive, width, height int) {
	a.promptActive.Store(true)
	a.mu.Lock()
	a.prompt = p
	a.mu.Unlock()

	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)

	a.QueueUpdateDraw(func() {
		a.pages.AddPage(pagePrompt, modal, true, true)
		a.app.SetFocus(p)
	})
}

// hidePrompt removes the modal. It runs on the UI goroutine.
func (a *App) hidePrompt() {
	a.mu.Lock()
	a.prompt = nil
	a.mu.Unlock()
	a.pages.RemovePage(pagePrompt)
	a.app.SetFocus(a.issueTree)
	a.promptActive.Store(false)
}

// activePrompt returns the primitive of the open prompt, if any.
func (a *App) activePrompt() tview.Primitive {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prompt
}
