package webview

import (
	"context"
	"sync"

	"github.com/roeyazroel/linear-ide/internal/events"
	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/logger"
)

// Surface is the display target of a session. Messages are JSON envelopes.
// Posting to a disposed surface must be a no-op.
type Surface interface {
	PostMessage(data []byte) error
	Reveal()
	Dispose()
	// OnDidReceiveMessage and OnDidDispose return a function that removes fn.
	OnDidReceiveMessage(fn func(data []byte)) func()
	OnDidDispose(fn func()) func()
}

// Loader fetches issue detail. *issues.Service implements it.
type Loader interface {
	GetWithComments(ctx context.Context, issueID string) (issues.IssueDetailRecord, error)
}

// Delegate performs the actions a surface can request.
type Delegate interface {
	StartWork(ctx context.Context, issue issues.IssueRecord)
	OpenInBrowser(url string)
}

// Session binds one issue to one surface. Inbound messages are handled one
// at a time, so loads of the same session never overlap.
type Session struct {
	ctx      context.Context
	issue    issues.IssueRecord
	surface  Surface
	loader   Loader
	delegate Delegate

	handling sync.Mutex

	disposeOnce sync.Once
	unsubscribe []func()
	disposed    events.Emitter[struct{}]
}

func newSession(ctx context.Context, issue issues.IssueRecord, surface Surface, loader Loader, delegate Delegate) *Session {
	s := &Session{
		ctx:      ctx,
		issue:    issue,
		surface:  surface,
		loader:   loader,
		delegate: delegate,
	}
	s.unsubscribe = []func(){
		surface.OnDidReceiveMessage(s.receive),
		surface.OnDidDispose(func() { s.close(false) }),
	}
	return s
}

// IssueID returns the id of the bound issue.
func (s *Session) IssueID() string {
	return s.issue.ID
}

// Reveal brings the surface to the foreground.
func (s *Session) Reveal() {
	s.surface.Reveal()
}

// OnDidDispose subscribes fn to the end of the session.
func (s *Session) OnDidDispose(fn func()) (unsubscribe func()) {
	return s.disposed.Subscribe(func(struct{}) { fn() })
}

// Dispose closes the surface and ends the session. Later calls do nothing.
func (s *Session) Dispose() {
	s.close(true)
}

func (s *Session) close(disposeSurface bool) {
	s.disposeOnce.Do(func() {
		for _, fn := range s.unsubscribe {
			fn()
		}
		if disposeSurface {
			s.surface.Dispose()
		}
		logger.Debug("webview.session: disposed issue=%s", s.issue.Identifier)
		s.disposed.Fire(struct{}{})
	})
}

func (s *Session) receive(data []byte) {
	msg, err := DecodeInbound(data)
	if err != nil {
		logger.ErrorWithErr(err, "webview.session: dropping malformed message issue=%s", s.issue.Identifier)
		return
	}
	s.Handle(msg)
}

// Handle processes one inbound message.
func (s *Session) Handle(msg Inbound) {
	s.handling.Lock()
	defer s.handling.Unlock()

	switch m := msg.(type) {
	case Ready, Refresh:
		s.load()
	case StartWork:
		s.delegate.StartWork(s.ctx, s.issue)
	case OpenInBrowser:
		s.delegate.OpenInBrowser(m.URL)
	case Unknown:
		logger.Debug("webview.session: ignoring message type=%q", m.Type)
	}
}

// load fetches the issue detail. The loading flag is cleared even when the
// fetch fails.
func (s *Session) load() {
	s.post(Loading{IsLoading: true})
	defer s.post(Loading{IsLoading: false})

	detail, err := s.loader.GetWithComments(s.ctx, s.issue.ID)
	if err != nil {
		logger.ErrorWithErr(err, "webview.session: load failed issue=%s", s.issue.Identifier)
		s.post(Error{Message: err.Error()})
		return
	}
	s.post(Update{Issue: detail})
}

func (s *Session) post(msg Outbound) {
	data, err := EncodeOutbound(msg)
	if err != nil {
		logger.ErrorWithErr(err, "webview.session: encode failed")
		return
	}
	if err := s.surface.PostMessage(data); err != nil {
		logger.Warning("webview.session: post failed issue=%s: %v", s.issue.Identifier, err)
	}
}
