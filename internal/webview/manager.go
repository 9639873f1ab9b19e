package webview

import (
	"context"
	"fmt"
	"sync"

	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/logger"
)

// SurfaceFactory opens a new display surface for an issue.
type SurfaceFactory func(issue issues.IssueRecord) (Surface, error)

// Manager keeps at most one session per issue id.
type Manager struct {
	ctx        context.Context
	newSurface SurfaceFactory
	loader     Loader
	delegate   Delegate

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. ctx is passed to every session's loads and
// actions.
func NewManager(ctx context.Context, factory SurfaceFactory, loader Loader, delegate Delegate) *Manager {
	return &Manager{
		ctx:        ctx,
		newSurface: factory,
		loader:     loader,
		delegate:   delegate,
		sessions:   make(map[string]*Session),
	}
}

// Show foregrounds the session of issue, creating it when none is active.
// An existing session is not reloaded: loads start when its surface reports
// ready.
func (m *Manager) Show(issue issues.IssueRecord) error {
	m.mu.Lock()
	if s, ok := m.sessions[issue.ID]; ok {
		m.mu.Unlock()
		s.Reveal()
		return nil
	}

	surface, err := m.newSurface(issue)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("open panel for %s: %w", issue.Identifier, err)
	}
	s := newSession(m.ctx, issue, surface, m.loader, m.delegate)
	s.OnDidDispose(func() { m.remove(s) })
	m.sessions[issue.ID] = s
	m.mu.Unlock()

	logger.Debug("webview.manager: opened session issue=%s", issue.Identifier)
	s.Reveal()
	return nil
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.IssueID()] == s {
		delete(m.sessions, s.IssueID())
	}
}

// Active returns the live session for issueID.
func (m *Manager) Active(issueID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[issueID]
	return s, ok
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Dispose ends every live session exactly once.
func (m *Manager) Dispose() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Dispose()
	}
}
