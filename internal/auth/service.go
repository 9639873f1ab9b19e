// Package auth tracks the Linear API key and the signed-in user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/roeyazroel/linear-ide/internal/credentials"
	"github.com/roeyazroel/linear-ide/internal/events"
	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/linearapi"
	"github.com/roeyazroel/linear-ide/internal/logger"
)

// ErrEmptyToken is returned by Login for a blank key.
var ErrEmptyToken = errors.New("API key must not be empty")

// Client is what the service needs from an API client.
type Client interface {
	issues.Adapter
	GetCurrentUser(ctx context.Context) (linearapi.User, error)
}

// ClientFactory builds a client for a token.
type ClientFactory func(token string) Client

// LinearClientFactory returns a factory producing *linearapi.Client values
// that share cfg apart from the token.
func LinearClientFactory(cfg linearapi.ClientConfig) ClientFactory {
	return func(token string) Client {
		c := cfg
		c.Token = token
		if cfg.HTTPClient != nil {
			// NewClient wraps the transport, so each client needs its own copy.
			hc := *cfg.HTTPClient
			c.HTTPClient = &hc
		}
		return linearapi.NewClient(c)
	}
}

// Service holds the authentication state. It implements issues.ClientProvider.
type Service struct {
	store     credentials.Store
	newClient ClientFactory

	mu     sync.RWMutex
	client Client
	user   *linearapi.User

	changed events.Emitter[bool]
}

// NewService creates an unauthenticated Service.
func NewService(store credentials.Store, factory ClientFactory) *Service {
	return &Service{store: store, newClient: factory}
}

// Initialize restores the session from the credential store. An empty store
// leaves the service unauthenticated without error.
func (s *Service) Initialize(ctx context.Context) error {
	token, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("read API key: %w", err)
	}
	if token == "" {
		logger.Info("auth: no stored API key")
		return nil
	}

	client, user, err := s.validate(ctx, token)
	if err != nil {
		return fmt.Errorf("validate stored API key: %w", err)
	}
	s.set(client, &user)
	logger.Info("auth: restored session for %s", user.Email)
	s.changed.Fire(true)
	return nil
}

// Login validates token against the API, stores it and signs in.
func (s *Service) Login(ctx context.Context, token string) (linearapi.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return linearapi.User{}, ErrEmptyToken
	}

	client, user, err := s.validate(ctx, token)
	if err != nil {
		return linearapi.User{}, err
	}
	if err := s.store.Set(ctx, token); err != nil {
		return linearapi.User{}, fmt.Errorf("store API key: %w", err)
	}

	s.set(client, &user)
	logger.Info("auth: signed in as %s", user.Email)
	s.changed.Fire(true)
	return user, nil
}

// Logout removes the stored key and signs out.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("delete API key: %w", err)
	}
	s.set(nil, nil)
	logger.Info("auth: signed out")
	s.changed.Fire(false)
	return nil
}

func (s *Service) validate(ctx context.Context, token string) (Client, linearapi.User, error) {
	client := s.newClient(token)
	user, err := client.GetCurrentUser(ctx)
	if err != nil {
		if errors.Is(err, linearapi.ErrUnauthorized) {
			return nil, linearapi.User{}, fmt.Errorf("%w: %w", issues.ErrNotAuthenticated, err)
		}
		return nil, linearapi.User{}, err
	}
	return client, user, nil
}

func (s *Service) set(client Client, user *linearapi.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
	s.user = user
}

// IsAuthenticated reports whether a validated key is active.
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// User returns the signed-in user, or nil.
func (s *Service) User() *linearapi.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Adapter implements issues.ClientProvider.
func (s *Service) Adapter() (issues.Adapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, issues.ErrNotAuthenticated
	}
	return s.client, nil
}

// OnDidChange subscribes fn to sign-in (true) and sign-out (false) events.
func (s *Service) OnDidChange(fn func(authenticated bool)) (unsubscribe func()) {
	return s.changed.Subscribe(fn)
}
