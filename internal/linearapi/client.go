package linearapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/roeyazroel/linear-ide/internal/logger"
	"github.com/shurcooL/graphql"
	"golang.org/x/oauth2"
)

// parseTime safely parses an RFC3339 time string, returning zero time on error.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseOptionalTime parses a nullable RFC3339 string.
func parseOptionalTime(s *graphql.String) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseTime(string(*s))
	if t.IsZero() {
		return nil
	}
	return &t
}

// IssueFilter is a custom scalar type for Linear's IssueFilter input.
// It allows passing complex filter objects to the GraphQL API.
type IssueFilter map[string]interface{}

// GetGraphQLType returns the GraphQL type name for the filter.
func (IssueFilter) GetGraphQLType() string {
	return "IssueFilter"
}

// MarshalJSON implements json.Marshaler for IssueFilter.
func (f IssueFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(f))
}

// CycleFilter is a custom scalar type for Linear's CycleFilter input.
type CycleFilter map[string]interface{}

// GetGraphQLType returns the GraphQL type name for the filter.
func (CycleFilter) GetGraphQLType() string {
	return "CycleFilter"
}

// MarshalJSON implements json.Marshaler for CycleFilter.
func (f CycleFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(f))
}

// IssueUpdateInput is a custom scalar type for Linear's IssueUpdateInput.
// The Go type name must match the GraphQL type name exactly.
type IssueUpdateInput map[string]interface{}

// GetGraphQLType returns the GraphQL type name for the input.
func (IssueUpdateInput) GetGraphQLType() string {
	return "IssueUpdateInput"
}

// MarshalJSON implements json.Marshaler for IssueUpdateInput.
func (i IssueUpdateInput) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(i))
}

const (
	// DefaultEndpoint is the default Linear API GraphQL endpoint.
	DefaultEndpoint = "https://api.linear.app/graphql"

	// oauthTokenPrefix marks OAuth access tokens, which need a Bearer header.
	// Personal API keys are sent as the raw Authorization value.
	oauthTokenPrefix = "lin_oauth_"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrUnauthorized is returned when the token is missing or rejected.
	ErrUnauthorized = errors.New("not authenticated")
)

// ClientConfig contains configuration for creating a new Linear API client.
type ClientConfig struct {
	// Token is the Linear API key or OAuth access token.
	Token string
	// Endpoint is the GraphQL API endpoint (defaults to Linear's production endpoint).
	Endpoint string
	// HTTPClient is an optional custom HTTP client (useful for testing).
	HTTPClient *http.Client
	// Timeout is the HTTP request timeout (defaults to 30s).
	Timeout time.Duration
}

// Client is a client for interacting with the Linear GraphQL API.
type Client struct {
	client *graphql.Client
}

// NewClient creates a new Linear API client with the provided configuration.
func NewClient(cfg ClientConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var httpClient *http.Client
	if cfg.HTTPClient != nil {
		// Use provided HTTP client but wrap its transport with auth
		httpClient = cfg.HTTPClient
		if httpClient.Transport == nil {
			httpClient.Transport = http.DefaultTransport
		}
		httpClient.Transport = newAuthTransport(cfg.Token, httpClient.Transport)
	} else {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: newAuthTransport(cfg.Token, http.DefaultTransport),
		}
	}

	return &Client{client: graphql.NewClient(endpoint, httpClient)}
}

// newAuthTransport picks the header scheme for the token kind.
func newAuthTransport(token string, base http.RoundTripper) http.RoundTripper {
	if strings.HasPrefix(token, oauthTokenPrefix) {
		return &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base,
		}
	}
	return &authTransport{Token: token, Base: base}
}

// authTransport adds the Authorization header to requests.
type authTransport struct {
	Token string
	Base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", t.Token)
	if t.Base == nil {
		return http.DefaultTransport.RoundTrip(req)
	}
	return t.Base.RoundTrip(req)
}

// classify tags GraphQL and transport errors with ErrNotFound or
// ErrUnauthorized when the message says so.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case strings.Contains(msg, "authentication"), strings.Contains(msg, "not authenticated"),
		strings.Contains(msg, "401"):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	default:
		return err
	}
}

// Team represents a Linear team.
type Team struct {
	ID   string
	Key  string
	Name string
}

// User represents a Linear user.
type User struct {
	ID          string
	Name        string
	DisplayName string
	Email       string
	AvatarURL   string
	IsMe        bool
}

type userFragment struct {
	ID          graphql.String
	Name        graphql.String
	DisplayName graphql.String
	Email       graphql.String
	AvatarURL   *graphql.String `graphql:"avatarUrl"`
}

func (u userFragment) toUser() User {
	user := User{
		ID:          string(u.ID),
		Name:        string(u.Name),
		DisplayName: string(u.DisplayName),
		Email:       string(u.Email),
	}
	if u.AvatarURL != nil {
		user.AvatarURL = string(*u.AvatarURL)
	}
	return user
}

// ListTeams fetches all teams the user has access to.
func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	var query struct {
		Teams struct {
			Nodes []struct {
				ID   graphql.String
				Key  graphql.String
				Name graphql.String
			}
		} `graphql:"teams"`
	}

	err := c.client.Query(ctx, &query, nil)
	if err != nil {
		logger.ErrorWithErr(err, "API: ListTeams failed")
		return nil, fmt.Errorf("list teams: %w", classify(err))
	}

	teams := make([]Team, 0, len(query.Teams.Nodes))
	for _, node := range query.Teams.Nodes {
		teams = append(teams, Team{
			ID:   string(node.ID),
			Key:  string(node.Key),
			Name: string(node.Name),
		})
	}

	return teams, nil
}

// GetCurrentUser fetches the current authenticated user.
func (c *Client) GetCurrentUser(ctx context.Context) (User, error) {
	var query struct {
		Viewer userFragment
	}

	err := c.client.Query(ctx, &query, nil)
	if err != nil {
		logger.ErrorWithErr(err, "API: GetCurrentUser failed")
		return User{}, fmt.Errorf("get current user: %w", classify(err))
	}

	user := query.Viewer.toUser()
	user.IsMe = true
	return user, nil
}
