package linearapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// issueNodeJSON returns a JSON object string for an issue node used in tests.
func issueNodeJSON(id, identifier, title string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"identifier": %q,
		"title": %q,
		"description": null,
		"priority": 2,
		"priorityLabel": "High",
		"url": "https://linear.app/issue/%s",
		"branchName": "user/%s-work",
		"updatedAt": "2025-01-02T00:00:00Z",
		"createdAt": "2025-01-01T00:00:00Z",
		"state": {"id": "state-1", "name": "Todo", "type": "unstarted", "color": "#e2e2e2"},
		"cycle": null,
		"project": null,
		"assignee": null,
		"labels": {"nodes": [], "pageInfo": {"hasNextPage": false, "endCursor": ""}}
	}`, id, identifier, title, identifier, strings.ToLower(identifier))
}

// connectionJSON builds a connection object with nodes and page info.
func connectionJSON(nodes []string, hasNextPage bool, endCursor string) string {
	return fmt.Sprintf(`{
		"nodes": [%s],
		"pageInfo": {
			"hasNextPage": %t,
			"endCursor": %q
		}
	}`, strings.Join(nodes, ","), hasNextPage, endCursor)
}

// assignedIssuesResponse builds a GraphQL response for viewer.assignedIssues.
func assignedIssuesResponse(nodes []string, hasNextPage bool, endCursor string) string {
	return fmt.Sprintf(`{"data": {"viewer": {"assignedIssues": %s}}}`,
		connectionJSON(nodes, hasNextPage, endCursor))
}

// graphQLServer serves canned responses in order and records request variables.
type graphQLServer struct {
	t         *testing.T
	mu        sync.Mutex
	responses []string
	variables []map[string]interface{}
	queries   []string
	server    *httptest.Server
}

func newGraphQLServer(t *testing.T, responses ...string) *graphQLServer {
	t.Helper()
	s := &graphQLServer{t: t, responses: responses}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		idx := len(s.queries)
		s.queries = append(s.queries, reqBody.Query)
		s.variables = append(s.variables, reqBody.Variables)
		s.mu.Unlock()

		if idx >= len(s.responses) {
			t.Errorf("unexpected request #%d: %s", idx+1, reqBody.Query)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s.responses[idx]))
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *graphQLServer) client() *Client {
	return NewClient(ClientConfig{Token: "test-token", Endpoint: s.server.URL})
}

func (s *graphQLServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func TestNewClient_DefaultEndpoint(t *testing.T) {
	client := NewClient(ClientConfig{Token: "test-token-123"})

	if client.client == nil {
		t.Fatal("NewClient() graphql client should not be nil")
	}
}

func TestAuthorizationHeader(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "personal api key is sent raw", token: "lin_api_abc", want: "lin_api_abc"},
		{name: "oauth token uses bearer scheme", token: "lin_oauth_xyz", want: "Bearer lin_oauth_xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var authHeader string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				authHeader = r.Header.Get("Authorization")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"data": {"teams": {"nodes": []}}}`))
			}))
			defer server.Close()

			client := NewClient(ClientConfig{
				Token:      tt.token,
				Endpoint:   server.URL,
				HTTPClient: &http.Client{},
			})

			if _, err := client.ListTeams(context.Background()); err != nil {
				t.Fatalf("ListTeams() error: %v", err)
			}
			if authHeader != tt.want {
				t.Errorf("Authorization header = %q, want %q", authHeader, tt.want)
			}
		})
	}
}

func TestGetCurrentUser(t *testing.T) {
	s := newGraphQLServer(t, `{"data": {"viewer": {
		"id": "user-1", "name": "Ada", "displayName": "ada", "email": "ada@example.com", "avatarUrl": null
	}}}`)

	user, err := s.client().GetCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentUser() error: %v", err)
	}
	if user.ID != "user-1" || user.Email != "ada@example.com" || !user.IsMe {
		t.Errorf("GetCurrentUser() = %+v", user)
	}
	if user.AvatarURL != "" {
		t.Errorf("AvatarURL = %q, want empty", user.AvatarURL)
	}
}

func TestGetCurrentUser_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Authentication required, not authenticated"}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{Token: "bad", Endpoint: server.URL})
	_, err := client.GetCurrentUser(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("GetCurrentUser() error = %v, want ErrUnauthorized", err)
	}
}

// TestAssignedIssues_CumulativePages verifies that FetchNext keeps earlier nodes
// and continues from the previous end cursor.
func TestAssignedIssues_CumulativePages(t *testing.T) {
	s := newGraphQLServer(t,
		assignedIssuesResponse([]string{
			issueNodeJSON("issue-1", "ABC-1", "First issue"),
		}, true, "cursor-1"),
		assignedIssuesResponse([]string{
			issueNodeJSON("issue-2", "ABC-2", "Second issue"),
			issueNodeJSON("issue-3", "ABC-3", "Third issue"),
		}, false, "cursor-2"),
	)

	filter := IssueFilter{"team": map[string]interface{}{"id": map[string]interface{}{"eq": "team-1"}}}
	page, err := s.client().AssignedIssues(context.Background(), filter, 2)
	if err != nil {
		t.Fatalf("AssignedIssues() error: %v", err)
	}
	if len(page.Nodes) != 1 || !page.HasNextPage() {
		t.Fatalf("first page nodes=%d hasNext=%v", len(page.Nodes), page.HasNextPage())
	}

	next, err := page.FetchNext(context.Background())
	if err != nil {
		t.Fatalf("FetchNext() error: %v", err)
	}
	if len(next.Nodes) != 3 {
		t.Fatalf("cumulative nodes = %d, want 3", len(next.Nodes))
	}
	if next.HasNextPage() {
		t.Error("last page should not have a next page")
	}
	for i, want := range []string{"issue-1", "issue-2", "issue-3"} {
		if got := next.Nodes[i].Fields().ID; got != want {
			t.Errorf("node %d = %s, want %s", i, got, want)
		}
	}

	if s.variables[0]["after"] != nil {
		t.Errorf("first request after = %#v, want nil", s.variables[0]["after"])
	}
	if s.variables[1]["after"] != "cursor-1" {
		t.Errorf("second request after = %#v, want cursor-1", s.variables[1]["after"])
	}
	team, _ := s.variables[0]["filter"].(map[string]interface{})["team"].(map[string]interface{})
	if team == nil {
		t.Errorf("filter variable missing team predicate: %#v", s.variables[0]["filter"])
	}

	last, err := next.FetchNext(context.Background())
	if err != nil || last != next {
		t.Errorf("FetchNext on last page should return the same connection")
	}
	if s.requestCount() != 2 {
		t.Errorf("requests = %d, want 2", s.requestCount())
	}
}

func TestIssue_MapsNestedFields(t *testing.T) {
	s := newGraphQLServer(t, `{"data": {"issue": {
		"id": "issue-9",
		"identifier": "ENG-9",
		"title": "Nested",
		"description": "Some **markdown**",
		"priority": 1,
		"priorityLabel": "Urgent",
		"url": "https://linear.app/issue/ENG-9",
		"branchName": "ada/eng-9-nested",
		"updatedAt": "2025-02-02T10:00:00Z",
		"createdAt": "2025-02-01T09:00:00Z",
		"state": {"id": "s-2", "name": "In Progress", "type": "started", "color": "#f2c94c"},
		"cycle": {"id": "c-1", "name": null, "number": 7, "startsAt": "2025-01-06T00:00:00Z", "endsAt": null},
		"project": {"id": "p-1", "name": "Platform"},
		"assignee": {"id": "u-1", "name": "Ada", "displayName": "ada", "email": "ada@example.com", "avatarUrl": "https://a/x.png"},
		"labels": {"nodes": [{"id": "l-1", "name": "bug", "color": "#f00"}], "pageInfo": {"hasNextPage": false, "endCursor": ""}}
	}}}`)

	raw, err := s.client().Issue(context.Background(), "issue-9")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	ctx := context.Background()

	fields := raw.Fields()
	if fields.Description == nil || *fields.Description != "Some **markdown**" {
		t.Errorf("Description = %v", fields.Description)
	}
	if fields.BranchName != "ada/eng-9-nested" || fields.PriorityLabel != "Urgent" {
		t.Errorf("Fields() = %+v", fields)
	}

	state, _ := raw.State(ctx)
	if state == nil || state.Type != "started" {
		t.Errorf("State() = %+v", state)
	}
	cycle, _ := raw.Cycle(ctx)
	if cycle == nil || cycle.Number != 7 || cycle.Name != "" || cycle.StartsAt == nil || cycle.EndsAt != nil {
		t.Errorf("Cycle() = %+v", cycle)
	}
	project, _ := raw.Project(ctx)
	if project == nil || project.Name != "Platform" {
		t.Errorf("Project() = %+v", project)
	}
	assignee, _ := raw.Assignee(ctx)
	if assignee == nil || assignee.AvatarURL != "https://a/x.png" {
		t.Errorf("Assignee() = %+v", assignee)
	}
	labels, _ := raw.Labels(ctx)
	if len(labels) != 1 || labels[0].Name != "bug" {
		t.Errorf("Labels() = %+v", labels)
	}
}

func TestIssue_LabelsOverflowFetchesRemainingPages(t *testing.T) {
	first := strings.Replace(issueNodeJSON("issue-1", "ABC-1", "Labels"),
		`"labels": {"nodes": [], "pageInfo": {"hasNextPage": false, "endCursor": ""}}`,
		`"labels": {"nodes": [{"id": "l-1", "name": "a", "color": "#1"}], "pageInfo": {"hasNextPage": true, "endCursor": "lc-1"}}`, 1)
	s := newGraphQLServer(t,
		`{"data": {"issue": `+first+`}}`,
		`{"data": {"issue": {"labels": `+connectionJSON([]string{`{"id": "l-2", "name": "b", "color": "#2"}`}, false, "lc-2")+`}}}`,
	)

	raw, err := s.client().Issue(context.Background(), "issue-1")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	labels, err := raw.Labels(context.Background())
	if err != nil {
		t.Fatalf("Labels() error: %v", err)
	}
	if len(labels) != 2 || labels[0].ID != "l-1" || labels[1].ID != "l-2" {
		t.Errorf("Labels() = %+v", labels)
	}
	if s.variables[1]["after"] != "lc-1" {
		t.Errorf("label page after = %#v, want lc-1", s.variables[1]["after"])
	}
}

func TestIssue_NotFound(t *testing.T) {
	s := newGraphQLServer(t, `{"data": null, "errors": [{"message": "Entity not found: Issue"}]}`)

	_, err := s.client().Issue(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Issue() error = %v, want ErrNotFound", err)
	}

	if _, err := s.client().Issue(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Issue(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestIssueTeamID_NoTeam(t *testing.T) {
	s := newGraphQLServer(t, `{"data": {"issue": {"team": null}}}`)

	teamID, err := s.client().IssueTeamID(context.Background(), "issue-1")
	if err != nil {
		t.Fatalf("IssueTeamID() error: %v", err)
	}
	if teamID != "" {
		t.Errorf("IssueTeamID() = %q, want empty", teamID)
	}
}

func TestIssueBranchName(t *testing.T) {
	s := newGraphQLServer(t, `{"data": {"issue": {"branchName": "user/eng-1-x"}}}`)

	name, err := s.client().IssueBranchName(context.Background(), "issue-1")
	if err != nil {
		t.Fatalf("IssueBranchName() error: %v", err)
	}
	if name != "user/eng-1-x" {
		t.Errorf("IssueBranchName() = %q", name)
	}
}

func TestIssueComments(t *testing.T) {
	comment := func(id, body string, withUser bool) string {
		user := `null`
		if withUser {
			user = `{"id": "u-1", "name": "Ada", "displayName": "ada", "email": "", "avatarUrl": null}`
		}
		return fmt.Sprintf(`{"id": %q, "body": %q, "createdAt": "2025-01-01T00:00:00Z", "updatedAt": "2025-01-01T00:00:00Z", "user": %s}`, id, body, user)
	}
	s := newGraphQLServer(t,
		`{"data": {"issue": {"comments": `+connectionJSON([]string{comment("c-1", "first", true)}, true, "cc-1")+`}}}`,
		`{"data": {"issue": {"comments": `+connectionJSON([]string{comment("c-2", "second", false)}, false, "cc-2")+`}}}`,
	)

	page, err := s.client().IssueComments(context.Background(), "issue-1", 1)
	if err != nil {
		t.Fatalf("IssueComments() error: %v", err)
	}
	page, err = page.FetchNext(context.Background())
	if err != nil {
		t.Fatalf("FetchNext() error: %v", err)
	}

	if len(page.Nodes) != 2 {
		t.Fatalf("comments = %d, want 2", len(page.Nodes))
	}
	if page.Nodes[0].Author == nil || page.Nodes[0].Author.Name != "Ada" {
		t.Errorf("first comment author = %+v", page.Nodes[0].Author)
	}
	if page.Nodes[1].Author != nil {
		t.Errorf("second comment author = %+v, want nil", page.Nodes[1].Author)
	}
	if page.Nodes[1].IssueID != "issue-1" {
		t.Errorf("IssueID = %q", page.Nodes[1].IssueID)
	}
}

func TestCyclesAndProjects(t *testing.T) {
	s := newGraphQLServer(t,
		`{"data": {"cycles": `+connectionJSON([]string{
			`{"id": "c-1", "name": "Sprint A", "number": 1, "startsAt": "2025-01-01T00:00:00Z", "endsAt": "2025-01-14T00:00:00Z"}`,
		}, false, "")+`}}`,
		`{"data": {"projects": `+connectionJSON([]string{
			`{"id": "p-1", "name": "Platform"}`,
		}, true, "pc-1")+`}}`,
	)
	client := s.client()

	cycles, err := client.Cycles(context.Background(), CycleFilter{"isActive": map[string]interface{}{"eq": true}})
	if err != nil {
		t.Fatalf("Cycles() error: %v", err)
	}
	if len(cycles.Nodes) != 1 || cycles.Nodes[0].EndsAt == nil {
		t.Errorf("Cycles() = %+v", cycles.Nodes)
	}

	projects, err := client.Projects(context.Background(), 100)
	if err != nil {
		t.Fatalf("Projects() error: %v", err)
	}
	if len(projects.Nodes) != 1 || !projects.HasNextPage() {
		t.Errorf("Projects() nodes=%d hasNext=%v", len(projects.Nodes), projects.HasNextPage())
	}
	if s.variables[1]["first"] != float64(100) {
		t.Errorf("projects first = %#v, want 100", s.variables[1]["first"])
	}
}

func TestUpdateIssue(t *testing.T) {
	s := newGraphQLServer(t,
		`{"data": {"issueUpdate": {"success": true, "issue": {"id": "issue-1"}}}}`,
		`{"data": {"issueUpdate": {"success": false, "issue": null}}}`,
	)
	client := s.client()

	payload, err := client.UpdateIssue(context.Background(), "issue-1", IssueUpdateInput{"stateId": "s-1"})
	if err != nil {
		t.Fatalf("UpdateIssue() error: %v", err)
	}
	if !payload.Success || payload.IssueID != "issue-1" {
		t.Errorf("UpdateIssue() = %+v", payload)
	}
	input, _ := s.variables[0]["input"].(map[string]interface{})
	if input["stateId"] != "s-1" {
		t.Errorf("input = %#v", s.variables[0]["input"])
	}

	payload, err = client.UpdateIssue(context.Background(), "issue-1", IssueUpdateInput{"stateId": "s-1"})
	if err != nil {
		t.Fatalf("UpdateIssue() error: %v", err)
	}
	if payload.Success || payload.IssueID != "" {
		t.Errorf("UpdateIssue() = %+v, want unsuccessful", payload)
	}
}

func TestWorkflowStates(t *testing.T) {
	s := newGraphQLServer(t, `{"data": {"team": {"states": `+connectionJSON([]string{
		`{"id": "s-1", "name": "Todo", "type": "unstarted", "color": "#ccc", "position": 1}`,
		`{"id": "s-2", "name": "Done", "type": "completed", "color": "#0f0", "position": 2}`,
	}, false, "")+`}}}`)

	states, err := s.client().WorkflowStates(context.Background(), "team-1")
	if err != nil {
		t.Fatalf("WorkflowStates() error: %v", err)
	}
	if len(states.Nodes) != 2 || states.Nodes[1].Type != "completed" || states.Nodes[1].TeamID != "team-1" {
		t.Errorf("WorkflowStates() = %+v", states.Nodes)
	}
}

func TestConnection_FetchNextError(t *testing.T) {
	boom := errors.New("boom")
	conn := NewConnection[int]([]int{1, 2}, PageInfo{HasNextPage: true, EndCursor: "x"},
		func(ctx context.Context, after string) ([]int, PageInfo, error) {
			return nil, PageInfo{}, boom
		})

	if _, err := conn.FetchNext(context.Background()); !errors.Is(err, boom) {
		t.Errorf("FetchNext() error = %v, want boom", err)
	}
	if len(conn.Nodes) != 2 {
		t.Errorf("failed FetchNext must not mutate the receiver")
	}
}
