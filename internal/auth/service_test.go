package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roeyazroel/linear-ide/internal/credentials"
	"github.com/roeyazroel/linear-ide/internal/issues"
	"github.com/roeyazroel/linear-ide/internal/linearapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validToken = "lin_api_valid"

// newViewerServer accepts validToken and rejects everything else.
func newViewerServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errors":[{"message":"Authentication required"}]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"viewer":{"id":"u-1","name":"Ada","displayName":"ada","email":"ada@example.com","avatarUrl":null}}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestService(t *testing.T, token string) (*Service, *credentials.MemoryStore) {
	t.Helper()
	server := newViewerServer(t)
	store := credentials.NewMemoryStore(token)
	return NewService(store, LinearClientFactory(linearapi.ClientConfig{Endpoint: server.URL})), store
}

func TestInitialize_EmptyKeyLeavesUnauthenticated(t *testing.T) {
	svc, _ := newTestService(t, "")
	events := 0
	svc.OnDidChange(func(bool) { events++ })

	require.NoError(t, svc.Initialize(context.Background()))

	assert.False(t, svc.IsAuthenticated())
	assert.Nil(t, svc.User())
	assert.Zero(t, events)

	_, err := svc.Adapter()
	assert.ErrorIs(t, err, issues.ErrNotAuthenticated)
}

func TestInitialize_RestoresSession(t *testing.T) {
	svc, _ := newTestService(t, validToken)
	var got []bool
	svc.OnDidChange(func(authenticated bool) { got = append(got, authenticated) })

	require.NoError(t, svc.Initialize(context.Background()))

	assert.True(t, svc.IsAuthenticated())
	require.NotNil(t, svc.User())
	assert.Equal(t, "ada@example.com", svc.User().Email)
	assert.Equal(t, []bool{true}, got)

	adapter, err := svc.Adapter()
	require.NoError(t, err)
	assert.NotNil(t, adapter)
}

func TestInitialize_InvalidStoredKey(t *testing.T) {
	svc, _ := newTestService(t, "lin_api_revoked")

	err := svc.Initialize(context.Background())

	require.ErrorIs(t, err, issues.ErrNotAuthenticated)
	assert.Equal(t, issues.KindAuthentication, issues.KindOf(err))
	assert.False(t, svc.IsAuthenticated())
	assert.Nil(t, svc.User())
}

func TestLoginAndLogout(t *testing.T) {
	svc, store := newTestService(t, "")
	ctx := context.Background()
	var got []bool
	svc.OnDidChange(func(authenticated bool) { got = append(got, authenticated) })

	_, err := svc.Login(ctx, "   ")
	require.ErrorIs(t, err, ErrEmptyToken)

	_, err = svc.Login(ctx, "lin_api_wrong")
	require.ErrorIs(t, err, issues.ErrNotAuthenticated)
	stored, _ := store.Get(ctx)
	assert.Empty(t, stored, "rejected keys are not stored")

	user, err := svc.Login(ctx, " "+validToken+"\n")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	stored, _ = store.Get(ctx)
	assert.Equal(t, validToken, stored)
	assert.True(t, svc.IsAuthenticated())

	require.NoError(t, svc.Logout(ctx))
	assert.False(t, svc.IsAuthenticated())
	assert.Nil(t, svc.User())
	stored, _ = store.Get(ctx)
	assert.Empty(t, stored)

	assert.Equal(t, []bool{true, false}, got)
}

func TestLinearClientFactory_CopiesHTTPClient(t *testing.T) {
	base := &http.Client{}
	factory := LinearClientFactory(linearapi.ClientConfig{Endpoint: "http://localhost", HTTPClient: base})

	factory("a")
	factory("b")

	assert.Nil(t, base.Transport, "the shared client must not be wrapped")
}
