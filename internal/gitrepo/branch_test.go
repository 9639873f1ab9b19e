package gitrepo

import (
	"errors"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createCall struct {
	name       string
	checkout   bool
	startPoint string
}

type recordingRepo struct {
	local     map[string]bool
	remote    map[string]string
	created   []createCall
	checkouts []string
	failWith  error
}

func (r *recordingRepo) LocalBranchExists(name string) (bool, error) {
	return r.local[name], nil
}

func (r *recordingRepo) RemoteBranchExists(name string) (string, bool, error) {
	ref, ok := r.remote[name]
	return ref, ok, nil
}

func (r *recordingRepo) CreateBranch(name string, checkout bool, startPoint string) error {
	r.created = append(r.created, createCall{name, checkout, startPoint})
	return r.failWith
}

func (r *recordingRepo) Checkout(name string) error {
	r.checkouts = append(r.checkouts, name)
	return r.failWith
}

func (r *recordingRepo) CurrentBranch() (string, bool, error) {
	return "main", true, nil
}

func TestCreateOrCheckoutBranch_CreatesWhenMissing(t *testing.T) {
	repo := &recordingRepo{}
	svc := NewBranchService(repo, nil)

	ok := svc.CreateOrCheckoutBranch("user/eng-1-x")

	assert.True(t, ok)
	assert.Equal(t, []createCall{{name: "user/eng-1-x", checkout: true}}, repo.created)
	assert.Empty(t, repo.checkouts)
}

func TestCreateOrCheckoutBranch_ChecksOutExistingLocal(t *testing.T) {
	repo := &recordingRepo{local: map[string]bool{"user/eng-1-x": true}}
	svc := NewBranchService(repo, nil)

	ok := svc.CreateOrCheckoutBranch("user/eng-1-x")

	assert.True(t, ok)
	assert.Equal(t, []string{"user/eng-1-x"}, repo.checkouts)
	assert.Empty(t, repo.created, "an existing branch must never be created")
}

func TestCreateOrCheckoutBranch_TracksRemote(t *testing.T) {
	repo := &recordingRepo{remote: map[string]string{"user/eng-1-x": "refs/remotes/origin/user/eng-1-x"}}
	svc := NewBranchService(repo, nil)

	ok := svc.CreateOrCheckoutBranch("user/eng-1-x")

	assert.True(t, ok)
	assert.Equal(t, []createCall{{"user/eng-1-x", true, "refs/remotes/origin/user/eng-1-x"}}, repo.created)
}

func TestCreateOrCheckoutBranch_ReportsFailure(t *testing.T) {
	boom := errors.New("worktree contains unstaged changes")
	var reported []error
	svc := NewBranchService(&recordingRepo{failWith: boom}, func(err error) { reported = append(reported, err) })

	ok := svc.CreateOrCheckoutBranch("user/eng-1-x")

	assert.False(t, ok)
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], boom)
}

func TestCreateOrCheckoutBranch_NoRepository(t *testing.T) {
	var reported error
	svc := NewBranchService(nil, func(err error) { reported = err })

	assert.False(t, svc.CreateOrCheckoutBranch("x"))
	assert.ErrorIs(t, reported, ErrNoRepository)

	_, ok := svc.CurrentBranchName()
	assert.False(t, ok)
}

// newMemoryRepo returns an in-memory repository with one commit on master.
func newMemoryRepo(t *testing.T) (*git.Repository, plumbing.Hash) {
	t.Helper()
	fs := memfs.New()
	r, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)

	f, err := fs.Create("README.md")
	require.NoError(t, err)
	_, err = f.Write([]byte("# test\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w, err := r.Worktree()
	require.NoError(t, err)
	_, err = w.Add("README.md")
	require.NoError(t, err)
	hash, err := w.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return r, hash
}

func TestGoGitRepository_Workflow(t *testing.T) {
	r, _ := newMemoryRepo(t)
	repo := New(r)
	svc := NewBranchService(repo, nil)

	current, ok := svc.CurrentBranchName()
	require.True(t, ok)
	assert.Equal(t, "master", current)

	require.True(t, svc.CreateOrCheckoutBranch("ada/eng-1-first"))
	current, _ = svc.CurrentBranchName()
	assert.Equal(t, "ada/eng-1-first", current)

	exists, err := repo.LocalBranchExists("ada/eng-1-first")
	require.NoError(t, err)
	assert.True(t, exists)
	_, err = r.Branch("ada/eng-1-first")
	assert.ErrorIs(t, err, git.ErrBranchNotFound, "local branches get no upstream")

	require.NoError(t, repo.Checkout("master"))
	require.True(t, svc.CreateOrCheckoutBranch("ada/eng-1-first"))
	current, _ = svc.CurrentBranchName()
	assert.Equal(t, "ada/eng-1-first", current)
}

func TestGoGitRepository_RemoteBranch(t *testing.T) {
	r, hash := newMemoryRepo(t)
	_, err := r.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{"https://example.com/repo.git"}})
	require.NoError(t, err)
	remoteRef := plumbing.NewRemoteReferenceName("origin", "ada/eng-2-remote")
	require.NoError(t, r.Storer.SetReference(plumbing.NewHashReference(remoteRef, hash)))
	repo := New(r)

	ref, ok, err := repo.RemoteBranchExists("ada/eng-2-remote")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "refs/remotes/origin/ada/eng-2-remote", ref)

	require.True(t, NewBranchService(repo, nil).CreateOrCheckoutBranch("ada/eng-2-remote"))
	local, err := r.Reference(plumbing.NewBranchReferenceName("ada/eng-2-remote"), true)
	require.NoError(t, err)
	assert.Equal(t, hash, local.Hash())

	upstream, err := r.Branch("ada/eng-2-remote")
	require.NoError(t, err)
	assert.Equal(t, "origin", upstream.Remote)
	assert.Equal(t, plumbing.ReferenceName("refs/heads/ada/eng-2-remote"), upstream.Merge)
}

func TestGoGitRepository_CreateWithoutCheckout(t *testing.T) {
	r, _ := newMemoryRepo(t)
	repo := New(r)

	require.NoError(t, repo.CreateBranch("side", false, ""))
	current, ok, err := repo.CurrentBranch()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "master", current)

	exists, err := repo.LocalBranchExists("side")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGoGitRepository_DetachedHead(t *testing.T) {
	r, hash := newMemoryRepo(t)
	w, err := r.Worktree()
	require.NoError(t, err)
	require.NoError(t, w.Checkout(&git.CheckoutOptions{Hash: hash}))

	_, ok := NewBranchService(New(r), nil).CurrentBranchName()
	assert.False(t, ok)
}
