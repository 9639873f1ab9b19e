package gitrepo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// GoGitRepository implements Repository with go-git.
type GoGitRepository struct {
	repo *git.Repository
}

// Open opens the repository containing path.
func Open(path string) (*GoGitRepository, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNoRepository)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return New(r), nil
}

// New wraps an already opened repository.
func New(r *git.Repository) *GoGitRepository {
	return &GoGitRepository{repo: r}
}

func (g *GoGitRepository) refExists(name plumbing.ReferenceName) (bool, error) {
	_, err := g.repo.Reference(name, false)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LocalBranchExists implements Repository.
func (g *GoGitRepository) LocalBranchExists(name string) (bool, error) {
	return g.refExists(plumbing.NewBranchReferenceName(name))
}

// RemoteBranchExists implements Repository.
func (g *GoGitRepository) RemoteBranchExists(name string) (string, bool, error) {
	remotes, err := g.repo.Remotes()
	if err != nil {
		return "", false, fmt.Errorf("failed to list remotes: %w", err)
	}
	for _, remote := range remotes {
		ref := plumbing.NewRemoteReferenceName(remote.Config().Name, name)
		ok, err := g.refExists(ref)
		if err != nil {
			return "", false, err
		}
		if ok {
			return ref.String(), true, nil
		}
	}
	return "", false, nil
}

// CreateBranch implements Repository. A branch started from a remote ref
// gets that ref as its upstream.
func (g *GoGitRepository) CreateBranch(name string, checkout bool, startPoint string) error {
	var start *plumbing.Reference
	var err error
	if startPoint == "" {
		start, err = g.repo.Head()
	} else {
		start, err = g.repo.Reference(plumbing.ReferenceName(startPoint), true)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve start point: %w", err)
	}

	branch := plumbing.NewBranchReferenceName(name)
	if !checkout {
		if err := g.repo.Storer.SetReference(plumbing.NewHashReference(branch, start.Hash())); err != nil {
			return fmt.Errorf("failed to create branch: %w", err)
		}
		return g.setUpstream(name, startPoint)
	}

	w, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	err = w.Checkout(&git.CheckoutOptions{
		Hash:   start.Hash(),
		Branch: branch,
		Create: true,
		Keep:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to create branch: %w", err)
	}
	return g.setUpstream(name, startPoint)
}

// setUpstream records startPoint as the upstream of name when it is a
// remote-tracking ref.
func (g *GoGitRepository) setUpstream(name, startPoint string) error {
	ref := plumbing.ReferenceName(startPoint)
	if !ref.IsRemote() {
		return nil
	}
	remotes, err := g.repo.Remotes()
	if err != nil {
		return fmt.Errorf("failed to list remotes: %w", err)
	}
	for _, remote := range remotes {
		prefix := "refs/remotes/" + remote.Config().Name + "/"
		if !strings.HasPrefix(startPoint, prefix) {
			continue
		}
		err := g.repo.CreateBranch(&config.Branch{
			Name:   name,
			Remote: remote.Config().Name,
			Merge:  plumbing.NewBranchReferenceName(strings.TrimPrefix(startPoint, prefix)),
		})
		if err != nil && !errors.Is(err, git.ErrBranchExists) {
			return fmt.Errorf("failed to set upstream: %w", err)
		}
		return nil
	}
	return nil
}

// Checkout implements Repository.
func (g *GoGitRepository) Checkout(name string) error {
	w, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	err = w.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Keep:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to checkout branch: %w", err)
	}
	return nil
}

// CurrentBranch implements Repository.
func (g *GoGitRepository) CurrentBranch() (string, bool, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", false, err
	}
	if !head.Name().IsBranch() {
		return "", false, nil
	}
	return head.Name().Short(), true, nil
}
