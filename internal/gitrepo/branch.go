// Package gitrepo creates and checks out issue branches in the local repository.
package gitrepo

import (
	"errors"
	"fmt"

	"github.com/roeyazroel/linear-ide/internal/logger"
)

// ErrNoRepository is reported when no git repository is open.
var ErrNoRepository = errors.New("no git repository found")

// Repository is the set of branch operations the service needs.
type Repository interface {
	LocalBranchExists(name string) (bool, error)
	// RemoteBranchExists returns the full reference of the first remote
	// branch called name, e.g. "refs/remotes/origin/name".
	RemoteBranchExists(name string) (ref string, ok bool, err error)
	// CreateBranch creates name at startPoint, or at HEAD when startPoint is
	// empty, and checks it out when checkout is set.
	CreateBranch(name string, checkout bool, startPoint string) error
	Checkout(name string) error
	// CurrentBranch returns the checked out branch; ok is false when HEAD is detached.
	CurrentBranch() (name string, ok bool, err error)
}

// BranchService runs the start-work branch workflow. Failures are reported
// and turned into a false result.
type BranchService struct {
	repo   Repository
	report func(error)
}

// NewBranchService creates a service over repo. repo may be nil when the
// workspace has no repository; report may be nil.
func NewBranchService(repo Repository, report func(error)) *BranchService {
	if report == nil {
		report = func(error) {}
	}
	return &BranchService{repo: repo, report: report}
}

// CreateOrCheckoutBranch checks out name when a local branch exists,
// creates it from the matching remote branch when one exists, and creates
// it from HEAD otherwise.
func (b *BranchService) CreateOrCheckoutBranch(name string) bool {
	if err := b.createOrCheckout(name); err != nil {
		logger.ErrorWithErr(err, "gitrepo: branch %s failed", name)
		b.report(err)
		return false
	}
	return true
}

func (b *BranchService) createOrCheckout(name string) error {
	if b.repo == nil {
		return ErrNoRepository
	}

	local, err := b.repo.LocalBranchExists(name)
	if err != nil {
		return fmt.Errorf("look up branch %s: %w", name, err)
	}
	if local {
		if err := b.repo.Checkout(name); err != nil {
			return fmt.Errorf("checkout %s: %w", name, err)
		}
		logger.Info("gitrepo: checked out existing branch %s", name)
		return nil
	}

	remoteRef, remote, err := b.repo.RemoteBranchExists(name)
	if err != nil {
		return fmt.Errorf("look up remote branch %s: %w", name, err)
	}
	if remote {
		if err := b.repo.CreateBranch(name, true, remoteRef); err != nil {
			return fmt.Errorf("create %s from %s: %w", name, remoteRef, err)
		}
		logger.Info("gitrepo: created branch %s from %s", name, remoteRef)
		return nil
	}

	if err := b.repo.CreateBranch(name, true, ""); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	logger.Info("gitrepo: created branch %s", name)
	return nil
}

// CurrentBranchName returns the checked out branch, or ok=false when HEAD
// is detached or there is no repository.
func (b *BranchService) CurrentBranchName() (name string, ok bool) {
	if b.repo == nil {
		return "", false
	}
	name, ok, err := b.repo.CurrentBranch()
	if err != nil {
		logger.Warning("gitrepo: reading current branch failed: %v", err)
		return "", false
	}
	return name, ok
}
