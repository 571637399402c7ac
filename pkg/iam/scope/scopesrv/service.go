package scopesrv

import (
	"context"

	"github.com/Abraxas-365/gatekeep/pkg/asyncx"
	"github.com/Abraxas-365/gatekeep/pkg/iam/scope"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
	"github.com/Abraxas-365/gatekeep/pkg/reconx"
)

type ScopeService struct {
	repo  scope.Repository
	recon reconx.Enqueuer
}

var _ scope.Checker = (*ScopeService)(nil)

// NewScopeService returns a ScopeService. recon may be nil.
func NewScopeService(repo scope.Repository, recon reconx.Enqueuer) *ScopeService {
	return &ScopeService{repo: repo, recon: recon}
}

// Declare marks every name as existing. Re-declaring is not an error.
func (s *ScopeService) Declare(ctx context.Context, names ...string) error {
	defer logx.Track("scope.Declare")()

	if err := validNames(names); err != nil {
		return err
	}
	return s.repo.Declare(ctx, names)
}

// Exists reports whether name has been declared.
func (s *ScopeService) Exists(ctx context.Context, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	return s.repo.Exists(ctx, name)
}

func (s *ScopeService) ListAll(ctx context.Context) ([]string, error) {
	defer logx.Track("scope.ListAll")()
	return s.repo.ListAll(ctx)
}

// ValidateExisting fails with SCOPE_NOT_FOUND naming the first undeclared
// scope.
func (s *ScopeService) ValidateExisting(ctx context.Context, names []string) error {
	found, err := asyncx.Map(ctx, names, s.Exists)
	if err != nil {
		return err
	}
	for i, ok := range found {
		if !ok {
			return scope.ErrScopeNotFound(names[i])
		}
	}
	return nil
}

// Remove deletes the names from the registry and strips them from every
// credential that was granted one of them. It reports whether any of the
// names were declared. A storage failure queues the removal for another
// run before the error is returned.
func (s *ScopeService) Remove(ctx context.Context, names ...string) (bool, error) {
	defer logx.Track("scope.Remove")()

	if err := validNames(names); err != nil {
		return false, err
	}

	removal, err := s.repo.Remove(ctx, names)
	if err != nil {
		s.requeue(ctx, names, err)
		return false, err
	}
	if !removal.Replies.OK() {
		logx.WithFields(logx.Fields{
			"scopes":    names,
			"rewritten": len(removal.Rewritten),
			"replies":   []int64(removal.Replies),
		}).Debug("scope: removal touched missing keys")
	}
	return removal.Removed > 0, nil
}

// Reconcile re-runs a queued removal.
func (s *ScopeService) Reconcile(ctx context.Context, task *reconx.Task) error {
	_, err := s.repo.Remove(ctx, task.Subject)
	return err
}

func (s *ScopeService) requeue(ctx context.Context, names []string, cause error) {
	logx.WithError(cause).WithField("scopes", names).Warn("scope: removal failed part-way")
	if s.recon == nil {
		return
	}
	if err := s.recon.Enqueue(ctx, reconx.KindScopeRemoval, names...); err != nil {
		logx.WithError(err).WithField("scopes", names).Error("scope: could not queue removal for reconciliation")
	}
}

func validNames(names []string) error {
	if len(names) == 0 {
		return scope.ErrInvalidScope()
	}
	for _, n := range names {
		if n == "" {
			return scope.ErrInvalidScope()
		}
	}
	return nil
}
