package authcodesrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/iam/authcode"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
)

type CodeService struct {
	repo  authcode.Repository
	ttl   time.Duration
	newID func() string
	now   func() time.Time
}

// NewCodeService returns a CodeService whose codes expire after ttl.
func NewCodeService(repo authcode.Repository, ttl time.Duration, newID func() string) *CodeService {
	return &CodeService{
		repo:  repo,
		ttl:   ttl,
		newID: newID,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Save issues a code binding a consumer and a user.
func (s *CodeService) Save(ctx context.Context, criteria authcode.Criteria) (*authcode.Code, error) {
	defer logx.Track("authcode.Save")()

	if criteria.ConsumerID == "" || criteria.UserID == "" {
		return nil, authcode.ErrInvalidArguments("consumerId and userId are required")
	}

	now := s.now()
	c := &authcode.Code{
		ID:          s.newID(),
		ConsumerID:  criteria.ConsumerID,
		UserID:      criteria.UserID,
		RedirectURI: criteria.RedirectURI,
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}
	if criteria.Scopes != nil {
		c.Scopes = kvx.Canonical(criteria.Scopes)
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Find redeems a code. A matching, unexpired code is returned once and is
// gone afterwards; expired codes are deleted and never returned.
func (s *CodeService) Find(ctx context.Context, criteria authcode.Criteria) (*authcode.Code, error) {
	defer logx.Track("authcode.Find")()

	if criteria.ID == "" {
		return nil, nil
	}
	c, taken, err := s.repo.Take(ctx, criteria)
	if err != nil || c == nil {
		return nil, err
	}

	if c.Expired(s.now()) {
		if !taken {
			if err := s.repo.Remove(ctx, c.ID); err != nil {
				return nil, err
			}
		}
		logx.WithField("code_id", criteria.ID).Debug("authcode: expired code purged")
		return nil, nil
	}
	if !taken {
		return nil, nil
	}
	return c, nil
}
