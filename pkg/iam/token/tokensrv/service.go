package tokensrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/asyncx"
	"github.com/Abraxas-365/gatekeep/pkg/cryptox"
	"github.com/Abraxas-365/gatekeep/pkg/iam/token"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
)

// Signer mints JWTs for CreateJWT.
type Signer interface {
	Sign(payload map[string]any) (string, error)
}

type TokenService struct {
	repo       token.Repository
	cipher     cryptox.Cipher
	signer     Signer
	accessTTL  time.Duration
	refreshTTL time.Duration
	newID      func() string
	now        func() time.Time
}

// NewTokenService returns a TokenService. Secrets are stored encrypted with
// cipher; signer backs CreateJWT.
func NewTokenService(
	repo token.Repository,
	cipher cryptox.Cipher,
	signer Signer,
	accessTTL, refreshTTL time.Duration,
	newID func() string,
) *TokenService {
	return &TokenService{
		repo:       repo,
		cipher:     cipher,
		signer:     signer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		newID:      newID,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Save mints new tokens for c. The plaintext secrets are only ever
// returned here, inside the external forms.
func (s *TokenService) Save(ctx context.Context, c token.Criteria, opts token.SaveOptions) (token.Pair, error) {
	defer logx.Track("token.Save")()

	if c.ConsumerID == "" {
		return token.Pair{}, token.ErrInvalidToken().WithDetail("reason", "consumerId is required")
	}

	var pair token.Pair
	if opts.RefreshTokenOnly {
		rt, err := s.mint(ctx, c, token.TypeRefresh)
		if err != nil {
			return token.Pair{}, err
		}
		pair.RefreshToken = rt
		return pair, nil
	}

	types := []token.Type{token.TypeAccess}
	if opts.IncludeRefreshToken {
		types = append(types, token.TypeRefresh)
	}
	minted, err := asyncx.Map(ctx, types, func(ctx context.Context, t token.Type) (string, error) {
		return s.mint(ctx, c, t)
	})
	if err != nil {
		return token.Pair{}, err
	}
	pair.AccessToken = minted[0]
	if len(minted) > 1 {
		pair.RefreshToken = minted[1]
	}
	return pair, nil
}

func (s *TokenService) mint(ctx context.Context, c token.Criteria, t token.Type) (string, error) {
	secret := s.newID()
	encrypted, err := s.cipher.Encrypt(secret)
	if err != nil {
		return "", err
	}

	ttl := s.accessTTL
	if t == token.TypeRefresh {
		ttl = s.refreshTTL
	}
	now := s.now()
	rec := &token.Record{
		ID:              s.newID(),
		Type:            t,
		Criteria:        canonical(c),
		SecretEncrypted: encrypted,
		ExpiresAt:       now.Add(ttl),
		CreatedAt:       now,
	}
	replies, err := s.repo.Save(ctx, rec)
	if err != nil {
		return "", err
	}
	if !replies.OK() {
		return "", token.ErrWriteFailed("save")
	}

	logx.WithFields(logx.Fields{"token_id": rec.ID, "type": t, "consumer_id": c.ConsumerID}).Debug("token issued")
	return rec.ID + token.Separator + secret, nil
}

// Find returns the live tokens issued for exactly c.
func (s *TokenService) Find(ctx context.Context, c token.Criteria, opts token.FindOptions) (token.Pair, error) {
	defer logx.Track("token.Find")()

	if c.ConsumerID == "" {
		return token.Pair{}, token.ErrInvalidToken().WithDetail("reason", "consumerId is required")
	}

	types := []token.Type{token.TypeAccess}
	if opts.IncludeRefreshToken {
		types = append(types, token.TypeRefresh)
	}
	found, err := asyncx.Map(ctx, types, func(ctx context.Context, t token.Type) (string, error) {
		return s.findOne(ctx, c, t)
	})
	if err != nil {
		return token.Pair{}, err
	}

	pair := token.Pair{AccessToken: found[0]}
	if len(found) > 1 {
		pair.RefreshToken = found[1]
	}
	return pair, nil
}

func (s *TokenService) findOne(ctx context.Context, c token.Criteria, t token.Type) (string, error) {
	live, err := s.live(ctx, t, c.ConsumerID)
	if err != nil {
		return "", err
	}
	for _, rec := range live {
		if c.Matches(rec.Criteria.Fields()) {
			return s.external(rec)
		}
	}
	return "", nil
}

// FindOrSave reuses a matching token where one exists. A found access
// token gets a fresh refresh token when one is requested and missing; a
// lone refresh token gets a fresh access token.
func (s *TokenService) FindOrSave(ctx context.Context, c token.Criteria, opts token.SaveOptions) (token.Pair, error) {
	defer logx.Track("token.FindOrSave")()

	pair, err := s.Find(ctx, c, token.FindOptions{IncludeRefreshToken: opts.IncludeRefreshToken})
	if err != nil {
		return token.Pair{}, err
	}

	switch {
	case pair.AccessToken != "":
		if opts.IncludeRefreshToken && pair.RefreshToken == "" {
			rt, err := s.Save(ctx, c, token.SaveOptions{RefreshTokenOnly: true})
			if err != nil {
				return token.Pair{}, err
			}
			pair.RefreshToken = rt.RefreshToken
		}
		return pair, nil
	case pair.RefreshToken != "":
		at, err := s.Save(ctx, c, token.SaveOptions{})
		if err != nil {
			return token.Pair{}, err
		}
		pair.AccessToken = at.AccessToken
		return pair, nil
	default:
		return s.Save(ctx, c, opts)
	}
}

// Get resolves an external token. It returns nil for unknown, malformed or
// expired tokens; expired records are purged on the way.
func (s *TokenService) Get(ctx context.Context, external string, opts token.GetOptions) (*token.Token, error) {
	defer logx.Track("token.Get")()

	id, _, ok := token.ParseExternal(external)
	if !ok {
		return nil, nil
	}
	t := opts.TokenType()
	rec, err := s.repo.FindByID(ctx, t, id)
	if err != nil || rec == nil {
		return nil, err
	}
	if rec.Expired(s.now()) {
		s.purge(ctx, t, rec.Criteria.ConsumerID, rec.ID)
		return nil, nil
	}
	return s.decrypt(rec)
}

// GetTokenObject returns the issuance criteria of a live refresh token.
func (s *TokenService) GetTokenObject(ctx context.Context, refreshToken string) (*token.Criteria, error) {
	t, err := s.Get(ctx, refreshToken, token.GetOptions{Type: token.TypeRefresh})
	if err != nil || t == nil {
		return nil, err
	}
	c := t.Criteria
	return &c, nil
}

// GetTokensByConsumer returns the consumer's live tokens of type t.
func (s *TokenService) GetTokensByConsumer(ctx context.Context, consumerID string, t token.Type) ([]*token.Token, error) {
	defer logx.Track("token.GetTokensByConsumer")()

	live, err := s.live(ctx, t, consumerID)
	if err != nil {
		return nil, err
	}
	out := make([]*token.Token, 0, len(live))
	for _, rec := range live {
		tok, err := s.decrypt(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

// Revoke deletes the token. An unknown token is an error.
func (s *TokenService) Revoke(ctx context.Context, external string, opts token.GetOptions) error {
	defer logx.Track("token.Revoke")()

	t, err := s.Get(ctx, external, opts)
	if err != nil {
		return err
	}
	if t == nil {
		return token.ErrNotFound()
	}
	if _, err := s.repo.Purge(ctx, t.Type, t.ConsumerID, t.ID); err != nil {
		return err
	}
	logx.WithFields(logx.Fields{"token_id": t.ID, "type": t.Type}).Info("token revoked")
	return nil
}

// CreateJWT signs payload with the configured issuer, audience, subject,
// lifetime and algorithm.
func (s *TokenService) CreateJWT(payload map[string]any) (string, error) {
	defer logx.Track("token.CreateJWT")()
	return s.signer.Sign(payload)
}

// live loads the consumer's unexpired records of type t and purges index
// entries whose expiry has passed or whose record is gone.
func (s *TokenService) live(ctx context.Context, t token.Type, consumerID string) ([]*token.Record, error) {
	index, err := s.repo.Index(ctx, t, consumerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var stale []string
	live := make([]*token.Record, 0, len(index))
	for id, expiresAt := range index {
		if expiresAt <= now.UnixMilli() {
			stale = append(stale, id)
			continue
		}
		rec, err := s.repo.FindByID(ctx, t, id)
		if err != nil {
			return nil, err
		}
		if rec == nil || rec.Expired(now) {
			stale = append(stale, id)
			continue
		}
		live = append(live, rec)
	}
	s.purge(ctx, t, consumerID, stale...)
	return live, nil
}

func (s *TokenService) purge(ctx context.Context, t token.Type, consumerID string, ids ...string) {
	if len(ids) == 0 {
		return
	}
	if _, err := s.repo.Purge(ctx, t, consumerID, ids...); err != nil {
		logx.WithError(err).WithField("consumer_id", consumerID).Warn("token: purge of expired tokens failed")
	}
}

func (s *TokenService) decrypt(rec *token.Record) (*token.Token, error) {
	secret, err := s.cipher.Decrypt(rec.SecretEncrypted)
	if err != nil {
		return nil, err
	}
	return &token.Token{
		ID:        rec.ID,
		Type:      rec.Type,
		Criteria:  rec.Criteria,
		Secret:    secret,
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *TokenService) external(rec *token.Record) (string, error) {
	t, err := s.decrypt(rec)
	if err != nil {
		return "", err
	}
	return t.External(), nil
}

func canonical(c token.Criteria) token.Criteria {
	return token.CriteriaFrom(c.Fields())
}
