package credentialsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/asyncx"
	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/iam/credential"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
	"github.com/Abraxas-365/gatekeep/pkg/reconx"
	"github.com/Abraxas-365/gatekeep/pkg/schemax"
)

// ScopeRegistry is the part of the scope service credentials depend on.
type ScopeRegistry interface {
	ValidateExisting(ctx context.Context, names []string) error
	ListAll(ctx context.Context) ([]string, error)
}

type CredentialService struct {
	repo      credential.Repository
	types     *credential.Types
	scopes    ScopeRegistry
	validator schemax.Validator
	recon     reconx.Enqueuer
	now       func() time.Time
}

// NewCredentialService wires the credential repository to the declared types.
// recon may be nil, in which case cascades are not retried.
func NewCredentialService(
	repo credential.Repository,
	types *credential.Types,
	scopes ScopeRegistry,
	validator schemax.Validator,
	recon reconx.Enqueuer,
) *CredentialService {
	return &CredentialService{
		repo:      repo,
		types:     types,
		scopes:    scopes,
		validator: validator,
		recon:     recon,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SchemaRef is the validator reference of a credential type.
func SchemaRef(credType string) string {
	return "credentials:" + credType
}

// RegisterSchemas compiles every type's model, without scopes, into v.
func RegisterSchemas(v *schemax.SchemaValidator, types *credential.Types) error {
	for _, t := range types.All() {
		if err := v.Register(SchemaRef(t.Name), t.Model.Model, config.ScopesProperty); err != nil {
			return err
		}
	}
	return nil
}

// Types exposes the declared credential types.
func (s *CredentialService) Types() *credential.Types {
	return s.types
}

func (s *CredentialService) lookup(id, credType string) (*credential.Type, error) {
	if id == "" || credType == "" {
		return nil, credential.ErrInvalidCredential()
	}
	t, ok := s.types.Lookup(credType)
	if !ok {
		return nil, credential.ErrInvalidType(credType)
	}
	return t, nil
}

// InsertCredential creates a credential of credType for consumerID. A
// generated password is returned in Secret and cannot be read back later.
// An inactive password-bound credential is replaced as a whole; an active
// one, or a key id already in use, is a conflict.
func (s *CredentialService) InsertCredential(ctx context.Context, consumerID, credType string, details map[string]any) (*credential.Credential, error) {
	defer logx.Track("credential.Insert")()

	t, err := s.lookup(consumerID, credType)
	if err != nil {
		return nil, err
	}
	if details == nil {
		details = map[string]any{}
	}

	var replaced *credential.Credential
	if !t.Policy.AllowsMultiple() {
		existing, err := s.repo.FindByID(ctx, t, consumerID)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.IsActive {
			return nil, credential.ErrAlreadyExists().WithDetail("type", credType)
		}
		replaced = existing
	}

	props := withoutScopes(details)
	if res := s.validator.Validate(SchemaRef(credType), props); !res.IsValid {
		return nil, credential.ErrInvalidProperties(res.Error)
	}

	scopes, err := s.resolveScopes(ctx, t, details)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := &credential.Credential{
		Type:       credType,
		ConsumerID: consumerID,
		IsActive:   true,
		Scopes:     scopes,
		Properties: extraProperties(t, props),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	plain, err := t.Policy.Prepare(c, details)
	if err != nil {
		return nil, err
	}

	// a key id names one record across consumers
	if t.Policy.AllowsMultiple() {
		taken, err := s.repo.FindByID(ctx, t, c.ID)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return nil, credential.ErrAlreadyExists().WithDetail("type", credType).WithDetail("keyId", c.ID)
		}
	}

	if err := s.repo.Save(ctx, t, c, replaced); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{"type": credType, "consumer_id": consumerID, "id": c.ID}).Info("credential created")

	out := c.SecretHidden()
	out.Secret = plain
	return out, nil
}

// resolveScopes returns nil when the type has no scopes, the validated
// explicit list when given, otherwise the declared default.
func (s *CredentialService) resolveScopes(ctx context.Context, t *credential.Type, details map[string]any) ([]string, error) {
	if !t.HasScopes() {
		return nil, nil
	}

	if raw, ok := details[config.ScopesProperty]; ok && raw != nil {
		scopes, ok := toStrings(raw)
		if !ok {
			return nil, credential.ErrInvalidProperty(config.ScopesProperty)
		}
		if err := s.scopes.ValidateExisting(ctx, scopes); err != nil {
			return nil, err
		}
		return kvx.Canonical(scopes), nil
	}

	if t.Model.Requires(config.ScopesProperty) {
		return nil, credential.ErrScopesRequired()
	}
	if len(t.Model.DefaultScopes) > 0 {
		return kvx.Canonical(t.Model.DefaultScopes), nil
	}
	return nil, nil
}

// GetCredential returns nil when the credential does not exist.
func (s *CredentialService) GetCredential(ctx context.Context, id, credType string, opts credential.GetOptions) (*credential.Credential, error) {
	defer logx.Track("credential.Get")()

	t, err := s.lookup(id, credType)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, t, id)
	if err != nil || c == nil {
		return nil, err
	}
	if !opts.IncludeSecret {
		c = c.SecretHidden()
	}
	return c, nil
}

// GetCredentials lists every credential of consumerID across all types.
func (s *CredentialService) GetCredentials(ctx context.Context, consumerID string) ([]*credential.Credential, error) {
	defer logx.Track("credential.GetAll")()

	if consumerID == "" {
		return nil, credential.ErrInvalidCredential()
	}

	perType, err := asyncx.Map(ctx, s.types.All(), func(ctx context.Context, t *credential.Type) ([]*credential.Credential, error) {
		return s.ofType(ctx, t, consumerID)
	})
	if err != nil {
		return nil, err
	}

	var out []*credential.Credential
	for _, list := range perType {
		for _, c := range list {
			out = append(out, c.SecretHidden())
		}
	}
	return out, nil
}

func (s *CredentialService) ofType(ctx context.Context, t *credential.Type, consumerID string) ([]*credential.Credential, error) {
	if !t.Policy.AllowsMultiple() {
		c, err := s.repo.FindByID(ctx, t, consumerID)
		if err != nil || c == nil {
			return nil, err
		}
		return []*credential.Credential{c}, nil
	}

	ids, err := s.repo.KeyIDs(ctx, t, consumerID)
	if err != nil {
		return nil, err
	}
	found, err := asyncx.Map(ctx, ids, func(ctx context.Context, id string) (*credential.Credential, error) {
		return s.repo.FindByID(ctx, t, id)
	})
	if err != nil {
		return nil, err
	}
	out := make([]*credential.Credential, 0, len(found))
	for _, c := range found {
		// stale key id left by a partial removal
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CredentialService) mustGet(ctx context.Context, id, credType string) (*credential.Type, *credential.Credential, error) {
	t, err := s.lookup(id, credType)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.repo.FindByID(ctx, t, id)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, credential.ErrNotFound(id, credType)
	}
	return t, c, nil
}

// mustGetScoped is mustGet for the scope operations, which need a type that
// declares scopes.
func (s *CredentialService) mustGetScoped(ctx context.Context, id, credType string) (*credential.Type, *credential.Credential, error) {
	t, c, err := s.mustGet(ctx, id, credType)
	if err != nil {
		return nil, nil, err
	}
	if !t.HasScopes() {
		return nil, nil, credential.ErrInvalidProperty(config.ScopesProperty).WithDetail("type", credType)
	}
	return t, c, nil
}

// UpdateCredential writes the given mutable string properties. Scopes are
// not updatable here. Nothing to write is a no-op.
func (s *CredentialService) UpdateCredential(ctx context.Context, id, credType string, props map[string]any) error {
	defer logx.Track("credential.Update")()

	t, _, err := s.mustGet(ctx, id, credType)
	if err != nil {
		return err
	}

	updates := make(map[string]string)
	for name, raw := range props {
		p, declared := t.Model.Properties[name]
		if !declared || name == config.ScopesProperty {
			return credential.ErrInvalidProperties("unknown property " + name)
		}
		value, ok := raw.(string)
		if !ok {
			return credential.ErrInvalidProperty(name)
		}
		if value == "" {
			continue
		}
		if !p.Mutable() {
			return credential.ErrImmutable(name)
		}
		stored, err := t.Policy.PrepareUpdate(name, value)
		if err != nil {
			return err
		}
		updates[name] = stored
	}
	if len(updates) == 0 {
		return nil
	}
	return s.repo.UpdateFields(ctx, t, id, updates, s.now())
}

// ActivateCredential marks the credential usable for authentication again.
func (s *CredentialService) ActivateCredential(ctx context.Context, id, credType string) error {
	return s.setActive(ctx, id, credType, true)
}

// DeactivateCredential keeps the record but rejects it on authentication.
func (s *CredentialService) DeactivateCredential(ctx context.Context, id, credType string) error {
	return s.setActive(ctx, id, credType, false)
}

func (s *CredentialService) setActive(ctx context.Context, id, credType string, active bool) error {
	defer logx.Track("credential.SetActive")()

	t, _, err := s.mustGet(ctx, id, credType)
	if err != nil {
		return err
	}
	return s.repo.SetActive(ctx, t, id, active, s.now())
}

// AddScopesToCredential grants scopes on top of the existing ones. Every
// scope must be declared.
func (s *CredentialService) AddScopesToCredential(ctx context.Context, id, credType string, scopes []string) error {
	defer logx.Track("credential.AddScopes")()

	t, c, err := s.mustGetScoped(ctx, id, credType)
	if err != nil {
		return err
	}
	if err := s.scopes.ValidateExisting(ctx, scopes); err != nil {
		return err
	}
	merged := kvx.Canonical(append(append([]string{}, c.Scopes...), scopes...))
	return s.repo.SetScopes(ctx, t, id, merged, scopes, nil, s.now())
}

// RemoveScopesFromCredential revokes scopes. Scopes the credential does not
// hold are ignored.
func (s *CredentialService) RemoveScopesFromCredential(ctx context.Context, id, credType string, scopes []string) error {
	defer logx.Track("credential.RemoveScopes")()

	t, c, err := s.mustGetScoped(ctx, id, credType)
	if err != nil {
		return err
	}
	return s.repo.SetScopes(ctx, t, id, difference(c.Scopes, scopes), nil, scopes, s.now())
}

// SetScopesForCredential replaces the scope list.
func (s *CredentialService) SetScopesForCredential(ctx context.Context, id, credType string, scopes []string) error {
	defer logx.Track("credential.SetScopes")()

	t, c, err := s.mustGetScoped(ctx, id, credType)
	if err != nil {
		return err
	}
	if err := s.scopes.ValidateExisting(ctx, scopes); err != nil {
		return err
	}
	return s.repo.SetScopes(ctx, t, id, kvx.Canonical(scopes), scopes, difference(c.Scopes, scopes), s.now())
}

// RemoveCredential deletes one credential and reports whether it existed.
func (s *CredentialService) RemoveCredential(ctx context.Context, id, credType string) (bool, error) {
	defer logx.Track("credential.Remove")()

	t, err := s.lookup(id, credType)
	if err != nil {
		return false, err
	}
	c, err := s.repo.FindByID(ctx, t, id)
	if err != nil || c == nil {
		return false, err
	}
	replies, err := s.repo.Remove(ctx, t, c)
	if err != nil {
		return false, err
	}
	if !replies.OK() {
		logx.WithFields(logx.Fields{"id": id, "type": credType, "replies": []int64(replies)}).
			Debug("credential: removal touched missing keys")
	}
	return true, nil
}

// RemoveAllCredentials deletes every credential of consumerID. Re-running
// it is safe; a storage failure queues another run.
func (s *CredentialService) RemoveAllCredentials(ctx context.Context, consumerID string) error {
	defer logx.Track("credential.RemoveAll")()

	if consumerID == "" {
		return credential.ErrInvalidCredential()
	}
	if err := s.removeAll(ctx, consumerID); err != nil {
		logx.WithError(err).WithField("consumer_id", consumerID).Warn("credential: removal failed part-way")
		s.requeue(ctx, consumerID)
		return err
	}
	return nil
}

func (s *CredentialService) removeAll(ctx context.Context, consumerID string) error {
	declared, err := s.scopes.ListAll(ctx)
	if err != nil {
		return err
	}
	return asyncx.ForEach(ctx, s.types.All(), func(ctx context.Context, t *credential.Type) error {
		ids := []string{consumerID}
		if t.Policy.AllowsMultiple() {
			keyIDs, err := s.repo.KeyIDs(ctx, t, consumerID)
			if err != nil {
				return err
			}
			ids = keyIDs
		}
		_, err := s.repo.RemoveAll(ctx, t, consumerID, ids, declared)
		return err
	})
}

// Reconcile re-runs a queued RemoveAllCredentials.
func (s *CredentialService) Reconcile(ctx context.Context, task *reconx.Task) error {
	for _, consumerID := range task.Subject {
		if err := s.removeAll(ctx, consumerID); err != nil {
			return err
		}
	}
	return nil
}

func (s *CredentialService) requeue(ctx context.Context, consumerID string) {
	if s.recon == nil {
		return
	}
	if err := s.recon.Enqueue(ctx, reconx.KindCredentialsRemoval, consumerID); err != nil {
		logx.WithError(err).WithField("consumer_id", consumerID).Error("credential: could not queue removal")
	}
}

func withoutScopes(details map[string]any) map[string]any {
	out := make(map[string]any, len(details))
	for k, v := range details {
		if k != config.ScopesProperty {
			out[k] = v
		}
	}
	return out
}

// extraProperties keeps the declared properties the policy does not own,
// in their stored string form.
func extraProperties(t *credential.Type, props map[string]any) map[string]string {
	reserved := make(map[string]bool)
	for _, r := range t.Policy.Reserved() {
		reserved[r] = true
	}
	f := kvx.Fields{}
	for k, v := range props {
		if !reserved[k] {
			f.SetValue(k, v)
		}
	}
	if f.Empty() {
		return nil
	}
	return f
}

func toStrings(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case string:
		return []string{v}, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func difference(list, drop []string) []string {
	gone := make(map[string]bool, len(drop))
	for _, d := range drop {
		gone[d] = true
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !gone[v] {
			out = append(out, v)
		}
	}
	return out
}
