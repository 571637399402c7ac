package usersrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/asyncx"
	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/iam/user"
	"github.com/Abraxas-365/gatekeep/pkg/kernel"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
	"github.com/Abraxas-365/gatekeep/pkg/reconx"
	"github.com/Abraxas-365/gatekeep/pkg/schemax"
)

// SchemaRef is the validator reference of the user model.
const SchemaRef = "users"

const defaultPageSize = 100

// Applications is the cascade target for a user's applications.
type Applications interface {
	DeactivateAll(ctx context.Context, userID kernel.UserID) error
	RemoveAll(ctx context.Context, userID kernel.UserID) error
}

// Credentials is the cascade target for a user's credentials.
type Credentials interface {
	RemoveAllCredentials(ctx context.Context, consumerID string) error
}

type UserService struct {
	repo        user.Repository
	model       config.Model
	validator   schemax.Validator
	apps        Applications
	credentials Credentials
	recon       reconx.Enqueuer
	newID       func() string
	now         func() time.Time
}

// NewUserService builds a UserService validating against the users model.
func NewUserService(
	repo user.Repository,
	model config.Model,
	validator schemax.Validator,
	apps Applications,
	credentials Credentials,
	recon reconx.Enqueuer,
	newID func() string,
) *UserService {
	return &UserService{
		repo:        repo,
		model:       model,
		validator:   validator,
		apps:        apps,
		credentials: credentials,
		recon:       recon,
		newID:       newID,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Insert validates props against the user model and creates an active
// user. Usernames are unique.
func (s *UserService) Insert(ctx context.Context, props map[string]any) (*user.User, error) {
	defer logx.Track("user.Insert")()

	if res := s.validator.Validate(SchemaRef, props); !res.IsValid {
		return nil, user.ErrInvalidProperties(res.Error)
	}
	username, _ := props["username"].(string)
	if username == "" {
		return nil, user.ErrInvalidUser().WithDetail("reason", "username is required")
	}

	taken, err := s.repo.IDByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !taken.IsEmpty() {
		return nil, user.ErrUsernameTaken(username)
	}

	now := s.now()
	u := &user.User{
		ID:         kernel.NewUserID(s.newID()),
		Username:   username,
		IsActive:   true,
		Properties: extraProperties(props),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	replies, err := s.repo.Save(ctx, u)
	if err != nil {
		return nil, err
	}
	if !replies.OK() {
		return nil, user.ErrWriteFailed("insert")
	}

	logx.WithFields(logx.Fields{"user_id": u.ID, "username": username}).Info("user created")
	return u, nil
}

// Get returns nil when the user does not exist.
func (s *UserService) Get(ctx context.Context, id kernel.UserID) (*user.User, error) {
	if id.IsEmpty() {
		return nil, nil
	}
	return s.repo.FindByID(ctx, id)
}

// Find resolves a username. It returns nil when the username is unknown.
func (s *UserService) Find(ctx context.Context, username string) (*user.User, error) {
	defer logx.Track("user.Find")()

	if username == "" {
		return nil, user.ErrInvalidUser().WithDetail("reason", "invalid username")
	}
	id, err := s.repo.IDByUsername(ctx, username)
	if err != nil || id.IsEmpty() {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// FindByUsernameOrID tries value as a username first, then as an id.
func (s *UserService) FindByUsernameOrID(ctx context.Context, value string) (*user.User, error) {
	u, err := s.Find(ctx, value)
	if err != nil || u != nil {
		return u, err
	}
	return s.Get(ctx, kernel.NewUserID(value))
}

// FindAll returns one page of a cursor walk over all users. A count of
// zero uses the default page size.
func (s *UserService) FindAll(ctx context.Context, cursor uint64, count int64) (user.Page, error) {
	defer logx.Track("user.FindAll")()

	if count <= 0 {
		count = defaultPageSize
	}
	return s.repo.List(ctx, cursor, count)
}

// Update writes mutable declared properties. The username is never
// updated here.
func (s *UserService) Update(ctx context.Context, id kernel.UserID, props map[string]any) error {
	defer logx.Track("user.Update")()

	if id.IsEmpty() || props == nil {
		return user.ErrInvalidUser()
	}
	if _, err := s.mustGet(ctx, id); err != nil {
		return err
	}

	fields := kvx.Fields{}
	for name, v := range props {
		if name == "username" {
			continue
		}
		p, ok := s.model.Properties[name]
		if !ok {
			return user.ErrInvalidProperties("unknown property " + name)
		}
		if !p.Mutable() {
			return user.ErrImmutable(name)
		}
		if !fields.SetValue(name, v) {
			return user.ErrInvalidProperties("unsupported value for " + name)
		}
	}
	if fields.Empty() {
		return nil
	}
	return s.repo.Update(ctx, id, fields, s.now())
}

// Activate re-enables a deactivated user.
func (s *UserService) Activate(ctx context.Context, id kernel.UserID) error {
	defer logx.Track("user.Activate")()

	if _, err := s.mustGet(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, true, s.now())
}

// Deactivate also deactivates every application the user owns. Credentials
// are left alone.
func (s *UserService) Deactivate(ctx context.Context, id kernel.UserID) error {
	defer logx.Track("user.Deactivate")()

	if _, err := s.mustGet(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, false, s.now()); err != nil {
		return err
	}
	return s.apps.DeactivateAll(ctx, id)
}

// Remove deletes the user, then every application and credential it owns.
// A failed cascade is queued for reconciliation and reported.
func (s *UserService) Remove(ctx context.Context, id kernel.UserID) error {
	defer logx.Track("user.Remove")()

	u, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	replies, err := s.repo.Remove(ctx, u)
	if err != nil {
		return err
	}
	if !replies.OK() {
		return user.ErrWriteFailed("remove")
	}

	if err := s.cascadeRemove(ctx, id); err != nil {
		logx.WithError(err).WithField("user_id", id).Warn("user: cascade failed part-way")
		s.requeue(ctx, id)
		return err
	}
	logx.WithField("user_id", id).Info("user removed")
	return nil
}

func (s *UserService) cascadeRemove(ctx context.Context, id kernel.UserID) error {
	_, err := asyncx.All(ctx,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.apps.RemoveAll(ctx, id)
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.credentials.RemoveAllCredentials(ctx, id.String())
		},
	)
	return err
}

// Reconcile re-runs the cascade half of a queued user removal.
func (s *UserService) Reconcile(ctx context.Context, task *reconx.Task) error {
	for _, id := range task.Subject {
		if err := s.cascadeRemove(ctx, kernel.NewUserID(id)); err != nil {
			return err
		}
	}
	return nil
}

func (s *UserService) requeue(ctx context.Context, id kernel.UserID) {
	if s.recon == nil {
		return
	}
	if err := s.recon.Enqueue(ctx, reconx.KindUserRemoval, id.String()); err != nil {
		logx.WithError(err).WithField("user_id", id).Error("user: could not queue cascade")
	}
}

func (s *UserService) mustGet(ctx context.Context, id kernel.UserID) (*user.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, user.ErrNotFound(id.String())
	}
	return u, nil
}

func extraProperties(props map[string]any) map[string]string {
	f := kvx.Fields{}
	for k, v := range props {
		if k != "username" {
			f.SetValue(k, v)
		}
	}
	if f.Empty() {
		return nil
	}
	return f
}
