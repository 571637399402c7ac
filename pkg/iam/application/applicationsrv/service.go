package applicationsrv

import (
	"context"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/asyncx"
	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/iam/application"
	"github.com/Abraxas-365/gatekeep/pkg/iam/user"
	"github.com/Abraxas-365/gatekeep/pkg/kernel"
	"github.com/Abraxas-365/gatekeep/pkg/kvx"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
	"github.com/Abraxas-365/gatekeep/pkg/reconx"
	"github.com/Abraxas-365/gatekeep/pkg/schemax"
)

// SchemaRef is the validator reference of the application model.
const SchemaRef = "applications"

const (
	defaultPageSize = 100
	propName        = "name"
)

// Users resolves application owners. It returns nil for an unknown id.
type Users interface {
	FindByID(ctx context.Context, id kernel.UserID) (*user.User, error)
}

// Credentials is the cascade target for an application's credentials.
type Credentials interface {
	RemoveAllCredentials(ctx context.Context, consumerID string) error
}

type ApplicationService struct {
	repo        application.Repository
	model       config.Model
	validator   schemax.Validator
	users       Users
	credentials Credentials
	recon       reconx.Enqueuer
	newID       func() string
	now         func() time.Time
}

// NewApplicationService builds an ApplicationService validating against the
// applications model.
func NewApplicationService(
	repo application.Repository,
	model config.Model,
	validator schemax.Validator,
	users Users,
	credentials Credentials,
	recon reconx.Enqueuer,
	newID func() string,
) *ApplicationService {
	return &ApplicationService{
		repo:        repo,
		model:       model,
		validator:   validator,
		users:       users,
		credentials: credentials,
		recon:       recon,
		newID:       newID,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Insert creates an active application owned by userID. An owner may not
// hold two applications with the same name.
func (s *ApplicationService) Insert(ctx context.Context, userID kernel.UserID, props map[string]any) (*application.Application, error) {
	defer logx.Track("application.Insert")()

	if userID.IsEmpty() || props == nil {
		return nil, application.ErrInvalidApplication()
	}
	if res := s.validator.Validate(SchemaRef, props); !res.IsValid {
		return nil, application.ErrInvalidProperties(res.Error)
	}
	name, _ := props[propName].(string)
	if name == "" {
		return nil, application.ErrInvalidProperties("name is required")
	}

	owner, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, application.ErrUserNotFound(userID.String())
	}
	if err := s.checkName(ctx, userID, name); err != nil {
		return nil, err
	}

	now := s.now()
	a := &application.Application{
		ID:         kernel.NewApplicationID(s.newID()),
		Name:       name,
		UserID:     userID,
		IsActive:   true,
		Properties: extraProperties(props),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	replies, err := s.repo.Save(ctx, a)
	if err != nil {
		return nil, err
	}
	if !replies.OK() {
		return nil, application.ErrWriteFailed("insert")
	}

	logx.WithFields(logx.Fields{"application_id": a.ID, "user_id": userID, "name": name}).Info("application created")
	return a, nil
}

func (s *ApplicationService) checkName(ctx context.Context, userID kernel.UserID, name string) error {
	ids, err := s.repo.IDsByName(ctx, name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		other, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if other != nil && other.UserID == userID {
			return application.ErrNameTaken(userID.String(), name)
		}
	}
	return nil
}

// Get returns nil when the application does not exist.
func (s *ApplicationService) Get(ctx context.Context, id kernel.ApplicationID) (*application.Application, error) {
	if id.IsEmpty() {
		return nil, nil
	}
	return s.repo.FindByID(ctx, id)
}

// Find resolves an application name. It fails when more than one
// application carries the name.
func (s *ApplicationService) Find(ctx context.Context, name string) (*application.Application, error) {
	defer logx.Track("application.Find")()

	if name == "" {
		return nil, application.ErrInvalidApplication().WithDetail("reason", "invalid name")
	}
	ids, err := s.repo.IDsByName(ctx, name)
	if err != nil {
		return nil, err
	}
	switch len(ids) {
	case 0:
		return nil, nil
	case 1:
		return s.repo.FindByID(ctx, ids[0])
	default:
		return nil, application.ErrAmbiguousName(name)
	}
}

// FindByNameOrID tries value as an id first, then as a name.
func (s *ApplicationService) FindByNameOrID(ctx context.Context, value string) (*application.Application, error) {
	a, err := s.Get(ctx, kernel.NewApplicationID(value))
	if err != nil || a != nil {
		return a, err
	}
	return s.Find(ctx, value)
}

// GetAll returns the applications owned by userID.
func (s *ApplicationService) GetAll(ctx context.Context, userID kernel.UserID) ([]*application.Application, error) {
	defer logx.Track("application.GetAll")()

	ids, err := s.repo.IDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	found, err := asyncx.Map(ctx, ids, s.repo.FindByID)
	if err != nil {
		return nil, err
	}
	apps := make([]*application.Application, 0, len(found))
	for _, a := range found {
		if a != nil {
			apps = append(apps, a)
		}
	}
	return apps, nil
}

// FindAll pages through every application using a scan cursor.
func (s *ApplicationService) FindAll(ctx context.Context, cursor uint64, count int64) (application.Page, error) {
	defer logx.Track("application.FindAll")()

	if count <= 0 {
		count = defaultPageSize
	}
	return s.repo.List(ctx, cursor, count)
}

// Update writes mutable declared properties. A changed name moves the
// name index and is checked against the owner's other applications.
func (s *ApplicationService) Update(ctx context.Context, id kernel.ApplicationID, props map[string]any) error {
	defer logx.Track("application.Update")()

	if id.IsEmpty() || props == nil {
		return application.ErrInvalidApplication()
	}
	a, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}

	fields := kvx.Fields{}
	for name, v := range props {
		p, ok := s.model.Properties[name]
		if !ok {
			return application.ErrInvalidProperties("unknown property " + name)
		}
		if !p.Mutable() {
			return application.ErrImmutable(name)
		}
		if !fields.SetValue(name, v) {
			return application.ErrInvalidProperties("unsupported value for " + name)
		}
	}

	now := s.now()
	if name, ok := fields[propName]; ok {
		delete(fields, propName)
		if name == "" {
			return application.ErrInvalidProperties("name is required")
		}
		if name != a.Name {
			if err := s.checkName(ctx, a.UserID, name); err != nil {
				return err
			}
			replies, err := s.repo.Rename(ctx, a, name, now)
			if err != nil {
				return err
			}
			if !replies.OK() {
				return application.ErrWriteFailed("rename")
			}
		}
	}
	if fields.Empty() {
		return nil
	}
	return s.repo.Update(ctx, id, fields, now)
}

func (s *ApplicationService) Activate(ctx context.Context, id kernel.ApplicationID) error {
	defer logx.Track("application.Activate")()

	if _, err := s.mustGet(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, true, s.now())
}

func (s *ApplicationService) Deactivate(ctx context.Context, id kernel.ApplicationID) error {
	defer logx.Track("application.Deactivate")()

	if _, err := s.mustGet(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, false, s.now())
}

// DeactivateAll deactivates every application owned by userID. Stale owner
// index entries are skipped.
func (s *ApplicationService) DeactivateAll(ctx context.Context, userID kernel.UserID) error {
	defer logx.Track("application.DeactivateAll")()

	apps, err := s.GetAll(ctx, userID)
	if err != nil {
		return err
	}
	now := s.now()
	return asyncx.ForEach(ctx, apps, func(ctx context.Context, a *application.Application) error {
		return s.repo.SetActive(ctx, a.ID, false, now)
	})
}

// Remove deletes the application and then its credentials. A failed
// credential cascade is queued for reconciliation and reported.
func (s *ApplicationService) Remove(ctx context.Context, id kernel.ApplicationID) error {
	defer logx.Track("application.Remove")()

	a, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, a)
}

func (s *ApplicationService) remove(ctx context.Context, a *application.Application) error {
	replies, err := s.repo.Remove(ctx, a)
	if err != nil {
		return err
	}
	if !replies.OK() {
		logx.WithFields(logx.Fields{"application_id": a.ID, "replies": replies}).Debug("application: some index entries were already gone")
	}

	if err := s.credentials.RemoveAllCredentials(ctx, a.ID.String()); err != nil {
		logx.WithError(err).WithField("application_id", a.ID).Warn("application: credential cascade failed")
		s.requeue(ctx, a.ID)
		return err
	}
	logx.WithField("application_id", a.ID).Info("application removed")
	return nil
}

// RemoveAll removes every application owned by userID, credentials
// included.
func (s *ApplicationService) RemoveAll(ctx context.Context, userID kernel.UserID) error {
	defer logx.Track("application.RemoveAll")()

	apps, err := s.GetAll(ctx, userID)
	if err != nil {
		return err
	}
	return asyncx.ForEach(ctx, apps, s.remove)
}

// Reconcile re-runs the credential cascade of a queued application removal.
func (s *ApplicationService) Reconcile(ctx context.Context, task *reconx.Task) error {
	for _, id := range task.Subject {
		if err := s.credentials.RemoveAllCredentials(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *ApplicationService) requeue(ctx context.Context, id kernel.ApplicationID) {
	if s.recon == nil {
		return
	}
	if err := s.recon.Enqueue(ctx, reconx.KindApplicationRemoval, id.String()); err != nil {
		logx.WithError(err).WithField("application_id", id).Error("application: could not queue cascade")
	}
}

func (s *ApplicationService) mustGet(ctx context.Context, id kernel.ApplicationID) (*application.Application, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, application.ErrNotFound(id.String())
	}
	return a, nil
}

func extraProperties(props map[string]any) map[string]string {
	f := kvx.Fields{}
	for k, v := range props {
		if k != propName {
			f.SetValue(k, v)
		}
	}
	if f.Empty() {
		return nil
	}
	return f
}
