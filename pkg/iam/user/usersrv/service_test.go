package usersrv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/gatekeep/pkg/config"
	"github.com/Abraxas-365/gatekeep/pkg/cryptox"
	"github.com/Abraxas-365/gatekeep/pkg/errx"
	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/iam/user"
	"github.com/Abraxas-365/gatekeep/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/gatekeep/pkg/kernel"
	"github.com/Abraxas-365/gatekeep/pkg/kvx/kvxmemory"
	"github.com/Abraxas-365/gatekeep/pkg/reconx"
	"github.com/Abraxas-365/gatekeep/pkg/reconx/reconxmemory"
	"github.com/Abraxas-365/gatekeep/pkg/schemax"
)

var keys = keyspace.New("EG")

type cascade struct {
	mu          sync.Mutex
	deactivated []kernel.UserID
	removed     []kernel.UserID
	credentials []string
	failRemove  bool
}

func (c *cascade) DeactivateAll(_ context.Context, id kernel.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deactivated = append(c.deactivated, id)
	return nil
}

func (c *cascade) RemoveAll(_ context.Context, id kernel.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failRemove {
		return errors.New("store down")
	}
	c.removed = append(c.removed, id)
	return nil
}

func (c *cascade) RemoveAllCredentials(_ context.Context, consumerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credentials = append(c.credentials, consumerID)
	return nil
}

type fixture struct {
	store   *kvxmemory.Store
	cascade *cascade
	queue   *reconxmemory.Queue
	svc     *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kvxmemory.New()
	models := config.DefaultModels()
	v := schemax.New()
	require.NoError(t, v.Register(SchemaRef, models.Users))

	queue := reconxmemory.New()
	runner := reconx.NewRunner(queue, cryptox.NewCompactID)
	c := &cascade{}
	svc := NewUserService(userinfra.NewKVUserRepository(store, keys), models.Users, v, c, c, runner, cryptox.NewID)
	return &fixture{store: store, cascade: c, queue: queue, svc: svc}
}

func props(username string) map[string]any {
	return map[string]any{"username": username, "firstname": "Ada", "lastname": "Lovelace"}
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var e *errx.Error
	require.True(t, errx.As(err, &e), "expected errx.Error, got %v", err)
	return e.Code
}

func TestInsertAndLookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Insert(ctx, props("ada"))
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.True(t, u.IsActive)
	assert.Equal(t, "Ada", u.Properties["firstname"])

	byName, err := f.svc.Find(ctx, "ada")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, "Lovelace", byName.Properties["lastname"])

	byID, err := f.svc.FindByUsernameOrID(ctx, u.ID.String())
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "ada", byID.Username)

	missing, err := f.svc.Find(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInsertRejectsDuplicateUsername(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Insert(ctx, props("ada"))
	require.NoError(t, err)
	_, err = f.svc.Insert(ctx, props("ada"))
	assert.Equal(t, user.CodeUsernameTaken.Code, codeOf(t, err))
}

func TestInsertValidatesModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Insert(ctx, map[string]any{"username": "ada"})
	assert.Equal(t, user.CodeInvalidProperties.Code, codeOf(t, err))

	p := props("ada")
	p["shoeSize"] = "42"
	_, err = f.svc.Insert(ctx, p)
	assert.Equal(t, user.CodeInvalidProperties.Code, codeOf(t, err))
}

func TestFindRejectsEmptyUsername(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Find(context.Background(), "")
	assert.Equal(t, user.CodeInvalidUser.Code, codeOf(t, err))
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Insert(ctx, props("ada"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Update(ctx, u.ID, map[string]any{"username": "ignored", "email": "ada@example.com"}))
	got, err := f.svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Username)
	assert.Equal(t, "ada@example.com", got.Properties["email"])
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	err = f.svc.Update(ctx, u.ID, map[string]any{"nickname": "a"})
	assert.Equal(t, user.CodeInvalidProperties.Code, codeOf(t, err))

	err = f.svc.Update(ctx, kernel.NewUserID("missing"), map[string]any{"email": "x"})
	assert.Equal(t, user.CodeNotFound.Code, codeOf(t, err))

	assert.NoError(t, f.svc.Update(ctx, u.ID, map[string]any{"username": "only"}))
}

func TestDeactivateCascadesToApplications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Insert(ctx, props("ada"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Deactivate(ctx, u.ID))
	got, err := f.svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Equal(t, []kernel.UserID{u.ID}, f.cascade.deactivated)

	require.NoError(t, f.svc.Activate(ctx, u.ID))
	got, err = f.svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestRemoveCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Insert(ctx, props("ada"))
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, u.ID))
	got, err := f.svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	found, err := f.svc.Find(ctx, "ada")
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.Equal(t, []kernel.UserID{u.ID}, f.cascade.removed)
	assert.Equal(t, []string{u.ID.String()}, f.cascade.credentials)

	err = f.svc.Remove(ctx, u.ID)
	assert.Equal(t, user.CodeNotFound.Code, codeOf(t, err))
}

func TestRemoveQueuesFailedCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u, err := f.svc.Insert(ctx, props("ada"))
	require.NoError(t, err)
	f.cascade.failRemove = true

	require.Error(t, f.svc.Remove(ctx, u.ID))
	assert.Equal(t, 1, f.queue.Len())

	f.cascade.failRemove = false
	require.NoError(t, f.svc.Reconcile(ctx, &reconx.Task{Kind: reconx.KindUserRemoval, Subject: []string{u.ID.String()}}))
	assert.Equal(t, []kernel.UserID{u.ID}, f.cascade.removed)
}

func TestFindAllPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := f.svc.Insert(ctx, props(fmt.Sprintf("user%02d", i)))
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	var cursor uint64
	for {
		page, err := f.svc.FindAll(ctx, cursor, 5)
		require.NoError(t, err)
		for _, u := range page.Items {
			seen[u.Username] = true
		}
		if !page.HasNext() {
			break
		}
		cursor = page.NextCursor
	}
	assert.Len(t, seen, 12)
}
