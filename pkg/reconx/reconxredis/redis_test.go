package reconxredis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/reconx"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, keyspace.New("EG")), mr
}

func TestPushPopAck(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	task := reconx.Task{ID: "t1", Kind: reconx.KindUserRemoval, Subject: []string{"u1"}, MaxAttempts: 3}
	require.NoError(t, q.Push(ctx, task))
	assert.True(t, mr.Exists("EG-recon:task:t1"))

	got, err := q.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, []string{"u1"}, got.Subject)
	assert.Equal(t, 1, got.Attempts)

	require.NoError(t, q.Ack(ctx, "t1"))
	assert.False(t, mr.Exists("EG-recon:task:t1"))
}

func TestPopEmpty(t *testing.T) {
	q, _ := newTestQueue(t)
	got, err := q.Pop(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRetryAndPromote(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	task := reconx.Task{ID: "t2", Kind: reconx.KindScopeRemoval, Subject: []string{"read"}, Attempts: 1, MaxAttempts: 3}
	require.NoError(t, q.Retry(ctx, task, 0))

	members, err := mr.ZMembers("EG-recon:scheduled")
	require.NoError(t, err)
	assert.Equal(t, []string{"t2"}, members)

	require.NoError(t, q.PromoteDue(ctx))
	members, _ = mr.ZMembers("EG-recon:scheduled")
	assert.Empty(t, members)

	got, err := q.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Attempts)
}

func TestPromoteLeavesFutureTasks(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	task := reconx.Task{ID: "t3", Kind: reconx.KindScopeRemoval, Subject: []string{"read"}, MaxAttempts: 3}
	require.NoError(t, q.Retry(ctx, task, time.Hour))
	require.NoError(t, q.PromoteDue(ctx))

	members, err := mr.ZMembers("EG-recon:scheduled")
	require.NoError(t, err)
	assert.Equal(t, []string{"t3"}, members)
}
