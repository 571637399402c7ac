package reconxredis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Abraxas-365/gatekeep/pkg/iam/keyspace"
	"github.com/Abraxas-365/gatekeep/pkg/reconx"
)

// Queue implements reconx.Queue with a ready list, a scheduled zset scored
// by unix seconds and one string per task.
type Queue struct {
	rdb  redis.UniversalClient
	keys keyspace.Keys
}

var _ reconx.Queue = (*Queue)(nil)

func New(rdb redis.UniversalClient, keys keyspace.Keys) *Queue {
	return &Queue{rdb: rdb, keys: keys}
}

func (q *Queue) Push(ctx context.Context, task reconx.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return redisErrors.NewWithCause(ErrEncoding, err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, q.keys.ReconTask(task.ID), data, 0)
	pipe.LPush(ctx, q.keys.ReconQueue(), task.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErrors.NewWithCause(ErrPush, err).WithDetail("task_id", task.ID)
	}
	return nil
}

func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*reconx.Task, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.keys.ReconQueue()).Result()
	if errors.Is(err, redis.Nil) || ctx.Err() != nil {
		return nil, nil
	}
	if err != nil {
		return nil, redisErrors.NewWithCause(ErrPop, err)
	}

	id := res[1]
	data, err := q.rdb.Get(ctx, q.keys.ReconTask(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		// acked while still listed
		return nil, nil
	}
	if err != nil {
		return nil, redisErrors.NewWithCause(ErrPop, err).WithDetail("task_id", id)
	}

	var task reconx.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, redisErrors.NewWithCause(ErrEncoding, err).WithDetail("task_id", id)
	}
	task.Attempts++
	task.UpdatedAt = time.Now().UTC()

	if err := q.save(ctx, task); err != nil {
		return nil, redisErrors.NewWithCause(ErrPop, err).WithDetail("task_id", id)
	}
	return &task, nil
}

func (q *Queue) Ack(ctx context.Context, id string) error {
	if err := q.rdb.Del(ctx, q.keys.ReconTask(id)).Err(); err != nil {
		return redisErrors.NewWithCause(ErrAck, err).WithDetail("task_id", id)
	}
	return nil
}

func (q *Queue) Retry(ctx context.Context, task reconx.Task, delay time.Duration) error {
	data, err := json.Marshal(task)
	if err != nil {
		return redisErrors.NewWithCause(ErrEncoding, err)
	}
	score := float64(time.Now().UTC().Add(delay).Unix())

	pipe := q.rdb.TxPipeline()
	pipe.Set(ctx, q.keys.ReconTask(task.ID), data, 0)
	pipe.ZAdd(ctx, q.keys.ReconScheduled(), redis.Z{Score: score, Member: task.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return redisErrors.NewWithCause(ErrRetry, err).WithDetail("task_id", task.ID)
	}
	return nil
}

var promoteScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(ids) do
  redis.call('LPUSH', KEYS[2], id)
end
if #ids > 0 then
  redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
end
return #ids
`)

func (q *Queue) PromoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UTC().Unix(), 10)
	err := promoteScript.Run(ctx, q.rdb, []string{q.keys.ReconScheduled(), q.keys.ReconQueue()}, now).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return redisErrors.NewWithCause(ErrPromote, err)
	}
	return nil
}

func (q *Queue) save(ctx context.Context, task reconx.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.rdb.Set(ctx, q.keys.ReconTask(task.ID), data, 0).Err()
}
