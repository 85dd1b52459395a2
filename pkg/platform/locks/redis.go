package locks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	dErrors "veristay/pkg/domain-errors"
)

// releaseScript deletes the lock key only when it still holds our token, so a
// slow holder cannot release a lock that already expired and was re-acquired.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis implements UserLocker with SET NX and a TTL. Acquisition retries with
// a short delay until the context is cancelled; mutations in this service are
// short-lived so contention windows are small.
type Redis struct {
	client     *redis.Client
	ttl        time.Duration
	retryEvery time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{client: client, ttl: ttl, retryEvery: 25 * time.Millisecond}
}

func (r *Redis) Lock(ctx context.Context, userID string) (func(), error) {
	key := "veristay:userlock:" + userID
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "acquire user lock")
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "user lock contention")
		case <-time.After(r.retryEvery):
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, r.client, []string{key}, token).Err()
	}, nil
}
