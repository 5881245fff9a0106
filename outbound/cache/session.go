package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"motorserve/booking"
	"motorserve/common/constant"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// SessionCache keeps one FormState snapshot per browser session.
type SessionCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func (c SessionCache) ttl() time.Duration {
	if c.TTL <= 0 {
		return constant.BookingFormDefaultTTL
	}
	return c.TTL
}

// Load returns the stored form for id, or a fresh one when none exists. A
// snapshot left in the sending state by a crashed request is cleared when
// nobody holds the sending lock.
func (c SessionCache) Load(ctx context.Context, id string) (*booking.FormState, error) {
	raw, err := c.Client.Get(ctx, fmt.Sprintf(constant.BookingFormKey, id)).Result()
	if errors.Is(err, redis.Nil) {
		return booking.NewFormState(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking form: %w", err)
	}

	var snap booking.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("decode booking form: %w", err)
	}
	snap.ID = id

	if snap.Sending {
		held, err := c.Client.Exists(ctx, fmt.Sprintf(constant.BookingSendingLock, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("check sending lock: %w", err)
		}
		snap.Sending = held > 0
	}

	return booking.RestoreFormState(snap), nil
}

func (c SessionCache) Save(ctx context.Context, snap booking.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode booking form: %w", err)
	}

	if err := c.Client.Set(ctx, fmt.Sprintf(constant.BookingFormKey, snap.ID), string(data), c.ttl()).Err(); err != nil {
		return fmt.Errorf("set booking form: %w", err)
	}

	return nil
}

// releaseLockScript deletes the lock only while it still holds the caller's
// token, so a holder that outlived the TTL cannot drop its successor's lock.
const releaseLockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// SendingLock is a SETNX lock with a TTL so a crashed holder cannot block a
// session forever.
type SendingLock struct {
	Client *redis.Client
	TTL    time.Duration

	// NewToken defaults to a ulid.
	NewToken func() string
}

func (l SendingLock) Lock(ctx context.Context, key string) (func(), bool, error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = constant.BookingSendingLockDefaultTTL
	}

	token := ulid.Make().String()
	if l.NewToken != nil {
		token = l.NewToken()
	}

	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	unlockCtx := context.WithoutCancel(ctx)
	return func() {
		err := l.Client.Eval(unlockCtx, releaseLockScript, []string{key}, token).Err()
		if err != nil {
			slog.WarnContext(unlockCtx, "failed to release sending lock", slog.String("key", key), slog.Any(constant.LogFieldErr, err))
		}
	}, true, nil
}
