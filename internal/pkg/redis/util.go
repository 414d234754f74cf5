package redis

import (
	"Postpilot/internal/pkg/consts"
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

const renewScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('pexpire', KEYS[1], ARGV[2]) else return 0 end"

// SetWithExpiration sets key to value, expiration 0 keeps it forever
func SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return Rdb.Set(ctx, key, value, expiration).Err()
}

// GetValue returns "" for a missing key
func GetValue(ctx context.Context, key string) (string, error) {
	value, err := Rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// SetJSON stores v encoded as JSON
func SetJSON(ctx context.Context, key string, v any, expiration time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return SetWithExpiration(ctx, key, b, expiration)
}

// GetJSON decodes key into v, found is false when the key is missing
func GetJSON(ctx context.Context, key string, v any) (found bool, err error) {
	raw, err := GetValue(ctx, key)
	if err != nil || raw == "" {
		return false, err
	}
	if err = json.Unmarshal([]byte(raw), v); err != nil {
		return false, err
	}
	return true, nil
}

// TryLock SET NX with up to retryTimes attempts 200ms apart, -1 retries forever
func TryLock(ctx context.Context, key string, value interface{}, expiration time.Duration, retryTimes int) (bool, error) {
	for i := 0; i < retryTimes || retryTimes == -1; i++ {
		success, err := Rdb.SetNX(ctx, key, value, expiration).Result()
		if err != nil {
			return false, err
		}
		if success {
			return true, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return false, nil
}

// UnLock deletes key only while it still holds value
func UnLock(ctx context.Context, key string, value interface{}) error {
	return Rdb.Eval(ctx, unlockScript, []string{key}, value).Err()
}

// Renew pushes the expiry of key forward only while it still holds value
func Renew(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	n, err := Rdb.Eval(ctx, renewScript, []string{key}, value, expiration.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IsTokenRevoked reports whether the account service revoked the token with this signature
func IsTokenRevoked(ctx context.Context, signature string) (bool, error) {
	value, err := GetValue(ctx, consts.RevokedTokenPrefix+signature)
	if err != nil {
		return false, err
	}
	return value != "", nil
}
