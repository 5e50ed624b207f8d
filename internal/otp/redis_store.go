package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "otp:challenge:"

// verifyScript runs the whole compare-and-increment as one atomic unit on
// the redis side, so parallel guesses against the same key serialize there.
var verifyScript = redis.NewScript(`
local code = redis.call('HGET', KEYS[1], 'code')
if not code then
  return {'missing', ''}
end
local expires = tonumber(redis.call('HGET', KEYS[1], 'expires'))
if tonumber(ARGV[2]) > expires then
  redis.call('DEL', KEYS[1])
  return {'expired', ''}
end
local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0')
if attempts >= tonumber(ARGV[3]) then
  redis.call('DEL', KEYS[1])
  return {'exhausted', ''}
end
if code == ARGV[1] then
  local payload = redis.call('HGET', KEYS[1], 'payload') or ''
  redis.call('DEL', KEYS[1])
  return {'matched', payload}
end
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return {'mismatch', ''}
`)

// RedisStore keeps challenges in redis with a per-key TTL. Correctness does
// not depend on single-process affinity and survives application restarts.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore creates a redis-backed challenge store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ctx: context.Background()}
}

// Put stores or replaces the challenge for a key
func (s *RedisStore) Put(key string, challenge Challenge) error {
	payload, err := json.Marshal(challenge.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge payload: %w", err)
	}

	rkey := redisKeyPrefix + key
	pipe := s.client.TxPipeline()
	pipe.Del(s.ctx, rkey)
	pipe.HSet(s.ctx, rkey, map[string]interface{}{
		"code":     challenge.Code,
		"expires":  challenge.ExpiresAt.Unix(),
		"attempts": challenge.Attempts,
		"payload":  string(payload),
	})
	// TTL slightly past the logical expiry; the script checks the stored
	// timestamp so the distinction between expired and missing survives
	// until redis reclaims the key.
	pipe.Expire(s.ctx, rkey, time.Until(challenge.ExpiresAt)+time.Minute)
	if _, err := pipe.Exec(s.ctx); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Get returns the challenge for a key, or nil when absent
func (s *RedisStore) Get(key string) (*Challenge, error) {
	fields, err := s.client.HGetAll(s.ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	expires, err := strconv.ParseInt(fields["expires"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt challenge expiry: %w", err)
	}
	attempts, _ := strconv.Atoi(fields["attempts"])

	var payload Payload
	if raw := fields["payload"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("corrupt challenge payload: %w", err)
		}
	}

	return &Challenge{
		Code:      fields["code"],
		ExpiresAt: time.Unix(expires, 0),
		Attempts:  attempts,
		Payload:   payload,
	}, nil
}

// Delete discards the challenge for a key
func (s *RedisStore) Delete(key string) error {
	if err := s.client.Del(s.ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

// Verify runs the atomic compare-and-increment script
func (s *RedisStore) Verify(key, code string, now time.Time, maxAttempts int) (Outcome, Payload, error) {
	raw, err := verifyScript.Run(s.ctx, s.client,
		[]string{redisKeyPrefix + key},
		code, now.Unix(), maxAttempts).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", nil, fmt.Errorf("failed to run verify script: %w", err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) < 2 {
		return "", nil, fmt.Errorf("unexpected verify script reply: %v", raw)
	}

	outcome := Outcome(fmt.Sprint(reply[0]))
	if outcome != OutcomeMatched {
		return outcome, nil, nil
	}

	var payload Payload
	if encoded := fmt.Sprint(reply[1]); encoded != "" {
		if err := json.Unmarshal([]byte(encoded), &payload); err != nil {
			return "", nil, fmt.Errorf("corrupt challenge payload: %w", err)
		}
	}
	return OutcomeMatched, payload, nil
}
