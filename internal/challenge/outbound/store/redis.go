package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gocustody/internal/challenge/entity"
	"github.com/shandysiswandi/gocustody/internal/pkg/hash"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
)

const redisKeyPrefix = "custody:challenge:"

// expiryGrace keeps a key readable at exactly its TTL, matching the other backends.
const expiryGrace = time.Millisecond

const (
	fieldID          = "id"
	fieldTransaction = "tx"
	fieldGuardian    = "guardian"
	fieldNonce       = "nonce"
	fieldIssuedAt    = "issued_at"
	fieldExpiresAt   = "expires_at"
	fieldAttempts    = "attempts"
	fieldMax         = "max"
	fieldConsumed    = "consumed"
)

// Returns -1 for a missing key and max+1 without writing once the ceiling is reached.
var incrementScript = redis.NewScript(`
local max = redis.call('HGET', KEYS[1], 'max')
if not max then
	return -1
end
max = tonumber(max)
local n = tonumber(redis.call('HGET', KEYS[1], 'attempts'))
if n >= max then
	return max + 1
end
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`)

// Returns -1 for a missing key, 0 when already consumed and 1 when this call
// flipped the flag. ARGV[1] is the retention in milliseconds.
var consumeScript = redis.NewScript(`
local c = redis.call('HGET', KEYS[1], 'consumed')
if not c then
	return -1
end
if c == '1' then
	return 0
end
redis.call('HSET', KEYS[1], 'consumed', '1')
local retention = tonumber(ARGV[1])
if retention <= 0 then
	redis.call('DEL', KEYS[1])
	return 1
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 or retention < ttl then
	redis.call('PEXPIRE', KEYS[1], retention)
end
return 1
`)

// Redis stores each challenge as a hash with a native TTL. Attempt counting
// and consumption run as Lua scripts, so each is a single atomic operation.
type Redis struct {
	client redis.UniversalClient
	keyer  keyer
	tracer tracer
}

// NewRedis returns a Redis store. h may be nil to key by raw id.
func NewRedis(client redis.UniversalClient, h hash.Hash, ins instrument.Instrumentation) *Redis {
	return &Redis{
		client: client,
		keyer:  keyer{prefix: redisKeyPrefix, hash: h},
		tracer: tracer{ins: ins},
	}
}

func (r *Redis) Put(ctx context.Context, ch entity.Challenge, ttl time.Duration) (err error) {
	ctx, span := r.tracer.startSpan(ctx, "Put")
	defer func() { r.tracer.endSpan(span, err) }()

	if err = validatePut(ch, ttl); err != nil {
		return err
	}

	key, err := r.keyer.key(ch.ID)
	if err != nil {
		return unavailable(err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldID, ch.ID,
			fieldTransaction, ch.TransactionID,
			fieldGuardian, ch.GuardianID,
			fieldNonce, hex.EncodeToString(ch.Nonce),
			fieldIssuedAt, ch.IssuedAt.UnixNano(),
			fieldExpiresAt, ch.ExpiresAt.UnixNano(),
			fieldAttempts, ch.AttemptCount,
			fieldMax, ch.MaxAttempts,
			fieldConsumed, boolField(ch.Consumed),
		)
		pipe.PExpire(ctx, key, ttl+expiryGrace)
		return nil
	})
	return unavailable(err)
}

func (r *Redis) Get(ctx context.Context, id string) (_ *entity.Challenge, err error) {
	ctx, span := r.tracer.startSpan(ctx, "Get")
	defer func() { r.tracer.endSpan(span, err) }()

	key, err := r.keyer.key(id)
	if err != nil {
		return nil, unavailable(err)
	}

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(fields) == 0 {
		return nil, entity.ErrChallengeNotFound
	}

	ch, err := decodeHash(fields)
	if err != nil {
		return nil, unavailable(err)
	}
	return ch, nil
}

func (r *Redis) Delete(ctx context.Context, id string) (err error) {
	ctx, span := r.tracer.startSpan(ctx, "Delete")
	defer func() { r.tracer.endSpan(span, err) }()

	key, err := r.keyer.key(id)
	if err != nil {
		return unavailable(err)
	}

	return unavailable(r.client.Del(ctx, key).Err())
}

func (r *Redis) CompareAndIncrementAttempt(ctx context.Context, id string) (_ int, err error) {
	ctx, span := r.tracer.startSpan(ctx, "CompareAndIncrementAttempt")
	defer func() { r.tracer.endSpan(span, err) }()

	key, err := r.keyer.key(id)
	if err != nil {
		return 0, unavailable(err)
	}

	n, err := incrementScript.Run(ctx, r.client, []string{key}).Int()
	if err != nil {
		return 0, unavailable(err)
	}
	if n < 0 {
		return 0, entity.ErrChallengeNotFound
	}
	return n, nil
}

func (r *Redis) MarkConsumed(ctx context.Context, id string, retention time.Duration) (_ bool, err error) {
	ctx, span := r.tracer.startSpan(ctx, "MarkConsumed")
	defer func() { r.tracer.endSpan(span, err) }()

	key, err := r.keyer.key(id)
	if err != nil {
		return false, unavailable(err)
	}

	n, err := consumeScript.Run(ctx, r.client, []string{key}, retention.Milliseconds()).Int()
	if err != nil {
		return false, unavailable(err)
	}

	switch n {
	case -1:
		return false, entity.ErrChallengeNotFound
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

var errCorruptRecord = errors.New("store: corrupt challenge record")

func decodeHash(f map[string]string) (*entity.Challenge, error) {
	nonce, err := hex.DecodeString(f[fieldNonce])
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %w", errCorruptRecord, err)
	}

	ints := make(map[string]int64, 4)
	for _, name := range []string{fieldIssuedAt, fieldExpiresAt, fieldAttempts, fieldMax} {
		v, err := strconv.ParseInt(f[name], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errCorruptRecord, name, err)
		}
		ints[name] = v
	}

	return &entity.Challenge{
		ID:            f[fieldID],
		TransactionID: f[fieldTransaction],
		GuardianID:    f[fieldGuardian],
		Nonce:         nonce,
		IssuedAt:      time.Unix(0, ints[fieldIssuedAt]).UTC(),
		ExpiresAt:     time.Unix(0, ints[fieldExpiresAt]).UTC(),
		AttemptCount:  int(ints[fieldAttempts]),
		MaxAttempts:   int(ints[fieldMax]),
		Consumed:      f[fieldConsumed] == "1",
	}, nil
}
