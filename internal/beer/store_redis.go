package beer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisKey  = "beers"
	maxWatchAttempts = 16
)

var ErrTooMuchContention = errors.New("beer update: too much contention")

// RedisStore keeps every beer as a JSON value in one hash, keyed by id.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.client.Ping(ctx).Err()
	})
}

func (s *RedisStore) List(ctx context.Context) ([]Beer, error) {
	vals, err := s.client.HVals(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Beer, 0, len(vals))
	for _, v := range vals {
		var b Beer
		if err := json.Unmarshal([]byte(v), &b); err != nil {
			return nil, fmt.Errorf("decode beer: %w", err)
		}
		out = append(out, b)
	}

	sortBeers(out)
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (Beer, bool, error) {
	raw, err := s.client.HGet(ctx, s.key, id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Beer{}, false, nil
	}
	if err != nil {
		return Beer{}, false, err
	}

	var b Beer
	if err := json.Unmarshal(raw, &b); err != nil {
		return Beer{}, false, fmt.Errorf("decode beer %s: %w", id, err)
	}
	return b, true, nil
}

func (s *RedisStore) Put(ctx context.Context, b Beer) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, b.ID.String(), data).Err()
}

// Update retries the optimistic WATCH/MULTI cycle until it commits or the
// attempt budget runs out.
func (s *RedisStore) Update(ctx context.Context, id uuid.UUID, fn func(*Beer)) (Beer, bool, error) {
	var (
		b     Beer
		found bool
	)

	txf := func(tx *redis.Tx) error {
		found = false

		raw, err := tx.HGet(ctx, s.key, id.String()).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		b = Beer{}
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("decode beer %s: %w", id, err)
		}
		fn(&b)
		b.ID = id

		data, err := json.Marshal(b)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, s.key, id.String(), data)
			return nil
		})
		if err == nil {
			found = true
		}
		return err
	}

	for i := 0; i < maxWatchAttempts; i++ {
		err := s.client.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Beer{}, false, err
		}
		if !found {
			return Beer{}, false, nil
		}
		return b, true, nil
	}
	return Beer{}, false, ErrTooMuchContention
}

func (s *RedisStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := s.client.HDel(ctx, s.key, id.String()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
