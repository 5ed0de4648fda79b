package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "meteo:record:"

	// optimistic transaction attempts per update
	maxTxAttempts = 16
)

// RedisStore keeps one JSON record per location under <prefix><key>.
// Updates run inside WATCH/MULTI so concurrent writers never lose an entry.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewRedisStore creates a store on client. An empty prefix uses DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string, logger *slog.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "forecast-redis-store"),
	}
}

// Load reads the record for key. A missing or corrupt value yields an empty
// record and no error.
func (s *RedisStore) Load(ctx context.Context, key string) (Record, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	return s.decode(key, data, err)
}

// Update merges payload into the record for key and writes it back.
// The write is dropped and retried when the record changed in between.
func (s *RedisStore) Update(ctx context.Context, key string, payload []byte) (Record, error) {
	rk := s.prefix + key
	ts := TimestampKey(payload)

	var merged Record
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, rk).Bytes()
		existing, err := s.decode(key, data, err)
		if err != nil {
			return err
		}

		merged = Merge(&existing, payload, ts)
		encoded, err := codec.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, encoded, 0)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, rk)
		if err == nil {
			s.logger.Debug("stored forecast",
				"key", key,
				"timestamp", ts,
				"history_entries", len(merged.History),
				"attempts", attempt,
			)
			return merged, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return Record{}, fmt.Errorf("failed to update record %q: %w", key, err)
		}
	}

	return Record{}, fmt.Errorf("failed to update record %q: still contended after %d attempts", key, maxTxAttempts)
}

func (s *RedisStore) decode(key string, data []byte, err error) (Record, error) {
	if errors.Is(err, redis.Nil) {
		return NewRecord(), nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read record %q: %w", key, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		s.logger.Warn("discarding corrupt forecast record", "key", key, "error", err)
		return NewRecord(), nil
	}
	return rec, nil
}
