// Package redis stores poller state in a Redis hash.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

const (
	// DefaultKeyPrefix namespaces state keys.
	DefaultKeyPrefix = "exurl:state:"

	fieldEditData  = "edit_data_next"
	fieldEditNote  = "edit_note_next"
	fieldUpdatedAt = "updated_at"
)

// StateStore implements archiver.WatermarkStore on a single Redis hash.
type StateStore struct {
	client *redis.Client
	key    string
}

var _ archiver.WatermarkStore = (*StateStore)(nil)

// NewStateStore parses redisURL, checks connectivity and returns a store for
// the named state.
func NewStateStore(ctx context.Context, redisURL, name string) (*StateStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewStateStoreWithClient(client, name), nil
}

// NewStateStoreWithClient wraps an existing client.
func NewStateStoreWithClient(client *redis.Client, name string) *StateStore {
	if name == "" {
		name = "default"
	}
	return &StateStore{client: client, key: DefaultKeyPrefix + name}
}

// Load implements archiver.WatermarkStore.
func (s *StateStore) Load(ctx context.Context) (archiver.State, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return archiver.State{}, fmt.Errorf("load state: %w", err)
	}
	if len(values) == 0 {
		return archiver.State{}, archiver.ErrStateNotFound
	}

	var st archiver.State
	if st.Watermarks.EditData, err = strconv.ParseInt(values[fieldEditData], 10, 64); err != nil {
		return archiver.State{}, fmt.Errorf("decode %s: %w", fieldEditData, err)
	}
	if st.Watermarks.EditNote, err = strconv.ParseInt(values[fieldEditNote], 10, 64); err != nil {
		return archiver.State{}, fmt.Errorf("decode %s: %w", fieldEditNote, err)
	}
	if raw := values[fieldUpdatedAt]; raw != "" {
		if st.UpdatedAt, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return archiver.State{}, fmt.Errorf("decode %s: %w", fieldUpdatedAt, err)
		}
	}
	return st, nil
}

// Save implements archiver.WatermarkStore.
func (s *StateStore) Save(ctx context.Context, st archiver.State) error {
	err := s.client.HSet(ctx, s.key,
		fieldEditData, strconv.FormatInt(st.Watermarks.EditData, 10),
		fieldEditNote, strconv.FormatInt(st.Watermarks.EditNote, 10),
		fieldUpdatedAt, st.UpdatedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *StateStore) Close() error {
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
