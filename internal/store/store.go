// Package store keeps the live trip on the device between restarts. The
// Redis implementation is used when REDIS_ADDR is set; Memory otherwise.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// ConnectRedis returns a client for addr, or nil when addr is empty.
func ConnectRedis(addr, password string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// Redis stores the trip as a JSON document under one key per device.
type Redis struct {
	rdb *redis.Client
	key string
}

// NewRedis creates a store for deviceID.
func NewRedis(rdb *redis.Client, deviceID string) *Redis {
	return &Redis{rdb: rdb, key: Key(deviceID)}
}

// Key is the Redis key holding the trip of deviceID.
func Key(deviceID string) string {
	return "logbook:device:" + deviceID + ":trip"
}

// Load returns the stored trip. ok is false when nothing is stored.
func (s *Redis) Load(ctx context.Context) (domain.Trip, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Trip{}, false, nil
	}
	if err != nil {
		return domain.Trip{}, false, fmt.Errorf("store.Redis.Load: %w", err)
	}
	var trip domain.Trip
	if err := json.Unmarshal(raw, &trip); err != nil {
		return domain.Trip{}, false, fmt.Errorf("store.Redis.Load: decode: %w", err)
	}
	return trip, true, nil
}

// Persist overwrites the stored trip.
func (s *Redis) Persist(ctx context.Context, trip domain.Trip) error {
	raw, err := json.Marshal(trip)
	if err != nil {
		return fmt.Errorf("store.Redis.Persist: encode: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("store.Redis.Persist: %w", err)
	}
	return nil
}

// Clear removes the stored trip.
func (s *Redis) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("store.Redis.Clear: %w", err)
	}
	return nil
}

// Memory is a process-local store. Nothing survives a restart.
type Memory struct {
	mu   sync.Mutex
	trip *domain.Trip
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(context.Context) (domain.Trip, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return domain.Trip{}, false, nil
	}
	return m.trip.Clone(), true, nil
}

func (m *Memory) Persist(_ context.Context, trip domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := trip.Clone()
	m.trip = &c
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trip = nil
	return nil
}
