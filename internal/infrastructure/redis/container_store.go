package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/domain/offline"
	"github.com/Abanoub20130019/Video-Task-Managment-App-sub000/internal/core/ports"
)

// ContainerStore implements ports.CacheContainers on Redis. Each container
// is a hash of canonical request key -> JSON captured response, paired with
// a "<name>:order" sorted set scored by insertion time so the oldest entry
// can be evicted on constrained clients.
type ContainerStore struct {
	client redis.Cmdable
	logger *logrus.Logger
}

const orderSuffix = ":order"

func NewContainerStore(client redis.Cmdable, logger *logrus.Logger) ports.CacheContainers {
	return &ContainerStore{client: client, logger: logger}
}

func (s *ContainerStore) Get(ctx context.Context, container, key string) (*offline.CapturedResponse, bool, error) {
	raw, err := s.client.HGet(ctx, container, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache container %s: %w", container, err)
	}
	var resp offline.CapturedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		// A corrupt entry is treated as a miss, not a hard failure.
		s.logger.WithFields(logrus.Fields{"container": container, "key": key}).WithError(err).Warn("dropping corrupt cache entry")
		_ = s.Delete(ctx, container, key)
		return nil, false, nil
	}
	return &resp, true, nil
}

func (s *ContainerStore) Put(ctx context.Context, container, key string, resp *offline.CapturedResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := s.client.HSet(ctx, container, key, raw).Err(); err != nil {
		return fmt.Errorf("failed to store cache entry in %s: %w", container, err)
	}
	score := float64(resp.CapturedAt.UnixNano())
	if err := s.client.ZAdd(ctx, container+orderSuffix, &redis.Z{Score: score, Member: key}).Err(); err != nil {
		return fmt.Errorf("failed to record insertion order for %s: %w", container, err)
	}
	return nil
}

func (s *ContainerStore) Delete(ctx context.Context, container, key string) error {
	if err := s.client.HDel(ctx, container, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry from %s: %w", container, err)
	}
	_ = s.client.ZRem(ctx, container+orderSuffix, key).Err()
	return nil
}

func (s *ContainerStore) Len(ctx context.Context, container string) (int, error) {
	n, err := s.client.HLen(ctx, container).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries in %s: %w", container, err)
	}
	return int(n), nil
}

// EvictOldest removes the entry with the lowest insertion score.
func (s *ContainerStore) EvictOldest(ctx context.Context, container string) error {
	keys, err := s.client.ZRange(ctx, container+orderSuffix, 0, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to find oldest entry in %s: %w", container, err)
	}
	if len(keys) == 0 {
		return nil
	}
	s.logger.WithFields(logrus.Fields{"container": container, "key": keys[0]}).Debug("evicting oldest cache entry")
	return s.Delete(ctx, container, keys[0])
}

func (s *ContainerStore) List(ctx context.Context, prefix string) ([]string, error) {
	var (
		names  []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate cache containers: %w", err)
		}
		for _, name := range batch {
			// Order zsets are bookkeeping, not containers.
			if len(name) > len(orderSuffix) && name[len(name)-len(orderSuffix):] == orderSuffix {
				continue
			}
			names = append(names, name)
		}
		cursor = next
		if cursor == 0 {
			return names, nil
		}
	}
}

func (s *ContainerStore) Drop(ctx context.Context, container string) error {
	if err := s.client.Del(ctx, container, container+orderSuffix).Err(); err != nil {
		return fmt.Errorf("failed to drop cache container %s: %w", container, err)
	}
	return nil
}
