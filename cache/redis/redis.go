package redis

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/educloud/notes/cache"
	"github.com/educloud/notes/models"
)

type RedisNotesCache struct {
	client redis.UniversalClient
}

func NewRedisNotesCache(ctx context.Context, devMode bool, redisEndpoint string) (*RedisNotesCache, error) {
	opts := &redis.Options{Addr: redisEndpoint}
	if !devMode {
		// ElastiCache endpoints require TLS
		opts.TLSConfig = &tls.Config{}
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisNotesCache{client: client}, nil
}

func (redisCache *RedisNotesCache) Publish(ctx context.Context, channel string, message []byte) error {
	return redisCache.client.Publish(ctx, channel, message).Err()
}

// Subscribe delivers messages on channel to handler until ctx is done.
// Channels containing glob characters are pattern subscriptions.
func (redisCache *RedisNotesCache) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	var pubsub *redis.PubSub
	if strings.ContainsAny(channel, "*?[") {
		pubsub = redisCache.client.PSubscribe(ctx, channel)
	} else {
		pubsub = redisCache.client.Subscribe(ctx, channel)
	}
	// Wait for the subscription confirmation
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		log.Warn().Err(err).Str("channel", channel).Msg("pubsub subscription failed")
		return err
	}

	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Info().Str("channel", channel).Msg("pubsub channel closed")
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()

	return nil
}

// Keys use hash tags so a user's keys share a cluster slot.
func buildNoteCountKey(userId string) string {
	return "user:{" + userId + "}:note_count"
}

func buildRevokedTokenKey(tokenId string) string {
	return "revoked:" + tokenId
}

func buildExportKey(exportId string) string {
	return "export:" + exportId
}

const countTTL = 10 * time.Minute

func (redisCache *RedisNotesCache) IncrementUserNoteCount(ctx context.Context, userId string) (int64, error) {
	key := buildNoteCountKey(userId)
	pipe := redisCache.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, countTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (redisCache *RedisNotesCache) DecrementUserNoteCount(ctx context.Context, userId string) error {
	key := buildNoteCountKey(userId)
	pipe := redisCache.client.TxPipeline()
	pipe.Decr(ctx, key)
	pipe.Expire(ctx, key, countTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (redisCache *RedisNotesCache) SeedUserNoteCount(ctx context.Context, userId string, count int) error {
	return redisCache.client.SetNX(ctx, buildNoteCountKey(userId), count, countTTL).Err()
}

func (redisCache *RedisNotesCache) GetUserNoteCount(ctx context.Context, userId string) (int, error) {
	val, err := redisCache.client.Get(ctx, buildNoteCountKey(userId)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return 0, err
	}
	return val, nil
}

func (redisCache *RedisNotesCache) ClearUserNoteCount(ctx context.Context, userId string) error {
	return redisCache.client.Del(ctx, buildNoteCountKey(userId)).Err()
}

func (redisCache *RedisNotesCache) RevokeToken(ctx context.Context, tokenId string, ttl time.Duration) error {
	if ttl <= 0 {
		// Already expired; nothing to remember.
		return nil
	}
	return redisCache.client.Set(ctx, buildRevokedTokenKey(tokenId), "1", ttl).Err()
}

func (redisCache *RedisNotesCache) IsTokenRevoked(ctx context.Context, tokenId string) (bool, error) {
	n, err := redisCache.client.Exists(ctx, buildRevokedTokenKey(tokenId)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (redisCache *RedisNotesCache) SetExport(ctx context.Context, job models.ExportJob, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	return redisCache.client.Set(ctx, buildExportKey(job.Id), data, ttl).Err()
}

func (redisCache *RedisNotesCache) GetExport(ctx context.Context, exportId string) (models.ExportJob, error) {
	data, err := redisCache.client.Get(ctx, buildExportKey(exportId)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ExportJob{}, cache.ErrExportNotFound
		}
		return models.ExportJob{}, err
	}

	var job models.ExportJob
	if err := json.Unmarshal(data, &job); err != nil {
		return models.ExportJob{}, fmt.Errorf("unmarshal export: %w", err)
	}
	return job, nil
}
