package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/yogamaster/yoga-client/internal/models"
	"github.com/yogamaster/yoga-client/internal/tokenstore"
)

// tokenKey is the single well-known key the client's token lives under.
const tokenKey = "yoga-client:token"

// RedisTokenStore implements tokenstore.Store on Redis, for kiosk
// deployments where several client processes share one signed-in user.
type RedisTokenStore struct {
	client *redis.Client
}

func NewRedisTokenStore(client *redis.Client) tokenstore.Store {
	return &RedisTokenStore{client: client}
}

func (s *RedisTokenStore) Get(ctx context.Context) (*models.Token, error) {
	data, err := s.client.Get(ctx, tokenKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	var token models.Token
	if err := json.Unmarshal(data, &token); err != nil {
		// Unparseable token data is treated as absent.
		_ = s.client.Del(ctx, tokenKey).Err()
		return nil, nil
	}
	if token.Value == "" {
		return nil, nil
	}
	return &token, nil
}

func (s *RedisTokenStore) Set(ctx context.Context, token *models.Token) error {
	if token == nil || token.Value == "" {
		return errors.New("invalid token: value must be set")
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := s.client.Set(ctx, tokenKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, tokenKey).Err(); err != nil {
		return fmt.Errorf("redis DEL failed: %w", err)
	}
	return nil
}
