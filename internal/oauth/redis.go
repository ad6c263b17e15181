package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientPrefix = "client:"
	grantPrefix  = "grant:"
	codePrefix   = "code:"
)

// RedisStore implements the Store interface using Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed store
func NewRedisStore(client *redis.Client) Store {
	return &RedisStore{client: client}
}

// CheckHealth verifies Redis connectivity
func (s *RedisStore) CheckHealth(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// SaveClient stores a client registration without expiry
func (s *RedisStore) SaveClient(ctx context.Context, client *Client) error {
	data, err := json.Marshal(client)
	if err != nil {
		return fmt.Errorf("marshaling client: %w", err)
	}
	if err := s.client.Set(ctx, clientPrefix+client.ClientID, data, 0).Err(); err != nil {
		return fmt.Errorf("saving client: %w", err)
	}
	return nil
}

// GetClient retrieves a client registration
func (s *RedisStore) GetClient(ctx context.Context, clientID string) (*Client, error) {
	var client Client
	found, err := s.getJSON(ctx, clientPrefix+clientID, &client)
	if err != nil || !found {
		return nil, err
	}
	return &client, nil
}

// SaveGrant stores a grant that expires after ttl
func (s *RedisStore) SaveGrant(ctx context.Context, grant *Grant, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("grant ttl must be positive")
	}
	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshaling grant: %w", err)
	}
	if err := s.client.Set(ctx, grantPrefix+grant.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("saving grant: %w", err)
	}
	return nil
}

// GetGrant retrieves a grant
func (s *RedisStore) GetGrant(ctx context.Context, grantID string) (*Grant, error) {
	var grant Grant
	found, err := s.getJSON(ctx, grantPrefix+grantID, &grant)
	if err != nil || !found {
		return nil, err
	}
	return &grant, nil
}

// SaveAuthCode stores an authorization code keyed by its hash
func (s *RedisStore) SaveAuthCode(ctx context.Context, code *AuthCode, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("code has already expired")
	}

	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("marshaling code: %w", err)
	}

	if err := s.client.Set(ctx, codePrefix+codeKey(code.ClientID, code.Code), data, ttl).Err(); err != nil {
		return fmt.Errorf("saving code: %w", err)
	}

	return nil
}

// ConsumeAuthCode atomically reads and deletes a code
func (s *RedisStore) ConsumeAuthCode(ctx context.Context, clientID, code string) (*AuthCode, error) {
	data, err := s.client.GetDel(ctx, codePrefix+codeKey(clientID, code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consuming code: %w", err)
	}

	var authCode AuthCode
	if err := json.Unmarshal(data, &authCode); err != nil {
		return nil, fmt.Errorf("unmarshaling code: %w", err)
	}
	authCode.Code = code
	return &authCode, nil
}

// getJSON loads and decodes a key, reporting whether it existed
func (s *RedisStore) getJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshaling %s: %w", key, err)
	}
	return true, nil
}
