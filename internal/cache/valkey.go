package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
)

type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// ValkeyClient keeps login sessions in Valkey keyed by cookie token
type ValkeyClient struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return NewValkeyClientFrom(rdb, cfg.KeyPrefix), nil
}

// NewValkeyClientFrom wraps an existing go-redis client
func NewValkeyClientFrom(client redis.UniversalClient, keyPrefix string) *ValkeyClient {
	if keyPrefix == "" {
		keyPrefix = "session:"
	}
	return &ValkeyClient{client: client, keyPrefix: keyPrefix}
}

func (v *ValkeyClient) key(token string) string {
	return v.keyPrefix + token
}

// SaveSession stores the session until its ExpiresAt
func (v *ValkeyClient) SaveSession(ctx context.Context, session *models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := v.client.Set(ctx, v.key(session.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// GetSession returns ErrNotFound for unknown or expired tokens
func (v *ValkeyClient) GetSession(ctx context.Context, token string) (*models.Session, error) {
	payload, err := v.client.Get(ctx, v.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("session lookup error: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("invalid session payload: %w", err)
	}
	return &session, nil
}

func (v *ValkeyClient) DeleteSession(ctx context.Context, token string) error {
	if err := v.client.Del(ctx, v.key(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (v *ValkeyClient) HealthCheck(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
