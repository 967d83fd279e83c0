package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/models"
)

func unreachableClient(prefix string) *ValkeyClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewValkeyClientFrom(rdb, prefix)
}

func TestKeyPrefix(t *testing.T) {
	v := unreachableClient("")
	defer v.Close()
	assert.Equal(t, "session:abc", v.key("abc"))

	v = unreachableClient("eventos:s:")
	defer v.Close()
	assert.Equal(t, "eventos:s:abc", v.key("abc"))
}

func TestSaveSession_RejectsExpired(t *testing.T) {
	v := unreachableClient("")
	defer v.Close()

	err := v.SaveSession(context.Background(), &models.Session{Token: "t", ExpiresAt: time.Now().Add(-time.Minute)})
	assert.Error(t, err)
}

func TestGetSession_ConnectionErrorIsNotNotFound(t *testing.T) {
	v := unreachableClient("")
	defer v.Close()

	_, err := v.GetSession(context.Background(), "t")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
}
