package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(errors.New("dial tcp: connection refused")))
	assert.True(t, IsRetryableError(errors.New("driver: bad connection")))
	assert.True(t, IsRetryableError(errors.New("read: connection reset by peer")))
	assert.False(t, IsRetryableError(errors.New(`pq: duplicate key value violates unique constraint "users_username_key"`)))
	assert.False(t, IsRetryableError(context.Canceled))
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "eventos", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=eventos sslmode=disable", cfg.DSN())
}
