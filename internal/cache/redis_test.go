package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/backstage/services/pickaudit/config"
)

func TestDisabledCache(t *testing.T) {
	c, err := NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	var out string
	assert.Equal(t, ErrCacheDisabled, c.Get(context.Background(), "k", &out))
	assert.Equal(t, ErrCacheDisabled, c.Set(context.Background(), "k", "v", time.Minute))
	assert.Equal(t, ErrCacheDisabled, c.Delete(context.Background(), "k"))
	assert.NoError(t, c.Close())
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *RedisCache
	assert.False(t, c.Enabled())
	assert.NoError(t, c.Close())
}

func TestCacheKeys(t *testing.T) {
	id := uuid.MustParse("7b0e4a52-52a4-4b4e-9f0e-2b8d0c1f6a11")
	assert.Equal(t, "report:abc:def", GetReportCacheKey("abc", "def"))
	assert.Equal(t, "run:7b0e4a52-52a4-4b4e-9f0e-2b8d0c1f6a11", GetRunCacheKey(id))
	assert.Equal(t, "upload:abc", GetUploadCacheKey("abc"))
}
