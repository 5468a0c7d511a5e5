package redis_test

import (
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagscout/tagscout/internal/redis"
	"github.com/tagscout/tagscout/internal/setup/config"
	"go.uber.org/zap"
)

func TestManagerReusesClients(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	defer mr.Close()

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	manager := redis.NewManager(&config.Redis{Host: mr.Host(), Port: port}, zap.NewNop())
	defer manager.Close()

	first, err := manager.GetClient(redis.DedupDBIndex)
	require.NoError(t, err)

	second, err := manager.GetClient(redis.DedupDBIndex)
	require.NoError(t, err)

	assert.Same(t, first, second)
	require.NoError(t, manager.Ping(t.Context(), redis.DedupDBIndex))
	assert.Equal(t, mr.Addr(), manager.Addr())
}
