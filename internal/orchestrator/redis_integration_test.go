//go:build integration

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/dyluth/pagesmith/internal/fsm"
	"github.com/dyluth/pagesmith/internal/output"
	"github.com/dyluth/pagesmith/internal/protocol"
	"github.com/dyluth/pagesmith/pkg/bus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

// setupRedis starts a Redis container and returns its URL.
func setupRedis(t *testing.T) string {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Redis container")
	t.Cleanup(func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	})

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s", host, port.Port())
}

func newRedisBus(t *testing.T, redisURL, instance string) *bus.RedisBus {
	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)

	b, err := bus.NewRedisBus(opts, instance, protocol.Codec(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	require.NoError(t, b.Ping(context.Background()))
	return b
}

func TestIntegration_PipelineOverRedis(t *testing.T) {
	redisURL := setupRedis(t)
	b := newRedisBus(t, redisURL, "integration")

	opts := fastOptions()
	opts.RunTimeout = 30 * time.Second

	dir := t.TempDir()
	o := New(b, output.NewFileWriter(dir), zaptest.NewLogger(t), opts)

	result, err := o.RunPipeline(context.Background(), json.RawMessage(hydraBoost))
	require.NoError(t, err)
	assert.Equal(t, fsm.StateCompleted, result.State)
	assertPages(t, dir)

	ids, err := b.Agents(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 6)
}

func TestIntegration_InstancesShareRedis(t *testing.T) {
	redisURL := setupRedis(t)

	opts := fastOptions()
	opts.RunTimeout = 30 * time.Second

	var g errgroup.Group
	dirs := []string{t.TempDir(), t.TempDir()}
	results := make([]*Result, len(dirs))
	for i, dir := range dirs {
		i, dir := i, dir
		o := New(newRedisBus(t, redisURL, fmt.Sprintf("instance-%d", i)), output.NewFileWriter(dir), nil, opts)
		g.Go(func() error {
			res, err := o.RunPipeline(context.Background(), json.RawMessage(hydraBoost))
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	for i, dir := range dirs {
		assert.Equal(t, fsm.StateCompleted, results[i].State)
		assertPages(t, dir)
	}
	assert.NotEqual(t, results[0].ConversationID, results[1].ConversationID)
}
