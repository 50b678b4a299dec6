//go:build integration

package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestSendToDLQ_CapsList(t *testing.T) {
	ctx := context.Background()
	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	for i := 0; i < DLQMaxEntries+5; i++ {
		raw, _ := json.Marshal(EmailJobPayload{ToEmail: "store@example.com", Subject: "Low stock"})
		SendToDLQ(ctx, rdb, QueueEmail, JobTypeEmail, raw, "smtp down", MaxJobAttempts)
	}

	n, err := DLQLength(ctx, rdb, QueueEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(DLQMaxEntries), n)

	newest, err := rdb.LIndex(ctx, DLQPrefix+QueueEmail, 0).Result()
	require.NoError(t, err)
	var e DLQEntry
	require.NoError(t, json.Unmarshal([]byte(newest), &e))
	assert.Equal(t, "Low stock", e.Subject)
	assert.Equal(t, "smtp down", e.Reason)
}
