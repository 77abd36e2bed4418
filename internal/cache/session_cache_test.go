package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrdrift/internal/model"
	"okrdrift/internal/normalize"
)

// redisForTest connects to REDIS_TEST_ADDR or skips
func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestSessionCacheRoundTrip(t *testing.T) {
	c := NewSessionCache(redisForTest(t), time.Minute)
	ctx := context.Background()

	report := normalize.Normalize(`{"student_id": 9, "drift_level": "High"}`)
	snap := &model.SessionSnapshot{
		SessionID:      "cache-test-" + time.Now().Format("150405.000"),
		Step:           model.StepDisplaying,
		StudentID:      "9",
		Token:          3,
		ActiveTab:      model.TabDrift,
		ExpandedMonths: map[string]bool{"Month 1": true},
		Report:         &report,
		UpdatedAt:      time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, c.Set(ctx, snap))
	t.Cleanup(func() { c.Delete(ctx, snap.SessionID) })

	got, err := c.Get(ctx, snap.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.Step, got.Step)
	assert.Equal(t, snap.Token, got.Token)
	assert.Equal(t, model.DriftHigh, got.Report.DriftLevel)
	assert.True(t, got.ExpandedMonths["Month 1"])

	require.NoError(t, c.Delete(ctx, snap.SessionID))
	got, err = c.Get(ctx, snap.SessionID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
