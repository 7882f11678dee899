package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahankar/shatika/internal/domain"
)

func setupTestRedis(t *testing.T) (*ProductCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewProductCache(client, 10*time.Minute), mr
}

func sampleSummary(id string) domain.ProductSummary {
	return domain.ProductSummary{
		ID:       id,
		Name:     "Banarasi Saree",
		Slug:     "banarasi-saree-" + id,
		Price:    899900,
		Currency: "INR",
		IsActive: true,
		Category: &domain.Ref{ID: "cat-1", Name: "Sarees"},
	}
}

func TestProductCache_SetThenGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.SetSummaries(ctx, map[string]domain.ProductSummary{
		"p1": sampleSummary("p1"),
	}))
	assert.True(t, mr.Exists("product:summary:p1"))
	assert.Equal(t, 10*time.Minute, mr.TTL("product:summary:p1"))

	found, missing, err := c.GetSummaries(ctx, []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, missing)
	require.Contains(t, found, "p1")
	assert.Equal(t, "Sarees", found["p1"].Category.Name)
}

func TestProductCache_GetEmpty(t *testing.T) {
	c, _ := setupTestRedis(t)

	found, missing, err := c.GetSummaries(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Empty(t, missing)
}

func TestProductCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("product:summary:p1", "{not json"))

	found, missing, err := c.GetSummaries(context.Background(), []string{"p1"})
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, []string{"p1"}, missing)
}

func TestProductCache_Invalidate(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	data, err := json.Marshal(sampleSummary("p1"))
	require.NoError(t, err)
	require.NoError(t, mr.Set("product:summary:p1", string(data)))
	require.NoError(t, mr.Set("product:summary:p2", string(data)))

	require.NoError(t, c.Invalidate(ctx, "p1"))
	assert.False(t, mr.Exists("product:summary:p1"))
	assert.True(t, mr.Exists("product:summary:p2"))

	require.NoError(t, c.Invalidate(ctx))
}

func TestProductCache_InvalidateAll(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	summaries := map[string]domain.ProductSummary{}
	for _, id := range []string{"a", "b", "c"} {
		summaries[id] = sampleSummary(id)
	}
	require.NoError(t, c.SetSummaries(ctx, summaries))
	require.NoError(t, mr.Set("session:keep", "1"))

	require.NoError(t, c.InvalidateAll(ctx))

	assert.False(t, mr.Exists("product:summary:a"))
	assert.False(t, mr.Exists("product:summary:c"))
	assert.True(t, mr.Exists("session:keep"))
}

func TestProductCache_RedisDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, _, err := c.GetSummaries(context.Background(), []string{"p1"})
	assert.Error(t, err)
}
