package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/roadworks-api/internal/identity"
	"github.com/noah-isme/roadworks-api/internal/models"
)

func TestEnrichmentRepositoryWritesAllKeysReadsFirstHit(t *testing.T) {
	store := NewMemoryStore()
	repo := NewEnrichmentRepository(store, zap.NewNop())
	ctx := context.Background()

	gridKey, ok := identity.GridKey(identity.CellToken(13.0827, 80.2707, identity.DefaultGridLevel))
	require.True(t, ok)
	locKey := identity.LocationKey("13.0827, 80.2707")

	require.NoError(t, repo.SaveRoadName(ctx, []identity.Key{gridKey, locKey}, "Anna Salai"))

	// A later fetch may only know the raw location.
	name, hit, err := repo.RoadName(ctx, []identity.Key{locKey})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Anna Salai", name)
}

func TestEnrichmentRepositoryMissWhenKeyOutsideWriteSet(t *testing.T) {
	store := NewMemoryStore()
	repo := NewEnrichmentRepository(store, zap.NewNop())
	ctx := context.Background()

	gridKey, ok := identity.GridKey(identity.CellToken(13.0827, 80.2707, identity.DefaultGridLevel))
	require.True(t, ok)
	require.NoError(t, repo.SaveRoadName(ctx, []identity.Key{gridKey}, "Anna Salai"))

	_, hit, err := repo.RoadName(ctx, []identity.Key{identity.LocationKey("13.0827, 80.2707")})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestEnrichmentRepositoryCorruptDocDegradesToEmpty(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "enrichment:roads", "{not json"))

	repo := NewEnrichmentRepository(store, zap.NewNop())
	_, hit, err := repo.RoadName(context.Background(), []identity.Key{identity.LocationKey("13, 80")})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDeadlineRepositoryMultiKeyFallback(t *testing.T) {
	store := NewMemoryStore()
	repo := NewDeadlineRepository(store, zap.NewNop())
	ctx := context.Background()

	assigned := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	record := models.DeadlineRecord{
		AssignedAt: assigned,
		DeadlineAt: assigned.AddDate(0, 0, 3),
		Severity:   models.SeverityHigh,
	}
	writeSet := []string{"road:anna salai", "db:42", "loc:13.0827,80.2707"}
	require.NoError(t, repo.Save(ctx, writeSet, record))

	found, hit, err := repo.Find(ctx, []string{"loc:13.0827,80.2707"})
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, models.SeverityHigh, found.Severity)
	assert.True(t, found.DeadlineAt.Equal(record.DeadlineAt))

	// Keys outside the original write set stay misses.
	_, hit, err = repo.Find(ctx, []string{"grid:deadbeef"})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDeadlineRepositoryDeleteRemovesWholeWriteSet(t *testing.T) {
	store := NewMemoryStore()
	repo := NewDeadlineRepository(store, zap.NewNop())
	ctx := context.Background()

	record := models.DeadlineRecord{AssignedAt: time.Now().UTC(), DeadlineAt: time.Now().UTC(), Severity: models.SeverityLow}
	keys := []string{"road:mount road", "db:7"}
	require.NoError(t, repo.Save(ctx, keys, record))
	require.NoError(t, repo.Delete(ctx, keys))

	for _, key := range keys {
		_, hit, err := repo.Find(ctx, []string{key})
		require.NoError(t, err)
		assert.False(t, hit)
	}
}

func TestDeadlineRepositoryCorruptDocDegradesToEmpty(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "deadlines", `["wrong shape"]`))

	repo := NewDeadlineRepository(store, zap.NewNop())
	_, hit, err := repo.Find(context.Background(), []string{"road:x"})
	require.NoError(t, err)
	assert.False(t, hit)
}
