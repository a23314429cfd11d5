package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minidaoom/bundang-review-monitor/internal/domain/model"
)

func intp(v int) *int { return &v }

func testStore(t *testing.T, limit int) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "review_history.json"), limit)
}

func TestStore_EmptyFile(t *testing.T) {
	store := testStore(t, 0)
	ctx := context.Background()

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	baseline, err := store.LatestObserved(ctx)
	require.NoError(t, err)
	assert.Nil(t, baseline)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStore_AppendRoundTrip(t *testing.T) {
	store := testStore(t, 0)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	rec := model.RunRecord{
		Timestamp: now,
		Observed:  intp(664),
		Previous:  intp(663),
		Delta:     intp(1),
		Notified:  true,
		Reason:    model.ReasonSignificantChange,
	}
	require.NoError(t, store.Append(ctx, rec))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 664, *latest.Observed)
	assert.Equal(t, 663, *latest.Previous)
	assert.Equal(t, 1, *latest.Delta)
	assert.True(t, latest.Notified)
	assert.Equal(t, model.ReasonSignificantChange, latest.Reason)
	assert.True(t, latest.Timestamp.Equal(now))
}

func TestStore_FileFormat(t *testing.T) {
	store := testStore(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, model.RunRecord{
		Timestamp: time.Now().UTC(),
		Observed:  intp(663),
		Reason:    model.ReasonStartupDisabled,
	}))

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)

	// On-disk field names are the stable review_history.json schema.
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, float64(663), raw[0]["review_count"])
	assert.Equal(t, "startup_disabled", raw[0]["notification_reason"])
	assert.Equal(t, false, raw[0]["notification_sent"])
	assert.Contains(t, raw[0], "previous_count")
	assert.NotContains(t, raw[0], "error")
}

func TestStore_CapsHistoryAtLimit(t *testing.T) {
	store := testStore(t, 5)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 8; i++ {
		require.NoError(t, store.Append(ctx, model.RunRecord{
			Timestamp: now.Add(time.Duration(i) * time.Minute),
			Observed:  intp(600 + i),
		}))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	// Oldest records were dropped; the newest survive.
	recs, err := store.ListRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.Equal(t, 607, *recs[0].Observed)
	assert.Equal(t, 603, *recs[4].Observed)
}

func TestStore_LatestObservedSkipsFailedRuns(t *testing.T) {
	store := testStore(t, 0)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Append(ctx, model.RunRecord{Timestamp: now, Observed: intp(120)}))
	require.NoError(t, store.Append(ctx, model.RunRecord{
		Timestamp: now.Add(time.Minute),
		Previous:  intp(120),
		Reason:    model.ReasonFetchFailed,
		Error:     "fetch_failed",
	}))

	baseline, err := store.LatestObserved(ctx)
	require.NoError(t, err)
	require.NotNil(t, baseline)
	assert.Equal(t, 120, *baseline)
}

func TestStore_ConcurrentAppendsLoseNothing(t *testing.T) {
	store := testStore(t, 0)
	ctx := context.Background()
	now := time.Now().UTC()

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Append(ctx, model.RunRecord{
				Timestamp: now.Add(time.Duration(i) * time.Second),
				Observed:  intp(600 + i),
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers, count)
}

func TestStore_CorruptFileSurfacesError(t *testing.T) {
	store := testStore(t, 0)
	require.NoError(t, os.WriteFile(store.path, []byte("{not json"), 0o644))

	_, err := store.Latest(context.Background())
	assert.Error(t, err)
}
