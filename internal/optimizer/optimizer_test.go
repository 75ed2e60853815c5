package optimizer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ady24s/Cloud9/pkg/types"
)

// fakeHistory serves canned samples for one user
type fakeHistory struct {
	samples map[string][]types.MetricSample
	calls   int
}

func (f *fakeHistory) ListForUser(ctx context.Context, userID string, limit int) ([]types.MetricSample, error) {
	f.calls++
	rows := f.samples[userID]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// trainingSet is the canonical three-shape workload: two low-usage
// rows, two heavy rows, three idle rows.
var trainingSet = [][]float64{
	{5, 10, 100, 20, 50},
	{8, 15, 150, 30, 60},
	{50, 60, 300, 100, 200},
	{55, 65, 350, 120, 220},
	{0, 0, 0, 5, 10},
	{0, 0, 0, 2, 5},
	{0, 0, 0, 3, 7},
}

func samplesFromVectors(vectors [][]float64) []types.MetricSample {
	samples := make([]types.MetricSample, len(vectors))
	base := time.Now()
	for i, v := range vectors {
		samples[i] = types.MetricSample{
			ResourceID:    "vm-" + string(rune('a'+i)),
			Timestamp:     base.Add(-time.Duration(i) * time.Minute),
			CPUUsage:      v[0],
			MemoryUsage:   v[1],
			ExecutionTime: v[2],
			NetworkBytes:  v[3],
			Power:         v[4],
		}
	}
	return samples
}

func newTestOptimizer(samples []types.MetricSample) (*Optimizer, *MemoryArtifactStore) {
	history := &fakeHistory{samples: map[string][]types.MetricSample{
		"usr_1": samples,
	}}
	artifacts := NewMemoryArtifactStore()
	return New(history, artifacts, zap.NewNop()), artifacts
}

func TestOptimizer_TrainDeterminism(t *testing.T) {
	opt1, store1 := newTestOptimizer(samplesFromVectors(trainingSet))
	opt2, store2 := newTestOptimizer(samplesFromVectors(trainingSet))

	ctx := context.Background()
	require.NoError(t, opt1.Train(ctx, "usr_1"))
	require.NoError(t, opt2.Train(ctx, "usr_1"))

	a1, err := store1.Load(ctx, "usr_1")
	require.NoError(t, err)
	a2, err := store2.Load(ctx, "usr_1")
	require.NoError(t, err)

	assert.Equal(t, a1.Centroids, a2.Centroids)
	assert.Equal(t, a1.Scaler, a2.Scaler)
	assert.Equal(t, 3, a1.K)
}

func TestOptimizer_IdleVectorsClusterTogether(t *testing.T) {
	opt, artifacts := newTestOptimizer(samplesFromVectors(trainingSet))
	ctx := context.Background()
	require.NoError(t, opt.Train(ctx, "usr_1"))

	artifact, err := artifacts.Load(ctx, "usr_1")
	require.NoError(t, err)

	query := artifact.Scaler.Transform([]float64{0, 0, 0, 4, 8})
	idle := artifact.Scaler.Transform([]float64{0, 0, 0, 5, 10})

	assert.Equal(t, Assign(artifact.Centroids, idle), Assign(artifact.Centroids, query),
		"idle-shaped vectors must land in the same cluster")
}

func TestOptimizer_RecommendLazyTrains(t *testing.T) {
	opt, artifacts := newTestOptimizer(samplesFromVectors(trainingSet))
	ctx := context.Background()

	_, err := artifacts.Load(ctx, "usr_1")
	require.Error(t, err, "no artifact before first query")

	recs, err := opt.Recommend(ctx, "usr_1")
	require.NoError(t, err)
	assert.Len(t, recs, 7, "one recommendation per distinct resource")

	_, err = artifacts.Load(ctx, "usr_1")
	assert.NoError(t, err, "first query trains and caches the artifact")

	for _, r := range recs {
		assert.Contains(t, []string{"downsize", "switch to spot", "archive idle storage"}, r.Action)
		assert.Equal(t, ActionForCluster(r.Cluster), r.Action)
	}
}

func TestOptimizer_RecommendUsesCachedModel(t *testing.T) {
	history := &fakeHistory{samples: map[string][]types.MetricSample{
		"usr_1": samplesFromVectors(trainingSet),
	}}
	artifacts := NewMemoryArtifactStore()
	opt := New(history, artifacts, zap.NewNop())
	ctx := context.Background()

	_, err := opt.Recommend(ctx, "usr_1")
	require.NoError(t, err)
	callsAfterFirst := history.calls

	_, err = opt.Recommend(ctx, "usr_1")
	require.NoError(t, err)

	// Second query reads history once for classification but does not
	// retrain
	assert.Equal(t, callsAfterFirst+1, history.calls)
}

func TestOptimizer_EmptyHistory(t *testing.T) {
	opt, _ := newTestOptimizer(nil)
	ctx := context.Background()

	recs, err := opt.Recommend(ctx, "usr_1")
	require.NoError(t, err, "empty history degrades to empty result")
	assert.Empty(t, recs)
}

func TestOptimizer_LatestSamplePerResource(t *testing.T) {
	now := time.Now()
	samples := []types.MetricSample{
		{ResourceID: "vm-a", Timestamp: now, CPUUsage: 90},
		{ResourceID: "vm-a", Timestamp: now.Add(-time.Hour), CPUUsage: 5},
		{ResourceID: "vm-b", Timestamp: now, CPUUsage: 50},
	}
	opt, _ := newTestOptimizer(samples)

	recs, err := opt.Recommend(context.Background(), "usr_1")
	require.NoError(t, err)
	assert.Len(t, recs, 2, "one recommendation per resource, not per sample")
}

func TestOptimizer_KFollowsSampleCount(t *testing.T) {
	opt, artifacts := newTestOptimizer(samplesFromVectors(trainingSet[:2]))
	ctx := context.Background()
	require.NoError(t, opt.Train(ctx, "usr_1"))

	artifact, err := artifacts.Load(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, 2, artifact.K)
}

func TestOptimizer_ConcurrentTraining(t *testing.T) {
	opt, artifacts := newTestOptimizer(samplesFromVectors(trainingSet))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := opt.Recommend(ctx, "usr_1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	artifact, err := artifacts.Load(ctx, "usr_1")
	require.NoError(t, err)
	assert.Len(t, artifact.Centroids, 3)
}

func TestOptimizer_Invalidate(t *testing.T) {
	opt, artifacts := newTestOptimizer(samplesFromVectors(trainingSet))
	ctx := context.Background()

	require.NoError(t, opt.Train(ctx, "usr_1"))
	require.NoError(t, opt.Invalidate(ctx, "usr_1"))

	_, err := artifacts.Load(ctx, "usr_1")
	assert.Error(t, err)
}

func TestActionForCluster(t *testing.T) {
	assert.Equal(t, "downsize", ActionForCluster(0))
	assert.Equal(t, "switch to spot", ActionForCluster(1))
	assert.Equal(t, "archive idle storage", ActionForCluster(2))
	assert.Equal(t, "archive idle storage", ActionForCluster(5))
	assert.Equal(t, "archive idle storage", ActionForCluster(-1))
}

func TestFileArtifactStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileArtifactStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = fs.Load(ctx, "usr_1")
	require.Error(t, err)

	artifact := &Artifact{
		Scaler:    &Scaler{Means: []float64{1, 2}, Stds: []float64{3, 4}},
		Centroids: [][]float64{{0, 0}, {1, 1}},
		K:         2,
		TrainedAt: time.Now().UTC(),
	}
	require.NoError(t, fs.Save(ctx, "usr_1", artifact))

	loaded, err := fs.Load(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, artifact.Scaler, loaded.Scaler)
	assert.Equal(t, artifact.Centroids, loaded.Centroids)

	require.NoError(t, fs.Delete(ctx, "usr_1"))
	_, err = fs.Load(ctx, "usr_1")
	assert.Error(t, err)
}
