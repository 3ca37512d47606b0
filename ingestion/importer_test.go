package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/permitsearch/core"
	"github.com/poiesic/permitsearch/storage"
	"github.com/poiesic/permitsearch/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) storage.PermitRepository {
	t.Helper()
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})
	return repo
}

func makePermits(n int) []*core.Permit {
	permits := make([]*core.Permit, 0, n)
	for i := range n {
		permits = append(permits, &core.Permit{
			ID:        core.ID(i + 1),
			Applicant: fmt.Sprintf("Vendor %d", i+1),
			Status:    core.StatusApproved,
		})
	}
	return permits
}

// flakyRepository fails the first failures upserts, then delegates.
type flakyRepository struct {
	storage.PermitRepository
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyRepository) UpsertPermits(ctx context.Context, permits ...*core.Permit) (int, error) {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return 0, errors.New("transaction conflict")
	}
	return f.PermitRepository.UpsertPermits(ctx, permits...)
}

func TestNewImporter(t *testing.T) {
	repo := newTestRepo(t)

	t.Run("defaults", func(t *testing.T) {
		im, err := NewImporter(repo)
		require.NoError(t, err)
		defer im.Release()
		assert.Equal(t, DefaultBatchSize, im.batchSize)
	})

	t.Run("with options", func(t *testing.T) {
		im, err := NewImporter(repo, WithPoolSize(2), WithBatchSize(10), WithRetry(5, time.Millisecond), WithLogger(nil))
		require.NoError(t, err)
		defer im.Release()
		assert.Equal(t, 10, im.batchSize)
		assert.Equal(t, 5, im.maxAttempts)
		assert.Equal(t, 2, im.pool.Cap())
	})

	t.Run("invalid retry", func(t *testing.T) {
		_, err := NewImporter(repo, WithRetry(0, time.Millisecond))
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("nil repository", func(t *testing.T) {
		_, err := NewImporter(nil)
		assert.Equal(t, ErrRepositoryRequired, err)
	})
}

func TestImporter_Import(t *testing.T) {
	repo := newTestRepo(t)
	var progress bytes.Buffer
	im, err := NewImporter(repo, WithPoolSize(4), WithBatchSize(7), WithProgress(&progress))
	require.NoError(t, err)
	defer im.Release()

	ctx := context.Background()
	result, err := im.Import(ctx, makePermits(50))
	require.NoError(t, err)
	assert.Equal(t, 50, result.Written)
	assert.Zero(t, result.Failed)
	assert.Contains(t, progress.String(), "50/50")

	count, err := repo.CountPermits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, count)

	// Importing again replaces rather than duplicates
	_, err = im.Import(ctx, makePermits(50))
	require.NoError(t, err)
	count, err = repo.CountPermits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestImporter_ImportEmpty(t *testing.T) {
	im, err := NewImporter(newTestRepo(t))
	require.NoError(t, err)
	defer im.Release()

	result, err := im.Import(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Written)
}

func TestImporter_RetriesFailedBatches(t *testing.T) {
	flaky := &flakyRepository{PermitRepository: newTestRepo(t)}
	flaky.failures.Store(2)

	im, err := NewImporter(flaky, WithPoolSize(1), WithBatchSize(100), WithRetry(3, time.Millisecond))
	require.NoError(t, err)
	defer im.Release()

	result, err := im.Import(context.Background(), makePermits(10))
	require.NoError(t, err)
	assert.Equal(t, 10, result.Written)
	assert.Equal(t, int32(3), flaky.calls.Load())
}

func TestImporter_ReportsFailedBatches(t *testing.T) {
	flaky := &flakyRepository{PermitRepository: newTestRepo(t)}
	flaky.failures.Store(1000)

	im, err := NewImporter(flaky, WithPoolSize(2), WithBatchSize(4), WithRetry(2, time.Millisecond))
	require.NoError(t, err)
	defer im.Release()

	result, err := im.Import(context.Background(), makePermits(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transaction conflict")
	assert.Equal(t, 10, result.Failed)
	assert.Zero(t, result.Written)
}

func TestImporter_SubmitFailuresAreReported(t *testing.T) {
	im, err := NewImporter(newTestRepo(t), WithPoolSize(2), WithBatchSize(3))
	require.NoError(t, err)
	im.Release()

	result, err := im.Import(context.Background(), makePermits(10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ants.ErrPoolClosed)
	assert.Equal(t, 10, result.Failed)
	assert.Zero(t, result.Written)
}

func TestImporter_ImportFile(t *testing.T) {
	repo := newTestRepo(t)
	im, err := NewImporter(repo)
	require.NoError(t, err)
	defer im.Release()

	ctx := context.Background()
	result, err := im.ImportFile(ctx, "testdata/permits.csv", "")
	require.NoError(t, err)
	assert.Equal(t, 5, result.Written)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 6, result.Rows)

	p, err := repo.GetPermit(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "The Geez Freeze", p.Applicant)
}

func TestImporter_ImportFileErrors(t *testing.T) {
	im, err := NewImporter(newTestRepo(t))
	require.NoError(t, err)
	defer im.Release()

	_, err = im.ImportFile(context.Background(), "testdata/permits.json", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = im.ImportFile(context.Background(), "testdata/missing.csv", "")
	assert.Error(t, err)
}

func TestImporter_Seed(t *testing.T) {
	repo := newTestRepo(t)
	im, err := NewImporter(repo)
	require.NoError(t, err)
	defer im.Release()

	ctx := context.Background()
	seeded, err := im.Seed(ctx, "testdata/permits.csv", "")
	require.NoError(t, err)
	assert.True(t, seeded)

	// Second run skips, even if the file would fail to load
	seeded, err = im.Seed(ctx, "testdata/missing.csv", "")
	require.NoError(t, err)
	assert.False(t, seeded)

	count, err := repo.CountPermits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
