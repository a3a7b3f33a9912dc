package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/objstore"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeleterConfig() DeleterConfig {
	return DeleterConfig{Concurrency: 3, MaxRestarts: 2}
}

func seedForDeletion(t *testing.T, store *fakeStore, chunks int) *models.File {
	t.Helper()
	handles := make([]string, chunks)
	for i := 0; i < chunks; i++ {
		handle, err := store.Upload(context.Background(), "c", []byte("chunk"))
		require.NoError(t, err)
		handles[i] = handle
	}
	return &models.File{ID: "manifest-1", UserID: "user-1", FileName: "f", Handles: handles}
}

func TestDeleter_RemovesEveryChunk(t *testing.T) {
	store := newFakeStore()
	file := seedForDeletion(t, store, 5)

	em := &recordingEmitter{}
	del := NewDeleter(store, progress.NewTracker(em), testDeleterConfig(), testLogger())

	require.NoError(t, del.Run(context.Background(), file))
	assert.Zero(t, store.count())

	events := em.all()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, progress.EventRemoveFileAction, last.Event)
	assert.False(t, last.Action.Error)
}

func TestDeleter_HonorsRateLimitDeferral(t *testing.T) {
	store := newFakeStore()
	file := seedForDeletion(t, store, 3)

	const deferral = 150 * time.Millisecond
	store.failDelete(file.Handles[1], &objstore.RateLimitError{RetryAfter: deferral})

	del := NewDeleter(store, progress.NewTracker(nil), testDeleterConfig(), testLogger())

	begin := time.Now()
	require.NoError(t, del.Run(context.Background(), file))
	elapsed := time.Since(begin)

	assert.Zero(t, store.count())
	assert.GreaterOrEqual(t, elapsed, deferral,
		"the rate-limited chunk must not be retried before the deferral elapses")
}

func TestDeleter_PermanentFailureAborts(t *testing.T) {
	store := newFakeStore()
	file := seedForDeletion(t, store, 3)
	store.failDelete(file.Handles[0], &objstore.StatusError{Code: 403})

	tracker := progress.NewTracker(nil)
	del := NewDeleter(store, tracker, testDeleterConfig(), testLogger())

	err := del.Run(context.Background(), file)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrRetryExhausted)
	assert.False(t, tracker.Exists("user-1", "manifest-1"))
}

func TestDeleter_EmptyManifestRejected(t *testing.T) {
	del := NewDeleter(newFakeStore(), progress.NewTracker(nil), testDeleterConfig(), testLogger())
	err := del.Run(context.Background(), &models.File{ID: "m", UserID: "u"})
	assert.ErrorIs(t, err, common.ErrValidation)
}
