package transfer

import (
	"context"
	"fmt"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/objstore"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/progress"
)

// DeleterConfig carries the deletion pipeline tunables. The retry ceiling is
// derived per run: 3x the manifest's chunk count.
type DeleterConfig struct {
	Concurrency int
	MaxRestarts int
}

// Deleter removes a manifest's remote chunks concurrently. The caller is
// expected to have deleted the manifest record first: a chunk that outlives
// its record only wastes remote space, while a record pointing at deleted
// chunks is a file that can never be fetched again.
type Deleter struct {
	store   objstore.ObjectStore
	tracker *progress.Tracker
	cfg     DeleterConfig
	log     logging.Logger
}

func NewDeleter(store objstore.ObjectStore, tracker *progress.Tracker, cfg DeleterConfig, log logging.Logger) *Deleter {
	return &Deleter{
		store:   store,
		tracker: tracker,
		cfg:     cfg,
		log:     log.With("module", "deleter"),
	}
}

// Run deletes every remote chunk of the manifest.
func (d *Deleter) Run(ctx context.Context, file *models.File) error {
	count := len(file.Handles)
	if count == 0 {
		return fmt.Errorf("%w: manifest %s carries no chunk handles", common.ErrValidation, file.ID)
	}

	if err := d.tracker.Start(file.UserID, progress.Action{
		FileID:       file.ID,
		FileName:     file.FileName,
		FileSize:     file.FileSize,
		Text:         "Connecting to the storage backend...",
		ActionType:   progress.TypeDelete,
		CurrentChunk: progress.Indeterminate,
		ChunkCount:   progress.Indeterminate,
	}); err != nil {
		return err
	}

	log := d.log.With("user_id", file.UserID, "manifest_id", file.ID)
	log.Info(ctx, "starting deletion", "name", file.FileName, "chunks", count)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	op := func(ctx context.Context, index int) (string, error) {
		if err := d.store.Delete(ctx, file.Handles[index]); err != nil {
			return "", fmt.Errorf("delete chunk %d: %w", index, err)
		}
		return "", nil
	}

	pool := NewPool(d.cfg.Concurrency, count, d.cfg.MaxRestarts, d.store.Connect, op, d.log)
	pool.Start(ctx)
	for i := 0; i < count; i++ {
		pool.Submit(i)
	}

	d.tracker.SetText(file.UserID, file.ID,
		fmt.Sprintf("Deleted chunks 0/%d.", count), 0, count)

	deleted := 0
	err := supervise(ctx, pool, count, newRetryPolicy(3*count), func(Result) {
		deleted++
		d.tracker.SetText(file.UserID, file.ID,
			fmt.Sprintf("Deleted chunks %d/%d.", deleted, count), deleted, count)
	})
	if err != nil {
		log.Error(ctx, "deletion aborted", "error", err, "deleted", deleted)
		d.tracker.Remove(file.UserID, file.ID, true)
		return err
	}

	d.tracker.Remove(file.UserID, file.ID, false)
	log.Info(ctx, "deletion complete")
	return nil
}
