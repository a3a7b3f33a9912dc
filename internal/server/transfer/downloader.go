package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/cryptox"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/filex"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/objstore"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/progress"
)

// DownloaderConfig carries the download pipeline tunables. The retry ceiling
// is derived per run: 3x the manifest's chunk count.
type DownloaderConfig struct {
	Concurrency int
	MaxRestarts int
	TempRoot    string
}

// Downloader fetches and decrypts a manifest's chunks concurrently into
// indexed temp files, then concatenates them sequentially into the original
// file.
type Downloader struct {
	store   objstore.ObjectStore
	tracker *progress.Tracker
	key     []byte
	cfg     DownloaderConfig
	log     logging.Logger
}

func NewDownloader(store objstore.ObjectStore, tracker *progress.Tracker, key []byte, cfg DownloaderConfig, log logging.Logger) *Downloader {
	return &Downloader{
		store:   store,
		tracker: tracker,
		key:     key,
		cfg:     cfg,
		log:     log.With("module", "downloader"),
	}
}

// Run reconstructs the file behind the manifest and returns the path of the
// rebuilt file together with a cleanup function the caller must invoke once
// the file has been served.
func (d *Downloader) Run(ctx context.Context, file *models.File) (string, func(), error) {
	count := len(file.Handles)
	if count == 0 {
		return "", nil, fmt.Errorf("%w: manifest %s carries no chunk handles", common.ErrValidation, file.ID)
	}

	if err := d.tracker.Start(file.UserID, progress.Action{
		FileID:       file.ID,
		FileName:     file.FileName,
		FileSize:     file.FileSize,
		Text:         "Connecting to the storage backend...",
		ActionType:   progress.TypeDownload,
		CurrentChunk: progress.Indeterminate,
		ChunkCount:   progress.Indeterminate,
	}); err != nil {
		return "", nil, err
	}

	log := d.log.With("user_id", file.UserID, "manifest_id", file.ID)
	log.Info(ctx, "starting download", "name", file.FileName, "chunks", count)

	chunkDir, err := filex.MakeTempDir(d.cfg.TempRoot)
	if err != nil {
		d.abort(ctx, file, log, err, "")
		return "", nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	op := func(ctx context.Context, index int) (string, error) {
		blob, err := d.store.Fetch(ctx, file.Handles[index])
		if err != nil {
			return "", fmt.Errorf("fetch chunk %d: %w", index, err)
		}
		plain, err := cryptox.DecryptChunk(d.key, blob)
		if err != nil {
			return "", fmt.Errorf("decrypt chunk %d: %w", index, err)
		}
		if err := os.WriteFile(filex.ChunkPath(chunkDir, index), plain, 0o660); err != nil {
			return "", fmt.Errorf("stage chunk %d: %w", index, err)
		}
		return "", nil
	}

	pool := NewPool(d.cfg.Concurrency, count, d.cfg.MaxRestarts, d.store.Connect, op, d.log)
	pool.Start(ctx)
	for i := 0; i < count; i++ {
		pool.Submit(i)
	}

	d.tracker.SetText(file.UserID, file.ID,
		fmt.Sprintf("Downloaded 0/%d chunks.", count), 0, count)

	downloaded := 0
	err = supervise(ctx, pool, count, newRetryPolicy(3*count), func(Result) {
		downloaded++
		d.tracker.SetText(file.UserID, file.ID,
			fmt.Sprintf("Downloaded %d/%d chunks.", downloaded, count), downloaded, count)
	})
	if err != nil {
		d.abort(ctx, file, log, err, chunkDir)
		return "", nil, err
	}

	outDir, err := filex.MakeTempDir(d.cfg.TempRoot)
	if err != nil {
		d.abort(ctx, file, log, err, chunkDir)
		return "", nil, err
	}
	outPath := filepath.Join(outDir, filepath.Base(file.FileName))

	d.tracker.SetText(file.UserID, file.ID,
		fmt.Sprintf("Concatenated 0/%d chunks.", count), 0, count)

	err = filex.Concat(chunkDir, count, outPath, func(done int) {
		d.tracker.SetText(file.UserID, file.ID,
			fmt.Sprintf("Concatenated %d/%d chunks.", done, count), done, count)
	})
	if err != nil {
		filex.RemoveQuiet(outDir)
		d.abort(ctx, file, log, err, chunkDir)
		return "", nil, err
	}

	d.tracker.Remove(file.UserID, file.ID, false)
	log.Info(ctx, "download complete", "path", outPath)

	cleanup := func() { filex.RemoveQuiet(chunkDir, outDir) }
	return outPath, cleanup, nil
}

func (d *Downloader) abort(ctx context.Context, file *models.File, log logging.Logger, err error, chunkDir string) {
	log.Error(ctx, "download aborted", "error", err)
	filex.RemoveQuiet(chunkDir)
	d.tracker.Remove(file.UserID, file.ID, true)
}
