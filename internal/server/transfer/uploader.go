package transfer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/cryptox"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/filex"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/objstore"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/progress"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/repositories/files"
	"github.com/dustin/go-humanize"
)

// UploadRequest describes one staged source file to push to the store.
// FileID is the client-chosen progress token, not the manifest id: the
// manifest id is assigned by the repository only after every chunk landed.
type UploadRequest struct {
	UserID     string
	FileID     string
	FileName   string
	SourcePath string
	Size       int64
}

// UploaderConfig carries the upload pipeline tunables.
type UploaderConfig struct {
	ChunkSize   int64
	Concurrency int
	// MaxRetries bounds retries per chunk.
	MaxRetries  int
	MaxRestarts int
}

// Uploader splits a staged file into fixed-size chunks, encrypts each one
// and uploads them concurrently, then persists the ordered handle manifest.
type Uploader struct {
	store   objstore.ObjectStore
	files   files.Repository
	tracker *progress.Tracker
	key     []byte
	cfg     UploaderConfig
	log     logging.Logger
}

func NewUploader(store objstore.ObjectStore, repo files.Repository, tracker *progress.Tracker, key []byte, cfg UploaderConfig, log logging.Logger) *Uploader {
	return &Uploader{
		store:   store,
		files:   repo,
		tracker: tracker,
		key:     key,
		cfg:     cfg,
		log:     log.With("module", "uploader"),
	}
}

// Run executes the upload pipeline for req and returns the saved manifest.
// The staged source file is deleted on every exit path.
func (u *Uploader) Run(ctx context.Context, req UploadRequest) (*models.File, error) {
	chunkCount := ChunkCount(req.Size, u.cfg.ChunkSize)
	if chunkCount == 0 {
		filex.RemoveQuiet(req.SourcePath)
		return nil, fmt.Errorf("%w: file of %d bytes yields no chunks", common.ErrValidation, req.Size)
	}

	if err := u.tracker.Start(req.UserID, progress.Action{
		FileID:       req.FileID,
		FileName:     req.FileName,
		FileSize:     req.Size,
		Text:         "Connecting to the storage backend...",
		ActionType:   progress.TypeUpload,
		CurrentChunk: progress.Indeterminate,
		ChunkCount:   progress.Indeterminate,
	}); err != nil {
		filex.RemoveQuiet(req.SourcePath)
		return nil, err
	}

	log := u.log.With("user_id", req.UserID, "file_id", req.FileID)
	log.Info(ctx, "starting upload", "name", req.FileName,
		"size", humanize.IBytes(uint64(req.Size)), "chunks", chunkCount)

	src, err := os.Open(req.SourcePath)
	if err != nil {
		u.abort(ctx, req, log, fmt.Errorf("open source: %w", err))
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	op := func(ctx context.Context, index int) (string, error) {
		start, end := ChunkRange(index, req.Size, u.cfg.ChunkSize)
		buf := make([]byte, end-start)
		if _, err := src.ReadAt(buf, start); err != nil {
			return "", fmt.Errorf("read chunk %d: %w", index, err)
		}
		blob, err := cryptox.EncryptChunk(u.key, buf)
		if err != nil {
			return "", fmt.Errorf("encrypt chunk %d: %w", index, err)
		}
		return u.store.Upload(ctx, strconv.Itoa(index), blob)
	}

	pool := NewPool(u.cfg.Concurrency, chunkCount, u.cfg.MaxRestarts, u.store.Connect, op, u.log)
	pool.Start(ctx)
	for i := 0; i < chunkCount; i++ {
		pool.Submit(i)
	}

	u.tracker.SetText(req.UserID, req.FileID,
		fmt.Sprintf("0/%d chunks uploaded.", chunkCount), 0, chunkCount)

	handles := make([]string, chunkCount)
	uploaded := 0
	err = supervise(ctx, pool, chunkCount, newRetryPolicy(u.cfg.MaxRetries), func(res Result) {
		handles[res.Index] = res.Handle
		uploaded++
		u.tracker.SetText(req.UserID, req.FileID,
			fmt.Sprintf("%d/%d chunks uploaded.", uploaded, chunkCount), uploaded, chunkCount)
	})
	if err != nil {
		u.abort(ctx, req, log, err)
		return nil, err
	}

	file := &models.File{
		UserID:      req.UserID,
		FileName:    req.FileName,
		FileSize:    req.Size,
		DateCreated: time.Now().UnixMilli(),
		Handles:     handles,
	}
	id, err := u.files.Save(ctx, file)
	if err != nil {
		// The uploaded chunks stay orphaned on the remote store; the user can
		// retry the whole upload.
		log.Error(ctx, "manifest save failed, remote chunks orphaned",
			"chunks", chunkCount, "error", err)
		u.abort(ctx, req, log, err)
		return nil, fmt.Errorf("save manifest: %w", err)
	}
	file.ID = id

	filex.RemoveQuiet(req.SourcePath)
	u.tracker.Remove(req.UserID, req.FileID, false)
	log.Info(ctx, "upload complete", "manifest_id", file.ID)
	return file, nil
}

func (u *Uploader) abort(ctx context.Context, req UploadRequest, log logging.Logger, err error) {
	log.Error(ctx, "upload aborted", "error", err)
	filex.RemoveQuiet(req.SourcePath)
	u.tracker.Remove(req.UserID, req.FileID, true)
}
