package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/filex"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/transfer"
	"github.com/google/uuid"
)

// maxMultipartMemory bounds the in-memory part of a multipart upload; larger
// bodies spill to disk.
const maxMultipartMemory = 32 << 20

// handleUpload stages the multipart body to a temp file and runs the upload
// pipeline to completion. The fileId form value is the client-chosen
// progress token and must be a uuid.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		s.writeError(ctx, w, fmt.Errorf("%w: invalid multipart body", common.ErrValidation))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fileID := r.FormValue("fileId")
	if err := uuid.Validate(fileID); err != nil {
		s.writeError(ctx, w, fmt.Errorf("%w: fileId must be a uuid", common.ErrValidation))
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(ctx, w, fmt.Errorf("%w: missing file part", common.ErrValidation))
		return
	}
	defer part.Close()

	stagingDir, err := filex.MakeTempDir(s.tempDir)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	defer filex.RemoveQuiet(stagingDir)

	stagedPath := filepath.Join(stagingDir, "upload")
	staged, err := os.Create(stagedPath)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	size, err := io.Copy(staged, part)
	staged.Close()
	if err != nil {
		s.writeError(ctx, w, fmt.Errorf("stage upload: %w", err))
		return
	}

	file, err := s.uploader.Run(ctx, transfer.UploadRequest{
		UserID:     userID(ctx),
		FileID:     fileID,
		FileName:   filepath.Base(header.Filename),
		SourcePath: stagedPath,
		Size:       size,
	})
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, file)
}

type listResponse struct {
	Files            []*models.File `json:"files"`
	StorageBytesUsed int64          `json:"storageBytesUsed"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := s.files.FindAllByUser(ctx, userID(ctx))
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	var used int64
	for _, f := range list {
		used += f.FileSize
	}

	if list == nil {
		list = []*models.File{}
	}
	s.writeJSON(w, http.StatusOK, listResponse{Files: list, StorageBytesUsed: used})
}

// findOwned loads the manifest and hides other users' files behind 404.
func (s *Server) findOwned(ctx context.Context, id string) (*models.File, error) {
	file, err := s.files.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if file.UserID != userID(ctx) {
		return nil, common.ErrNotFound
	}
	return file, nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, err := s.findOwned(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	path, cleanup, err := s.downloader.Run(ctx, file)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	defer cleanup()

	out, err := os.Open(path)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	defer out.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(file.FileSize, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	if _, err := io.Copy(w, out); err != nil {
		// Headers are gone; nothing left to do but log.
		s.log.Warn(ctx, "download stream interrupted", "manifest_id", file.ID, "error", err)
	}
}

// handleDelete removes the manifest record first and then clears the remote
// chunks in the background. A record without chunks only wastes remote
// space; chunks without a record would be a file the user can see but never
// fetch.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	file, err := s.findOwned(ctx, r.PathValue("id"))
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	if s.tracker.Exists(file.UserID, file.ID) {
		s.writeError(ctx, w, common.ErrDuplicateAction)
		return
	}

	if err := s.files.Delete(ctx, file.ID); err != nil {
		s.writeError(ctx, w, err)
		return
	}

	go func() {
		// Detached from the request: the record is already gone and remote
		// cleanup is best-effort.
		ctx := context.Background()
		if err := s.deleter.Run(ctx, file); err != nil {
			s.log.Warn(ctx, "remote chunk cleanup incomplete", "manifest_id", file.ID, "error", err)
		}
	}()

	s.writeJSON(w, http.StatusOK, map[string]string{"deleted": file.ID})
}
