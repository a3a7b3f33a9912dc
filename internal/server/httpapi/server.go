// Package httpapi is the HTTP boundary of the storage server: account
// endpoints, the authenticated file API and the Server-Sent Events live
// progress channel.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/accounts"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/progress"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/repositories/files"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/transfer"
)

// Server wires the HTTP handlers to the services and runs the listener.
type Server struct {
	httpServer *http.Server
	log        logging.Logger

	accounts   *accounts.Service
	files      files.Repository
	uploader   *transfer.Uploader
	downloader *transfer.Downloader
	deleter    *transfer.Deleter
	tracker    *progress.Tracker
	hub        *Hub

	secretKey []byte
	tempDir   string
}

type Options struct {
	Addr      string
	SecretKey []byte
	TempDir   string
}

func NewServer(opts Options, acc *accounts.Service, repo files.Repository,
	up *transfer.Uploader, down *transfer.Downloader, del *transfer.Deleter,
	tracker *progress.Tracker, hub *Hub, log logging.Logger) *Server {

	s := &Server{
		log:        log.With("module", "httpapi"),
		accounts:   acc,
		files:      repo,
		uploader:   up,
		downloader: down,
		deleter:    del,
		tracker:    tracker,
		hub:        hub,
		secretKey:  opts.SecretKey,
		tempDir:    opts.TempDir,
	}

	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("POST /signin", s.handleSignin)

	mux.Handle("POST /auth/file", s.authenticate(http.HandlerFunc(s.handleUpload)))
	mux.Handle("GET /auth/files", s.authenticate(http.HandlerFunc(s.handleList)))
	mux.Handle("GET /auth/file/{id}", s.authenticate(http.HandlerFunc(s.handleDownload)))
	mux.Handle("DELETE /auth/file/{id}", s.authenticate(http.HandlerFunc(s.handleDelete)))
	mux.Handle("GET /auth/events", s.authenticate(http.HandlerFunc(s.handleEvents)))

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.Info(ctx, "http server listening", "addr", s.httpServer.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps the sentinel taxonomy onto HTTP statuses.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateAction):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.log.Error(ctx, "request failed", "error", err)
		s.writeJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
