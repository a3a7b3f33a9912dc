package objstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeDiscord implements just enough of the message API for the store:
// create message with attachment, get message, serve attachment bytes,
// delete message.
type fakeDiscord struct {
	mu       sync.Mutex
	objects  map[string][]byte
	nextID   int
	srv      *httptest.Server
	channel  string
	failures int // respond 500 this many times before succeeding
}

func newFakeDiscord(t *testing.T) *fakeDiscord {
	t.Helper()
	f := &fakeDiscord{objects: map[string][]byte{}, channel: "chan-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels/{cid}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bot token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprintf(w, `{"id":%q}`, r.PathValue("cid"))
	})
	mux.HandleFunc("POST /channels/{cid}/messages", func(w http.ResponseWriter, r *http.Request) {
		if f.maybeFail(w) {
			return
		}
		require.NoError(t, r.ParseMultipartForm(32<<20))
		file, _, err := r.FormFile("files[0]")
		require.NoError(t, err)
		payload, err := io.ReadAll(file)
		require.NoError(t, err)

		f.mu.Lock()
		f.nextID++
		id := fmt.Sprintf("msg-%d", f.nextID)
		f.objects[id] = payload
		f.mu.Unlock()

		fmt.Fprintf(w, `{"id":%q}`, id)
	})
	mux.HandleFunc("GET /channels/{cid}/messages/{mid}", func(w http.ResponseWriter, r *http.Request) {
		if f.maybeFail(w) {
			return
		}
		mid := r.PathValue("mid")
		f.mu.Lock()
		_, ok := f.objects[mid]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Unknown Message"}`)
			return
		}
		fmt.Fprintf(w, `{"id":%q,"attachments":[{"url":%q}]}`, mid, f.srv.URL+"/attachments/"+mid)
	})
	mux.HandleFunc("GET /attachments/{mid}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		payload, ok := f.objects[r.PathValue("mid")]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(payload)
	})
	mux.HandleFunc("DELETE /channels/{cid}/messages/{mid}", func(w http.ResponseWriter, r *http.Request) {
		if f.maybeFail(w) {
			return
		}
		f.mu.Lock()
		delete(f.objects, r.PathValue("mid"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeDiscord) maybeFail(w http.ResponseWriter) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		w.WriteHeader(http.StatusInternalServerError)
		return true
	}
	return false
}

func (f *fakeDiscord) store() *DiscordStore {
	return NewDiscordStore(f.srv.URL, "token-1", f.channel, 5*time.Second, testLogger())
}

func TestDiscordStore_UploadFetchDelete(t *testing.T) {
	f := newFakeDiscord(t)
	store := f.store()
	ctx := context.Background()

	require.NoError(t, store.Connect(ctx))

	payload := []byte("encrypted chunk bytes")
	handle, err := store.Upload(ctx, "0", payload)
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	got, err := store.Fetch(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, store.Delete(ctx, handle))

	_, err = store.Fetch(ctx, handle)
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.False(t, IsRetryable(err))
}

func TestDiscordStore_Connect_BadToken(t *testing.T) {
	f := newFakeDiscord(t)
	store := NewDiscordStore(f.srv.URL, "wrong", f.channel, 5*time.Second, testLogger())

	err := store.Connect(context.Background())
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
}

func TestDiscordStore_UploadTooLarge(t *testing.T) {
	f := newFakeDiscord(t)
	store := f.store()

	_, err := store.Upload(context.Background(), "0", make([]byte, maxAttachmentBytes+1))
	require.Error(t, err)
}

func TestDiscordStore_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"retry_after": 2.0})
	}))
	defer srv.Close()

	store := NewDiscordStore(srv.URL, "token-1", "chan-1", 5*time.Second, testLogger())

	err := store.Delete(context.Background(), "msg-1")
	require.Error(t, err)

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 2*time.Second, rl.RetryAfter)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 2*time.Second, RetryAfter(err))
}

func TestDiscordStore_ServerErrorIsRetryable(t *testing.T) {
	f := newFakeDiscord(t)
	f.failures = 1
	store := f.store()

	_, err := store.Upload(context.Background(), "0", []byte("x"))
	require.Error(t, err)
	assert.True(t, IsRetryable(err))

	// Next attempt succeeds.
	_, err = store.Upload(context.Background(), "0", []byte("x"))
	require.NoError(t, err)
}
