package transfer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/logging"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/progress"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeStore is an in-memory ObjectStore with scriptable failures: each
// fail* call enqueues errors that are returned, in order, before the
// operation finally succeeds.
type fakeStore struct {
	mu         sync.Mutex
	connectErr error
	panicAll   bool

	objects    map[string][]byte
	nextHandle int

	uploadFails map[string][]error
	fetchFails  map[string][]error
	deleteFails map[string][]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:     make(map[string][]byte),
		uploadFails: make(map[string][]error),
		fetchFails:  make(map[string][]error),
		deleteFails: make(map[string][]error),
	}
}

func (f *fakeStore) setPanicAll(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panicAll = v
}

func (f *fakeStore) failUpload(name string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadFails[name] = append(f.uploadFails[name], errs...)
}

func (f *fakeStore) failFetch(handle string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchFails[handle] = append(f.fetchFails[handle], errs...)
}

func (f *fakeStore) failDelete(handle string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteFails[handle] = append(f.deleteFails[handle], errs...)
}

func pop(queue map[string][]error, key string) error {
	errs := queue[key]
	if len(errs) == 0 {
		return nil
	}
	queue[key] = errs[1:]
	return errs[0]
}

func (f *fakeStore) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectErr
}

func (f *fakeStore) Upload(ctx context.Context, name string, payload []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicAll {
		panic("store connection lost")
	}
	if err := pop(f.uploadFails, name); err != nil {
		return "", err
	}
	f.nextHandle++
	handle := fmt.Sprintf("msg-%s-%d", name, f.nextHandle)
	f.objects[handle] = append([]byte(nil), payload...)
	return handle, nil
}

func (f *fakeStore) Fetch(ctx context.Context, handle string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := pop(f.fetchFails, handle); err != nil {
		return nil, err
	}
	blob, ok := f.objects[handle]
	if !ok {
		return nil, fmt.Errorf("no object for handle %s", handle)
	}
	return append([]byte(nil), blob...), nil
}

func (f *fakeStore) Delete(ctx context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := pop(f.deleteFails, handle); err != nil {
		return err
	}
	delete(f.objects, handle)
	return nil
}

func (f *fakeStore) stored(handle string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	blob, ok := f.objects[handle]
	return blob, ok
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeRepo is an in-memory files.Repository.
type fakeRepo struct {
	mu      sync.Mutex
	saveErr error
	nextID  int
	files   map[string]*models.File
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{files: make(map[string]*models.File)}
}

func (r *fakeRepo) Save(ctx context.Context, file *models.File) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return "", r.saveErr
	}
	r.nextID++
	id := fmt.Sprintf("manifest-%d", r.nextID)
	saved := *file
	saved.ID = id
	r.files[id] = &saved
	return id, nil
}

func (r *fakeRepo) Find(ctx context.Context, id string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.files[id]; ok {
		copied := *f
		return &copied, nil
	}
	return nil, fmt.Errorf("no manifest %s", id)
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	return nil
}

func (r *fakeRepo) FindAllByUser(ctx context.Context, userID string) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.File
	for _, f := range r.files {
		if f.UserID == userID {
			copied := *f
			out = append(out, &copied)
		}
	}
	return out, nil
}

// recordingEmitter captures tracker events for assertions.
type recordedEvent struct {
	Event  string
	Action progress.Action
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEmitter) Emit(userID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Event: event, Action: payload.(progress.Action)})
}

func (r *recordingEmitter) all() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}
