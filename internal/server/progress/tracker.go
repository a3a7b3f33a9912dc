// Package progress tracks in-flight file actions per user. The tracker is
// the duplicate-action guard for the transfer pipelines and the source of
// the live events pushed to connected clients.
//
// State is process-local by design: a restart aborts in-flight transfers,
// so there is nothing worth persisting.
package progress

import (
	"sync"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
)

type ActionType string

const (
	TypeUpload   ActionType = "Upload"
	TypeDownload ActionType = "Download"
	TypeDelete   ActionType = "Delete"
)

// Indeterminate is the sentinel chunk count meaning "not yet chunked".
const Indeterminate = -1

// Action is one in-flight upload/download/delete, as shown to the client.
type Action struct {
	FileID       string     `json:"fileId"`
	FileName     string     `json:"fileName"`
	FileSize     int64      `json:"fileSize"`
	Text         string     `json:"text"`
	ActionType   ActionType `json:"actionType"`
	CurrentChunk int        `json:"currentChunk"`
	ChunkCount   int        `json:"chunkCount"`
	Error        bool       `json:"error,omitempty"`
}

// Event names pushed over the live channel.
const (
	EventFileAction       = "file-action"
	EventRemoveFileAction = "remove-file-action"
	EventInitialActions   = "initial-file-actions"
)

// Emitter pushes an event to one user's live session, if connected.
// Delivery is best-effort.
type Emitter interface {
	Emit(userID, event string, payload any)
}

// Tracker holds every user's in-flight actions behind one mutex. All
// mutations are serialized, so progress counters never lose updates.
type Tracker struct {
	mu      sync.Mutex
	actions map[string][]*Action
	emitter Emitter
}

func NewTracker(emitter Emitter) *Tracker {
	return &Tracker{
		actions: make(map[string][]*Action),
		emitter: emitter,
	}
}

// Start registers a new action for (userID, action.FileID) and emits it.
// Returns common.ErrDuplicateAction if an action for that file is already
// in flight; the existence check and the insert happen under one lock so
// two racing pipelines can never both win.
func (t *Tracker) Start(userID string, action Action) error {
	t.mu.Lock()
	if t.find(userID, action.FileID) != nil {
		t.mu.Unlock()
		return common.ErrDuplicateAction
	}

	a := action
	t.actions[userID] = append(t.actions[userID], &a)
	payload := a
	t.mu.Unlock()

	t.emit(userID, EventFileAction, payload)
	return nil
}

// SetText updates an action's progress text and chunk counters and
// re-emits it. A missing action is a no-op.
func (t *Tracker) SetText(userID, fileID, text string, current, total int) {
	t.mu.Lock()
	a := t.find(userID, fileID)
	if a == nil {
		t.mu.Unlock()
		return
	}

	a.Text = text
	a.CurrentChunk = current
	a.ChunkCount = total
	payload := *a
	t.mu.Unlock()

	t.emit(userID, EventFileAction, payload)
}

// Remove pops the action, emits the terminal event carrying the error flag,
// and frees the user's action set once it is empty.
func (t *Tracker) Remove(userID, fileID string, hadError bool) {
	t.mu.Lock()
	actions := t.actions[userID]
	idx := -1
	for i, a := range actions {
		if a.FileID == fileID {
			idx = i
			break
		}
	}
	if idx == -1 {
		t.mu.Unlock()
		return
	}

	removed := *actions[idx]
	removed.Error = hadError

	actions = append(actions[:idx], actions[idx+1:]...)
	if len(actions) == 0 {
		delete(t.actions, userID)
	} else {
		t.actions[userID] = actions
	}
	t.mu.Unlock()

	t.emit(userID, EventRemoveFileAction, removed)
}

// Exists reports whether (userID, fileID) has an in-flight action.
func (t *Tracker) Exists(userID, fileID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.find(userID, fileID) != nil
}

// Snapshot returns a copy of the user's current actions, used to
// re-synchronize a reconnecting live session.
func (t *Tracker) Snapshot(userID string) []Action {
	t.mu.Lock()
	defer t.mu.Unlock()

	actions := t.actions[userID]
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		out = append(out, *a)
	}
	return out
}

func (t *Tracker) find(userID, fileID string) *Action {
	for _, a := range t.actions[userID] {
		if a.FileID == fileID {
			return a
		}
	}
	return nil
}

func (t *Tracker) emit(userID, event string, payload any) {
	if t.emitter != nil {
		t.emitter.Emit(userID, event, payload)
	}
}
