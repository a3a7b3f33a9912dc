package accounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/auth"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := *user
	saved.ID = uuid.NewString()
	saved.CreatedAt = time.Now()
	r.users[saved.UserName] = &saved
	return &saved, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, userName string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userName]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, common.ErrNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, common.ErrNotFound
}

var secret = []byte("test-secret")

func TestService_RegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, secret, time.Hour)

	user, token, err := svc.Register(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, []byte("hunter2"), user.PasswordHash)

	// The registration token authenticates as the new user.
	userID, err := auth.GetUserIDFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	loggedIn, token, err := svc.Login(context.Background(), "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, token)
}

func TestService_LoginWrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo, secret, time.Hour)

	_, _, err := svc.Register(context.Background(), "alice", "hunter2")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestService_LoginUnknownUser(t *testing.T) {
	svc := NewService(newFakeUserRepo(), secret, time.Hour)

	_, _, err := svc.Login(context.Background(), "nobody", "pw")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestService_RegisterValidation(t *testing.T) {
	svc := NewService(newFakeUserRepo(), secret, time.Hour)

	_, _, err := svc.Register(context.Background(), "", "pw")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, _, err = svc.Register(context.Background(), "alice", "")
	assert.ErrorIs(t, err, common.ErrValidation)
}
