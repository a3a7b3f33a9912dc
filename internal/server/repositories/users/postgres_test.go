package users

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	user := &models.User{
		UserName:     "sebastian",
		PasswordHash: []byte{1, 2, 3},
		Salt:         []byte{4, 5, 6},
	}

	mock.ExpectQuery("INSERT INTO users").
		WithArgs(user.UserName, user.PasswordHash, user.Salt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("user-id-1"))

	got, err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, "user-id-1", got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "salt"}).
		AddRow("user-id-1", "sebastian", []byte{1}, []byte{2})
	mock.ExpectQuery("SELECT id, username, password_hash, salt FROM users").
		WithArgs("sebastian").
		WillReturnRows(rows)

	got, err := repo.GetByUsername(context.Background(), "sebastian")
	require.NoError(t, err)
	assert.Equal(t, "user-id-1", got.ID)
	assert.Equal(t, []byte{1}, got.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUsername_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SELECT id, username, password_hash, salt FROM users").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByUsername(context.Background(), "ghost")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	mock.ExpectQuery("SELECT id, username, password_hash, salt FROM users").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
