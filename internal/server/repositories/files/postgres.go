package files

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/common"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/dbx"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/models"
)

// PostgresRepository implements manifest storage over a dbx.DBTX
// (*sql.DB or *sql.Tx). Handles are stored as a JSONB array so the
// chunk-index ordering survives round trips unchanged.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Save(ctx context.Context, file *models.File) (string, error) {
	handles, err := json.Marshal(file.Handles)
	if err != nil {
		return "", fmt.Errorf("marshal handles: %w", err)
	}

	query := `
		INSERT INTO files (user_id, file_name, file_size, date_created, handles)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = r.db.QueryRowContext(ctx, query,
		file.UserID, file.FileName, file.FileSize, file.DateCreated, handles).Scan(&file.ID)
	if err != nil {
		return "", fmt.Errorf("db error: %w", err)
	}

	return file.ID, nil
}

func (r *PostgresRepository) Find(ctx context.Context, id string) (*models.File, error) {
	query := `
		SELECT id, user_id, file_name, file_size, date_created, handles FROM files
		WHERE id = $1
	`

	file := &models.File{}
	var handles []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&file.ID, &file.UserID, &file.FileName, &file.FileSize, &file.DateCreated, &handles)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(handles, &file.Handles); err != nil {
		return nil, fmt.Errorf("unmarshal handles: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) FindAllByUser(ctx context.Context, userID string) ([]*models.File, error) {
	query := `
		SELECT id, user_id, file_name, file_size, date_created, handles FROM files
		WHERE user_id = $1
		ORDER BY date_created
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		file := &models.File{}
		var handles []byte
		if err := rows.Scan(&file.ID, &file.UserID, &file.FileName, &file.FileSize, &file.DateCreated, &handles); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(handles, &file.Handles); err != nil {
			return nil, fmt.Errorf("unmarshal handles: %w", err)
		}
		result = append(result, file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
