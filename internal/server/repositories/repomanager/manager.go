// Package repomanager wires the Postgres repositories behind one manager
// that owns the database handle and the startup migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/repositories/files"
	"github.com/Sebastian-Webster/discord-cloud-storage/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Conn() *sql.DB
	Users() users.Repository
	Files() files.Repository
}
