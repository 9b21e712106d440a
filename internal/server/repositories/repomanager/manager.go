// Package repomanager bundles repository constructors behind one interface
// so services can obtain repositories bound to either the connection pool or
// a transaction handle, and wires database migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/notecloud/backend/internal/dbx"
	"github.com/notecloud/backend/internal/server/repositories/notes"
	"github.com/notecloud/backend/internal/server/repositories/refreshtokens"
	"github.com/notecloud/backend/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Notes(db dbx.DBTX) notes.Repository
}
