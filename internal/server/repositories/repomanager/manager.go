// Package repomanager hands out repositories bound to a database handle,
// so services can run the same code against *sql.DB or inside a *sql.Tx.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/orbit/internal/dbx"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/activity"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/oauthaccounts"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/orbit/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	OAuthAccounts(db dbx.DBTX) oauthaccounts.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Activity(db dbx.DBTX) activity.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
