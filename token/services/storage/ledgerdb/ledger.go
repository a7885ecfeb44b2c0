/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledgerdb

import (
	"database/sql"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/logging"
	"github.com/pkg/errors"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	Memory   = "memory"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

var logger = logging.MustGetLogger("token-sdk.storage.ledgerdb")

// Opts selects and configures the storage backend
type Opts struct {
	Driver       string
	DataSource   string
	MaxOpenConns int
}

// New returns the ledger storage selected by opts
func New(opts Opts) (driver.Ledger, error) {
	switch opts.Driver {
	case Memory, "":
		return NewMemory(), nil
	case SQLite:
		db, err := sql.Open("sqlite", opts.DataSource)
		if err != nil {
			return nil, errors.Wrapf(err, "failed opening sqlite datasource")
		}
		// a single writer avoids SQLITE_BUSY, and keeps in-memory databases alive across queries
		db.SetMaxOpenConns(1)
		return newSQLFromDB(db, sqliteDialect)
	case Postgres:
		db, err := sql.Open("pgx", opts.DataSource)
		if err != nil {
			return nil, errors.Wrapf(err, "failed opening postgres datasource")
		}
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		return newSQLFromDB(db, postgresDialect)
	default:
		return nil, errors.Errorf("unknown ledger driver [%s]", opts.Driver)
	}
}

func newSQLFromDB(db *sql.DB, d dialect) (*SQLLedger, error) {
	l := NewSQL(db, d)
	if err := l.CreateSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}
