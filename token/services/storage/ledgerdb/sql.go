/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledgerdb

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type dialect struct {
	name              string
	blobType          string
	isUniqueViolation func(err error) bool
}

var (
	sqliteDialect = dialect{
		name:     SQLite,
		blobType: "BLOB",
		isUniqueViolation: func(err error) bool {
			var sqliteErr *sqlite.Error
			if !errors.As(err, &sqliteErr) {
				return false
			}
			return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
		},
	}
	postgresDialect = dialect{
		name:     Postgres,
		blobType: "BYTEA",
		isUniqueViolation: func(err error) bool {
			var pgErr *pgconn.PgError
			return errors.As(err, &pgErr) && pgErr.Code == "23505"
		},
	}
)

type tableNames struct {
	Receipts string
	Records  string
	Consumed string
}

var defaultTables = tableNames{
	Receipts: "ledger_receipts",
	Records:  "ledger_records",
	Consumed: "ledger_consumed",
}

// SQLLedger stores finalized transactions in a SQL database.
// A primary key on the consumed inputs guarantees that no record is consumed twice,
// even when several processes write to the same database.
type SQLLedger struct {
	db      *sql.DB
	dialect dialect
	tables  tableNames
}

// NewSQL returns a ledger on top of db. The schema is not created.
func NewSQL(db *sql.DB, d dialect) *SQLLedger {
	return &SQLLedger{db: db, dialect: d, tables: defaultTables}
}

// NewPostgres returns a postgres ledger on top of db. The schema is not created.
func NewPostgres(db *sql.DB) *SQLLedger {
	return NewSQL(db, postgresDialect)
}

// NewSQLite returns a sqlite ledger on top of db. The schema is not created.
func NewSQLite(db *sql.DB) *SQLLedger {
	return NewSQL(db, sqliteDialect)
}

// GetSchema returns the statements that create the tables
func (l *SQLLedger) GetSchema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_id TEXT NOT NULL PRIMARY KEY,
			receipt %s NOT NULL,
			stored_at TIMESTAMP NOT NULL
		)`, l.tables.Receipts, l.dialect.blobType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			issuer %[2]s NOT NULL,
			owner %[2]s NOT NULL,
			amount BIGINT NOT NULL,
			PRIMARY KEY (tx_id, idx)
		)`, l.tables.Records, l.dialect.blobType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			tx_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			consumer_tx_id TEXT NOT NULL,
			PRIMARY KEY (tx_id, idx)
		)`, l.tables.Consumed),
	}
}

func (l *SQLLedger) CreateSchema() error {
	logger.Debugf("creating [%s] schema", l.dialect.name)
	for _, statement := range l.GetSchema() {
		if _, err := l.db.Exec(statement); err != nil {
			return errors.Wrapf(err, "failed creating schema")
		}
	}
	return nil
}

func (l *SQLLedger) RecordFinalized(ctx context.Context, receipt *driver.Receipt) (err error) {
	tx, err := finalizedTransaction(receipt)
	if err != nil {
		return err
	}
	raw, err := receipt.Bytes()
	if err != nil {
		return errors.Wrapf(err, "failed marshalling receipt [%s]", tx.ID)
	}
	for i, output := range tx.Outputs {
		if output.Amount > math.MaxInt64 {
			return errors.Errorf("output [%d] of [%s] exceeds the storable amount", i, tx.ID)
		}
	}

	dbTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "failed starting db transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := dbTx.Rollback(); rbErr != nil {
				logger.Errorf("failed rolling back [%s]: %s", tx.ID, rbErr)
			}
		}
	}()

	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE tx_id = $1", l.tables.Receipts)
	logger.Debug(query, tx.ID)
	if err = dbTx.QueryRowContext(ctx, query, tx.ID).Scan(&n); err != nil {
		return errors.Wrapf(err, "failed checking transaction [%s]", tx.ID)
	}
	if n != 0 {
		return errors.Wrapf(driver.ErrAlreadyRecorded, "transaction [%s]", tx.ID)
	}

	query = fmt.Sprintf("INSERT INTO %s (tx_id, receipt, stored_at) VALUES ($1, $2, $3)", l.tables.Receipts)
	logger.Debug(query, tx.ID)
	if _, err = dbTx.ExecContext(ctx, query, tx.ID, raw, time.Now().UTC()); err != nil {
		if l.dialect.isUniqueViolation(err) {
			return errors.Wrapf(driver.ErrAlreadyRecorded, "transaction [%s]", tx.ID)
		}
		return errors.Wrapf(err, "failed storing receipt [%s]", tx.ID)
	}

	query = fmt.Sprintf("INSERT INTO %s (tx_id, idx, issuer, owner, amount) VALUES ($1, $2, $3, $4, $5)", l.tables.Records)
	for i, output := range tx.Outputs {
		logger.Debug(query, tx.ID, i)
		if _, err = dbTx.ExecContext(ctx, query, tx.ID, i, []byte(output.Issuer), []byte(output.Owner), int64(output.Amount)); err != nil {
			return errors.Wrapf(err, "failed storing output [%d] of [%s]", i, tx.ID)
		}
	}

	query = fmt.Sprintf("INSERT INTO %s (tx_id, idx, consumer_tx_id) VALUES ($1, $2, $3)", l.tables.Consumed)
	for _, input := range tx.Inputs {
		logger.Debug(query, input, tx.ID)
		if _, err = dbTx.ExecContext(ctx, query, input.TxId, int64(input.Index), tx.ID); err != nil {
			if l.dialect.isUniqueViolation(err) {
				return errors.Wrapf(driver.ErrInputConsumed, "[%s]", input)
			}
			return errors.Wrapf(err, "failed consuming [%s]", input)
		}
	}

	if err = dbTx.Commit(); err != nil {
		return errors.Wrapf(err, "failed committing [%s]", tx.ID)
	}
	logger.Debugf("recorded transaction [%s]", tx.ID)
	return nil
}

func (l *SQLLedger) IsConsumed(ctx context.Context, id token.ID) (bool, error) {
	query := fmt.Sprintf("SELECT consumer_tx_id FROM %s WHERE tx_id = $1 AND idx = $2", l.tables.Consumed)
	logger.Debug(query, id)
	var consumer string
	err := l.db.QueryRowContext(ctx, query, id.TxId, int64(id.Index)).Scan(&consumer)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed checking [%s]", id)
	}
	return true, nil
}

func (l *SQLLedger) Lookup(ctx context.Context, id token.ID) (*token.Record, error) {
	query := fmt.Sprintf("SELECT issuer, owner, amount FROM %s WHERE tx_id = $1 AND idx = $2", l.tables.Records)
	logger.Debug(query, id)
	var issuer, owner []byte
	var amount int64
	err := l.db.QueryRowContext(ctx, query, id.TxId, int64(id.Index)).Scan(&issuer, &owner, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(driver.ErrRecordNotFound, "record [%s]", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed looking up [%s]", id)
	}
	record := token.NewRecord(issuer, owner, uint64(amount))
	return &record, nil
}

func (l *SQLLedger) GetReceipt(ctx context.Context, txID string) (*driver.Receipt, error) {
	query := fmt.Sprintf("SELECT receipt FROM %s WHERE tx_id = $1", l.tables.Receipts)
	logger.Debug(query, txID)
	var raw []byte
	err := l.db.QueryRowContext(ctx, query, txID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed getting receipt [%s]", txID)
	}
	receipt := &driver.Receipt{}
	if err := receipt.FromBytes(raw); err != nil {
		return nil, errors.Wrapf(err, "failed unmarshalling receipt [%s]", txID)
	}
	return receipt, nil
}

// Count returns the number of recorded transactions
func (l *SQLLedger) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", l.tables.Receipts)
	if err := l.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "failed counting receipts")
	}
	return n, nil
}

func (l *SQLLedger) Close() error {
	return l.db.Close()
}
