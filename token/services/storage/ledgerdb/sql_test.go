/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledgerdb_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hyperledger-labs/token-issuance-sdk/token/driver"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/storage/ledgerdb"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/onsi/gomega"
	"github.com/pkg/errors"
)

func TestRecordFinalizedRollsBack(t *testing.T) {
	gomega.RegisterTestingT(t)
	db, mockDB, err := sqlmock.New()
	gomega.Expect(err).ToNot(gomega.HaveOccurred())

	receipt := receiptFor(t, "n1", nil, token.NewRecord(issuer, alice, 5))
	txID := receipt.ID()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ledger_receipts WHERE tx_id = $1")).
		WithArgs(txID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mockDB.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_receipts (tx_id, receipt, stored_at) VALUES ($1, $2, $3)")).
		WithArgs(txID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_records (tx_id, idx, issuer, owner, amount) VALUES ($1, $2, $3, $4, $5)")).
		WithArgs(txID, int64(0), []byte(issuer), []byte(alice), int64(5)).
		WillReturnError(errors.New("disk full"))
	mockDB.ExpectRollback()

	err = ledgerdb.NewPostgres(db).RecordFinalized(context.Background(), receipt)
	gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("disk full")))
	gomega.Expect(mockDB.ExpectationsWereMet()).To(gomega.Succeed())
}

func TestRecordFinalizedUniqueViolation(t *testing.T) {
	gomega.RegisterTestingT(t)
	db, mockDB, err := sqlmock.New()
	gomega.Expect(err).ToNot(gomega.HaveOccurred())

	issue := receiptFor(t, "n1", nil, token.NewRecord(issuer, alice, 5))
	input := token.ID{TxId: issue.ID(), Index: 0}
	spend := receiptFor(t, "n2", []token.ID{input}, token.NewRecord(issuer, bob, 5))
	txID := spend.ID()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ledger_receipts WHERE tx_id = $1")).
		WithArgs(txID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mockDB.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_receipts")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_records")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_consumed (tx_id, idx, consumer_tx_id) VALUES ($1, $2, $3)")).
		WithArgs(input.TxId, int64(0), txID).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mockDB.ExpectRollback()

	err = ledgerdb.NewPostgres(db).RecordFinalized(context.Background(), spend)
	gomega.Expect(errors.Is(err, driver.ErrInputConsumed)).To(gomega.BeTrue())
	gomega.Expect(mockDB.ExpectationsWereMet()).To(gomega.Succeed())
}

func TestGetReceiptNotFound(t *testing.T) {
	gomega.RegisterTestingT(t)
	db, mockDB, err := sqlmock.New()
	gomega.Expect(err).ToNot(gomega.HaveOccurred())

	mockDB.ExpectQuery(regexp.QuoteMeta("SELECT receipt FROM ledger_receipts WHERE tx_id = $1")).
		WithArgs("tx1").
		WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery(regexp.QuoteMeta("SELECT consumer_tx_id FROM ledger_consumed WHERE tx_id = $1 AND idx = $2")).
		WithArgs("tx1", int64(3)).
		WillReturnError(errors.New("connection refused"))

	l := ledgerdb.NewSQLite(db)
	r, err := l.GetReceipt(context.Background(), "tx1")
	gomega.Expect(err).ToNot(gomega.HaveOccurred())
	gomega.Expect(r).To(gomega.BeNil())

	_, err = l.IsConsumed(context.Background(), token.ID{TxId: "tx1", Index: 3})
	gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("connection refused")))
	gomega.Expect(mockDB.ExpectationsWereMet()).To(gomega.Succeed())
}
