package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	for _, stmt := range schema {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(schema[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(schema[1])).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = Migrate(context.Background(), db)
	assert.ErrorContains(t, err, "migration statement 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_ForeignKeyNaming(t *testing.T) {
	fk := regexp.MustCompile(`CONSTRAINT (\w+) FOREIGN KEY`)
	var names []string
	for _, stmt := range schema {
		for _, m := range fk.FindAllStringSubmatch(stmt, -1) {
			names = append(names, m[1])
		}
	}
	assert.ElementsMatch(t, []string{
		"transactions_from_account_fk",
		"transactions_to_account_fk",
		"deposits_transaction_fk",
		"deposit_banknotes_deposit_fk",
		"withdrawals_account_fk",
		"withdrawals_transaction_fk",
		"withdrawal_banknotes_withdrawal_fk",
	}, names)
}

func TestSchema_BanknoteLinesAllowRepeatedDenominations(t *testing.T) {
	for _, stmt := range schema {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS deposit_banknotes") ||
			strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS withdrawal_banknotes") {
			assert.NotContains(t, stmt, "UNIQUE")
		}
	}
}
