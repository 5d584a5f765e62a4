package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-api/pkg/config"
)

func TestDSNDefaultsSSLMode(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, User: "marks", Password: "pw", Name: "marks"})
	assert.Equal(t, "host=db port=5432 user=marks password=pw dbname=marks sslmode=disable", dsn)

	dsn = DSN(config.DatabaseConfig{Host: "db", Port: 5433, SSLMode: "require"})
	assert.Contains(t, dsn, "port=5433")
	assert.Contains(t, dsn, "sslmode=require")
}

func TestEnsureSchemaRunsAllStatements(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, "postgres")

	mock.ExpectBegin()
	for _, stmt := range Schema {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaRollsBackOnFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, "postgres")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(Schema[0])).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(Schema[1])).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = EnsureSchema(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema statement 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigureAppliesPoolLimits(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, "postgres")

	Configure(db, config.DatabaseConfig{MaxOpenConns: 7})
	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}
