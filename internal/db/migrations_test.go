package db

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	database, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return database, mock
}

func TestRunMigrationsAppliesEveryStatementInOrder(t *testing.T) {
	database, mock := setupMockDB(t)
	for _, stmt := range migrationStatements {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, runMigrations(database))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsStopsAtFirstFailure(t *testing.T) {
	database, mock := setupMockDB(t)
	mock.ExpectExec(migrationStatements[0]).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(migrationStatements[1]).WillReturnError(errors.New("permission denied"))

	err := runMigrations(database)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 2 failed")
	require.NoError(t, mock.ExpectationsWereMet())
}
