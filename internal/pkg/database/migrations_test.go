package database

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestRunMigrations_AppliesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "000002_second.up.sql", "CREATE TABLE b (id INT);")
	writeMigration(t, dir, "000001_first.up.sql", "CREATE TABLE a (id INT);")
	writeMigration(t, dir, "000001_first.down.sql", "DROP TABLE a;")

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, RunMigrations(db, dir))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_StopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "000001_first.up.sql", "CREATE TABLE a (id INT);")
	writeMigration(t, dir, "000002_second.up.sql", "CREATE TABLE b (id INT);")

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "sqlmock")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a")).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err = RunMigrations(db, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000001_first.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_EmptyDir(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	err = RunMigrations(sqlx.NewDb(mockDB, "sqlmock"), t.TempDir())
	assert.Error(t, err)
}
