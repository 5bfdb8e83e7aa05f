package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLDriverName(t *testing.T) {
	name, err := sqlDriverName(DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "pgx", name)

	name, err = sqlDriverName(DriverSQLServer)
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", name)

	_, err = sqlDriverName("oracle")
	assert.Error(t, err)
}

func TestConnectSQLRejectsUnknownDialect(t *testing.T) {
	_, err := ConnectSQL(context.Background(), "sqlite", "file::memory:")
	assert.ErrorContains(t, err, "unsupported SQL driver")
}
