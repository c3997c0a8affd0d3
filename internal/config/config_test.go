package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_STORAGE_ACCOUNT", "")
	t.Setenv("DATA_CONTAINER", "")
	t.Setenv("MIN_SAS_TOKEN_EXPIRATION_HOURS", "")
	t.Setenv("DEFAULT_SAS_TOKEN_EXPIRATION_HOURS", "")

	c := Load()
	require.Equal(t, "collections", c.DataContainer)
	require.Equal(t, "logs", c.LogsTable)
	require.Equal(t, 12*time.Hour, c.MinSASTokenExpiration)
	require.Equal(t, 24*time.Hour, c.DefaultSASTokenExpiration)
	require.Equal(t, "INFO", c.StorageTableLogsLevel)
}

func TestResolveEndpoints(t *testing.T) {
	c := Load()
	c.AzureCloud = "AzureCloud"
	e, err := c.ResolveEndpoints()
	require.NoError(t, err)
	require.Equal(t, "core.windows.net", e.StorageSuffix)

	c.AzureCloud = "NotACloud"
	_, err = c.ResolveEndpoints()
	require.Error(t, err)
}
