// Package config reads the environment-variable surface enumerated in the
// pipeline's external interfaces: output storage location, log sink
// location, SAS expiration policy, log level, and cloud endpoint selection.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process-wide, env-derived configuration for a worker or API
// process. Built once at startup and passed explicitly rather than read
// piecemeal from os.Getenv, so components remain testable with fakes.
type Config struct {
	DataStorageAccount string
	DataContainer       string

	LogsStorageAccount string
	LogsTable          string

	MinSASTokenExpiration     time.Duration
	DefaultSASTokenExpiration time.Duration

	StorageTableLogsLevel string

	AzureCloud string
}

// Load reads Config from the environment, applying the documented defaults.
func Load() *Config {
	return &Config{
		DataStorageAccount:        getenvFallback("DATA_STORAGE_ACCOUNT", "WEBSITE_CONTENTAZUREFILECONNECTIONSTRING", ""),
		DataContainer:             getenv("DATA_CONTAINER", "collections"),
		LogsStorageAccount:        getenv("LOGS_STORAGE_ACCOUNT", ""),
		LogsTable:                 getenv("LOGS_TABLE", "logs"),
		MinSASTokenExpiration:     time.Duration(getenvInt("MIN_SAS_TOKEN_EXPIRATION_HOURS", 12)) * time.Hour,
		DefaultSASTokenExpiration: time.Duration(getenvInt("DEFAULT_SAS_TOKEN_EXPIRATION_HOURS", 24)) * time.Hour,
		StorageTableLogsLevel:     strings.ToUpper(getenv("STORAGE_TABLE_LOGS_LEVEL", "INFO")),
		AzureCloud:                getenv("AZURE_CLOUD", "AzureCloud"),
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvFallback(key, fallbackKey, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if v, ok := os.LookupEnv(fallbackKey); ok && v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
