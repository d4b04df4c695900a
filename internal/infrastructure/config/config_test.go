package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"NOTARIA_APP_NAME",
	"NOTARIA_APP_ENV",
	"NOTARIA_APP_PORT",
	"NOTARIA_DATABASE_DRIVER",
	"NOTARIA_DATABASE_PATH",
	"NOTARIA_DATABASE_HOST",
	"NOTARIA_DATABASE_PORT",
	"NOTARIA_DATABASE_USER",
	"NOTARIA_DATABASE_PASSWORD",
	"NOTARIA_DATABASE_DBNAME",
	"NOTARIA_DATABASE_SSLMODE",
	"NOTARIA_DATABASE_MAX_OPEN_CONNS",
	"NOTARIA_DATABASE_MAX_IDLE_CONNS",
	"NOTARIA_IMPORT_LOCK_BACKEND",
	"NOTARIA_IMPORT_MAX_ERROR_DETAILS",
	"NOTARIA_IMPORT_DEFAULT_ESTABLISHMENT",
	"NOTARIA_IMPORT_DEFAULT_EMISSION_POINT",
	"NOTARIA_STORAGE_ENABLED",
	"NOTARIA_STORAGE_BUCKET",
	"NOTARIA_STORAGE_BACKEND",
	"NOTARIA_TELEMETRY_SAMPLING_RATIO",
}

// clearEnv unsets every key for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "notaria-backoffice", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "notaria", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)

		assert.Equal(t, 100, cfg.Import.MaxErrorDetails)
		assert.Equal(t, "0.01", cfg.Import.OverflowTolerance)
		assert.Equal(t, LockBackendMemory, cfg.Import.LockBackend)
		assert.Equal(t, 30*time.Second, cfg.Import.LockTTL)
		assert.Equal(t, 500, cfg.Import.SweepBatchSize)
		assert.Equal(t, "*/30 * * * *", cfg.Scheduler.SweepSchedule)
		assert.False(t, cfg.Storage.Enabled)
		assert.Equal(t, StorageBackendS3, cfg.Storage.Backend)
		assert.Equal(t, "001", cfg.Import.DefaultEstablishment)
		assert.Equal(t, "001", cfg.Import.DefaultEmissionPoint)
	})

	t.Run("loads values from environment variables with NOTARIA prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTARIA_APP_NAME", "test-app")
		t.Setenv("NOTARIA_APP_PORT", "9000")
		t.Setenv("NOTARIA_DATABASE_HOST", "testdb.local")
		t.Setenv("NOTARIA_DATABASE_PORT", "5433")
		t.Setenv("NOTARIA_DATABASE_PASSWORD", "testpass")
		t.Setenv("NOTARIA_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("NOTARIA_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("NOTARIA_IMPORT_MAX_ERROR_DETAILS", "7")
		t.Setenv("NOTARIA_IMPORT_DEFAULT_ESTABLISHMENT", "001")
		t.Setenv("NOTARIA_IMPORT_DEFAULT_EMISSION_POINT", "002")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 7, cfg.Import.MaxErrorDetails)
		assert.Equal(t, "001", cfg.Import.DefaultEstablishment)
		assert.Equal(t, "002", cfg.Import.DefaultEmissionPoint)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTARIA_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("NOTARIA_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTARIA_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects unknown lock backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTARIA_IMPORT_LOCK_BACKEND", "etcd")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "import.lock_backend")
	})

	t.Run("default series must be complete", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTARIA_IMPORT_DEFAULT_ESTABLISHMENT", "001")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")
	})

	t.Run("storage requires a bucket", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTARIA_STORAGE_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")
	})

	t.Run("memory archive needs no bucket", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTARIA_STORAGE_ENABLED", "true")
		t.Setenv("NOTARIA_STORAGE_BACKEND", "Memory")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, StorageBackendMemory, cfg.Storage.Backend)
	})

	t.Run("rejects unknown storage backend", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTARIA_STORAGE_BACKEND", "gcs")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.backend")
	})

	t.Run("sampling ratio out of range", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTARIA_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "koinor.toml")
	content := `
[database]
driver = "sqlite"
path = "/tmp/ledger.db"

[import]
adjustment_keywords = ["DESCUENTO", "AJUSTE"]
lock_ttl = "5s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/ledger.db", cfg.Database.DSN())
	assert.Equal(t, []string{"DESCUENTO", "AJUSTE"}, cfg.Import.AdjustmentKeywords)
	assert.Equal(t, 5*time.Second, cfg.Import.LockTTL)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("NOTARIA_APP_ENV", "production")
		t.Setenv("NOTARIA_DATABASE_PASSWORD", "secure-password")
		t.Setenv("NOTARIA_DATABASE_SSLMODE", "require")
		t.Setenv("NOTARIA_IMPORT_LOCK_BACKEND", "redis")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("NOTARIA_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("NOTARIA_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires redis locks in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("NOTARIA_IMPORT_LOCK_BACKEND", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "import.lock_backend must be redis in production")
	})

	t.Run("rejects sqlite in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("NOTARIA_DATABASE_DRIVER", "sqlite")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver must be postgres in production")
	})

	t.Run("rejects the memory archive in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("NOTARIA_STORAGE_ENABLED", "true")
		t.Setenv("NOTARIA_STORAGE_BACKEND", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.backend cannot be memory in production")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   DriverPostgres,
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		// URL-encoded password should be in the DSN
		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("sqlite uses the file path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: DriverSQLite, Path: "file::memory:?cache=shared"}
		assert.Equal(t, "file::memory:?cache=shared", cfg.DSN())
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
