package serv

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const devConfig = `
app_name: "Test App"
host_port: 0.0.0.0:8080
db_type: postgres
table_prefix: "app_"
enable_cache: true
database:
  type: postgres
  host: db.internal
  dbname: test_db
  user: tester
`

const prodConfig = `
inherits: dev
app_name: "Test App Production"
production: true
database:
  dbname: prod_db
`

func writeConfigFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, "/config/"+name, []byte(body), 0o600))
	}
	return fs
}

func TestReadInConfig(t *testing.T) {
	fs := writeConfigFS(t, map[string]string{"dev.yml": devConfig})

	c, err := ReadInConfigFS("/config/dev.yml", fs)
	require.NoError(t, err)

	assert.Equal(t, "Test App", c.AppName)
	assert.Equal(t, "postgres", c.Core.DBType)
	assert.Equal(t, "app_", c.Core.TablePrefix)
	assert.True(t, c.Core.EnableCache)
	assert.Equal(t, "db.internal", c.DB.Host)
	assert.Equal(t, "test_db", c.DB.DBName)
}

func TestReadInConfigInherits(t *testing.T) {
	fs := writeConfigFS(t, map[string]string{
		"dev.yml":  devConfig,
		"prod.yml": prodConfig,
	})

	c, err := ReadInConfigFS("/config/prod.yml", fs)
	require.NoError(t, err)

	// overridden values
	assert.Equal(t, "Test App Production", c.AppName)
	assert.True(t, c.Serv.Production)
	assert.Equal(t, "prod_db", c.DB.DBName)

	// inherited values
	assert.Equal(t, "app_", c.Core.TablePrefix)
	assert.Equal(t, "db.internal", c.DB.Host)
}

func TestReadInConfigRejectsDeepInheritance(t *testing.T) {
	fs := writeConfigFS(t, map[string]string{
		"base.yml":  "app_name: base\ndb_type: postgres\n",
		"mid.yml":   "inherits: base\ndb_type: postgres\n",
		"child.yml": "inherits: mid\ndb_type: postgres\n",
	})

	_, err := ReadInConfigFS("/config/child.yml", fs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one level")
}

func TestNewConfigFromBytes(t *testing.T) {
	c, err := NewConfig([]byte(devConfig), "yml")
	require.NoError(t, err)
	assert.Equal(t, "Test App", c.AppName)
	assert.Equal(t, "postgres", c.DB.Type)
}

func TestConfigDefaults(t *testing.T) {
	c, err := NewConfig([]byte("app_name: minimal\ndb_type: sqlite\n"), "yml")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", c.HostPort)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 10, c.DB.PoolSize)
	assert.Equal(t, 300, c.Caching.TTL)
}

func TestGetConfigName(t *testing.T) {
	tests := map[string]string{
		"":            "dev",
		"development": "dev",
		"production":  "prod",
		"staging":     "stage",
		"test":        "test",
	}
	for env, want := range tests {
		t.Setenv("GO_ENV", env)
		assert.Equal(t, want, GetConfigName(), "GO_ENV=%q", env)
	}
}

func TestInvalidDBTypeRejected(t *testing.T) {
	_, err := NewConfig([]byte("db_type: oracle\n"), "yml")
	require.Error(t, err)
}
