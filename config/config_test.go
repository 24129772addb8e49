package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig("")
	assert.Equal(t, "stockpile", cfg.System.Appid)
	assert.Equal(t, 1880, cfg.Web.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "/var/stockpile/stockpile.log", cfg.Logger.Filename)
}

func TestLoadConfig_ReturnsCopy(t *testing.T) {
	cfg := LoadConfig("")
	cfg.Web.Port = 9999
	assert.Equal(t, 1880, DefaultAppConfig.Web.Port)
	assert.Equal(t, 1880, LoadConfig("").Web.Port)
}

func TestLoadConfig_FromFile(t *testing.T) {
	cfile := filepath.Join(t.TempDir(), "stockpile.yml")
	content := `
system:
  workdir: /tmp/stockpile
web:
  host: 127.0.0.1
  port: 2880
database:
  type: sqlite
  name: stockdb
`
	require.NoError(t, os.WriteFile(cfile, []byte(content), 0o644))

	cfg := LoadConfig(cfile)
	assert.Equal(t, "/tmp/stockpile", cfg.System.Workdir)
	assert.Equal(t, "127.0.0.1", cfg.Web.Host)
	assert.Equal(t, 2880, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "stockdb", cfg.Database.Name)
	assert.Equal(t, filepath.Join("/tmp/stockpile", "stockpile.log"), cfg.Logger.Filename)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("STOCKPILE_WEB_PORT", "3880")
	t.Setenv("STOCKPILE_DB_TYPE", "sqlite")
	t.Setenv("STOCKPILE_WEB_JWT_SECRET", "from-env")

	cfg := LoadConfig("")
	assert.Equal(t, 3880, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "from-env", cfg.Web.JwtSecret)
}
