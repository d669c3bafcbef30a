package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "role", cfg.JWT.RoleClaim)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9090"
dbType: postgres
dbDsn: "host=db user=portal"
corsOrigins:
  - https://portal.example.edu
jwt:
  publicKeyPath: /etc/portal/jwt.pem
  issuer: https://sso.example.edu
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, "postgres", cfg.DBType)
	assert.Equal(t, "host=db user=portal", cfg.DBDSN)
	assert.Equal(t, []string{"https://portal.example.edu"}, cfg.CORSOrigins)
	assert.Equal(t, "/etc/portal/jwt.pem", cfg.JWT.PublicKeyPath)
	assert.Equal(t, "https://sso.example.edu", cfg.JWT.Issuer)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, "role", cfg.JWT.RoleClaim)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9090\"\n"), 0o600))

	t.Setenv("ISSUANCE_LISTEN", ":7070")
	t.Setenv("ISSUANCE_DB_TYPE", "mysql")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, "mysql", cfg.DBType)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
