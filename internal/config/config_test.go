package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spendwise/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "/home/tester/.local/share/spendwise/spendwise.db", cfg.Database.Path)
	assert.Equal(t, "native", cfg.PDF.Backend)
	assert.Equal(t, "HDFC", cfg.Import.BankName)
	assert.False(t, cfg.Import.DebitsOnly)
	assert.True(t, cfg.Import.DeselectDuplicates)
	assert.True(t, cfg.SMS.SkipCredits)
	assert.Equal(t, time.Minute, cfg.SMS.DedupWindow)
	assert.Equal(t, 1024, cfg.SMS.DedupCapacity)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
	assert.False(t, cfg.Server.TLS)
	assert.Equal(t, "/home/tester/.config/spendwise/certs", cfg.Server.CertDir)
	assert.Empty(t, cfg.Server.TLSHosts)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  format: json
import:
  bank_name: ICICI
  debits_only: true
sms:
  dedup_window: 90s
server:
  tls: true
  tls_hosts: [192.168.1.20, laptop.lan]
`), 0o600))

	t.Setenv("SPENDWISE_SMS_SKIP_CREDITS", "false")
	t.Setenv("SPENDWISE_DATABASE_PATH", filepath.Join(dir, "db.sqlite"))

	v := newViper()
	BindEnv(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "ICICI", cfg.Import.BankName)
	assert.True(t, cfg.Import.DebitsOnly)
	assert.Equal(t, 90*time.Second, cfg.SMS.DedupWindow)
	assert.False(t, cfg.SMS.SkipCredits)
	assert.True(t, cfg.Server.TLS)
	assert.Equal(t, []string{"192.168.1.20", "laptop.lan"}, cfg.Server.TLSHosts)
	assert.Equal(t, filepath.Join(dir, "db.sqlite"), cfg.Database.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate func(v *viper.Viper)
		name   string
	}{
		{name: "bad format", mutate: func(v *viper.Viper) { v.Set("logging.format", "xml") }},
		{name: "bad level", mutate: func(v *viper.Viper) { v.Set("logging.level", "loud") }},
		{name: "empty db path", mutate: func(v *viper.Viper) { v.Set("database.path", " ") }},
		{name: "zero window", mutate: func(v *viper.Viper) { v.Set("sms.dedup_window", "0s") }},
		{name: "zero capacity", mutate: func(v *viper.Viper) { v.Set("sms.dedup_capacity", 0) }},
		{name: "empty bank", mutate: func(v *viper.Viper) { v.Set("import.bank_name", "") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			tt.mutate(v)
			_, err := Load(v)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SPENDWISE_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("SPENDWISE_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("SPENDWISE_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("SPENDWISE_TEST_DOTENV"))
}

func TestLoad_PathExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("SPENDWISE_ROOT", "/srv/spendwise")
	t.Setenv("SPENDWISE_MISSING_DIR", "")
	require.NoError(t, os.Unsetenv("SPENDWISE_MISSING_DIR"))

	tests := []struct {
		name     string
		dbPath   string
		certDir  string
		wantDB   string
		wantCert string
		wantErr  bool
	}{
		{
			name:     "xdg defaults",
			wantDB:   "/xdg/data/spendwise/spendwise.db",
			wantCert: "/xdg/config/spendwise/certs",
		},
		{
			name:     "environment references",
			dbPath:   "$SPENDWISE_ROOT/db/spendwise.db",
			certDir:  "${SPENDWISE_ROOT}/certs",
			wantDB:   "/srv/spendwise/db/spendwise.db",
			wantCert: "/srv/spendwise/certs",
		},
		{
			name:     "home directory",
			dbPath:   "~/spendwise.db",
			certDir:  "~",
			wantDB:   "/home/tester/spendwise.db",
			wantCert: "/home/tester",
		},
		{
			name:    "unset variable in database path",
			dbPath:  "$SPENDWISE_MISSING_DIR/spendwise.db",
			wantErr: true,
		},
		{
			name:    "unset variable in cert dir",
			certDir: "${SPENDWISE_MISSING_DIR}/certs",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			if tt.dbPath != "" {
				v.Set("database.path", tt.dbPath)
			}
			if tt.certDir != "" {
				v.Set("server.cert_dir", tt.certDir)
			}

			cfg, err := Load(v)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrInvalidConfig)
				assert.Contains(t, err.Error(), "SPENDWISE_MISSING_DIR")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDB, cfg.Database.Path)
			assert.Equal(t, tt.wantCert, cfg.Server.CertDir)
		})
	}
}

func TestXDGDirs(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "relative/ignored")
	assert.Equal(t, "/home/tester/.local/share/spendwise", DataDir())
	assert.Equal(t, "/home/tester/.config/spendwise", ConfigDir())

	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	assert.Equal(t, "/xdg/data/spendwise", DataDir())
	assert.Equal(t, "/xdg/config/spendwise", ConfigDir())
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("SPENDWISE_DATA", "/data")
	t.Setenv("SPENDWISE_UNSET", "")
	require.NoError(t, os.Unsetenv("SPENDWISE_UNSET"))

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "~", want: "/home/tester"},
		{in: "~/db.sqlite", want: "/home/tester/db.sqlite"},
		{in: "~other/db.sqlite", want: "~other/db.sqlite"},
		{in: "$SPENDWISE_DATA/db.sqlite", want: "/data/db.sqlite"},
		{in: "${SPENDWISE_DATA}/certs", want: "/data/certs"},
		{in: "/abs/path.db", want: "/abs/path.db"},
		{in: "$SPENDWISE_UNSET/db.sqlite", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := expandPath("database.path", tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrInvalidConfig)
				assert.Contains(t, err.Error(), "database.path")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
