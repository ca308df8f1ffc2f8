package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spendwise/internal/common"
)

const appDir = "spendwise"

// DataDir is where the database lives by default: $XDG_DATA_HOME/spendwise,
// falling back to ~/.local/share/spendwise.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ConfigDir holds config.yaml and the TLS certificates: $XDG_CONFIG_HOME/spendwise,
// falling back to ~/.config/spendwise.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

func xdgDir(env string, fallback ...string) string {
	if base := os.Getenv(env); base != "" && filepath.IsAbs(base) {
		return filepath.Join(base, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// No home; stay relative to the working directory.
		return appDir
	}
	return filepath.Join(append(append([]string{home}, fallback...), appDir)...)
}

// expandPath resolves a leading ~ and $VAR or ${VAR} references. A reference
// to an unset variable is an error so that a typo in SPENDWISE_DATABASE_PATH
// does not quietly create a database at the filesystem root.
func expandPath(key, path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: %s: cannot expand ~: %w", common.ErrInvalidConfig, key, err)
		}
		path = home + path[1:]
	}

	var missing []string
	expanded := os.Expand(path, func(name string) string {
		value, ok := os.LookupEnv(name)
		if !ok {
			missing = append(missing, name)
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s references unset variable %s",
			common.ErrInvalidConfig, key, strings.Join(missing, ", "))
	}
	return expanded, nil
}

// resolvePaths expands every path-valued setting in place.
func (c *Config) resolvePaths() error {
	for _, p := range []struct {
		key   string
		value *string
	}{
		{"database.path", &c.Database.Path},
		{"server.cert_dir", &c.Server.CertDir},
	} {
		expanded, err := expandPath(p.key, *p.value)
		if err != nil {
			return err
		}
		*p.value = expanded
	}
	return nil
}
