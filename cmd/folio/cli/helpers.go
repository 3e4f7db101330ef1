package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/viper"

	"github.com/foliodev/folio/internal/config"
	"github.com/foliodev/folio/internal/logging"
	"github.com/foliodev/folio/internal/model"
)

// devJWTSecret signs identity tokens when auth.jwt_secret is unset.
const devJWTSecret = "folio-dev-secret-change-me"

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
	keyColor  = color.New(color.FgCyan)
)

// resolveDataDir returns the data directory from --data-dir flag,
// FOLIO_DATA_DIR env var, or ~/.folio as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("FOLIO_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".folio")
}

// openStore opens the configured store. The default sqlite driver without a
// DSN lives in the data directory.
func openStore() (*config.Store, error) {
	driver := viper.GetString("store.driver")
	dsn := viper.GetString("store.dsn")
	if dsn == "" && (driver == "" || driver == "sqlite") {
		return config.NewStore(resolveDataDir())
	}
	return config.Open(driver, dsn, model.DefaultPoolConfig())
}

// newLogger builds the process logger from logging.* settings. Debug
// forces the debug level.
func newLogger(debug bool) (*slog.Logger, error) {
	level := viper.GetString("logging.level")
	if debug {
		level = "debug"
	}
	return logging.New(level, viper.GetString("logging.format"), os.Stderr)
}

func jwtSecret() string {
	if s := viper.GetString("auth.jwt_secret"); s != "" {
		return s
	}
	return devJWTSecret
}

// durationSetting parses a duration config value, falling back to def when
// the value is empty.
func durationSetting(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// cmdContext returns a context for one CLI invocation.
func cmdContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}
