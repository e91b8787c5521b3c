package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.OutputDir)
	assert.False(t, cfg.OpenFolder)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":8090", cfg.Server.Addr)
}

func TestInit_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "po-splitter.yaml")
	content := "output_dir: /srv/split\nopen_folder: true\nlog:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o644))
	t.Setenv("PO_SPLITTER_SERVER_ADDR", "127.0.0.1:9000")

	v := viper.New()
	require.NoError(t, Init(v, cfgFile))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/srv/split", cfg.OutputDir)
	assert.True(t, cfg.OpenFolder)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestInit_MissingExplicitFile(t *testing.T) {
	v := viper.New()
	err := Init(v, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{Log: LogConfig{Level: "info", Format: "text"}, Server: ServerConfig{Addr: ":8090"}}
	require.NoError(t, base.Validate())

	bad := base
	bad.Log.Format = "xml"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Log.Level = "loud"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Server.Addr = ""
	assert.Error(t, bad.Validate())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.True(t, log.Enabled(context.Background(), slog.LevelWarn))
}
