package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/opt/local-path-provisioner", cfg.Source.Root)
	assert.Equal(t, "*odoo*backup*", cfg.Source.Pattern)
	assert.Equal(t, 3, cfg.Source.MaxDepth)
	assert.Equal(t, []string{"ODOO", "BACKUP"}, cfg.Device.Labels)
	assert.Equal(t, "/mnt/flashsync", cfg.Device.MountPoint)
	assert.Equal(t, EngineRsync, cfg.Sync.Engine)
	assert.Equal(t, 1000, cfg.Log.MaxLines)
	assert.False(t, cfg.Sync.Verify)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
source:
  root: /srv/backups
  pattern: "*nightly*"
  max_depth: 2
device:
  labels: [STICK]
  mount_point: /media/stick
  min_free: 512MB
sync:
  engine: copy
  verify: true
log:
  max_lines: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/backups", cfg.Source.Root)
	assert.Equal(t, "*nightly*", cfg.Source.Pattern)
	assert.Equal(t, 2, cfg.Source.MaxDepth)
	assert.Equal(t, []string{"STICK"}, cfg.Device.Labels)
	assert.Equal(t, "/media/stick", cfg.Device.MountPoint)
	assert.Equal(t, 512*datasize.MB, cfg.Device.MinFree)
	assert.Equal(t, EngineCopy, cfg.Sync.Engine)
	assert.True(t, cfg.Sync.Verify)
	assert.Equal(t, 50, cfg.Log.MaxLines)

	// Untouched keys keep their defaults.
	assert.Equal(t, "/var/log/flashsync/flashsync.log", cfg.Log.Path)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLASHSYNC_SOURCE_ROOT", "/data/pvc")
	t.Setenv("FLASHSYNC_DEVICE_LABELS", "USB,SPARE")
	t.Setenv("FLASHSYNC_DEVICE_MIN_FREE", "1GB")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/data/pvc", cfg.Source.Root)
	assert.Equal(t, []string{"USB", "SPARE"}, cfg.Device.Labels)
	assert.Equal(t, datasize.GB, cfg.Device.MinFree)
}

// testFlagSet registers the flags the run command binds, with the same types.
func testFlagSet() *pflag.FlagSet {
	d := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("source-root", d.Source.Root, "")
	fs.StringSlice("labels", d.Device.Labels, "")
	fs.String("min-free", d.Device.MinFree.String(), "")
	fs.String("engine", d.Sync.Engine, "")
	fs.Bool("verify", d.Sync.Verify, "")
	return fs
}

func TestLoad_ChangedFlagsOverrideEverything(t *testing.T) {
	t.Setenv("FLASHSYNC_SOURCE_ROOT", "/from/env")

	fs := testFlagSet()
	require.NoError(t, fs.Parse([]string{
		"--source-root=/from/flag",
		"--labels=A,B",
		"--min-free=2GB",
		"--verify",
	}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "/from/flag", cfg.Source.Root)
	assert.Equal(t, []string{"A", "B"}, cfg.Device.Labels)
	assert.Equal(t, 2*datasize.GB, cfg.Device.MinFree)
	assert.True(t, cfg.Sync.Verify)
}

func TestLoad_UntouchedFlagsDoNotShadowTheFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  engine: copy\n"), 0o644))

	fs := testFlagSet()
	require.NoError(t, fs.Parse(nil))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, EngineCopy, cfg.Sync.Engine, "the flag default must not beat the file")
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_RejectsBadEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  engine: scp\n"), 0o644))

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.engine")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"empty root", func(c *Config) { c.Source.Root = "" }, false},
		{"empty pattern", func(c *Config) { c.Source.Pattern = "" }, false},
		{"zero depth", func(c *Config) { c.Source.MaxDepth = 0 }, false},
		{"no labels", func(c *Config) { c.Device.Labels = nil }, false},
		{"empty mount point", func(c *Config) { c.Device.MountPoint = "" }, false},
		{"copy engine", func(c *Config) { c.Sync.Engine = EngineCopy }, true},
		{"unknown engine", func(c *Config) { c.Sync.Engine = "tar" }, false},
		{"negative cap", func(c *Config) { c.Log.MaxLines = -1 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
