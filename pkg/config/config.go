// Package config loads the tool configuration: compiled-in defaults, an
// optional YAML file, then FLASHSYNC_* environment variables, in that order.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "FLASHSYNC"
	configName = "config"
	configType = "yaml"

	// EngineRsync shells out to rsync, EngineCopy mirrors in-process.
	EngineRsync = "rsync"
	EngineCopy  = "copy"
)

// Config is the complete runtime configuration.
type Config struct {
	Source SourceConfig `mapstructure:"source"`
	Device DeviceConfig `mapstructure:"device"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Log    LogConfig    `mapstructure:"log"`
	Lock   LockConfig   `mapstructure:"lock"`
}

// SourceConfig locates the backup folder to mirror.
type SourceConfig struct {
	// Root is the storage root searched for the backup folder. With the
	// local-path provisioner this is where PVC directories land.
	Root string `mapstructure:"root"`

	// Pattern is a shell glob matched against directory base names.
	Pattern string `mapstructure:"pattern"`

	// MaxDepth bounds the search below Root.
	MaxDepth int `mapstructure:"max_depth"`
}

// DeviceConfig selects and mounts the destination volume.
type DeviceConfig struct {
	// Labels are substrings matched case-insensitively against filesystem
	// labels of removable volumes. Any hit selects the volume.
	Labels []string `mapstructure:"labels"`

	// MountPoint is where an unmounted match gets mounted. A volume that is
	// already mounted is used where it is.
	MountPoint string `mapstructure:"mount_point"`

	// MinFree is demanded on top of the source tree size. Zero disables it.
	MinFree datasize.ByteSize `mapstructure:"min_free"`
}

// SyncConfig controls the mirror operation itself.
type SyncConfig struct {
	Engine    string   `mapstructure:"engine"`
	ExtraArgs []string `mapstructure:"extra_args"`
	Subdir    string   `mapstructure:"subdir"`
	Verify    bool     `mapstructure:"verify"`
}

// LogConfig points at the two log files.
type LogConfig struct {
	Path         string `mapstructure:"path"`
	MaxLines     int    `mapstructure:"max_lines"`
	TransferPath string `mapstructure:"transfer_path"`
	Level        string `mapstructure:"level"`
}

// LockConfig holds the run-lock location.
type LockConfig struct {
	Path string `mapstructure:"path"`
}

// Default returns the compiled-in configuration, mirroring the constants the
// original deployment used.
func Default() Config {
	return Config{
		Source: SourceConfig{
			Root:     "/opt/local-path-provisioner",
			Pattern:  "*odoo*backup*",
			MaxDepth: 3,
		},
		Device: DeviceConfig{
			Labels:     []string{"ODOO", "BACKUP"},
			MountPoint: "/mnt/flashsync",
		},
		Sync: SyncConfig{
			Engine: EngineRsync,
		},
		Log: LogConfig{
			Path:         "/var/log/flashsync/flashsync.log",
			MaxLines:     1000,
			TransferPath: "/var/log/flashsync/transfer.log",
			Level:        "info",
		},
		Lock: LockConfig{
			Path: "/tmp/flashsync.lock",
		},
	}
}

// FlagBindings maps command-line flag names onto configuration keys. A flag
// registered under one of these names overrides the file and the environment
// once the user sets it; untouched flags never shadow anything.
var FlagBindings = map[string]string{
	"source-root":    "source.root",
	"source-pattern": "source.pattern",
	"max-depth":      "source.max_depth",
	"labels":         "device.labels",
	"mount-point":    "device.mount_point",
	"min-free":       "device.min_free",
	"engine":         "sync.engine",
	"extra-args":     "sync.extra_args",
	"subdir":         "sync.subdir",
	"verify":         "sync.verify",
	"log-file":       "log.path",
	"log-max-lines":  "log.max_lines",
	"log-level":      "log.level",
	"transfer-log":   "log.transfer_path",
	"lock-file":      "lock.path",
}

// Load reads the configuration. file may be empty, in which case the default
// locations are searched; a missing config file is not an error. flags may be
// nil; when given, any flag named in FlagBindings is bound to its key.
func Load(file string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath("/etc/flashsync")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".flashsync"))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, errors.Wrapf(err, "binding flag %s", name)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicitly requested file must exist; the default search is
		// allowed to come up empty.
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeHook lets values like device.min_free parse from "512MB" through
// datasize while keeping viper's stock duration and slice handling.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("source.root", d.Source.Root)
	v.SetDefault("source.pattern", d.Source.Pattern)
	v.SetDefault("source.max_depth", d.Source.MaxDepth)
	v.SetDefault("device.labels", d.Device.Labels)
	v.SetDefault("device.mount_point", d.Device.MountPoint)
	v.SetDefault("device.min_free", uint64(d.Device.MinFree))
	v.SetDefault("sync.engine", d.Sync.Engine)
	v.SetDefault("sync.extra_args", d.Sync.ExtraArgs)
	v.SetDefault("sync.subdir", d.Sync.Subdir)
	v.SetDefault("sync.verify", d.Sync.Verify)
	v.SetDefault("log.path", d.Log.Path)
	v.SetDefault("log.max_lines", d.Log.MaxLines)
	v.SetDefault("log.transfer_path", d.Log.TransferPath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("lock.path", d.Lock.Path)
}

// Validate rejects configurations the pipeline cannot act on.
func (c Config) Validate() error {
	if c.Source.Root == "" {
		return errors.New("source.root cannot be empty")
	}
	if c.Source.Pattern == "" {
		return errors.New("source.pattern cannot be empty")
	}
	if c.Source.MaxDepth < 1 {
		return errors.Errorf("source.max_depth must be at least 1, got %d", c.Source.MaxDepth)
	}
	if len(c.Device.Labels) == 0 {
		return errors.New("device.labels cannot be empty")
	}
	if c.Device.MountPoint == "" {
		return errors.New("device.mount_point cannot be empty")
	}
	if c.Sync.Engine != EngineRsync && c.Sync.Engine != EngineCopy {
		return errors.Errorf("sync.engine must be %q or %q, got %q", EngineRsync, EngineCopy, c.Sync.Engine)
	}
	if c.Log.MaxLines < 0 {
		return errors.Errorf("log.max_lines cannot be negative, got %d", c.Log.MaxLines)
	}
	return nil
}
