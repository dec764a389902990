package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml"
	"gopkg.in/ini.v1"

	"github.com/noidwasavailable/Odysseus/common"
)

/*
[storage]
db_file          = odysseus.db
volume           = 1
virtual_disk     = false
buffer_pool_size = 64

[log]
level = info
debug = false
*/
type Config struct {
	Storage StorageConfig `toml:"storage" ini:"storage"`
	Log     LogConfig     `toml:"log" ini:"log"`
}

type StorageConfig struct {
	DBFile         string `toml:"db_file" ini:"db_file"`
	Volume         uint16 `toml:"volume" ini:"volume"`
	VirtualDisk    bool   `toml:"virtual_disk" ini:"virtual_disk"`
	BufferPoolSize int    `toml:"buffer_pool_size" ini:"buffer_pool_size"`
}

type LogConfig struct {
	Level string `toml:"level" ini:"level"`
	Debug bool   `toml:"debug" ini:"debug"`
}

func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			DBFile:         "odysseus.db",
			Volume:         1,
			BufferPoolSize: common.DefaultBufferPoolSize,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (.ini or .toml) on top of the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".cnf":
		f, err := ini.Load(path)
		if err != nil {
			return nil, err
		}
		if err := f.MapTo(cfg); err != nil {
			return nil, err
		}
	case ".toml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		// toml.Unmarshal rebuilds the whole struct, so decode aside and merge
		parsed := &Config{}
		if err := toml.Unmarshal(data, parsed); err != nil {
			return nil, err
		}
		cfg.merge(parsed)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	return cfg, cfg.Validate()
}

func (c *Config) merge(o *Config) {
	if o.Storage.DBFile != "" {
		c.Storage.DBFile = o.Storage.DBFile
	}
	if o.Storage.Volume != 0 {
		c.Storage.Volume = o.Storage.Volume
	}
	if o.Storage.BufferPoolSize != 0 {
		c.Storage.BufferPoolSize = o.Storage.BufferPoolSize
	}
	c.Storage.VirtualDisk = c.Storage.VirtualDisk || o.Storage.VirtualDisk
	if o.Log.Level != "" {
		c.Log.Level = o.Log.Level
	}
	c.Log.Debug = c.Log.Debug || o.Log.Debug
}

func (c *Config) Validate() error {
	if c.Storage.BufferPoolSize < 4 {
		return fmt.Errorf("buffer_pool_size must be at least 4, got %d", c.Storage.BufferPoolSize)
	}
	if !c.Storage.VirtualDisk && c.Storage.DBFile == "" {
		return fmt.Errorf("db_file is required unless virtual_disk is set")
	}
	if _, ok := common.ParseLogLevel(c.Log.Level); !ok {
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// Apply pushes the log settings into the common package
func (c *Config) Apply() {
	if lv, ok := common.ParseLogLevel(c.Log.Level); ok {
		common.LogLevelSetting = lv
	}
	common.EnableDebug = c.Log.Debug
}
