// Package config loads application settings from flags, a config file,
// and BLOCKFS_* environment variables, in that precedence order.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mit-pdos/go-blockfs/common"
)

const (
	// AppName names the config file (blockfs.yaml) and directory.
	AppName = "blockfs"

	// EnvPrefix is the prefix for environment overrides, e.g.
	// BLOCKFS_DISK_PATH.
	EnvPrefix = "BLOCKFS"
)

// AppConfig holds the application configuration.
type AppConfig struct {
	DiskPath  string `mapstructure:"disk_path"`  // backing disk image
	MetaPath  string `mapstructure:"meta_path"`  // metadata snapshot file
	NumBlocks uint64 `mapstructure:"num_blocks"` // disk capacity in blocks
	Debug     uint64 `mapstructure:"debug"`      // DPrintf level, 0 = off
	LogFormat string `mapstructure:"log_format"` // "json" or "human"
	LogFile   string `mapstructure:"log_file"`   // optional log sink
}

// Instance is the loaded global configuration.
var Instance AppConfig

var v *viper.Viper

// Viper returns the backing viper instance so the CLI can bind flags.
func Viper() *viper.Viper {
	if v == nil {
		v = viper.New()
	}
	return v
}

// Initialize loads configuration into Instance. cfgFile overrides the
// default search locations; an absent config file is not an error.
func Initialize(cfgFile string) error {
	vp := Viper()

	vp.SetDefault("disk_path", AppName+".img")
	vp.SetDefault("meta_path", AppName+".meta")
	vp.SetDefault("num_blocks", common.NBLOCKS)
	vp.SetDefault("debug", 0)
	vp.SetDefault("log_format", "human")
	vp.SetDefault("log_file", "")

	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
	} else {
		vp.SetConfigName(AppName)
		vp.SetConfigType("yaml")
		vp.AddConfigPath(".")
		vp.AddConfigPath("$HOME/." + AppName)
	}

	vp.SetEnvPrefix(EnvPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := vp.Unmarshal(&Instance); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
