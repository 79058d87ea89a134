// Package config loads settings for the wad command.
//
// Values come from, in increasing priority: built-in defaults, a wad.yaml
// file, WAD_* environment variables, and command-line flags bound with
// BindPFlag.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/meigma/wad"
)

// Keys understood by Load and Decode.
const (
	KeyVerbose     = "verbose"
	KeyHashes      = "hashes"
	KeyWorkers     = "workers"
	KeyCacheDir    = "cache.dir"
	KeyCacheBytes  = "cache.max-bytes"
	KeyCompression = "write.compression"
	KeyLevel       = "write.level"
	KeyDeduplicate = "write.deduplicate"
)

// Config holds the resolved settings.
type Config struct {
	Verbose bool

	// Hashes is the path registry file used to name entries.
	Hashes string

	// Workers sets read and write parallelism: 0 picks automatically,
	// negative runs serially.
	Workers int

	// CacheDir enables the on-disk content cache when set.
	CacheDir string

	// CacheBytes sizes the in-memory content cache used when CacheDir
	// is empty. Zero disables caching.
	CacheBytes int64

	Compression wad.Compression
	Level       int
	Deduplicate bool
}

// Load reads defaults, the config file and the environment into v.
// cfgFile, when set, names the config file explicitly; otherwise wad.yaml
// is searched for in the working directory and $HOME/.config/wad, and
// finding none is not an error.
func Load(v *viper.Viper, cfgFile string) error {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "wad"))
		}
		v.SetConfigType("yaml")
		v.SetConfigName("wad")
	}

	v.SetEnvPrefix("WAD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyCacheBytes, 64<<20)
	v.SetDefault(KeyCompression, wad.CompressionZstd.String())
	v.SetDefault(KeyLevel, 0)
	v.SetDefault(KeyDeduplicate, true)
}

// Decode resolves the settings held by v.
func Decode(v *viper.Viper) (Config, error) {
	comp, err := wad.ParseCompression(v.GetString(KeyCompression))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", KeyCompression, err)
	}
	if comp == wad.CompressionRedirect {
		return Config{}, fmt.Errorf("%s: %q is not a payload compression", KeyCompression, v.GetString(KeyCompression))
	}
	cacheBytes := v.GetInt64(KeyCacheBytes)
	if cacheBytes < 0 {
		return Config{}, fmt.Errorf("%s: must not be negative", KeyCacheBytes)
	}
	return Config{
		Verbose:     v.GetBool(KeyVerbose),
		Hashes:      v.GetString(KeyHashes),
		Workers:     v.GetInt(KeyWorkers),
		CacheDir:    v.GetString(KeyCacheDir),
		CacheBytes:  cacheBytes,
		Compression: comp,
		Level:       v.GetInt(KeyLevel),
		Deduplicate: v.GetBool(KeyDeduplicate),
	}, nil
}

// ArchiveOptions returns the reader options implied by c, excluding the
// cache, which the caller owns.
func (c Config) ArchiveOptions() []wad.Option {
	if c.Workers <= 0 {
		return nil
	}
	return []wad.Option{wad.WithDecoderConcurrency(c.Workers)}
}

// WriteOptions returns the writer options implied by c.
func (c Config) WriteOptions() []wad.WriteOption {
	opts := []wad.WriteOption{
		wad.WithDefaultCompression(c.Compression),
		wad.WithDeduplicate(c.Deduplicate),
		wad.WithWorkers(c.Workers),
	}
	if c.Level != 0 {
		opts = append(opts, wad.WithCompressionLevel(c.Level))
	}
	return opts
}
