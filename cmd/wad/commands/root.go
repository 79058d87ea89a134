// Package commands implements the wad command line.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meigma/wad"
	"github.com/meigma/wad/cache"
	"github.com/meigma/wad/cache/disk"
	"github.com/meigma/wad/cache/memory"
	"github.com/meigma/wad/hashlist"
	wadhttp "github.com/meigma/wad/http"
	"github.com/meigma/wad/internal/config"
)

// app carries state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
}

// NewRootCmd builds the wad command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "wad",
		Short:         "Inspect, extract and build WAD archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./wad.yaml or $HOME/.config/wad/wad.yaml)")
	flags.BoolP("verbose", "v", false, "log diagnostics to stderr")
	flags.String("hashes", "", "path registry used to name entries")
	flags.Int("workers", 0, "parallelism: 0 picks automatically, negative runs serially")
	flags.String("cache-dir", "", "cache decoded entries in this directory")
	bind(a.v, flags, "verbose", config.KeyVerbose)
	bind(a.v, flags, "hashes", config.KeyHashes)
	bind(a.v, flags, "workers", config.KeyWorkers)
	bind(a.v, flags, "cache-dir", config.KeyCacheDir)

	root.AddCommand(
		newInfoCmd(a),
		newListCmd(a),
		newTreeCmd(a),
		newCatCmd(a),
		newExtractCmd(a),
		newVerifyCmd(a),
		newPackCmd(a),
		newHashCmd(a),
	)
	return root
}

// Execute runs the wad command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.Load(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Decode(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("using config file", "path", used)
	}
	return nil
}

// open opens a local path or an http(s) URL as an archive.
func (a *app) open(location string) (*wad.Archive, error) {
	opts := append(a.cfg.ArchiveOptions(), wad.WithLogger(a.logger))
	c, err := a.cache()
	if err != nil {
		return nil, err
	}
	if c != nil {
		opts = append(opts, wad.WithCache(c))
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		src, err := wadhttp.NewSource(location, wadhttp.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		return wad.Open(src, opts...)
	}
	return wad.OpenFile(location, opts...)
}

func (a *app) cache() (cache.Cache, error) {
	switch {
	case a.cfg.CacheDir != "":
		c, err := disk.New(a.cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		return c, nil
	case a.cfg.CacheBytes > 0:
		c, err := memory.New(memory.WithMaxBytes(a.cfg.CacheBytes))
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		return c, nil
	default:
		return nil, nil
	}
}

// registry loads the configured path registry, or returns an empty one.
func (a *app) registry() (*hashlist.Registry, error) {
	if a.cfg.Hashes == "" {
		return hashlist.New(), nil
	}
	reg, err := hashlist.LoadFile(a.cfg.Hashes)
	if err != nil {
		return nil, fmt.Errorf("load hashes: %w", err)
	}
	a.logger.Debug("loaded path registry", "path", a.cfg.Hashes, "entries", reg.Len())
	return reg, nil
}

// resolve finds an entry by path, falling back to a hex hash.
func resolve(ar *wad.Archive, name string) (wad.Entry, error) {
	if e, ok := ar.Resolve(name); ok {
		return e, nil
	}
	if h, err := wad.ParseHash(name); err == nil {
		if e, ok := ar.ResolveHash(h); ok {
			return e, nil
		}
	}
	return wad.Entry{}, fmt.Errorf("%s: no such entry", name)
}

// bind makes a flag override the config key it mirrors.
func bind(v *viper.Viper, flags *pflag.FlagSet, name, key string) {
	if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", name, err))
	}
}
