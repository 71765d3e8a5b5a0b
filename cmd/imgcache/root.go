package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meigma/imgcache"
	"github.com/meigma/imgcache/cache/disk"
	"github.com/meigma/imgcache/internal/config"
)

// app is the state shared by every command.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// Global flags
	configPath string
	mirrorDir  string
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "imgcache",
		Short: "Fetch and mirror images through the imgcache loader",
		Long: `imgcache downloads images through a memory table and an on-disk mirror.

Images are mirrored as PNG files named by the SHA-256 of their URL.
Settings are read from ~/.config/imgcache/config.toml; flags override them.`,
		SilenceUsage:               true,
		SilenceErrors:              true,
		SuggestionsMinimumDistance: 2,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "completion" || cmd.Name() == "help" {
				return nil
			}
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ~/.config/imgcache/config.toml)")
	cmd.PersistentFlags().StringVar(&a.mirrorDir, "mirror-dir", "", "Mirror directory (overrides mirror_dir)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log cache and download diagnostics")

	cmd.Version = versionString()
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.AddCommand(newFetchCmd(a))
	cmd.AddCommand(newGetCmd(a))
	cmd.AddCommand(newMirrorCmd(a))
	cmd.AddCommand(newVersionCmd(a))
	return cmd
}

// init loads the config file and builds the logger.
func (a *app) init(cmd *cobra.Command) error {
	var (
		cfg config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("mirror-dir") {
		cfg.MirrorDir = a.mirrorDir
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// mirrorPath returns the configured mirror directory or the library default.
func (a *app) mirrorPath() string {
	if a.cfg.MirrorDir != "" {
		return a.cfg.MirrorDir
	}
	return imgcache.DefaultMirrorDir()
}

func (a *app) mirrorOptions() []disk.Option {
	return []disk.Option{disk.WithMaxBytes(a.cfg.MirrorMaxBytes)}
}

func (a *app) openMirror() (*disk.Mirror, error) {
	m, err := disk.New(a.mirrorPath(), a.mirrorOptions()...)
	if err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}
	return m, nil
}

// newLoader builds a loader from the config. extra options are applied last.
func (a *app) newLoader(extra ...imgcache.Option) (*imgcache.Loader, error) {
	policy, err := imgcache.ParseQueuePolicy(a.cfg.QueuePolicy)
	if err != nil {
		return nil, err
	}
	opts := []imgcache.Option{
		imgcache.WithLogger(a.logger),
		imgcache.WithMirrorDir(a.mirrorPath(), a.mirrorOptions()...),
		imgcache.WithMemoryCapacity(a.cfg.MemoryCapacity),
		imgcache.WithQueuePolicy(policy),
		imgcache.WithFetchTimeout(a.cfg.FetchTimeout),
		imgcache.WithCacheFailures(a.cfg.CacheFailures),
	}
	if a.cfg.UserAgent != "" {
		opts = append(opts, imgcache.WithUserAgent(a.cfg.UserAgent))
	}
	return imgcache.New(append(opts, extra...)...)
}
