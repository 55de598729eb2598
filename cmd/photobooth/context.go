package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"photobooth/internal/bus"
	"photobooth/internal/collection"
	"photobooth/internal/config"
	"photobooth/internal/logging"
	"photobooth/internal/resizer"
	"photobooth/internal/services/ffmpeg"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// components bundles the collection stack for one-shot CLI commands.
type components struct {
	cfg   *config.Config
	store *collection.Store
	cache *collection.Cache
	media *collection.Service
}

// withCollection opens the collection stack, runs fn, and closes the store.
func (c *commandContext) withCollection(fn func(*components) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	video, err := ffmpeg.New(cfg.FFmpegBinary())
	if err != nil {
		return err
	}
	store, err := collection.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := logging.NewNop()
	rz := resizer.New(video, cfg.Mediaprocessing.StillQuality, cfg.Mediaprocessing.VideoBitrateKbps)
	cache := collection.NewCache(cfg, store, rz, logger)
	media := collection.NewService(cfg, store, cache, bus.New(logger), logger)

	return fn(&components{cfg: cfg, store: store, cache: cache, media: media})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
