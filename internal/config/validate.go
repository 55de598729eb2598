package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateActions(); err != nil {
		return err
	}
	if err := c.validateBackends(); err != nil {
		return err
	}
	if err := c.validateShare(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateActions() error {
	for i, action := range c.Actions.Collage {
		if len(action.Processing.MergeDefinition) == 0 {
			return fmt.Errorf("actions.collage[%d].processing.merge_definition must not be empty", i)
		}
		if action.Processing.CanvasWidth <= 0 || action.Processing.CanvasHeight <= 0 {
			return fmt.Errorf("actions.collage[%d].processing canvas dimensions must be positive", i)
		}
		if countCapturedSlots(action.Processing.MergeDefinition) == 0 {
			return fmt.Errorf("actions.collage[%d].processing.merge_definition needs at least one captured slot", i)
		}
	}
	for i, action := range c.Actions.Animation {
		if len(action.Processing.MergeDefinition) == 0 {
			return fmt.Errorf("actions.animation[%d].processing.merge_definition must not be empty", i)
		}
		captured := 0
		for _, def := range action.Processing.MergeDefinition {
			if strings.TrimSpace(def.PredefinedImage) == "" {
				captured++
			}
		}
		if captured == 0 {
			return fmt.Errorf("actions.animation[%d].processing.merge_definition needs at least one captured frame", i)
		}
	}
	for i, action := range c.Actions.Video {
		if action.Processing.VideoDurationSeconds <= 0 {
			return fmt.Errorf("actions.video[%d].processing.video_duration_seconds must be positive", i)
		}
	}
	return nil
}

func countCapturedSlots(defs []CollageMergeDefinition) int {
	captured := 0
	for _, def := range defs {
		if strings.TrimSpace(def.PredefinedImage) == "" {
			captured++
		}
	}
	return captured
}

func (c *Config) validateBackends() error {
	enabled := 0
	for _, backend := range c.Backends.GroupBackends {
		if backend.Enabled {
			enabled++
		}
		switch backend.Type {
		case "virtual":
		default:
			return fmt.Errorf("backends.group_backends: unsupported type %q", backend.Type)
		}
	}
	if enabled == 0 {
		return errors.New("backends.group_backends must contain at least one enabled backend")
	}
	for _, role := range []struct {
		name  string
		index int
	}{
		{"backends.index_backend_stills", c.Backends.IndexBackendStills},
		{"backends.index_backend_video", c.Backends.IndexBackendVideo},
		{"backends.index_backend_multicam", c.Backends.IndexBackendMulticam},
	} {
		if role.index < 0 || role.index >= enabled {
			return fmt.Errorf("%s out of range: %d (enabled backends: %d)", role.name, role.index, enabled)
		}
	}
	return nil
}

func (c *Config) validateShare() error {
	if !c.Share.Enabled {
		return nil
	}
	if len(c.Share.Actions) == 0 {
		return errors.New("share.actions must not be empty when share.enabled is true")
	}
	for i, action := range c.Share.Actions {
		if strings.TrimSpace(action.Name) == "" {
			return fmt.Errorf("share.actions[%d].name must be set", i)
		}
		if strings.TrimSpace(action.Command) == "" {
			return fmt.Errorf("share.actions[%d].command must be set", i)
		}
		if action.MaxShares < 0 {
			return fmt.Errorf("share.actions[%d].max_shares must be >= 0", i)
		}
	}
	return nil
}
