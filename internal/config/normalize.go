package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMediaprocessing()
	c.normalizeActions()
	c.normalizeBackends()
	c.normalizeShare()
	c.normalizeInformation()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UserdataDir) == "" {
		c.Paths.UserdataDir = defaultUserdataDir
	}
	if c.Paths.UserdataDir, err = expandPath(c.Paths.UserdataDir); err != nil {
		return fmt.Errorf("paths.userdata_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMediaprocessing() {
	if c.Mediaprocessing.FullStillLength <= 0 {
		c.Mediaprocessing.FullStillLength = defaultFullStillLength
	}
	if c.Mediaprocessing.PreviewStillLength <= 0 {
		c.Mediaprocessing.PreviewStillLength = defaultPreviewStillLength
	}
	if c.Mediaprocessing.ThumbnailStillLength <= 0 {
		c.Mediaprocessing.ThumbnailStillLength = defaultThumbnailStillLength
	}
	if c.Mediaprocessing.StillQuality <= 0 || c.Mediaprocessing.StillQuality > 100 {
		c.Mediaprocessing.StillQuality = defaultStillQuality
	}
	if c.Mediaprocessing.VideoBitrateKbps <= 0 {
		c.Mediaprocessing.VideoBitrateKbps = defaultVideoBitrateKbps
	}
	if c.Mediaprocessing.RemoveChromakeyTolerance <= 0 {
		c.Mediaprocessing.RemoveChromakeyTolerance = defaultChromakeyTolerance
	}
	c.Mediaprocessing.RemovebgModel = strings.TrimSpace(c.Mediaprocessing.RemovebgModel)
}

func (c *Config) normalizeActions() {
	for i := range c.Actions.Image {
		normalizeJobControl(&c.Actions.Image[i].JobControl)
		normalizePictureDefinition(&c.Actions.Image[i].Processing)
	}
	for i := range c.Actions.Collage {
		normalizeJobControl(&c.Actions.Collage[i].JobControl)
		normalizePictureDefinition(&c.Actions.Collage[i].Processing.CapturedProcessing)
		for j := range c.Actions.Collage[i].Processing.MergeDefinition {
			def := &c.Actions.Collage[i].Processing.MergeDefinition[j]
			if strings.TrimSpace(def.Filter) == "" {
				def.Filter = "original"
			}
		}
	}
	for i := range c.Actions.Animation {
		normalizeJobControl(&c.Actions.Animation[i].JobControl)
		normalizePictureDefinition(&c.Actions.Animation[i].Processing.CapturedProcessing)
		for j := range c.Actions.Animation[i].Processing.MergeDefinition {
			def := &c.Actions.Animation[i].Processing.MergeDefinition[j]
			if def.DurationMillis <= 0 {
				def.DurationMillis = defaultAnimationFrameMillis
			}
			if strings.TrimSpace(def.Filter) == "" {
				def.Filter = "original"
			}
		}
	}
	for i := range c.Actions.Video {
		normalizeJobControl(&c.Actions.Video[i].JobControl)
		if c.Actions.Video[i].Processing.VideoDurationSeconds <= 0 {
			c.Actions.Video[i].Processing.VideoDurationSeconds = defaultVideoDurationSeconds
		}
		if c.Actions.Video[i].Processing.VideoFramerate <= 0 {
			c.Actions.Video[i].Processing.VideoFramerate = defaultVideoFramerate
		}
	}
	for i := range c.Actions.Multicamera {
		normalizeJobControl(&c.Actions.Multicamera[i].JobControl)
		normalizePictureDefinition(&c.Actions.Multicamera[i].Processing.CapturedProcessing)
		if c.Actions.Multicamera[i].Processing.FrameDurationMillis <= 0 {
			c.Actions.Multicamera[i].Processing.FrameDurationMillis = defaultWigglegramFrameMillis
		}
	}
}

func normalizeJobControl(jc *JobControl) {
	if jc.CountdownCapture < 0 {
		jc.CountdownCapture = 0
	}
	if jc.CountdownCaptureSecondFollowing < 0 {
		jc.CountdownCaptureSecondFollowing = 0
	}
	if jc.ApproveAutoconfirmTimeout <= 0 {
		jc.ApproveAutoconfirmTimeout = defaultApproveAutoconfirmTimeout
	}
}

func normalizePictureDefinition(def *SinglePictureDefinition) {
	def.Filter = strings.ToLower(strings.TrimSpace(def.Filter))
	if def.Filter == "" {
		def.Filter = "original"
	}
	if strings.TrimSpace(def.FillBackgroundColor) == "" {
		def.FillBackgroundColor = "#0000ff"
	}
	for i := range def.Texts {
		if def.Texts[i].FontSize <= 0 {
			def.Texts[i].FontSize = 40
		}
		if strings.TrimSpace(def.Texts[i].Color) == "" {
			def.Texts[i].Color = "#ff0000"
		}
	}
}

func (c *Config) normalizeBackends() {
	if len(c.Backends.GroupBackends) == 0 {
		c.Backends.GroupBackends = []BackendConfig{{Name: "virtual", Type: "virtual", Enabled: true}}
	}
	for i := range c.Backends.GroupBackends {
		entry := &c.Backends.GroupBackends[i]
		entry.Type = strings.ToLower(strings.TrimSpace(entry.Type))
		if entry.Type == "" {
			entry.Type = "virtual"
		}
		if strings.TrimSpace(entry.Name) == "" {
			entry.Name = fmt.Sprintf("%s-%d", entry.Type, i)
		}
	}
	if c.Backends.RetryCapture <= 0 {
		c.Backends.RetryCapture = defaultRetryCapture
	}
	if c.Backends.CountdownCameraCaptureOffset < 0 {
		c.Backends.CountdownCameraCaptureOffset = 0
	}
}

func (c *Config) normalizeShare() {
	for i := range c.Share.Actions {
		action := &c.Share.Actions[i]
		action.Name = strings.TrimSpace(action.Name)
		if action.TimeoutSeconds <= 0 {
			action.TimeoutSeconds = defaultShareTimeout
		}
		kinds := make([]string, 0, len(action.MediaKinds))
		for _, kind := range action.MediaKinds {
			normalized := strings.ToLower(strings.TrimSpace(kind))
			if normalized != "" {
				kinds = append(kinds, normalized)
			}
		}
		action.MediaKinds = kinds
	}
}

func (c *Config) normalizeInformation() {
	if c.Information.IntervalSeconds <= 0 {
		c.Information.IntervalSeconds = defaultInformationSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
