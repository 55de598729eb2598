package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains base directory configuration. All other on-disk locations
// are derived from DataDir.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	UserdataDir string `toml:"userdata_dir"`
	LogDir      string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Common contains cross-cutting behavior switches.
type Common struct {
	// DeleteToRecycleDir moves original artifacts into the recycle
	// directory on delete instead of removing them permanently.
	DeleteToRecycleDir bool `toml:"delete_to_recycle_dir"`
}

// Mediaprocessing contains target lengths and encoder parameters for the
// derivation cache and the video pipeline.
type Mediaprocessing struct {
	FullStillLength      int `toml:"full_still_length"`
	PreviewStillLength   int `toml:"preview_still_length"`
	ThumbnailStillLength int `toml:"thumbnail_still_length"`
	StillQuality         int `toml:"still_quality"`
	VideoBitrateKbps     int `toml:"video_bitrate_kbps"`

	RemoveChromakeyEnable    bool `toml:"remove_chromakey_enable"`
	RemoveChromakeyKeycolor  int  `toml:"remove_chromakey_keycolor"`
	RemoveChromakeyTolerance int  `toml:"remove_chromakey_tolerance"`

	// RemovebgModel names an optional background segmentation model. The
	// step is skipped when empty; chromakey removal covers transparency.
	RemovebgModel string `toml:"removebg_model"`
}

// TextConfig places one text overlay on an image.
type TextConfig struct {
	Text     string `toml:"text"`
	PosX     int    `toml:"pos_x"`
	PosY     int    `toml:"pos_y"`
	Rotate   int    `toml:"rotate"`
	FontSize int    `toml:"font_size"`
	Font     string `toml:"font"`
	Color    string `toml:"color"`
}

// SinglePictureDefinition is the per-capture phase-1 processing block.
type SinglePictureDefinition struct {
	Filter               string       `toml:"filter"`
	FillBackgroundEnable bool         `toml:"fill_background_enable"`
	FillBackgroundColor  string       `toml:"fill_background_color"`
	ImgBackgroundEnable  bool         `toml:"img_background_enable"`
	ImgBackgroundFile    string       `toml:"img_background_file"`
	ImgFrameEnable       bool         `toml:"img_frame_enable"`
	ImgFrameFile         string       `toml:"img_frame_file"`
	TextsEnable          bool         `toml:"texts_enable"`
	Texts                []TextConfig `toml:"texts"`
}

// CollageMergeDefinition describes one slot on a collage canvas.
type CollageMergeDefinition struct {
	Description     string `toml:"description"`
	PosX            int    `toml:"pos_x"`
	PosY            int    `toml:"pos_y"`
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	Rotate          int    `toml:"rotate"`
	PredefinedImage string `toml:"predefined_image"`
	Filter          string `toml:"filter"`
}

// AnimationMergeDefinition describes one frame of an animation.
type AnimationMergeDefinition struct {
	// DurationMillis is the display duration of this frame.
	DurationMillis  int    `toml:"duration_millis"`
	PredefinedImage string `toml:"predefined_image"`
	Filter          string `toml:"filter"`
}

// JobControl contains countdown and approval behavior for one action.
type JobControl struct {
	CountdownCapture                float64 `toml:"countdown_capture"`
	CountdownCaptureSecondFollowing float64 `toml:"countdown_capture_second_following"`
	AskApprovalEachCapture          bool    `toml:"ask_approval_each_capture"`
	ApproveAutoconfirmTimeout       float64 `toml:"approve_autoconfirm_timeout"`
	ShowIndividualCapturesInGallery bool    `toml:"show_individual_captures_in_gallery"`
}

// ImageAction configures one single-image capture action.
type ImageAction struct {
	Name       string                  `toml:"name"`
	JobControl JobControl              `toml:"jobcontrol"`
	Processing SinglePictureDefinition `toml:"processing"`
}

// CollageProcessing is the phase-2 composition block for collages.
type CollageProcessing struct {
	CanvasWidth                int                      `toml:"canvas_width"`
	CanvasHeight               int                      `toml:"canvas_height"`
	MergeDefinition            []CollageMergeDefinition `toml:"merge_definition"`
	CanvasFillBackgroundEnable bool                     `toml:"canvas_fill_background_enable"`
	CanvasFillBackgroundColor  string                   `toml:"canvas_fill_background_color"`
	CanvasImgBackgroundEnable  bool                     `toml:"canvas_img_background_enable"`
	CanvasImgBackgroundFile    string                   `toml:"canvas_img_background_file"`
	CanvasImgFrontEnable       bool                     `toml:"canvas_img_front_enable"`
	CanvasImgFrontFile         string                   `toml:"canvas_img_front_file"`
	CanvasTextsEnable          bool                     `toml:"canvas_texts_enable"`
	CanvasTexts                []TextConfig             `toml:"canvas_texts"`
	CapturedProcessing         SinglePictureDefinition  `toml:"captured_processing"`
}

// CollageAction configures one collage capture action.
type CollageAction struct {
	Name       string            `toml:"name"`
	JobControl JobControl        `toml:"jobcontrol"`
	Processing CollageProcessing `toml:"processing"`
}

// AnimationProcessing is the phase-2 composition block for animations.
type AnimationProcessing struct {
	CanvasWidth        int                        `toml:"canvas_width"`
	CanvasHeight       int                        `toml:"canvas_height"`
	MergeDefinition    []AnimationMergeDefinition `toml:"merge_definition"`
	CapturedProcessing SinglePictureDefinition    `toml:"captured_processing"`
}

// AnimationAction configures one animated-GIF capture action.
type AnimationAction struct {
	Name       string              `toml:"name"`
	JobControl JobControl          `toml:"jobcontrol"`
	Processing AnimationProcessing `toml:"processing"`
}

// VideoProcessing is the processing block for video actions.
type VideoProcessing struct {
	VideoDurationSeconds int  `toml:"video_duration_seconds"`
	VideoFramerate       int  `toml:"video_framerate"`
	Boomerang            bool `toml:"boomerang"`
}

// VideoAction configures one video capture action.
type VideoAction struct {
	Name       string          `toml:"name"`
	JobControl JobControl      `toml:"jobcontrol"`
	Processing VideoProcessing `toml:"processing"`
}

// MulticameraProcessing is the processing block for wigglegram actions.
type MulticameraProcessing struct {
	// FrameDurationMillis is the per-frame display duration of the
	// composed wigglegram loop.
	FrameDurationMillis int                     `toml:"frame_duration_millis"`
	CapturedProcessing  SinglePictureDefinition `toml:"captured_processing"`
}

// MulticameraAction configures one multi-camera wigglegram action.
type MulticameraAction struct {
	Name       string                `toml:"name"`
	JobControl JobControl            `toml:"jobcontrol"`
	Processing MulticameraProcessing `toml:"processing"`
}

// Actions groups the configured action lists by kind. Triggers select an
// action by kind plus list index.
type Actions struct {
	Image       []ImageAction       `toml:"image"`
	Collage     []CollageAction     `toml:"collage"`
	Animation   []AnimationAction   `toml:"animation"`
	Video       []VideoAction       `toml:"video"`
	Multicamera []MulticameraAction `toml:"multicamera"`
}

// BackendConfig describes one acquisition backend entry.
type BackendConfig struct {
	Name    string `toml:"name"`
	Type    string `toml:"type"`
	Enabled bool   `toml:"enabled"`
}

// Backends configures the acquisition supervisor.
type Backends struct {
	GroupBackends []BackendConfig `toml:"group_backends"`

	// Role indices into GroupBackends (counting enabled entries only).
	IndexBackendStills   int `toml:"index_backend_stills"`
	IndexBackendVideo    int `toml:"index_backend_video"`
	IndexBackendMulticam int `toml:"index_backend_multicam"`

	// CountdownCameraCaptureOffset is subtracted from the countdown so the
	// camera can fire early enough to compensate for shutter latency.
	CountdownCameraCaptureOffset float64 `toml:"countdown_camera_capture_offset"`
	RetryCapture                 int     `toml:"retry_capture"`
}

// ShareAction configures one share or print channel.
type ShareAction struct {
	Name           string   `toml:"name"`
	Command        string   `toml:"command"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	MediaKinds     []string `toml:"media_kinds"`
	MaxShares      int      `toml:"max_shares"`
	BlockedSeconds int      `toml:"blocked_seconds"`
}

// Share configures the share/print service.
type Share struct {
	Enabled bool          `toml:"enabled"`
	Actions []ShareAction `toml:"actions"`
}

// Information configures the stats aggregation service.
type Information struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

// Config encapsulates all configuration values for the photobooth core.
//
// Configuration sections by subsystem:
//   - Paths: base data, userdata, and log directories
//   - Logging: log format and level
//   - Common: delete-to-recycle behavior
//   - Mediaprocessing: derivation target lengths and encoder parameters
//   - Actions: per-kind capture action lists (jobcontrol + processing)
//   - Backends: acquisition backend list and role indices
//   - Share: share/print actions with limits
//   - Information: stats emission interval
type Config struct {
	Paths           Paths           `toml:"paths"`
	Logging         Logging         `toml:"logging"`
	Common          Common          `toml:"common"`
	Mediaprocessing Mediaprocessing `toml:"mediaprocessing"`
	Actions         Actions         `toml:"actions"`
	Backends        Backends        `toml:"backends"`
	Share           Share           `toml:"share"`
	Information     Information     `toml:"information"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/photobooth/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/photobooth/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("photobooth.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// DatabasePath returns the sqlite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "database", "database.sqlite")
}

// UnprocessedDir returns the directory for first-stage capture artifacts.
func (c *Config) UnprocessedDir() string {
	return filepath.Join(c.Paths.DataDir, "media", "unprocessed_original")
}

// ProcessedDir returns the directory for post-pipeline artifacts.
func (c *Config) ProcessedDir() string {
	return filepath.Join(c.Paths.DataDir, "media", "processed_full")
}

// CacheDir returns the directory holding derived scaled artifacts.
func (c *Config) CacheDir() string {
	return filepath.Join(c.Paths.DataDir, "cache")
}

// RecycleDir returns the directory receiving soft-deleted originals.
func (c *Config) RecycleDir() string {
	return filepath.Join(c.Paths.DataDir, "recycle")
}

// TmpDir returns the working directory for in-flight captures.
func (c *Config) TmpDir() string {
	return filepath.Join(c.Paths.DataDir, "tmp")
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.DatabasePath()),
		c.UnprocessedDir(),
		c.ProcessedDir(),
		c.CacheDir(),
		c.RecycleDir(),
		c.TmpDir(),
		c.Paths.UserdataDir,
		c.Paths.LogDir,
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for video processing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
