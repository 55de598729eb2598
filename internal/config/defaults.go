package config

const (
	defaultDataDir     = "~/.local/share/photobooth/data"
	defaultUserdataDir = "~/.local/share/photobooth/userdata"
	defaultLogDir      = "~/.local/share/photobooth/logs"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultFullStillLength      = 1500
	defaultPreviewStillLength   = 1200
	defaultThumbnailStillLength = 400
	defaultStillQuality         = 85
	defaultVideoBitrateKbps     = 5000

	defaultChromakeyKeycolor  = 110
	defaultChromakeyTolerance = 10

	defaultApproveAutoconfirmTimeout = 15.0
	defaultCountdownCapture          = 2.0
	defaultCountdownFollowing        = 1.0

	defaultVideoDurationSeconds = 5
	defaultVideoFramerate       = 25

	defaultWigglegramFrameMillis = 125
	defaultAnimationFrameMillis  = 2000

	defaultRetryCapture       = 3
	defaultShareTimeout       = 15
	defaultInformationSeconds = 60
)

// Default returns a Config populated with repository defaults. The action
// lists contain one entry per kind so a fresh install can capture out of the
// box with the virtual backend.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			UserdataDir: defaultUserdataDir,
			LogDir:      defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Common: Common{
			DeleteToRecycleDir: false,
		},
		Mediaprocessing: Mediaprocessing{
			FullStillLength:          defaultFullStillLength,
			PreviewStillLength:       defaultPreviewStillLength,
			ThumbnailStillLength:     defaultThumbnailStillLength,
			StillQuality:             defaultStillQuality,
			VideoBitrateKbps:         defaultVideoBitrateKbps,
			RemoveChromakeyKeycolor:  defaultChromakeyKeycolor,
			RemoveChromakeyTolerance: defaultChromakeyTolerance,
		},
		Actions: Actions{
			Image: []ImageAction{
				{
					Name: "image",
					JobControl: JobControl{
						CountdownCapture:                defaultCountdownCapture,
						CountdownCaptureSecondFollowing: defaultCountdownFollowing,
						ApproveAutoconfirmTimeout:       defaultApproveAutoconfirmTimeout,
						ShowIndividualCapturesInGallery: true,
					},
					Processing: SinglePictureDefinition{Filter: "original"},
				},
			},
			Collage: []CollageAction{
				{
					Name: "collage",
					JobControl: JobControl{
						CountdownCapture:                defaultCountdownCapture,
						CountdownCaptureSecondFollowing: defaultCountdownFollowing,
						AskApprovalEachCapture:          true,
						ApproveAutoconfirmTimeout:       defaultApproveAutoconfirmTimeout,
					},
					Processing: CollageProcessing{
						CanvasWidth:  1920,
						CanvasHeight: 1280,
						MergeDefinition: []CollageMergeDefinition{
							{PosX: 160, PosY: 220, Width: 510, Height: 725, Rotate: 0, Filter: "original"},
							{PosX: 705, PosY: 66, Width: 510, Height: 725, Rotate: 0, Filter: "original"},
							{PosX: 1245, PosY: 220, Width: 510, Height: 725, Rotate: 0, Filter: "original"},
						},
						CapturedProcessing: SinglePictureDefinition{Filter: "original"},
					},
				},
			},
			Animation: []AnimationAction{
				{
					Name: "animation",
					JobControl: JobControl{
						CountdownCapture:                defaultCountdownCapture,
						CountdownCaptureSecondFollowing: defaultCountdownFollowing,
						ApproveAutoconfirmTimeout:       defaultApproveAutoconfirmTimeout,
					},
					Processing: AnimationProcessing{
						CanvasWidth:  1500,
						CanvasHeight: 900,
						MergeDefinition: []AnimationMergeDefinition{
							{DurationMillis: defaultAnimationFrameMillis, Filter: "original"},
							{DurationMillis: defaultAnimationFrameMillis, Filter: "original"},
							{DurationMillis: defaultAnimationFrameMillis, Filter: "original"},
						},
						CapturedProcessing: SinglePictureDefinition{Filter: "original"},
					},
				},
			},
			Video: []VideoAction{
				{
					Name: "video",
					JobControl: JobControl{
						CountdownCapture:                defaultCountdownCapture,
						ApproveAutoconfirmTimeout:       defaultApproveAutoconfirmTimeout,
						ShowIndividualCapturesInGallery: true,
					},
					Processing: VideoProcessing{
						VideoDurationSeconds: defaultVideoDurationSeconds,
						VideoFramerate:       defaultVideoFramerate,
						Boomerang:            false,
					},
				},
			},
			Multicamera: []MulticameraAction{
				{
					Name: "wigglegram",
					JobControl: JobControl{
						CountdownCapture:          defaultCountdownCapture,
						ApproveAutoconfirmTimeout: defaultApproveAutoconfirmTimeout,
					},
					Processing: MulticameraProcessing{
						FrameDurationMillis: defaultWigglegramFrameMillis,
						CapturedProcessing:  SinglePictureDefinition{Filter: "original"},
					},
				},
			},
		},
		Backends: Backends{
			GroupBackends: []BackendConfig{
				{Name: "virtual", Type: "virtual", Enabled: true},
			},
			IndexBackendStills:   0,
			IndexBackendVideo:    0,
			IndexBackendMulticam: 0,
			RetryCapture:         defaultRetryCapture,
		},
		Share: Share{
			Enabled: false,
		},
		Information: Information{
			IntervalSeconds: defaultInformationSeconds,
		},
	}
}
