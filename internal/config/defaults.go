package config

const (
	defaultConfigPath       = "~/.config/picsift/config.toml"
	defaultStateDir         = "~/.local/share/picsift"
	defaultLogDir           = "~/.local/share/picsift/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultDetectionMode    = ModeMetadata
	defaultCopyPattern      = "/{year}/{month}/{day}"
	defaultSpaceMarginMiB   = 64
	defaultNtfyTimeout      = 10
)

// Detection modes accepted by scan.detection_mode.
const (
	ModeMetadata = "metadata"
	ModeChecksum = "checksum"
)

// stateDirEnv overrides paths.state_dir when the config leaves it unset.
const stateDirEnv = "PICSIFT_STATE_DIR"

var defaultExtensions = []string{"jpg", "jpeg", "png", "gif"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Scan: Scan{
			Extensions:    append([]string(nil), defaultExtensions...),
			DetectionMode: defaultDetectionMode,
		},
		Copy: Copy{
			Pattern:        defaultCopyPattern,
			Verify:         true,
			SpaceMarginMiB: defaultSpaceMarginMiB,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
	}
}
