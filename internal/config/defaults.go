package config

const (
	defaultConfigPath             = "~/.config/stemdeck/config.toml"
	defaultStateDir               = "~/.local/share/stemdeck"
	defaultLogDir                 = "~/.local/share/stemdeck/logs"
	defaultExportDir              = "~/Music/stemdeck"
	defaultBaseURL                = "http://127.0.0.1:8750"
	defaultRequestTimeoutSeconds  = 30
	defaultPollIntervalMS         = 2000
	defaultMaxPollFailures        = 5
	defaultMaxPollDurationSeconds = 1800
	defaultUploadMode             = UploadModeMultipart
	defaultTokenFile              = "~/.config/stemdeck/token.json"
	defaultInputPrefix            = "inputs/"
	defaultStemSet                = StemSetTwo
	defaultSampleRate             = 44100
	defaultBlockMS                = 50
	defaultRampMS                 = 20
	defaultWaveformResolution     = 200
	defaultLyricGraceMS           = 3000
	defaultOutputCommand          = "pacat"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogMaxSizeMB           = 10
	defaultLogMaxBackups          = 3
	defaultLogMaxAgeDays          = 28
)

// Upload modes for POST /separate.
const (
	UploadModeMultipart   = "multipart"
	UploadModePath        = "path"
	UploadModeObjectStore = "object-store"
)

// Stem sets accepted by player.stem_set.
const (
	StemSetTwo  = "two"
	StemSetFour = "four"
)

// outputPresets supplies arguments for known players when none are configured.
var outputPresets = map[string][]string{
	"pacat":  {"--raw", "--format=float32le", "--rate={rate}", "--channels={channels}"},
	"ffplay": {"-nodisp", "-autoexit", "-loglevel", "quiet", "-f", "f32le", "-ar", "{rate}", "-ac", "{channels}", "-i", "-"},
	"aplay":  {"-q", "-t", "raw", "-f", "FLOAT_LE", "-r", "{rate}", "-c", "{channels}"},
}

var defaultDevices = []Device{
	{ID: "main", Name: "Main Output"},
	{ID: "monitor", Name: "Monitor Headphones"},
}

// Default returns a Config populated with repository defaults. Output args and
// devices are filled during normalization so a config file replaces them
// wholesale instead of merging into the defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Backend: Backend{
			BaseURL:                defaultBaseURL,
			RequestTimeoutSeconds:  defaultRequestTimeoutSeconds,
			PollIntervalMS:         defaultPollIntervalMS,
			MaxPollFailures:        defaultMaxPollFailures,
			MaxPollDurationSeconds: defaultMaxPollDurationSeconds,
			UploadMode:             defaultUploadMode,
		},
		Auth: Auth{
			TokenFile: defaultTokenFile,
		},
		Storage: Storage{
			UseSSL:      true,
			InputPrefix: defaultInputPrefix,
		},
		Player: Player{
			StemSet:            defaultStemSet,
			SampleRate:         defaultSampleRate,
			BlockMS:            defaultBlockMS,
			RampMS:             defaultRampMS,
			WaveformResolution: defaultWaveformResolution,
			LyricGraceMS:       defaultLyricGraceMS,
		},
		Output: Output{
			Command: defaultOutputCommand,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
