package config

const (
	defaultLogDir              = "~/.local/share/loudsync/logs"
	defaultJournalPath         = "~/.local/share/loudsync/journal.db"
	defaultPreset              = "-16"
	defaultFadeInMs            = 300
	defaultFadeOutMs           = 1500
	defaultFadeOutAnchor       = "end"
	defaultCrossfadeOverlapSec = 2.0
	defaultCrossfadeCurve      = "tri"
	defaultSampleRate          = 48000
	defaultCSVName             = "loudness_measurement.csv"
	defaultWorkers             = 2
	defaultProcessTimeoutSec   = 600
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:      defaultLogDir,
			JournalPath: defaultJournalPath,
		},
		Normalize: Normalize{
			Preset:  defaultPreset,
			TwoPass: true,
		},
		Fade: Fade{
			FadeInMs:      defaultFadeInMs,
			FadeOutMs:     defaultFadeOutMs,
			FadeOutAnchor: defaultFadeOutAnchor,
		},
		Crossfade: Crossfade{
			OverlapSeconds: defaultCrossfadeOverlapSec,
			Curve:          defaultCrossfadeCurve,
		},
		Output: Output{
			SampleRate: defaultSampleRate,
			WriteCSV:   true,
			CSVName:    defaultCSVName,
		},
		Workflow: Workflow{
			Workers:               defaultWorkers,
			ProcessTimeoutSeconds: defaultProcessTimeoutSec,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
