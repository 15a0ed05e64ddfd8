package config

const (
	defaultRoot           = "/data/sceneflow"
	defaultBackend        = "hunyuan"
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
	defaultStagingAuthor  = "esteban"
	defaultStagingUID     = 1044
	defaultStagingGID     = 1045
	defaultHandoffUID     = 1054
	defaultHandoffGID     = 1054
	defaultHelper         = "sudo"
	defaultRegistryDBName = "metadata.db"
)

// Default returns the baseline configuration before any file overrides.
// Derived paths (staging, archive, log, registry) are filled during
// normalization so they follow an overridden root.
func Default() Config {
	return Config{
		Paths: Paths{
			Root: defaultRoot,
		},
		Archive: Archive{
			DefaultBackend: defaultBackend,
			Backends:       []string{"hunyuan", "sam"},
		},
		Ownership: Ownership{
			StagingUID: defaultStagingUID,
			StagingGID: defaultStagingGID,
			HandoffUID: defaultHandoffUID,
			HandoffGID: defaultHandoffGID,
			Helper:     defaultHelper,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
