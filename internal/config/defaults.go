package config

const (
	defaultDataDir              = "~/.local/share/bleeparr"
	defaultLogDir               = "~/.local/share/bleeparr/logs"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultTickSeconds          = 10
	defaultLookbackMinutes      = 60
	defaultSourceTimeoutSeconds = 30
	defaultResolverMaxDepth     = 8
	defaultResolverMaxFiles     = 50000
	defaultDedupPolicy          = DedupIdentity
	defaultDedupWindowSeconds   = 7 * 24 * 60 * 60
	defaultToolBinary           = "bleeparr-tool"
	defaultToolTimeoutSeconds   = 3 * 60 * 60
	defaultNotifyTimeoutSeconds = 10
)

// Dedup policies accepted by admission.dedup_policy.
const (
	DedupIdentity = "identity"
	DedupPath     = "path"
	DedupWindow   = "window"
)

var defaultFallbackRoots = []string{
	"/app/videos",
	"/app/media/tv",
	"/app/media/movies",
	"/app/CleanVid/TV",
	"/app/CleanVid/Movies",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	roots := make([]string, len(defaultFallbackRoots))
	copy(roots, defaultFallbackRoots)
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Workflow: Workflow{
			TickSeconds:          defaultTickSeconds,
			LookbackMinutes:      defaultLookbackMinutes,
			SourceTimeoutSeconds: defaultSourceTimeoutSeconds,
		},
		Resolver: Resolver{
			FallbackRoots: roots,
			MaxDepth:      defaultResolverMaxDepth,
			MaxFiles:      defaultResolverMaxFiles,
		},
		Admission: Admission{
			DedupPolicy:   defaultDedupPolicy,
			WindowSeconds: defaultDedupWindowSeconds,
		},
		Tool: Tool{
			Binary:         defaultToolBinary,
			TimeoutSeconds: defaultToolTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeoutSeconds,
			Censored:       true,
			Failures:       true,
			Cycles:         false,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
