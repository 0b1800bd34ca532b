package config

const (
	defaultNetwork             = "regtest"
	defaultAttempts            = 3
	defaultStopGraceSeconds    = 5
	defaultStateDir            = "~/.local/share/lnharness"
	defaultInstallDir          = "~/.local/share/lnharness/dist"
	defaultFetchVersion        = "v23.02.2"
	defaultFetchEndpoint       = "https://github.com/ElementsProject/lightning/releases/download"
	defaultFetchTimeoutSeconds = 300
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Node: Node{
			Network:          defaultNetwork,
			Args:             []string{"--regtest"},
			Attempts:         defaultAttempts,
			StopGraceSeconds: defaultStopGraceSeconds,
		},
		Fetch: Fetch{
			Version:        defaultFetchVersion,
			Endpoint:       defaultFetchEndpoint,
			InstallDir:     defaultInstallDir,
			TimeoutSeconds: defaultFetchTimeoutSeconds,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
