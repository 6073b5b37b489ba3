package config

// Log controls the structured logger and optional file rotation.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
	Compress   bool   `toml:"Compress"`
}

// Auth configures bearer token verification on the gateway.
type Auth struct {
	HMACSecret       string   `toml:"HMACSecret"`
	HMACSecretEnv    string   `toml:"HMACSecretEnv"`
	Issuer           string   `toml:"Issuer"`
	Audience         []string `toml:"Audience"`
	ClockSkewSeconds int64    `toml:"ClockSkewSeconds"`
	// AllowAnonymousReads lets unauthenticated clients call query routes.
	AllowAnonymousReads bool `toml:"AllowAnonymousReads"`
}

// RateLimit bounds requests per client.
type RateLimit struct {
	RatePerSecond float64 `toml:"RatePerSecond"`
	Burst         int     `toml:"Burst"`
}

// History configures the payout index. An empty DSN disables it.
type History struct {
	DSN string `toml:"DSN"`
}

// Idempotency configures the replay cache for mutating gateway calls.
type Idempotency struct {
	Path       string `toml:"Path"`
	TTLSeconds int64  `toml:"TTLSeconds"`
}

type Telemetry struct {
	Endpoint string            `toml:"Endpoint"`
	Insecure bool              `toml:"Insecure"`
	Headers  map[string]string `toml:"Headers"`
	Traces   bool              `toml:"Traces"`
	Metrics  bool              `toml:"Metrics"`

	// SampleRatio is the share of root spans kept; 0 keeps every span.
	SampleRatio float64 `toml:"SampleRatio"`
}

// Staking carries runtime policy for the staking engine.
type Staking struct {
	EarlyUnstake string `toml:"EarlyUnstake"`
}

// Farming carries runtime policy for the farming engine.
type Farming struct {
	RestrictFunding bool `toml:"RestrictFunding"`
}
