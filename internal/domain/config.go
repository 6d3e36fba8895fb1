package domain

import "time"

// Config holds the complete service configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Evaluation settings shared by all strategies and the orchestrator.
	Match MatchConfig `json:"match"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// MatchConfig bundles the fuzzy-match thresholds and the scan caps passed
// into each strategy and aggregate call. Limits are explicit configuration,
// not package-level constants, so they stay tunable and testable.
type MatchConfig struct {
	Thresholds Thresholds `json:"thresholds"`
	Limits     ScanLimits `json:"limits"`
}

// Thresholds defines the match decision bar and the presentation bands.
// Min is the boolean match bar; Low/High/Exact only label the result.
type Thresholds struct {
	Min   int `json:"min"`
	Low   int `json:"low"`
	High  int `json:"high"`
	Exact int `json:"exact"`
}

// ExclusionMatchBar is the fixed confidence needed for a stored exclusion
// entity to suppress a candidate. Coarser than detection itself so
// near-miss conflicts are not suppressed too aggressively.
const ExclusionMatchBar = 90

// ScanLimits caps the rows each strategy or aggregate call reads. The caps
// bound per-evaluation cost as org data grows; hitting one is logged as a
// warning for operators.
type ScanLimits struct {
	Directory       int `json:"directory"`
	CaseSubjects    int `json:"caseSubjects"`
	OwnDisclosures  int `json:"ownDisclosures"`
	PeerDisclosures int `json:"peerDisclosures"`
	AggregateRows   int `json:"aggregateRows"`
}

// DefaultThresholds returns the standard match bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Min: 60, Low: 75, High: 90, Exact: 100}
}

// DefaultScanLimits returns the documented default row caps.
func DefaultScanLimits() ScanLimits {
	return ScanLimits{
		Directory:       1000,
		CaseSubjects:    1000,
		OwnDisclosures:  1000,
		PeerDisclosures: 1000,
		AggregateRows:   1000,
	}
}

// DefaultMatchConfig returns thresholds and limits ready for use. Callers
// passing a zero MatchConfig get these via Normalize.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Thresholds: DefaultThresholds(),
		Limits:     DefaultScanLimits(),
	}
}

// Normalize fills zero-valued fields with defaults. Invalid threshold
// configuration must never crash an evaluation; defaults always win over
// unusable values.
func (m MatchConfig) Normalize() MatchConfig {
	def := DefaultMatchConfig()
	if m.Thresholds.Min <= 0 || m.Thresholds.Min > 100 {
		m.Thresholds.Min = def.Thresholds.Min
	}
	if m.Thresholds.Low <= 0 || m.Thresholds.Low > 100 {
		m.Thresholds.Low = def.Thresholds.Low
	}
	if m.Thresholds.High <= 0 || m.Thresholds.High > 100 {
		m.Thresholds.High = def.Thresholds.High
	}
	if m.Thresholds.Exact <= 0 || m.Thresholds.Exact > 100 {
		m.Thresholds.Exact = def.Thresholds.Exact
	}
	if m.Limits.Directory <= 0 {
		m.Limits.Directory = def.Limits.Directory
	}
	if m.Limits.CaseSubjects <= 0 {
		m.Limits.CaseSubjects = def.Limits.CaseSubjects
	}
	if m.Limits.OwnDisclosures <= 0 {
		m.Limits.OwnDisclosures = def.Limits.OwnDisclosures
	}
	if m.Limits.PeerDisclosures <= 0 {
		m.Limits.PeerDisclosures = def.Limits.PeerDisclosures
	}
	if m.Limits.AggregateRows <= 0 {
		m.Limits.AggregateRows = def.Limits.AggregateRows
	}
	return m
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// DefaultConfig returns a single-node configuration: SQLite, in-memory
// cache, channel event bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./riskintel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Match: DefaultMatchConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "riskintel",
		},
	}
}

// DistributedConfig returns a multi-node configuration: PostgreSQL, NATS,
// two-phase Redis cache.
func DistributedConfig() *Config {
	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "riskintel",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
