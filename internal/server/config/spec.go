// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for guildsync-server.
type ServerConfig struct {
	Bot     BotSection     `koanf:"bot"`
	Gateway GatewaySection `koanf:"gateway"`
	Ingest  IngestSection  `koanf:"ingest"`
	Storage StorageSection `koanf:"storage"`
	Persist PersistSection `koanf:"persist"`
	Metrics MetricsSection `koanf:"metrics"`
	Report  ReportSection  `koanf:"report"`
	Log     LogSection     `koanf:"log"`
}

// BotSection identifies the process on the gateway.
type BotSection struct {
	// SelfID is the bot's own user ID. Member updates for this user
	// refresh the cached self member.
	SelfID string `koanf:"self_id"`

	// Token authenticates the websocket gateway. Never logged.
	Token string `koanf:"token"`
}

// Gateway modes.
const (
	GatewayModeReplay    = "replay"
	GatewayModeWebSocket = "websocket"
)

// GatewaySection configures the event source.
type GatewaySection struct {
	// Mode selects the source: "replay" or "websocket".
	Mode string `koanf:"mode"`

	// URL is the websocket endpoint (websocket mode).
	URL string `koanf:"url"`

	// ReplayFile is an NDJSON frame file (replay mode).
	ReplayFile string `koanf:"replay_file"`

	// ShardCount is the number of shards this session owns.
	ShardCount int `koanf:"shard_count"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
	ReconnectMin     time.Duration `koanf:"reconnect_min"`
	ReconnectMax     time.Duration `koanf:"reconnect_max"`

	// CAFile is a PEM bundle trusted in addition to the system roots
	// when dialing a wss:// URL.
	CAFile string `koanf:"ca_file"`
}

// IngestSection configures the dispatcher and shard runner.
type IngestSection struct {
	// BacklogSize bounds the envelopes deferred per hydrating shard.
	BacklogSize int `koanf:"backlog_size"`

	// QueueSize bounds each shard's input queue.
	QueueSize int `koanf:"queue_size"`
}

// StorageSection configures the role store.
type StorageSection struct {
	// DataDir is the Badger directory. Empty keeps roles in memory only.
	DataDir    string        `koanf:"data_dir"`
	GCInterval time.Duration `koanf:"gc_interval"`
	SyncWrites bool          `koanf:"sync_writes"`
}

// PersistSection configures the asynchronous role writer.
type PersistSection struct {
	Workers         int           `koanf:"workers"`
	QueueSize       int           `koanf:"queue_size"`
	MaxRetries      uint64        `koanf:"max_retries"`
	InitialInterval time.Duration `koanf:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
}

// MetricsSection configures the exposition endpoint.
type MetricsSection struct {
	// Addr is the HTTP listen address. Empty disables the endpoint.
	Addr string `koanf:"addr"`

	// RateLimit is the per client request rate. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// CounterInterval is how often approximate counters are published
	// as gauges.
	CounterInterval time.Duration `koanf:"counter_interval"`

	// RuntimeCollectors adds Go runtime and process metrics.
	RuntimeCollectors bool `koanf:"runtime_collectors"`

	// TLSCertFile and TLSKeyFile switch the endpoint to HTTPS. The pair
	// is reloaded when the files change.
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// ReportSection configures the error side channel.
type ReportSection struct {
	// SentryDSN enables Sentry reporting when set.
	SentryDSN   string `koanf:"sentry_dsn"`
	Environment string `koanf:"environment"`
}

// LogSection configures logging.
type LogSection struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}
