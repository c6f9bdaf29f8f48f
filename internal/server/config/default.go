// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultGatewayMode      = GatewayModeReplay
	DefaultShardCount       = 1
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultReconnectMin     = time.Second
	DefaultReconnectMax     = time.Minute

	DefaultBacklogSize = 4096
	DefaultQueueSize   = 256

	DefaultGCInterval = 10 * time.Minute

	DefaultPersistWorkers   = 4
	DefaultPersistQueueSize = 1024
	DefaultPersistRetries   = 5
	DefaultPersistInitial   = 100 * time.Millisecond
	DefaultPersistMax       = 5 * time.Second
	DefaultPersistTimeout   = 5 * time.Second

	DefaultMetricsAddr     = "127.0.0.1:9464"
	DefaultRateLimit       = 20
	DefaultRateBurst       = 40
	DefaultCounterInterval = 15 * time.Second

	DefaultEnvironment = "production"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Gateway: GatewaySection{
			Mode:             DefaultGatewayMode,
			ShardCount:       DefaultShardCount,
			HandshakeTimeout: DefaultHandshakeTimeout,
			ReconnectMin:     DefaultReconnectMin,
			ReconnectMax:     DefaultReconnectMax,
		},
		Ingest: IngestSection{
			BacklogSize: DefaultBacklogSize,
			QueueSize:   DefaultQueueSize,
		},
		Storage: StorageSection{
			GCInterval: DefaultGCInterval,
		},
		Persist: PersistSection{
			Workers:         DefaultPersistWorkers,
			QueueSize:       DefaultPersistQueueSize,
			MaxRetries:      DefaultPersistRetries,
			InitialInterval: DefaultPersistInitial,
			MaxInterval:     DefaultPersistMax,
			WriteTimeout:    DefaultPersistTimeout,
		},
		Metrics: MetricsSection{
			Addr:              DefaultMetricsAddr,
			RateLimit:         DefaultRateLimit,
			RateBurst:         DefaultRateBurst,
			CounterInterval:   DefaultCounterInterval,
			RuntimeCollectors: true,
		},
		Report: ReportSection{
			Environment: DefaultEnvironment,
		},
		Log: LogSection{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}
