// Package config defines the server configuration structure.
package config

import (
	"net"
	"os"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyGateway(&cfg.Gateway, &cfg.Bot); err != nil {
		return err
	}
	if err := verifyIngest(&cfg.Ingest); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifyPersist(&cfg.Persist); err != nil {
		return err
	}
	if err := verifyMetrics(&cfg.Metrics); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func invalid(format string, args ...any) error {
	return domain.ErrInvalidConfig.WithDetailsf(format, args...)
}

func verifyGateway(cfg *GatewaySection, bot *BotSection) error {
	if cfg.ShardCount < 1 {
		return invalid("gateway.shard_count must be at least 1")
	}
	switch cfg.Mode {
	case GatewayModeReplay:
		if cfg.ReplayFile == "" {
			return invalid("gateway.replay_file is required in replay mode")
		}
		if _, err := os.Stat(cfg.ReplayFile); err != nil {
			return invalid("gateway.replay_file: %v", err)
		}
	case GatewayModeWebSocket:
		if cfg.URL == "" {
			return invalid("gateway.url is required in websocket mode")
		}
		if bot.Token == "" {
			return invalid("bot.token is required in websocket mode")
		}
		if cfg.ReconnectMax > 0 && cfg.ReconnectMin > cfg.ReconnectMax {
			return invalid("gateway.reconnect_min exceeds gateway.reconnect_max")
		}
		if cfg.CAFile != "" {
			if _, err := os.Stat(cfg.CAFile); err != nil {
				return invalid("gateway.ca_file: %v", err)
			}
		}
	default:
		return invalid("gateway.mode %q is not one of replay, websocket", cfg.Mode)
	}
	return nil
}

func verifyIngest(cfg *IngestSection) error {
	if cfg.BacklogSize < 0 {
		return invalid("ingest.backlog_size must not be negative")
	}
	if cfg.QueueSize < 1 {
		return invalid("ingest.queue_size must be at least 1")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	if cfg.DataDir == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return invalid("cannot create data directory: %v", err)
	}
	return nil
}

func verifyPersist(cfg *PersistSection) error {
	if cfg.Workers < 1 {
		return invalid("persist.workers must be at least 1")
	}
	if cfg.QueueSize < 1 {
		return invalid("persist.queue_size must be at least 1")
	}
	return nil
}

func verifyMetrics(cfg *MetricsSection) error {
	if cfg.Addr != "" {
		if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
			return invalid("metrics.addr: %v", err)
		}
	}
	if cfg.RateLimit < 0 {
		return invalid("metrics.rate_limit must not be negative")
	}
	if cfg.RateLimit > 0 && cfg.RateBurst < 1 {
		return invalid("metrics.rate_burst must be at least 1 when rate limiting")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return invalid("metrics.tls_cert_file and metrics.tls_key_file must be set together")
	}
	for _, f := range []string{cfg.TLSCertFile, cfg.TLSKeyFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return invalid("metrics tls: %v", err)
		}
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !logger.ValidLevel(cfg.Level) {
		return invalid("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text":
	default:
		return invalid("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}
