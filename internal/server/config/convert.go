// Package config defines the server configuration structure.
package config

import (
	"github.com/yndnr/guildsync/internal/gateway"
	"github.com/yndnr/guildsync/internal/persist"
	"github.com/yndnr/guildsync/internal/storage/rolestore"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

// ToLoggerConfig converts the log section to a logger.Config.
func ToLoggerConfig(cfg *ServerConfig) logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Format = cfg.Log.Format
	lc.File = cfg.Log.File
	if cfg.Log.MaxSizeMB > 0 {
		lc.MaxSizeMB = cfg.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups > 0 {
		lc.MaxBackups = cfg.Log.MaxBackups
	}
	if cfg.Log.MaxAgeDays > 0 {
		lc.MaxAgeDays = cfg.Log.MaxAgeDays
	}
	return lc
}

// ToRoleStoreConfig converts the storage section to a rolestore.Config.
func ToRoleStoreConfig(cfg *ServerConfig) rolestore.Config {
	rc := rolestore.DefaultConfig(cfg.Storage.DataDir)
	if cfg.Storage.GCInterval > 0 {
		rc.GCInterval = cfg.Storage.GCInterval
	}
	rc.SyncWrites = cfg.Storage.SyncWrites
	return rc
}

// ToPersistConfig converts the persist section to a persist.Config.
// Zero values fall back to persist defaults.
func ToPersistConfig(cfg *ServerConfig) persist.Config {
	pc := persist.DefaultConfig()
	p := cfg.Persist
	if p.Workers > 0 {
		pc.Workers = p.Workers
	}
	if p.QueueSize > 0 {
		pc.QueueSize = p.QueueSize
	}
	if p.MaxRetries > 0 {
		pc.MaxRetries = p.MaxRetries
	}
	if p.InitialInterval > 0 {
		pc.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		pc.MaxInterval = p.MaxInterval
	}
	if p.WriteTimeout > 0 {
		pc.WriteTimeout = p.WriteTimeout
	}
	return pc
}

// ToWebSocketConfig converts the gateway section to a gateway.WebSocketConfig.
func ToWebSocketConfig(cfg *ServerConfig) gateway.WebSocketConfig {
	return gateway.WebSocketConfig{
		URL:              cfg.Gateway.URL,
		Token:            cfg.Bot.Token,
		ShardCount:       cfg.Gateway.ShardCount,
		HandshakeTimeout: cfg.Gateway.HandshakeTimeout,
		ReconnectMin:     cfg.Gateway.ReconnectMin,
		ReconnectMax:     cfg.Gateway.ReconnectMax,
	}
}
