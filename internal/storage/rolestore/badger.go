package rolestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/guildsync/internal/core/domain"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

const keyPrefix = "role/"

// Keys are role/<len>:<guild>/<role>. The length prefix keeps guild ids
// containing '/' from sharing a prefix with another guild.
func roleKey(guildID domain.GuildID, roleID domain.RoleID) []byte {
	return append(guildPrefix(guildID), roleID...)
}

func guildPrefix(guildID domain.GuildID) []byte {
	b := make([]byte, 0, len(keyPrefix)+len(guildID)+8)
	b = append(b, keyPrefix...)
	b = strconv.AppendInt(b, int64(len(guildID)), 10)
	b = append(b, ':')
	b = append(b, guildID...)
	return append(b, '/')
}

// guildFromKey extracts the guild id of a role key.
func guildFromKey(key []byte) (domain.GuildID, bool) {
	rest, ok := bytes.CutPrefix(key, []byte(keyPrefix))
	if !ok {
		return "", false
	}
	i := bytes.IndexByte(rest, ':')
	if i <= 0 {
		return "", false
	}
	n, err := strconv.Atoi(string(rest[:i]))
	if err != nil || n <= 0 {
		return "", false
	}
	rest = rest[i+1:]
	if len(rest) <= n || rest[n] != '/' {
		return "", false
	}
	return domain.GuildID(rest[:n]), true
}

// BadgerStore is a RoleRepository on Badger v3.
type BadgerStore struct {
	db     *badger.DB
	cfg    Config
	logger logger.Logger

	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRuns       prometheus.CounterFunc

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ RoleRepository = (*BadgerStore)(nil)

// OpenBadger opens (or creates) a store in cfg.Dir.
func OpenBadger(cfg Config, log logger.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("rolestore: dir is required")
	}
	if log == nil {
		log = logger.Default()
	}
	def := DefaultConfig(cfg.Dir)
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = def.GCInterval
	}
	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		cfg.GCThreshold = def.GCThreshold
	}
	if cfg.MetricsInterval <= 0 {
		cfg.MetricsInterval = def.MetricsInterval
	}

	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = &badgerLogger{logger: log.With("component", "badger")}
	if cfg.CacheSize > 0 {
		opts.BlockCacheSize = cfg.CacheSize
	}
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if cfg.NumMemtables > 0 {
		opts.NumMemtables = cfg.NumMemtables
	}
	opts.SyncWrites = cfg.SyncWrites

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("rolestore: open db: %w", err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: log,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.gcLoop()

	log.Info("role store opened", "dir", cfg.Dir, "gc_interval", cfg.GCInterval)
	return s, nil
}

// UpsertRole implements RoleRepository.
func (s *BadgerStore) UpsertRole(_ context.Context, guildID domain.GuildID, role domain.Role) error {
	val, err := json.Marshal(role)
	if err != nil {
		return fmt.Errorf("encode role: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roleKey(guildID, role.ID), val)
	})
}

// DeleteRole implements RoleRepository.
func (s *BadgerStore) DeleteRole(_ context.Context, guildID domain.GuildID, roleID domain.RoleID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(roleKey(guildID, roleID))
	})
}

// GetRole implements RoleRepository.
func (s *BadgerStore) GetRole(_ context.Context, guildID domain.GuildID, roleID domain.RoleID) (domain.Role, error) {
	var role domain.Role
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roleKey(guildID, roleID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return domain.ErrRoleNotFound.WithDetailsf("%s/%s", guildID, roleID)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &role)
		})
	})
	return role, err
}

// ListRoles implements RoleRepository. Roles are ordered by id.
func (s *BadgerStore) ListRoles(ctx context.Context, guildID domain.GuildID) ([]domain.Role, error) {
	roles := []domain.Role{}
	err := s.scanPrefix(ctx, guildPrefix(guildID), func(_ []byte, role domain.Role) error {
		roles = append(roles, role)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// DeleteGuild implements RoleRepository.
func (s *BadgerStore) DeleteGuild(_ context.Context, guildID domain.GuildID) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = guildPrefix(guildID)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil || len(keys) == 0 {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Scan implements RoleRepository.
func (s *BadgerStore) Scan(ctx context.Context, fn func(domain.GuildID, domain.Role) error) error {
	return s.scanPrefix(ctx, []byte(keyPrefix), func(key []byte, role domain.Role) error {
		guildID, ok := guildFromKey(key)
		if !ok {
			s.logger.Warn("skipping malformed role key", "key", string(key))
			return nil
		}
		return fn(guildID, role)
	})
}

func (s *BadgerStore) scanPrefix(ctx context.Context, prefix []byte, fn func(key []byte, role domain.Role) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var role domain.Role
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &role)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", item.Key(), err)
			}
			if err := fn(item.KeyCopy(nil), role); err != nil {
				return err
			}
		}
		return nil
	})
}

// GC rewrites value log files until nothing more can be reclaimed.
func (s *BadgerStore) GC() error {
	runs := 0
	for {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
				break
			}
			return fmt.Errorf("gc: %w", err)
		}
		runs++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(uint64(runs))
	s.logger.Debug("role store gc completed", "rewrites", runs)
	return nil
}

// Size returns the LSM and value log sizes in bytes.
func (s *BadgerStore) Size() (lsm, vlog int64) {
	return s.db.Size()
}

// Close stops background work and closes the database.
func (s *BadgerStore) Close() error {
	close(s.stopCh)
	<-s.doneCh

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	s.logger.Info("role store closed")
	return nil
}

// RegisterMetrics registers size and GC metrics on reg and starts a loop
// refreshing them.
func (s *BadgerStore) RegisterMetrics(reg prometheus.Registerer, namespace string) error {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rolestore",
		Name:      "lsm_size_bytes",
		Help:      "Role store LSM tree size in bytes.",
	})
	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rolestore",
		Name:      "value_log_size_bytes",
		Help:      "Role store value log size in bytes.",
	})
	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "rolestore",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last value log GC.",
	})
	s.metricsGCRuns = prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rolestore",
		Name:      "gc_rewrites_total",
		Help:      "Value log files rewritten by GC.",
	}, func() float64 { return float64(s.gcRuns.Load()) })

	for _, c := range []prometheus.Collector{
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsLastGCTime,
		s.metricsGCRuns,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	s.refreshMetrics()
	go s.metricsUpdateLoop()
	return nil
}

func (s *BadgerStore) refreshMetrics() {
	lsm, vlog := s.db.Size()
	s.metricsLSMSize.Set(float64(lsm))
	s.metricsValueLogSize.Set(float64(vlog))
	if t := s.lastGCTime.Load(); t > 0 {
		s.metricsLastGCTime.Set(float64(t) / 1000.0)
	}
}

func (s *BadgerStore) metricsUpdateLoop() {
	ticker := time.NewTicker(s.cfg.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.refreshMetrics()
		case <-s.stopCh:
			return
		}
	}
}

func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.GC(); err != nil {
				s.logger.Error("role store gc failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// badgerLogger adapts Logger to Badger's Logger interface.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
