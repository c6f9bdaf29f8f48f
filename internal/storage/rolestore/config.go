package rolestore

import "time"

// Config configures the Badger-backed store.
type Config struct {
	// Dir is the storage directory.
	Dir string

	// GCInterval is the interval between value log GC runs.
	GCInterval time.Duration

	// GCThreshold is the discard ratio at which a value log file is rewritten.
	GCThreshold float64

	// MetricsInterval is how often size gauges are refreshed.
	MetricsInterval time.Duration

	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	NumMemtables int

	// SyncWrites enables fsync after each write.
	SyncWrites bool
}

// DefaultConfig returns the default configuration for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		GCInterval:       10 * time.Minute,
		GCThreshold:      0.5,
		MetricsInterval:  15 * time.Second,
		CacheSize:        32 << 20,
		ValueLogFileSize: 64 << 20,
		NumMemtables:     2,
		SyncWrites:       false,
	}
}
