package config

import (
	"main/utils"
	"time"
)

// TrackingConfig carries the tunables of the session/activity core. All knobs
// come from the environment with defaults safe for a single-node deployment.
type TrackingConfig struct {
	// Aggregation compare-and-swap retry bounds.
	AggregationMaxAttempts int
	AggregationBackoffBase time.Duration

	// How far in the future an activity timestamp may sit before it is
	// rejected as out of range. Absorbs client clock skew.
	ActivitySkewTolerance time.Duration

	// Size of the dirty-session signal queue between ingestion and the
	// aggregation loop.
	DirtyQueueSize int

	// Rollup sweep cadence.
	RollupInterval time.Duration

	// Cadence of the sweep that recomputes force-stopped sessions left
	// with needs_recompute raised.
	ReconcileInterval time.Duration

	// Per-connection relay buffer; sends beyond this are dropped.
	RelayBufferSize int

	// TTL for cached session snapshots in Redis.
	SnapshotTTL time.Duration
}

func LoadTrackingConfig() TrackingConfig {
	return TrackingConfig{
		AggregationMaxAttempts: utils.GetEnvAsInt("AGGREGATION_MAX_ATTEMPTS", 5),
		AggregationBackoffBase: utils.GetEnvAsDuration("AGGREGATION_BACKOFF_BASE", 20*time.Millisecond),
		ActivitySkewTolerance:  utils.GetEnvAsDuration("ACTIVITY_SKEW_TOLERANCE", 30*time.Second),
		DirtyQueueSize:         utils.GetEnvAsInt("AGGREGATION_QUEUE_SIZE", 1024),
		RollupInterval:         utils.GetEnvAsDuration("ROLLUP_INTERVAL", time.Minute),
		ReconcileInterval:      utils.GetEnvAsDuration("RECONCILE_INTERVAL", time.Minute),
		RelayBufferSize:        utils.GetEnvAsInt("RELAY_BUFFER_SIZE", 16),
		SnapshotTTL:            utils.GetEnvAsDuration("SNAPSHOT_CACHE_TTL", 30*time.Second),
	}
}
