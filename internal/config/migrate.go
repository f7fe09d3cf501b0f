package config

import (
	"fmt"

	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

// migrate upgrades a config from its current version to CurrentVersion.
// Each migration function transforms the config one version forward.
// Returns an error if the config version is newer than what this binary supports.
func migrate(cfg *Config) error {
	if cfg.Version == CurrentVersion {
		return nil
	}
	if cfg.Version > CurrentVersion {
		return fmt.Errorf(
			"%w: config version %d is newer than supported version %d (upgrade dubboard)",
			ErrInvalid, cfg.Version, CurrentVersion,
		)
	}
	if cfg.Version < 1 {
		return fmt.Errorf("%w: config version %d is invalid", ErrInvalid, cfg.Version)
	}

	for cfg.Version < CurrentVersion {
		fn, ok := migrations[cfg.Version]
		if !ok {
			return fmt.Errorf("%w: no migration path from version %d", ErrInvalid, cfg.Version)
		}
		if err := fn(cfg); err != nil {
			return fmt.Errorf("migrating config from v%d: %w", cfg.Version, err)
		}
	}

	return nil
}

// migrations maps each version to the function that migrates it to the next version.
// The migration function must increment cfg.Version after a successful migration.
var migrations = map[int]func(*Config) error{
	1: migrateV1ToV2,
	2: migrateV2ToV3,
}

// legacySummaryKey is the v2 summary key, shared by every board.
const legacySummaryKey = "workspace:summary"

// migrateV1ToV2 introduces typed columns, the board id, and the feed, cache
// and invalidation sections. v1 boards only knew statuses.
func migrateV1ToV2(cfg *Config) error { //nolint:unparam // signature must match migrations map type
	if cfg.Board.ID == "" {
		cfg.Board.ID = task.GenerateSlug(cfg.Board.Name)
	}
	if len(cfg.Columns) == 0 {
		cfg.Columns = defaultColumns()
	}
	if len(cfg.Phases) == 0 {
		cfg.Phases = append([]string{}, DefaultPhases...)
	}
	if cfg.Feed.Driver == "" {
		cfg.Feed.Driver = FeedFS
	}
	if cfg.Feed.ChannelPrefix == "" {
		cfg.Feed.ChannelPrefix = DefaultChannelPrefix
	}
	if cfg.Cache.Driver == "" {
		cfg.Cache.Driver = CacheMemory
	}
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Invalidation.Debounce == "" {
		cfg.Invalidation.Debounce = DefaultDebounce
	}
	if cfg.Invalidation.MutationTimeout == "" {
		cfg.Invalidation.MutationTimeout = DefaultMutationTimeout
	}
	if len(cfg.Invalidation.Keys) == 0 {
		cfg.Invalidation.Keys = defaultInvalidationKeys()
	}
	if cfg.NextID < 1 {
		cfg.NextID = 1
	}
	cfg.Version = 2
	return nil
}

// migrateV2ToV3 scopes the summary cache key to the board. v2 cached every
// board's summary under one key.
func migrateV2ToV3(cfg *Config) error { //nolint:unparam // signature must match migrations map type
	for resource, keys := range cfg.Invalidation.Keys {
		for i, k := range keys {
			if k == legacySummaryKey {
				keys[i] = KeySummary
			}
		}
		cfg.Invalidation.Keys[resource] = keys
	}
	cfg.Version = 3
	return nil
}
