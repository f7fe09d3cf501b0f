package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/task"
)

const fileMode = 0o600

// EnvRedisAddr overrides the Redis address of both the feed and the cache.
const EnvRedisAddr = "DUBBOARD_REDIS_ADDR"

// Sentinel errors.
var (
	ErrNotFound = errors.New("no board found (run 'dubboard init' to create one)")
	ErrInvalid  = errors.New("invalid config")
)

// Config represents a board configuration.
type Config struct {
	Version      int                `yaml:"version"`
	Board        BoardConfig        `yaml:"board"`
	TasksDir     string             `yaml:"tasks_dir"`
	Columns      []ColumnConfig     `yaml:"columns"`
	Statuses     []string           `yaml:"statuses"`
	Phases       []string           `yaml:"phases,omitempty"`
	Members      []task.User        `yaml:"members,omitempty"`
	Feed         FeedConfig         `yaml:"feed"`
	Cache        CacheConfig        `yaml:"cache"`
	Invalidation InvalidationConfig `yaml:"invalidation"`
	Sort         SortConfig         `yaml:"sort,omitempty"`
	NextID       int                `yaml:"next_id"`

	// dir is the absolute path to the board directory (not serialized).
	dir string `yaml:"-"`
}

// BoardConfig holds board metadata.
type BoardConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// ColumnConfig declares a board column. Field defaults to ID.
type ColumnConfig struct {
	ID    string         `yaml:"id" json:"id"`
	Field string         `yaml:"field,omitempty" json:"field,omitempty"`
	Label string         `yaml:"label,omitempty" json:"label,omitempty"`
	Type  task.FieldType `yaml:"type" json:"type"`
}

// FieldName returns the task field the column reads.
func (c ColumnConfig) FieldName() string {
	if c.Field == "" {
		return c.ID
	}
	return c.Field
}

// Title returns the column label, falling back to its id.
func (c ColumnConfig) Title() string {
	if c.Label == "" {
		return c.ID
	}
	return c.Label
}

// FeedConfig selects the change-feed transport.
type FeedConfig struct {
	Driver        string `yaml:"driver"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	ChannelPrefix string `yaml:"channel_prefix,omitempty"`
}

// CacheConfig selects the cache store.
type CacheConfig struct {
	Driver    string `yaml:"driver"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
	TTL       string `yaml:"ttl,omitempty"`
}

// InvalidationConfig tunes the invalidation coordinator.
type InvalidationConfig struct {
	Debounce        string              `yaml:"debounce"`
	MutationTimeout string              `yaml:"mutation_timeout,omitempty"`
	Keys            map[string][]string `yaml:"keys"`
}

// SortConfig holds text collation settings.
type SortConfig struct {
	Locale string `yaml:"locale,omitempty"`
}

// Dir returns the absolute path to the board directory.
func (c *Config) Dir() string {
	return c.dir
}

// SetDir sets the board directory path on the config.
func (c *Config) SetDir(dir string) {
	c.dir = dir
}

// TasksPath returns the absolute path to the tasks directory.
func (c *Config) TasksPath() string {
	return filepath.Join(c.dir, c.TasksDir)
}

// ConfigPath returns the absolute path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.dir, ConfigFileName)
}

// NewDefault creates a Config with default values.
func NewDefault(name string) *Config {
	return &Config{
		Version:  CurrentVersion,
		Board:    BoardConfig{ID: task.GenerateSlug(name), Name: name},
		TasksDir: DefaultTasksDir,
		Columns:  defaultColumns(),
		Statuses: append([]string{}, DefaultStatuses...),
		Phases:   append([]string{}, DefaultPhases...),
		Feed:     FeedConfig{Driver: FeedFS, ChannelPrefix: DefaultChannelPrefix},
		Cache:    CacheConfig{Driver: CacheMemory, TTL: DefaultCacheTTL},
		Invalidation: InvalidationConfig{
			Debounce:        DefaultDebounce,
			MutationTimeout: DefaultMutationTimeout,
			Keys:            defaultInvalidationKeys(),
		},
		NextID: 1,
	}
}

// BoardID returns the scope identifier for this board.
func (c *Config) BoardID() string {
	if c.Board.ID != "" {
		return c.Board.ID
	}
	return task.GenerateSlug(c.Board.Name)
}

// Schema returns the field types declared by the columns.
func (c *Config) Schema() task.Schema {
	schema := make(task.Schema, len(c.Columns))
	for _, col := range c.Columns {
		schema[col.FieldName()] = col.Type
	}
	return schema
}

// Directory returns the member directory used to resolve user references.
func (c *Config) Directory() task.Members {
	return task.Members(c.Members)
}

// Column returns the column with the given id, or the column reading the
// given field name.
func (c *Config) Column(idOrField string) (ColumnConfig, bool) {
	for _, col := range c.Columns {
		if col.ID == idOrField {
			return col, true
		}
	}
	for _, col := range c.Columns {
		if col.FieldName() == idOrField {
			return col, true
		}
	}
	return ColumnConfig{}, false
}

// ColumnOfType returns the first column declared with type ft.
func (c *Config) ColumnOfType(ft task.FieldType) (ColumnConfig, bool) {
	for _, col := range c.Columns {
		if col.Type == ft {
			return col, true
		}
	}
	return ColumnConfig{}, false
}

// ColumnIDs returns the configured column ids in order.
func (c *Config) ColumnIDs() []string {
	ids := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		ids[i] = col.ID
	}
	return ids
}

// StatusIndex returns the index of a status in the configured order, or -1.
func (c *Config) StatusIndex(status string) int {
	return slices.Index(c.Statuses, status)
}

// PhaseIndex returns the index of a phase in the configured order, or -1.
func (c *Config) PhaseIndex(phase string) int {
	return slices.Index(c.Phases, phase)
}

// DebounceDelay parses the invalidation debounce delay.
func (c *Config) DebounceDelay() time.Duration {
	return parseDurationOr(c.Invalidation.Debounce, DefaultDebounce)
}

// MutationTimeout parses the in-flight mutation bound. 0 disables it.
func (c *Config) MutationTimeout() time.Duration {
	if c.Invalidation.MutationTimeout == "" {
		return 0
	}
	return parseDurationOr(c.Invalidation.MutationTimeout, DefaultMutationTimeout)
}

// CacheTTL parses the cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return parseDurationOr(c.Cache.TTL, DefaultCacheTTL)
}

// WatchedResources returns the feed resources that have cache keys, sorted.
func (c *Config) WatchedResources() []string {
	resources := make([]string, 0, len(c.Invalidation.Keys))
	for r := range c.Invalidation.Keys {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	return resources
}

// FeedRedisAddr returns the Redis address for the change feed.
func (c *Config) FeedRedisAddr() string {
	if v := os.Getenv(EnvRedisAddr); v != "" {
		return v
	}
	return c.Feed.RedisAddr
}

// CacheRedisAddr returns the Redis address for the cache.
func (c *Config) CacheRedisAddr() string {
	if v := os.Getenv(EnvRedisAddr); v != "" {
		return v
	}
	return c.Cache.RedisAddr
}

// Locale returns the collation locale for text sorting.
func (c *Config) Locale() string {
	if c.Sort.Locale == "" {
		return DefaultLocale
	}
	return c.Sort.Locale
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalid, c.Version, CurrentVersion)
	}
	if c.Board.Name == "" {
		return fmt.Errorf("%w: board.name is required", ErrInvalid)
	}
	if c.TasksDir == "" {
		return fmt.Errorf("%w: tasks_dir is required", ErrInvalid)
	}
	if len(c.Statuses) < 2 { //nolint:mnd // a board needs at least two statuses
		return fmt.Errorf("%w: at least 2 statuses are required", ErrInvalid)
	}
	if hasDuplicates(c.Statuses) {
		return fmt.Errorf("%w: statuses contain duplicates", ErrInvalid)
	}
	if hasDuplicates(c.Phases) {
		return fmt.Errorf("%w: phases contain duplicates", ErrInvalid)
	}
	if err := c.validateColumns(); err != nil {
		return err
	}
	if err := c.validateMembers(); err != nil {
		return err
	}
	if err := c.validateDrivers(); err != nil {
		return err
	}
	if err := c.validateDurations(); err != nil {
		return err
	}
	if c.NextID < 1 {
		return fmt.Errorf("%w: next_id must be >= 1", ErrInvalid)
	}
	return nil
}

func (c *Config) validateColumns() error {
	if len(c.Columns) == 0 {
		return fmt.Errorf("%w: at least 1 column is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if col.ID == "" {
			return fmt.Errorf("%w: column id is required", ErrInvalid)
		}
		if seen[col.ID] {
			return fmt.Errorf("%w: duplicate column id %q", ErrInvalid, col.ID)
		}
		seen[col.ID] = true
		if !col.Type.Valid() {
			return fmt.Errorf("%w: column %q has unknown type %q", ErrInvalid, col.ID, col.Type)
		}
	}
	return nil
}

func (c *Config) validateMembers() error {
	seen := make(map[string]bool, len(c.Members))
	for _, m := range c.Members {
		if m.ID == "" {
			return fmt.Errorf("%w: member id is required", ErrInvalid)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate member id %q", ErrInvalid, m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

func (c *Config) validateDrivers() error {
	switch c.Feed.Driver {
	case FeedLocal, FeedFS, FeedRedis:
	default:
		return fmt.Errorf("%w: unknown feed.driver %q", ErrInvalid, c.Feed.Driver)
	}
	switch c.Cache.Driver {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("%w: unknown cache.driver %q", ErrInvalid, c.Cache.Driver)
	}
	return nil
}

func (c *Config) validateDurations() error {
	for name, v := range map[string]string{
		"invalidation.debounce":         c.Invalidation.Debounce,
		"invalidation.mutation_timeout": c.Invalidation.MutationTimeout,
		"cache.ttl":                     c.Cache.TTL,
	} {
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: invalid %s %q: %w", ErrInvalid, name, v, err)
		}
		if d < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalid, name)
		}
	}
	return nil
}

// Init creates a new board in the given directory with default settings.
// It creates the board directory, tasks subdirectory, and config file.
func Init(dir, name string) (*Config, error) {
	const dirMode = 0o750

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg := NewDefault(name)
	cfg.SetDir(absDir)

	if err := os.MkdirAll(cfg.TasksPath(), dirMode); err != nil {
		return nil, fmt.Errorf("creating tasks directory: %w", err)
	}

	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to its config file.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(c.ConfigPath(), data, fileMode)
}

// Load reads and validates a config from the given board directory.
func Load(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	path := filepath.Join(absDir, ConfigFileName)
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted source
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.dir = absDir

	// Migrate old config versions forward before validating.
	oldVersion := cfg.Version
	if err := migrate(&cfg); err != nil {
		return nil, err
	}

	// Persist migrated config so future loads skip re-migration.
	if cfg.Version != oldVersion {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindDir walks upward from startDir looking for a board directory
// containing config.yml. Returns the absolute path to the board directory.
func FindDir(startDir string) (string, error) {
	absStart, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	dir := absStart
	for {
		candidate := filepath.Join(dir, DefaultDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Join(dir, DefaultDir), nil
		}

		// Also check if we're inside the board directory itself.
		candidate = filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", clierr.New(clierr.BoardNotFound,
				"no board found (run 'dubboard init' to create one)")
		}
		dir = parent
	}
}

// ExpandKeys substitutes the board id into cache key templates.
func ExpandKeys(templates []string, boardID string) []string {
	keys := make([]string, len(templates))
	for i, k := range templates {
		keys[i] = strings.ReplaceAll(k, BoardPlaceholder, boardID)
	}
	return keys
}

func parseDurationOr(v, fallback string) time.Duration {
	if v == "" {
		v = fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func hasDuplicates(slice []string) bool {
	seen := make(map[string]bool, len(slice))
	for _, s := range slice {
		if seen[s] {
			return true
		}
		seen[s] = true
	}
	return false
}
