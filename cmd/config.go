package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/twiced-technology-gmbh/dubboard/internal/clierr"
	"github.com/twiced-technology-gmbh/dubboard/internal/config"
	"github.com/twiced-technology-gmbh/dubboard/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify board configuration",
	Long:  `View the full configuration, get a specific key, or set a writable value.`,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configAccessor describes how to get and set a config key.
type configAccessor struct {
	get      func(*config.Config) any
	set      func(*config.Config, string) error
	writable bool
}

func stringKey(get func(*config.Config) *string) configAccessor {
	return configAccessor{
		get:      func(c *config.Config) any { return *get(c) },
		set:      func(c *config.Config, v string) error { *get(c) = v; return nil },
		writable: true,
	}
}

// durationKey validates the value before storing it.
func durationKey(name string, get func(*config.Config) *string) configAccessor {
	return configAccessor{
		get: func(c *config.Config) any { return *get(c) },
		set: func(c *config.Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return clierr.Newf(clierr.InvalidInput, "invalid %s %q: %v", name, v, err)
			}
			*get(c) = v
			return nil
		},
		writable: true,
	}
}

func configAccessors() map[string]configAccessor {
	return map[string]configAccessor{
		"version":           {get: func(c *config.Config) any { return c.Version }},
		"board.id":          {get: func(c *config.Config) any { return c.BoardID() }},
		"board.name":        stringKey(func(c *config.Config) *string { return &c.Board.Name }),
		"board.description": stringKey(func(c *config.Config) *string { return &c.Board.Description }),
		"tasks_dir":         {get: func(c *config.Config) any { return c.TasksDir }},
		"columns":           {get: func(c *config.Config) any { return c.ColumnIDs() }},
		"statuses":          {get: func(c *config.Config) any { return c.Statuses }},
		"phases":            {get: func(c *config.Config) any { return c.Phases }},
		"members": {get: func(c *config.Config) any {
			ids := make([]string, len(c.Members))
			for i, m := range c.Members {
				ids[i] = m.ID
			}
			return ids
		}},
		"feed.driver":                   stringKey(func(c *config.Config) *string { return &c.Feed.Driver }),
		"feed.redis_addr":               stringKey(func(c *config.Config) *string { return &c.Feed.RedisAddr }),
		"feed.channel_prefix":           stringKey(func(c *config.Config) *string { return &c.Feed.ChannelPrefix }),
		"cache.driver":                  stringKey(func(c *config.Config) *string { return &c.Cache.Driver }),
		"cache.redis_addr":              stringKey(func(c *config.Config) *string { return &c.Cache.RedisAddr }),
		"cache.ttl":                     durationKey("cache.ttl", func(c *config.Config) *string { return &c.Cache.TTL }),
		"invalidation.debounce":         durationKey("invalidation.debounce", func(c *config.Config) *string { return &c.Invalidation.Debounce }),
		"invalidation.mutation_timeout": durationKey("invalidation.mutation_timeout", func(c *config.Config) *string { return &c.Invalidation.MutationTimeout }),
		"sort.locale": {
			get: func(c *config.Config) any { return c.Locale() },
			set: func(c *config.Config, v string) error {
				if _, err := language.Parse(v); err != nil {
					return clierr.Newf(clierr.InvalidInput, "invalid sort.locale %q: %v", v, err)
				}
				c.Sort.Locale = v
				return nil
			},
			writable: true,
		},
		"next_id": {get: func(c *config.Config) any { return c.NextID }},
	}
}

// allConfigKeys returns config keys in display order.
func allConfigKeys() []string {
	return []string{
		"version",
		"board.id",
		"board.name",
		"board.description",
		"tasks_dir",
		"columns",
		"statuses",
		"phases",
		"members",
		"feed.driver",
		"feed.redis_addr",
		"feed.channel_prefix",
		"cache.driver",
		"cache.redis_addr",
		"cache.ttl",
		"invalidation.debounce",
		"invalidation.mutation_timeout",
		"sort.locale",
		"next_id",
	}
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	accessors := configAccessors()

	if outputFormat() == output.FormatJSON {
		m := make(map[string]any, len(accessors))
		for _, key := range allConfigKeys() {
			m[key] = accessors[key].get(cfg)
		}
		return output.JSON(os.Stdout, m)
	}

	// Table mode: key-value pairs.
	for _, key := range allConfigKeys() {
		val := accessors[key].get(cfg)
		fmt.Fprintf(os.Stdout, "%-30s %v\n", key, formatConfigValue(val))
	}
	return nil
}

func runConfigGet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key := args[0]
	accessors := configAccessors()
	acc, ok := accessors[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}

	val := acc.get(cfg)

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, val)
	}

	fmt.Fprintln(os.Stdout, formatConfigValue(val))
	return nil
}

func runConfigSet(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	accessors := configAccessors()
	acc, ok := accessors[key]
	if !ok {
		return clierr.Newf(clierr.InvalidInput, "unknown config key %q", key)
	}
	if !acc.writable {
		return clierr.Newf(clierr.InvalidInput, "config key %q is read-only", key)
	}

	if err := acc.set(cfg, value); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return clierr.New(clierr.InvalidInput, err.Error())
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if outputFormat() == output.FormatJSON {
		return output.JSON(os.Stdout, map[string]any{"key": key, "value": acc.get(cfg)})
	}

	output.Messagef(os.Stdout, "Set %s = %v", key, formatConfigValue(acc.get(cfg)))
	return nil
}

func formatConfigValue(val any) string {
	switch v := val.(type) {
	case []string:
		return strings.Join(v, ", ")
	case string:
		if v == "" {
			return "--"
		}
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
