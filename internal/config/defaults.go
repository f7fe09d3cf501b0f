// Package config handles board configuration.
package config

import "github.com/twiced-technology-gmbh/dubboard/internal/task"

const (
	// DefaultDir is the default board directory name.
	DefaultDir = "dubboard"
	// DefaultTasksDir is the default tasks subdirectory name.
	DefaultTasksDir = "tasks"
	// DefaultDebounce is the default invalidation debounce delay.
	DefaultDebounce = "300ms"
	// DefaultMutationTimeout bounds how long an in-flight write can suppress invalidation.
	DefaultMutationTimeout = "30s"
	// DefaultCacheTTL is the default lifetime of cached board data.
	DefaultCacheTTL = "12h"
	// DefaultChannelPrefix prefixes Redis change-feed channels.
	DefaultChannelPrefix = "dubboard"
	// DefaultLocale is the collation locale used when sorting text.
	DefaultLocale = "und"

	// ConfigFileName is the name of the config file within the board directory.
	ConfigFileName = "config.yml"

	// CurrentVersion is the current config schema version.
	CurrentVersion = 3

	// BoardPlaceholder is substituted with the board id in cache key templates.
	BoardPlaceholder = "{board}"
)

// Feed drivers.
const (
	FeedLocal = "local"
	FeedFS    = "fs"
	FeedRedis = "redis"
)

// Cache drivers.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Resources published on the change feed.
const (
	ResourceTasks    = "tasks"
	ResourceComments = "comments"
	ResourceMembers  = "members"
)

// Cache key templates.
const (
	KeyBoard         = "board:" + BoardPlaceholder
	KeyBoardComments = "board:" + BoardPlaceholder + ":comments"
	KeySummary       = "board:" + BoardPlaceholder + ":summary"
	KeyMembers       = "members"
)

// Default slice values for a new board (slices cannot be const).
var (
	DefaultStatuses = []string{"not started", "working", "stuck", "done"}

	DefaultPhases = []string{"translation", "casting", "recording", "mixing", "qc", "delivery"}

	DefaultColumns = []ColumnConfig{
		{ID: "title", Label: "Title", Type: task.TypeText},
		{ID: "status", Label: "Status", Type: task.TypeStatus},
		{ID: "phase", Label: "Phase", Type: task.TypePhase},
		{ID: "assignee", Label: "Assignee", Type: task.TypePerson},
		{ID: "reviewers", Label: "Reviewers", Type: task.TypePeople},
		{ID: "dueDate", Label: "Due", Type: task.TypeDate},
		{ID: "services", Label: "Services", Type: task.TypeMultiSelect},
		{ID: "minutes", Label: "Minutes", Type: task.TypeNumber},
		{ID: "urgent", Label: "Urgent", Type: task.TypeBoolean},
		{ID: "script", Label: "Script", Type: task.TypeLink},
		{ID: "deliverable", Label: "Deliverable", Type: task.TypeFile},
	}

	// DefaultInvalidationKeys maps each change-feed resource to the cache
	// keys that depend on it. A task-table change refreshes both the board
	// and its summary.
	DefaultInvalidationKeys = map[string][]string{
		ResourceTasks:    {KeyBoard, KeySummary},
		ResourceComments: {KeyBoardComments},
		ResourceMembers:  {KeyMembers, KeyBoard},
	}
)

func defaultColumns() []ColumnConfig {
	return append([]ColumnConfig{}, DefaultColumns...)
}

func defaultInvalidationKeys() map[string][]string {
	keys := make(map[string][]string, len(DefaultInvalidationKeys))
	for r, ks := range DefaultInvalidationKeys {
		keys[r] = append([]string{}, ks...)
	}
	return keys
}
