package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	activityFileName = "activity.jsonl"
	activityFileMode = 0o600
	maxActivity      = 10000 // truncate oldest entries when log exceeds this size
)

// Activity is a single activity log entry.
type Activity struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Board     string    `json:"board"`
	TaskID    string    `json:"task_id"`
	Field     string    `json:"field,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// AppendActivity appends an entry to the board's activity log.
// If the log exceeds maxActivity entries, the oldest entries are truncated.
func AppendActivity(boardDir string, entry Activity) error {
	path := filepath.Join(boardDir, activityFileName)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, activityFileMode) //nolint:gosec // log path from trusted board dir
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling activity entry: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing activity entry: %w", err)
	}

	// Truncate if needed (best-effort; errors are non-fatal).
	_ = truncateActivity(path, maxActivity)

	return nil
}

// ReadActivity returns up to limit of the most recent entries, oldest
// first. limit <= 0 returns everything. A missing log is empty.
func ReadActivity(boardDir string, limit int) ([]Activity, error) {
	lines, err := readLines(filepath.Join(boardDir, activityFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading activity log: %w", err)
	}
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	entries := make([]Activity, 0, len(lines))
	for _, line := range lines {
		var e Activity
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// truncateActivity rewrites the log keeping only the most recent keep
// entries.
func truncateActivity(path string, keep int) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	if len(lines) <= keep {
		return nil
	}

	lines = lines[len(lines)-keep:]

	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	return os.WriteFile(path, []byte(buf.String()), activityFileMode)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // trusted path
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
