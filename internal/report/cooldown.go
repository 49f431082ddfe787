package report

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// retention is how long a last-emitted record survives in the store. The
// longest cooldown in the rule table is 24 hours, so older records can
// never suppress anything.
const retention = 24 * time.Hour

// CooldownStore persists when each warning message was last emitted. It is
// loaded once at the start of a run, updated during report evaluation, and
// written back once at the end. Single writer; concurrent runs must be
// serialized externally.
type CooldownStore struct {
	path    string
	logger  *slog.Logger
	entries map[string]time.Time
}

// NewCooldownStore creates a store backed by the file at path. A nil
// logger falls back to slog.Default().
func NewCooldownStore(path string, logger *slog.Logger) *CooldownStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CooldownStore{
		path:    path,
		logger:  logger,
		entries: make(map[string]time.Time),
	}
}

// Load reads the state file. A missing file yields an empty store and no
// error. Records older than the retention window relative to now are
// dropped; a line without the "<epoch-millis>: " separator or with an
// unparsable timestamp is skipped with a diagnostic.
func (s *CooldownStore) Load(now time.Time) error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open cooldown state %s: %w", s.path, err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	cutoff := now.Add(-retention)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		millisText, message, ok := strings.Cut(line, ": ")
		if !ok {
			s.logger.Warn("skipping bad cooldown state line", "file", s.path, "line", line)
			continue
		}
		millis, err := strconv.ParseInt(millisText, 10, 64)
		if err != nil {
			s.logger.Warn("skipping cooldown state line with bad timestamp", "file", s.path, "line", line)
			continue
		}
		warned := time.UnixMilli(millis)
		if warned.Before(cutoff) {
			continue
		}
		s.entries[message] = warned
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read cooldown state %s: %w", s.path, err)
	}
	return nil
}

// Save writes all current entries back in load format, creating the
// containing directory if absent.
func (s *CooldownStore) Save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create cooldown state directory %s: %w", dir, err)
		}
	}
	var sb strings.Builder
	for message, warned := range s.entries {
		sb.WriteString(strconv.FormatInt(warned.UnixMilli(), 10))
		sb.WriteString(": ")
		sb.WriteString(message)
		sb.WriteString("\n")
	}
	if err := os.WriteFile(s.path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("write cooldown state %s: %w", s.path, err)
	}
	return nil
}

// LastWarned returns when the message was last emitted.
func (s *CooldownStore) LastWarned(message string) (time.Time, bool) {
	warned, ok := s.entries[message]
	return warned, ok
}

// MarkWarned records that the message was emitted at now.
func (s *CooldownStore) MarkWarned(message string, now time.Time) {
	s.entries[message] = now
}

// Len returns the number of tracked messages.
func (s *CooldownStore) Len() int {
	return len(s.entries)
}
