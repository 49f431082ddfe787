package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knowater521/doctor/internal/model"
)

// Cooldown tiers. Most operational warnings may repeat after 150 minutes;
// the two slow-moving conditions only once a day.
const (
	warnCooldown  = 150 * time.Minute
	dailyCooldown = 24 * time.Hour
)

// warningRule pairs a category's message template with its cooldown. The
// rendered message is the template followed by the comparator's detail text.
type warningRule struct {
	template string
	cooldown time.Duration
}

// warningRules maps each reportable category to its rule. Categories
// without an entry (NoConsensusKnown) never appear in either artifact.
var warningRules = map[model.Warning]warningRule{
	model.ConsensusDownloadTimeout: {
		template: "The following directory authorities did not return a consensus within a timeout of 60 seconds: ",
		cooldown: warnCooldown,
	},
	model.ConsensusNotFresh: {
		template: "The consensuses published by the following directory authorities are more than 1 hour old and therefore not fresh anymore: ",
		cooldown: warnCooldown,
	},
	model.ConsensusMethodNotSupported: {
		template: "The following directory authorities do not support the consensus method that the consensus uses: ",
		cooldown: dailyCooldown,
	},
	model.DifferentRecommendedClientVersions: {
		template: "The following directory authorities recommend other client versions than the consensus: ",
		cooldown: warnCooldown,
	},
	model.DifferentRecommendedServerVersions: {
		template: "The following directory authorities recommend other server versions than the consensus: ",
		cooldown: warnCooldown,
	},
	model.ConflictingOrInvalidConsensusParams: {
		template: "The following directory authorities set conflicting or invalid consensus parameters: ",
		cooldown: warnCooldown,
	},
	model.CertificateExpiresSoon: {
		template: "The certificates of the following directory authorities expire within the next 14 days: ",
		cooldown: dailyCooldown,
	},
	model.VotesMissing: {
		template: "We're missing votes from the following directory authorities: ",
		cooldown: warnCooldown,
	},
	model.BandwidthScannerResultsMissing: {
		template: "The following directory authorities are not reporting bandwidth scanner results: ",
		cooldown: warnCooldown,
	},
	model.ConsensusMissingVotes: {
		template: "The consensuses downloaded from the following authorities are missing votes that are contained in consensuses downloaded from other authorities: ",
		cooldown: warnCooldown,
	},
	model.ConsensusMissingSignatures: {
		template: "The consensuses downloaded from the following authorities are missing signatures from previously voting authorities: ",
		cooldown: warnCooldown,
	},
}

// StatusFileReport converts the comparator's categories into the
// all-warnings and new-warnings artifacts, consulting and updating the
// cooldown store.
type StatusFileReport struct {
	store   *CooldownStore
	allPath string
	newPath string
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a StatusFileReport.
type Option func(*StatusFileReport)

// WithClock overrides the reporter's clock. Used by tests to pin "now".
func WithClock(now func() time.Time) Option {
	return func(r *StatusFileReport) {
		r.now = now
	}
}

// NewStatusFileReport creates a reporter writing to allPath and newPath,
// backed by the given store. A nil logger falls back to slog.Default().
func NewStatusFileReport(store *CooldownStore, allPath, newPath string, logger *slog.Logger, opts ...Option) *StatusFileReport {
	if logger == nil {
		logger = slog.Default()
	}
	r := &StatusFileReport{
		store:   store,
		allPath: allPath,
		newPath: newPath,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Evaluate renders the categories into the two artifacts.
//
// Messages are sorted lexicographically by rendered text for deterministic
// output. A message qualifies as new when it has never been emitted or when
// at least its category's cooldown has elapsed since the last emission
// (boundary inclusive). The store is committed — last-emitted set to now
// for every rendered message — only when at least one message qualifies;
// otherwise both artifacts are empty and the store is left untouched.
func (r *StatusFileReport) Evaluate(warnings map[model.Warning]string) (allText, newText string) {
	now := r.now()

	rendered := make(map[string]time.Duration, len(warnings))
	for category, details := range warnings {
		rule, ok := warningRules[category]
		if !ok {
			r.logger.Debug("suppressing warning category", "category", category.String())
			continue
		}
		rendered[rule.template+details] = rule.cooldown
	}

	messages := make([]string, 0, len(rendered))
	for message := range rendered {
		messages = append(messages, message)
	}
	sort.Strings(messages)

	var allSb, newSb strings.Builder
	for _, message := range messages {
		allSb.WriteString(message)
		allSb.WriteString("\n")
		last, warned := r.store.LastWarned(message)
		if !warned || now.Sub(last) >= rendered[message] {
			newSb.WriteString(message)
			newSb.WriteString("\n")
		}
	}

	if newSb.Len() == 0 {
		return "", ""
	}
	for message := range rendered {
		r.store.MarkWarned(message, now)
	}
	return allSb.String(), newSb.String()
}

// WriteStatusFiles overwrites both destination files with the given bodies.
// Both are written every run, empty when nothing applies.
func (r *StatusFileReport) WriteStatusFiles(allText, newText string) error {
	if err := writeArtifact(r.allPath, allText); err != nil {
		return err
	}
	return writeArtifact(r.newPath, newText)
}

func writeArtifact(path, body string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("create report directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
