package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/knowater521/doctor/internal/database"
	"github.com/knowater521/doctor/internal/model"
	"github.com/knowater521/doctor/internal/parser"
	"github.com/knowater521/doctor/internal/report"
)

// ParseStep parses the run's downloaded consensuses and votes and links
// votes to consensuses by valid-after time. Documents that fail to parse
// are dropped individually; the step itself never fails.
type ParseStep struct {
	parser *parser.Parser
}

// NewParseStep creates a parsing step. A nil logger falls back to
// slog.Default().
func NewParseStep(logger *slog.Logger) *ParseStep {
	return &ParseStep{parser: parser.New(logger)}
}

// Do parses all downloads into run.Parsed.
func (s *ParseStep) Do(_ context.Context, run *model.CheckRun) error {
	run.Parsed = s.parser.ParseAll(run.Consensuses, run.Votes)
	return nil
}

// Name returns the step's name.
func (s *ParseStep) Name() string {
	return "parse"
}

// ReportStep loads the cooldown store, evaluates the comparator's warning
// categories into the two report artifacts, writes both destination files,
// and saves the store. Every I/O failure is recorded on the run and the
// step carries on with empty or unchanged state; the report must come out
// in whatever form is still possible.
type ReportStep struct {
	store    *report.CooldownStore
	reporter *report.StatusFileReport
	logger   *slog.Logger
	now      func() time.Time
}

// NewReportStep creates a report step around the given store and reporter.
// A nil logger falls back to slog.Default().
func NewReportStep(store *report.CooldownStore, reporter *report.StatusFileReport, logger *slog.Logger) *ReportStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportStep{
		store:    store,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

// Do evaluates and writes the warning report.
func (s *ReportStep) Do(_ context.Context, run *model.CheckRun) error {
	if err := s.store.Load(s.now()); err != nil {
		s.logger.Warn("could not read cooldown state, starting empty", "error", err)
		run.AddError(fmt.Sprintf("load cooldown state: %v", err))
	}

	run.AllWarnings, run.NewWarnings = s.reporter.Evaluate(run.Warnings)

	if err := s.reporter.WriteStatusFiles(run.AllWarnings, run.NewWarnings); err != nil {
		s.logger.Warn("could not write status files", "error", err)
		run.AddError(fmt.Sprintf("write status files: %v", err))
	}

	if err := s.store.Save(); err != nil {
		s.logger.Warn("could not write cooldown state", "error", err)
		run.AddError(fmt.Sprintf("save cooldown state: %v", err))
	}
	return nil
}

// Name returns the step's name.
func (s *ReportStep) Name() string {
	return "report"
}

// ArchiveStep stores one summary row per parsed consensus in the archive
// database. A nil database disables archiving.
type ArchiveStep struct {
	db     *database.ArchiveDB
	logger *slog.Logger
}

// NewArchiveStep creates an archiving step. A nil logger falls back to
// slog.Default().
func NewArchiveStep(db *database.ArchiveDB, logger *slog.Logger) *ArchiveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveStep{db: db, logger: logger}
}

// Do archives every parsed consensus, in stable authority order.
func (s *ArchiveStep) Do(ctx context.Context, run *model.CheckRun) error {
	if s.db == nil {
		s.logger.Debug("archiving disabled")
		return nil
	}

	authorities := make([]string, 0, len(run.Parsed))
	for authority := range run.Parsed {
		authorities = append(authorities, authority)
	}
	sort.Strings(authorities)

	for _, authority := range authorities {
		if _, err := s.db.SaveStatus(ctx, authority, run.Parsed[authority]); err != nil {
			s.logger.Warn("could not archive consensus", "authority", authority, "error", err)
			run.AddError(fmt.Sprintf("archive consensus from %s: %v", authority, err))
		}
	}
	return nil
}

// Name returns the step's name.
func (s *ArchiveStep) Name() string {
	return "archive"
}
