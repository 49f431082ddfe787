package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/knowater521/doctor/internal/config"
	"github.com/knowater521/doctor/internal/database"
	"github.com/knowater521/doctor/internal/log"
	"github.com/knowater521/doctor/internal/model"
	"github.com/knowater521/doctor/internal/parser"
	"github.com/knowater521/doctor/internal/pipeline"
	"github.com/knowater521/doctor/internal/report"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one consensus health check",
		Long: `Check parses the downloaded consensus and vote documents of one run,
links votes to consensuses by valid-after time, evaluates the
comparator's anomaly categories against each category's cooldown, and
overwrites the all-warnings and new-warnings files.

Consensus documents are read from --consensus-dir with one file per
authority: the file's base name identifies the authority it was
retrieved from and its modification time is taken as the fetch
timestamp. Votes are read from --votes-dir; their source authority
comes from each document's own dir-source line. The comparator's
output enters as a YAML mapping from category name to detail text.

Examples:
  # Full run with comparator output and archiving
  doctor check --consensus-dir statuses/consensuses --votes-dir statuses/votes --warnings warnings.yml

  # Report-only run, no documents
  doctor check --warnings warnings.yml

  # Parse-only run without archiving
  doctor check --consensus-dir statuses/consensuses --no-db

Warnings file (warnings.yml) example:
  CertificateExpiresSoon: "moria1"
  VotesMissing: "dizum, maatuska"`,
		Args: cobra.NoArgs,
		RunE: runCheckCmd,
	}

	// Input flags
	cmd.Flags().StringP("consensus-dir", "C", "",
		"Directory of downloaded consensus documents, one file per authority")
	cmd.Flags().StringP("votes-dir", "V", "",
		"Directory of downloaded vote documents")
	cmd.Flags().StringP("warnings", "w", "",
		"YAML file with the comparator's category -> detail mapping")

	// Output and state flags
	cmd.Flags().String("state-file", "",
		"Cooldown state file (default: XDG state dir)")
	cmd.Flags().String("all-warnings", "",
		"Destination for all currently applicable warnings")
	cmd.Flags().String("new-warnings", "",
		"Destination for newly qualifying warnings")

	// Archive flags
	cmd.Flags().String("db-dir", "",
		"Directory for the SQLite consensus archive (default: XDG data dir)")
	cmd.Flags().Bool("no-db", false,
		"Disable the consensus archive")

	// Configuration file and log format
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .doctor in current or home directory)")
	cmd.Flags().Bool("json-log", false,
		"Write logs as JSON instead of text")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	var logger *slog.Logger
	if cfg.JSONLog {
		logger = log.NewJSONLogger(os.Stderr, cfg.Verbose)
	} else {
		logger = log.NewLogger(os.Stderr, cfg.Verbose)
	}
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCheck(ctx, cmd.OutOrStdout(), cfg, logger)
}

// buildConfig creates a Config from cobra command flags and the optional
// configuration file.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	if cfg.ConsensusDir, err = cmd.Flags().GetString("consensus-dir"); err != nil {
		return nil, err
	}
	if cfg.VotesDir, err = cmd.Flags().GetString("votes-dir"); err != nil {
		return nil, err
	}
	if cfg.WarningsFile, err = cmd.Flags().GetString("warnings"); err != nil {
		return nil, err
	}

	if stateFile, err := cmd.Flags().GetString("state-file"); err != nil {
		return nil, err
	} else if stateFile != "" {
		cfg.StateFile = stateFile
	}
	if allFile, err := cmd.Flags().GetString("all-warnings"); err != nil {
		return nil, err
	} else if allFile != "" {
		cfg.AllWarningsFile = allFile
	}
	if newFile, err := cmd.Flags().GetString("new-warnings"); err != nil {
		return nil, err
	} else if newFile != "" {
		cfg.NewWarningsFile = newFile
	}
	if dbDir, err := cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	} else if dbDir != "" {
		cfg.DBDir = dbDir
	}
	if noDB, err := cmd.Flags().GetBool("no-db"); err != nil {
		return nil, err
	} else if noDB {
		cfg.DBDir = ""
	}

	if cfg.JSONLog, err = cmd.Flags().GetBool("json-log"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not
	// found. Otherwise silently carry on without one.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cf.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	return cfg, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// runCheck executes one check run.
func runCheck(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger) error {
	run := &model.CheckRun{}

	var err error
	if cfg.ConsensusDir != "" {
		if run.Consensuses, err = readDownloads(cfg.ConsensusDir, true); err != nil {
			return err
		}
	}
	if cfg.VotesDir != "" {
		if run.Votes, err = readDownloads(cfg.VotesDir, false); err != nil {
			return err
		}
	}
	if cfg.WarningsFile != "" {
		if run.Warnings, err = loadWarnings(cfg.WarningsFile, logger); err != nil {
			return err
		}
	}

	// The archive is best-effort: a broken database costs history, never
	// the warning report.
	var archive *database.ArchiveDB
	if cfg.DBDir != "" {
		archive, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			logger.Warn("could not open consensus archive, continuing without it", "error", err)
			run.AddError(fmt.Sprintf("open consensus archive: %v", err))
		} else {
			defer func() {
				if err := archive.Close(); err != nil {
					logger.Warn("could not close consensus archive", "error", err)
				}
			}()
		}
	}

	store := report.NewCooldownStore(cfg.StateFile, logger)
	reporter := report.NewStatusFileReport(store, cfg.AllWarningsFile, cfg.NewWarningsFile, logger)

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)
	p.AddSteps(
		pipeline.NewParseStep(logger),
		pipeline.NewReportStep(store, reporter, logger),
		pipeline.NewArchiveStep(archive, logger),
	)

	if err := p.Execute(ctx, run); err != nil {
		return err
	}

	printSummary(out, run)
	return nil
}

// readDownloads loads every regular file in dir as one downloaded
// document. For consensuses the file's base name (extension stripped)
// identifies the retrieving authority; votes carry their authority in the
// document itself.
func readDownloads(dir string, isConsensus bool) ([]model.Download, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read document directory %s: %w", dir, err)
	}

	var downloads []model.Download
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat document %s: %w", entry.Name(), err)
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", entry.Name(), err)
		}

		dl := model.Download{
			Response:  string(data),
			FetchTime: info.ModTime(),
		}
		if isConsensus {
			dl.Authority = strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		}
		downloads = append(downloads, dl)
	}
	return downloads, nil
}

// loadWarnings reads the comparator's YAML output: a mapping from category
// name to detail text. Unknown category names are skipped with a warning
// so a newer comparator does not break an older doctor.
func loadWarnings(path string, logger *slog.Logger) (map[model.Warning]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided warnings path is intentional
	if err != nil {
		return nil, fmt.Errorf("read warnings file %s: %w", path, err)
	}

	var byName map[string]string
	if err := yaml.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("parse warnings file %s: %w", path, err)
	}

	warnings := make(map[model.Warning]string, len(byName))
	for name, details := range byName {
		w, err := model.ParseWarning(name)
		if err != nil {
			logger.Warn("skipping unknown warning category", "category", name)
			continue
		}
		warnings[w] = details
	}
	return warnings, nil
}

// printSummary writes a short human-readable account of the run.
func printSummary(out io.Writer, run *model.CheckRun) {
	fmt.Fprintf(out, "Parsed %d consensus(es) and received %d warning categor(ies)\n",
		len(run.Parsed), len(run.Warnings))

	authorities := make([]string, 0, len(run.Parsed))
	for authority := range run.Parsed {
		authorities = append(authorities, authority)
	}
	sort.Strings(authorities)
	for _, authority := range authorities {
		doc := run.Parsed[authority]
		fmt.Fprintf(out, "  %s: valid-after %s, %d relay(s), %d running, %d linked vote(s)\n",
			authority, parser.FormatTimestamp(doc.ValidAfter),
			len(doc.Entries), doc.RunningRelays, len(doc.LinkedVotes))
	}

	fmt.Fprintf(out, "Warnings: %d applicable, %d new\n",
		countLines(run.AllWarnings), countLines(run.NewWarnings))

	if len(run.Errors) > 0 {
		fmt.Fprintf(out, "Problems during this run:\n")
		for _, msg := range run.Errors {
			fmt.Fprintf(out, "  - %s\n", msg)
		}
	}
}

// countLines counts newline-terminated records in a report artifact.
func countLines(s string) int {
	return strings.Count(s, "\n")
}
