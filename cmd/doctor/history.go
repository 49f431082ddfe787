package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/knowater521/doctor/internal/config"
	"github.com/knowater521/doctor/internal/database"
	"github.com/knowater521/doctor/internal/parser"
)

// NewHistoryCmd creates the history command, which reads the consensus
// archive written by previous check runs.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [authority]",
		Short: "Show archived consensus summaries",
		Long: `History lists summaries of consensuses archived by previous check runs.

Without arguments it lists every authority present in the archive. With
an authority nickname it shows that authority's most recent summaries,
newest first.

Examples:
  # List archived authorities
  doctor history

  # Show the last ten summaries for one authority
  doctor history moria1

  # Show more history from a non-default archive location
  doctor history --db-dir /var/lib/doctor --limit 50 moria1`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite consensus archive (default: XDG data dir)")
	cmd.Flags().IntP("limit", "n", 10,
		"Maximum number of summaries to show")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	// The archive must already exist; history never creates an empty one.
	adb, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no consensus archive found in %s (run 'doctor check' first): %w", dbDir, err)
	}
	defer adb.Close() //nolint:errcheck // read-only usage

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		authorities, err := adb.Authorities(cmd.Context())
		if err != nil {
			return err
		}
		if len(authorities) == 0 {
			fmt.Fprintln(out, "The archive is empty.")
			return nil
		}
		fmt.Fprintln(out, "Archived authorities:")
		for _, authority := range authorities {
			fmt.Fprintf(out, "  %s\n", authority)
		}
		return nil
	}

	authority := args[0]
	records, err := adb.History(cmd.Context(), authority, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "No archived summaries for %s.\n", authority)
		return nil
	}

	fmt.Fprintf(out, "Last %d summar(ies) for %s:\n", len(records), authority)
	for _, record := range records {
		fmt.Fprintf(out, "  valid-after %s  fetched %s  relays=%d running=%d votes=%d",
			parser.FormatTimestamp(record.ValidAfter),
			parser.FormatTimestamp(record.FetchTime),
			record.EntryCount, record.RunningRelays, record.LinkedVotes)
		if len(record.KnownFlags) > 0 {
			fmt.Fprintf(out, "  flags=%s", strings.Join(record.KnownFlags, ","))
		}
		fmt.Fprintln(out)
	}
	return nil
}
