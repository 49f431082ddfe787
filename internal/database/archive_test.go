package database

import (
	"context"
	"testing"
	"time"

	"github.com/knowater521/doctor/internal/model"
)

// testDocument builds a parsed consensus with linked votes for archiving.
func testDocument() *model.StatusDocument {
	vote := &model.StatusDocument{Nickname: "moria1"}
	return &model.StatusDocument{
		IsConsensus:   true,
		ValidAfter:    time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		FetchTime:     time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC),
		RunningRelays: 2,
		KnownFlags:    []string{"Authority", "Exit", "Running"},
		ConsensusParams: map[string]string{
			"bwweightscale": "10000",
		},
		Entries: []model.StatusEntry{
			{Nickname: "a", Fingerprint: "00", Flags: []string{"Running"}},
			{Nickname: "b", Fingerprint: "01", Flags: []string{"Running"}},
			{Nickname: "c", Fingerprint: "02", Flags: []string{}},
		},
		LinkedVotes: []*model.StatusDocument{vote},
	}
}

// TestOpenCreateIfNotExists verifies both open modes.
func TestOpenCreateIfNotExists(t *testing.T) {
	t.Parallel()

	t.Run("creates database and directory", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir() + "/nested"
		adb, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open returned error: %v", err)
		}
		if err := adb.Close(); err != nil {
			t.Errorf("Close returned error: %v", err)
		}
	})

	t.Run("refuses missing database without create", func(t *testing.T) {
		t.Parallel()
		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error opening a missing database without create")
		}
	})
}

// TestSaveAndHistory covers the archive round trip including the JSON
// columns and epoch-millisecond timestamps.
func TestSaveAndHistory(t *testing.T) {
	t.Parallel()

	adb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer adb.Close() //nolint:errcheck // test cleanup

	ctx := context.Background()
	doc := testDocument()

	id, err := adb.SaveStatus(ctx, "moria1", doc)
	if err != nil {
		t.Fatalf("SaveStatus returned error: %v", err)
	}
	if id == 0 {
		t.Error("expected a non-zero row id")
	}
	if _, err := adb.SaveStatus(ctx, "moria1", doc); err != nil {
		t.Fatalf("second SaveStatus returned error: %v", err)
	}

	records, err := adb.History(ctx, "moria1", 10)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID <= records[1].ID {
		t.Error("history must be newest first")
	}

	record := records[0]
	if record.Authority != "moria1" {
		t.Errorf("Authority = %q, want moria1", record.Authority)
	}
	if !record.ValidAfter.Equal(doc.ValidAfter) {
		t.Errorf("ValidAfter = %v, want %v", record.ValidAfter, doc.ValidAfter)
	}
	if !record.FetchTime.Equal(doc.FetchTime) {
		t.Errorf("FetchTime = %v, want %v", record.FetchTime, doc.FetchTime)
	}
	if record.RunningRelays != 2 || record.EntryCount != 3 || record.LinkedVotes != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/3/1",
			record.RunningRelays, record.EntryCount, record.LinkedVotes)
	}
	if len(record.KnownFlags) != 3 || record.KnownFlags[0] != "Authority" {
		t.Errorf("KnownFlags = %v", record.KnownFlags)
	}
	if record.ConsensusParams["bwweightscale"] != "10000" {
		t.Errorf("ConsensusParams = %v", record.ConsensusParams)
	}
}

// TestAuthoritiesAndLatest covers the listing helpers.
func TestAuthoritiesAndLatest(t *testing.T) {
	t.Parallel()

	adb, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer adb.Close() //nolint:errcheck // test cleanup

	ctx := context.Background()
	doc := testDocument()
	for _, authority := range []string{"tor26", "moria1", "tor26"} {
		if _, err := adb.SaveStatus(ctx, authority, doc); err != nil {
			t.Fatalf("SaveStatus(%s) returned error: %v", authority, err)
		}
	}

	authorities, err := adb.Authorities(ctx)
	if err != nil {
		t.Fatalf("Authorities returned error: %v", err)
	}
	if len(authorities) != 2 || authorities[0] != "moria1" || authorities[1] != "tor26" {
		t.Errorf("Authorities = %v, want [moria1 tor26]", authorities)
	}

	latest, err := adb.Latest(ctx, "tor26")
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a latest record for tor26")
	}

	missing, err := adb.Latest(ctx, "dizum")
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for an authority with no history")
	}
}
