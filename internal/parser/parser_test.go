package parser

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// zeroID is the unpadded base64 identity token whose decoded bytes are all
// zero; its fingerprint is forty zero characters.
const zeroID = "AAAAAAAAAAAAAAAAAAAAAAAAAAA"

// onesID decodes to twenty 0xFF bytes.
const onesID = "///////////////////////////"

var fetchTime = time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

// TestDecodeFingerprint covers the base64 → hex identity decoding,
// including the required padding and uppercasing.
func TestDecodeFingerprint(t *testing.T) {
	t.Parallel()

	t.Run("all zero identity", func(t *testing.T) {
		t.Parallel()
		got, err := DecodeFingerprint(zeroID)
		if err != nil {
			t.Fatalf("DecodeFingerprint returned error: %v", err)
		}
		want := strings.Repeat("0", 40)
		if got != want {
			t.Errorf("DecodeFingerprint = %q, want %q", got, want)
		}
	})

	t.Run("all one bits identity is uppercased", func(t *testing.T) {
		t.Parallel()
		got, err := DecodeFingerprint(onesID)
		if err != nil {
			t.Fatalf("DecodeFingerprint returned error: %v", err)
		}
		want := strings.Repeat("F", 40)
		if got != want {
			t.Errorf("DecodeFingerprint = %q, want %q", got, want)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		t.Parallel()
		if _, err := DecodeFingerprint("not!base64"); err == nil {
			t.Error("expected error for invalid base64 token")
		}
	})
}

// TestParseTimestamp verifies the fixed UTC layout round trip.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	got, err := ParseTimestamp("2024-03-15 12:00:00")
	if err != nil {
		t.Fatalf("ParseTimestamp returned error: %v", err)
	}
	want := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTimestamp = %v, want %v", got, want)
	}
	if FormatTimestamp(got) != "2024-03-15 12:00:00" {
		t.Errorf("FormatTimestamp = %q", FormatTimestamp(got))
	}
}

// TestParseEntryAssembly reconstructs relay rows from adjacent r/s line
// pairs: the first row is flushed by the next r line, the last one only by
// the directory-footer sentinel.
func TestParseEntryAssembly(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"valid-after 2024-03-15 12:00:00",
		"r A " + zeroID,
		"s Running Authority",
		"v Tor 0.4.0",
		"r B " + onesID,
		"s Valid",
		"directory-footer",
	}, "\n") + "\n"

	doc, err := New(nil).Parse(raw, fetchTime, true)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if len(doc.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(doc.Entries))
	}

	a := doc.Entries[0]
	if a.Nickname != "A" {
		t.Errorf("first entry nickname = %q, want A", a.Nickname)
	}
	if a.Fingerprint != strings.Repeat("0", 40) {
		t.Errorf("first entry fingerprint = %q", a.Fingerprint)
	}
	if !a.HasFlag("Running") || !a.HasFlag("Authority") || len(a.Flags) != 2 {
		t.Errorf("first entry flags = %v, want {Authority Running}", a.Flags)
	}

	b := doc.Entries[1]
	if b.Nickname != "B" {
		t.Errorf("second entry nickname = %q, want B", b.Nickname)
	}
	if !b.HasFlag("Valid") || len(b.Flags) != 1 {
		t.Errorf("second entry flags = %v, want {Valid}", b.Flags)
	}

	if got := doc.AuthorityVersions["A"]; got != "Tor 0.4.0" {
		t.Errorf("authority version for A = %q, want %q", got, "Tor 0.4.0")
	}
	if _, ok := doc.AuthorityVersions["B"]; ok {
		t.Error("non-authority entry must not record a version")
	}
	if doc.RunningRelays != 1 {
		t.Errorf("RunningRelays = %d, want 1", doc.RunningRelays)
	}
}

// TestParseConsensusFlushesAtEndOfInput covers consensuses without a
// directory-footer: the held row is materialized at end of input.
func TestParseConsensusFlushesAtEndOfInput(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"valid-after 2024-03-15 12:00:00",
		"r last " + zeroID,
		"s Fast Running Stable",
	}, "\n") + "\n"

	doc, err := New(nil).Parse(raw, fetchTime, true)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(doc.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(doc.Entries))
	}
	if doc.Entries[0].Nickname != "last" {
		t.Errorf("entry nickname = %q, want last", doc.Entries[0].Nickname)
	}
}

// TestParseIgnoresTrailingSignatureMaterial verifies that nothing after the
// directory-footer sentinel is interpreted.
func TestParseIgnoresTrailingSignatureMaterial(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"valid-after 2024-03-15 12:00:00",
		"r A " + zeroID,
		"s Running",
		"directory-footer",
		"directory-signature 14C131DFC5C6F93646BE72FA1401C02A8DF2E8B4",
		"r ghost " + onesID,
		"s Running",
	}, "\n") + "\n"

	doc, err := New(nil).Parse(raw, fetchTime, true)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(doc.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(doc.Entries))
	}
	if doc.RunningRelays != 1 {
		t.Errorf("RunningRelays = %d, want 1", doc.RunningRelays)
	}
}

// TestParseDocumentFields covers the document-level line rules.
func TestParseDocumentFields(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"dir-source moria1 D586D18309DED4CD6D57C18FDB97EFA96D330566 128.31.0.39 128.31.0.39 9131 9101",
		"consensus-methods 1 9 10 9",
		"valid-after 2024-03-15 12:00:00",
		"dir-key-expires 2024-06-15 12:00:00",
		"client-versions 0.4.8.9,0.4.7.16,0.4.8.10",
		"server-versions 0.4.8.10,0.4.8.9",
		"known-flags Authority Exit Fast Guard Exit Running",
		"params CircuitPriorityHalflifeMsec=30000 bwweightscale=10000",
		"r relay1 " + zeroID,
		"s Running",
		"w Bandwidth=20 Measured=102",
		"r relay2 " + onesID,
		"s",
		"w Bandwidth=20",
		"directory-footer",
	}, "\n") + "\n"

	doc, err := New(nil).Parse(raw, fetchTime, false)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	t.Run("dir-source", func(t *testing.T) {
		t.Parallel()
		if doc.Nickname != "moria1" {
			t.Errorf("Nickname = %q, want moria1", doc.Nickname)
		}
		if doc.Fingerprint != "D586D18309DED4CD6D57C18FDB97EFA96D330566" {
			t.Errorf("Fingerprint = %q", doc.Fingerprint)
		}
	})

	t.Run("consensus methods are a sorted set", func(t *testing.T) {
		t.Parallel()
		want := []int{1, 9, 10}
		if len(doc.ConsensusMethods) != len(want) {
			t.Fatalf("ConsensusMethods = %v, want %v", doc.ConsensusMethods, want)
		}
		for i, m := range want {
			if doc.ConsensusMethods[i] != m {
				t.Fatalf("ConsensusMethods = %v, want %v", doc.ConsensusMethods, want)
			}
		}
	})

	t.Run("timestamps", func(t *testing.T) {
		t.Parallel()
		if got := doc.ValidAfter; !got.Equal(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)) {
			t.Errorf("ValidAfter = %v", got)
		}
		if got := doc.DirKeyExpires; !got.Equal(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)) {
			t.Errorf("DirKeyExpires = %v", got)
		}
	})

	t.Run("recommended versions are sorted sets", func(t *testing.T) {
		t.Parallel()
		wantClient := []string{"0.4.7.16", "0.4.8.10", "0.4.8.9"}
		if strings.Join(doc.RecommendedClientVersions, " ") != strings.Join(wantClient, " ") {
			t.Errorf("RecommendedClientVersions = %v, want %v", doc.RecommendedClientVersions, wantClient)
		}
		wantServer := []string{"0.4.8.10", "0.4.8.9"}
		if strings.Join(doc.RecommendedServerVersions, " ") != strings.Join(wantServer, " ") {
			t.Errorf("RecommendedServerVersions = %v, want %v", doc.RecommendedServerVersions, wantServer)
		}
	})

	t.Run("known flags keep source order without duplicates", func(t *testing.T) {
		t.Parallel()
		want := "Authority Exit Fast Guard Running"
		if got := strings.Join(doc.KnownFlags, " "); got != want {
			t.Errorf("KnownFlags = %q, want %q", got, want)
		}
	})

	t.Run("params", func(t *testing.T) {
		t.Parallel()
		if got := doc.ConsensusParams["CircuitPriorityHalflifeMsec"]; got != "30000" {
			t.Errorf("param CircuitPriorityHalflifeMsec = %q", got)
		}
		if got := doc.ConsensusParams["bwweightscale"]; got != "10000" {
			t.Errorf("param bwweightscale = %q", got)
		}
	})

	t.Run("bandwidth weights count measured w lines", func(t *testing.T) {
		t.Parallel()
		if doc.BandwidthWeights != 1 {
			t.Errorf("BandwidthWeights = %d, want 1", doc.BandwidthWeights)
		}
	})

	t.Run("bare s line yields empty flag set", func(t *testing.T) {
		t.Parallel()
		if len(doc.Entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(doc.Entries))
		}
		if len(doc.Entries[1].Flags) != 0 {
			t.Errorf("Flags = %v, want empty", doc.Entries[1].Flags)
		}
	})
}

// TestParseConsensusIgnoresVoteOnlyLines verifies that dir-source and
// measured w lines are vote-only.
func TestParseConsensusIgnoresVoteOnlyLines(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"dir-source moria1 D586D18309DED4CD6D57C18FDB97EFA96D330566 128.31.0.39 128.31.0.39 9131 9101",
		"valid-after 2024-03-15 12:00:00",
		"r relay1 " + zeroID,
		"s Running",
		"w Bandwidth=20 Measured=102",
	}, "\n") + "\n"

	doc, err := New(nil).Parse(raw, fetchTime, true)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if doc.Nickname != "" || doc.Fingerprint != "" {
		t.Errorf("consensus must not take identity from dir-source, got %q/%q", doc.Nickname, doc.Fingerprint)
	}
	if doc.BandwidthWeights != 0 {
		t.Errorf("BandwidthWeights = %d, want 0 for a consensus", doc.BandwidthWeights)
	}
}

// TestParseMalformedTimestamps verifies that an unparsable valid-after or
// dir-key-expires drops the whole document.
func TestParseMalformedTimestamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"bad valid-after", "valid-after not-a-time\nr A " + zeroID + "\ns Running\n"},
		{"bad dir-key-expires", "valid-after 2024-03-15 12:00:00\ndir-key-expires soon\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := New(nil).Parse(tt.raw, fetchTime, false)
			if !errors.Is(err, ErrMalformedTimestamp) {
				t.Fatalf("expected ErrMalformedTimestamp, got %v", err)
			}
			if doc != nil {
				t.Error("document must be dropped entirely, not partially returned")
			}
		})
	}
}

// TestParseOrderingViolations verifies that relay lines out of order fail
// the document explicitly instead of touching absent pending state.
func TestParseOrderingViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{"s before any r", "valid-after 2024-03-15 12:00:00\ns Running\n"},
		{"v before any s", "valid-after 2024-03-15 12:00:00\nr A " + zeroID + "\nv Tor 0.4.0\n"},
		{"second r while s is missing", "valid-after 2024-03-15 12:00:00\nr A " + zeroID + "\nr B " + onesID + "\ns Running\n"},
		{"footer while s is missing", "valid-after 2024-03-15 12:00:00\nr A " + zeroID + "\ndirectory-footer\n"},
		{"end of input while s is missing", "valid-after 2024-03-15 12:00:00\nr A " + zeroID + "\n"},
		{"two s lines for one r", "valid-after 2024-03-15 12:00:00\nr A " + zeroID + "\ns Running\ns Valid\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, err := New(nil).Parse(tt.raw, fetchTime, true)
			if !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("expected ErrMalformedDocument, got %v", err)
			}
			if doc != nil {
				t.Error("document must be dropped entirely, not partially returned")
			}
		})
	}
}
