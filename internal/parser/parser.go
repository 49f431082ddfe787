package parser

import (
	"bufio"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/knowater521/doctor/internal/model"
)

// TimestampLayout is the fixed UTC layout status documents use for
// valid-after and dir-key-expires timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Parsing errors. Both drop the whole document; the surrounding batch
// continues.
var (
	// ErrMalformedTimestamp is returned when a valid-after or
	// dir-key-expires line does not carry a parsable timestamp.
	ErrMalformedTimestamp = errors.New("malformed status timestamp")

	// ErrMalformedDocument is returned when relay lines violate the
	// required r → s → v ordering, or when a held relay row cannot be
	// completed at a row boundary.
	ErrMalformedDocument = errors.New("status entry lines out of order")
)

// rowState tracks the in-progress relay row during the scan.
// A row is held while incomplete and only materialized at its boundary:
// the next `r` line, the directory-footer sentinel, or end of input.
type rowState int

const (
	rowIdle   rowState = iota // no relay row in progress
	rowHaveR                  // r line held, waiting for its s line
	rowHaveRS                 // complete r/s pair held, flushable
)

// Parser parses network status consensuses and votes.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseTimestamp parses a status document timestamp in TimestampLayout,
// interpreted as UTC. Safe for concurrent use.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

// FormatTimestamp renders t in TimestampLayout, in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// DecodeFingerprint converts the unpadded base64 identity token of an `r`
// line into the relay fingerprint: pad to a multiple of four, decode, and
// hex-encode uppercase.
func DecodeFingerprint(token string) (string, error) {
	if m := len(token) % 4; m != 0 {
		token += strings.Repeat("=", 4-m)
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode identity token %q: %w", token, err)
	}
	return strings.ToUpper(hex.EncodeToString(raw)), nil
}

// Parse parses one consensus or vote document. The whole document is
// dropped on a malformed document-level timestamp or on relay lines that
// violate the r/s/v ordering; no other line is individually fatal. Lines
// after the directory-footer sentinel (trailing signature material) are
// ignored.
func (p *Parser) Parse(raw string, fetchTime time.Time, isConsensus bool) (*model.StatusDocument, error) {
	doc := &model.StatusDocument{
		IsConsensus: isConsensus,
		FetchTime:   fetchTime,
		RawText:     raw,
	}

	state := rowIdle
	var heldR, heldS string

	// flush materializes the held row into doc.Entries. Called at row
	// boundaries only; a held r line without its s line cannot be completed.
	flush := func() error {
		if state == rowIdle {
			return nil
		}
		if state == rowHaveR {
			return fmt.Errorf("%w: r line %q has no s line", ErrMalformedDocument, heldR)
		}
		fields := strings.Fields(heldR)
		if len(fields) < 3 {
			return fmt.Errorf("%w: short r line %q", ErrMalformedDocument, heldR)
		}
		fingerprint, err := DecodeFingerprint(fields[2])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		doc.Entries = append(doc.Entries, model.StatusEntry{
			Nickname:    fields[1],
			Fingerprint: fingerprint,
			Flags:       sortedSet(flagTokens(heldS)),
		})
		state = rowIdle
		return nil
	}

	sc := bufio.NewScanner(strings.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

scan:
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "consensus-method ") || strings.HasPrefix(line, "consensus-methods "):
			doc.ConsensusMethods = p.parseMethods(line)

		case strings.HasPrefix(line, "valid-after "):
			t, err := ParseTimestamp(line[len("valid-after "):])
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %q in %s", ErrMalformedTimestamp, "valid-after", line, kind(isConsensus))
			}
			doc.ValidAfter = t

		case strings.HasPrefix(line, "client-versions "):
			doc.RecommendedClientVersions = p.versionSet(line)

		case strings.HasPrefix(line, "server-versions "):
			doc.RecommendedServerVersions = p.versionSet(line)

		case strings.HasPrefix(line, "known-flags "):
			for _, flag := range strings.Fields(line[len("known-flags "):]) {
				if !slices.Contains(doc.KnownFlags, flag) {
					doc.KnownFlags = append(doc.KnownFlags, flag)
				}
			}

		case strings.HasPrefix(line, "params "):
			p.parseParams(doc, line)

		case strings.HasPrefix(line, "dir-source ") && !isConsensus:
			fields := strings.Fields(line)
			if len(fields) < 3 {
				p.logger.Debug("skipping short dir-source line", "line", line)
				continue
			}
			doc.Nickname = fields[1]
			doc.Fingerprint = fields[2]

		case strings.HasPrefix(line, "dir-key-expires "):
			t, err := ParseTimestamp(line[len("dir-key-expires "):])
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %q in %s", ErrMalformedTimestamp, "dir-key-expires", line, kind(isConsensus))
			}
			doc.DirKeyExpires = t

		case strings.HasPrefix(line, "r "):
			if err := flush(); err != nil {
				return nil, err
			}
			heldR, heldS = line, ""
			state = rowHaveR

		case line == "s" || strings.HasPrefix(line, "s "):
			if state != rowHaveR {
				return nil, fmt.Errorf("%w: s line %q without preceding r line", ErrMalformedDocument, line)
			}
			heldS = line
			state = rowHaveRS
			if slices.Contains(flagTokens(line), "Running") {
				doc.RunningRelays++
			}

		case strings.HasPrefix(line, "v "):
			if state != rowHaveRS {
				return nil, fmt.Errorf("%w: v line %q without preceding s line", ErrMalformedDocument, line)
			}
			if slices.Contains(flagTokens(heldS), "Authority") {
				if doc.AuthorityVersions == nil {
					doc.AuthorityVersions = make(map[string]string)
				}
				doc.AuthorityVersions[strings.Fields(heldR)[1]] = line[len("v "):]
			}

		case strings.HasPrefix(line, "w ") && !isConsensus:
			if hasMeasured(line) {
				doc.BandwidthWeights++
			}

		case line == "directory-footer":
			if err := flush(); err != nil {
				return nil, err
			}
			break scan
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", kind(isConsensus), err)
	}

	// Consensuses historically carry no directory-footer and end their relay
	// section at end of input; the held row still has to be materialized.
	if err := flush(); err != nil {
		return nil, err
	}
	return doc, nil
}

// parseMethods reads the integer tokens of a consensus-method(s) line into
// a sorted set. Non-integer tokens are skipped; anything beyond the
// recognized prefix carries no guarantee of well-formedness.
func (p *Parser) parseMethods(line string) []int {
	fields := strings.Fields(line)
	methods := make([]int, 0, len(fields)-1)
	for _, field := range fields[1:] {
		m, err := strconv.Atoi(field)
		if err != nil {
			p.logger.Debug("skipping non-integer consensus method", "token", field)
			continue
		}
		methods = append(methods, m)
	}
	slices.Sort(methods)
	return slices.Compact(methods)
}

// versionSet reads the comma-separated second token of a client-versions or
// server-versions line into a sorted set.
func (p *Parser) versionSet(line string) []string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		p.logger.Debug("skipping versions line without version list", "line", line)
		return nil
	}
	return sortedSet(strings.Split(fields[1], ","))
}

// parseParams adds each name=value token of a params line to the document's
// parameter map. Tokens without a separator are skipped.
func (p *Parser) parseParams(doc *model.StatusDocument, line string) {
	if len(line) <= len("params ") {
		return
	}
	for _, token := range strings.Fields(line[len("params "):]) {
		name, value, ok := strings.Cut(token, "=")
		if !ok {
			p.logger.Debug("skipping params token without separator", "token", token)
			continue
		}
		if doc.ConsensusParams == nil {
			doc.ConsensusParams = make(map[string]string)
		}
		doc.ConsensusParams[name] = value
	}
}

// flagTokens returns the flag tokens of an `s` line, or nil when the line
// is no longer than its two-character prefix.
func flagTokens(sLine string) []string {
	if len(sLine) <= len("s ") {
		return nil
	}
	return strings.Fields(sLine[2:])
}

// hasMeasured reports whether a `w` line carries a Measured weight.
func hasMeasured(wLine string) bool {
	for _, token := range strings.Fields(wLine[2:]) {
		if token == "Measured" || strings.HasPrefix(token, "Measured=") {
			return true
		}
	}
	return false
}

// sortedSet sorts and de-duplicates tokens, returning an empty (non-nil)
// slice for empty input.
func sortedSet(tokens []string) []string {
	set := make([]string, len(tokens))
	copy(set, tokens)
	slices.Sort(set)
	return slices.Compact(set)
}

// kind names the document type in diagnostics.
func kind(isConsensus bool) string {
	if isConsensus {
		return "consensus"
	}
	return "vote"
}
