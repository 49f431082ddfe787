package model

import "time"

// StatusEntry is a single relay row reconstructed from an `r` line and the
// `s` line that follows it in a status document.
type StatusEntry struct {
	// Nickname is the relay's self-chosen name from the `r` line.
	Nickname string `json:"nickname"`

	// Fingerprint is the relay's identity digest: the base64 identity token
	// from the `r` line, decoded and hex-encoded. Always 40 uppercase hex
	// characters.
	Fingerprint string `json:"fingerprint"`

	// Flags contains the status flags assigned to the relay by the `s` line,
	// sorted and de-duplicated. Empty (not nil) when the `s` line carried no
	// flags.
	Flags []string `json:"flags"`
}

// HasFlag reports whether the entry carries the given status flag.
func (e *StatusEntry) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// StatusDocument is a parsed network status consensus or vote.
//
// A document is produced by a single parse call and is immutable afterwards,
// with one exception: LinkedVotes is populated exactly once by the
// consensus/vote linker, and only on documents parsed as a consensus. Votes
// never reference their consensus, so there are no cycles.
type StatusDocument struct {
	// IsConsensus is true when the document was parsed as a consensus,
	// false when it was parsed as a vote.
	IsConsensus bool `json:"is_consensus"`

	// Nickname is the voting authority's nickname from the dir-source line.
	// Votes only; empty on consensuses.
	Nickname string `json:"nickname,omitempty"`

	// Fingerprint is the voting authority's fingerprint from the dir-source
	// line. Votes only.
	Fingerprint string `json:"fingerprint,omitempty"`

	// ValidAfter is the document's valid-after timestamp (UTC).
	ValidAfter time.Time `json:"valid_after"`

	// DirKeyExpires is the expiry time of the authority's signing key
	// certificate (UTC). Votes only; zero when absent.
	DirKeyExpires time.Time `json:"dir_key_expires,omitempty"`

	// ConsensusMethods is the sorted set of consensus method numbers the
	// document lists.
	ConsensusMethods []int `json:"consensus_methods,omitempty"`

	// RecommendedClientVersions and RecommendedServerVersions are the sorted
	// sets of versions from the client-versions and server-versions lines.
	RecommendedClientVersions []string `json:"recommended_client_versions,omitempty"`
	RecommendedServerVersions []string `json:"recommended_server_versions,omitempty"`

	// KnownFlags lists the flags from the known-flags line in source order,
	// duplicates collapsed.
	KnownFlags []string `json:"known_flags,omitempty"`

	// ConsensusParams maps parameter names to values from the params line.
	ConsensusParams map[string]string `json:"consensus_params,omitempty"`

	// Entries contains the relay rows in source appearance order.
	Entries []StatusEntry `json:"entries,omitempty"`

	// LinkedVotes holds the votes whose valid-after matches this consensus
	// to the millisecond. Populated by the linker, consensuses only.
	LinkedVotes []*StatusDocument `json:"-"`

	// RunningRelays counts relay rows whose flag line carried Running.
	RunningRelays int `json:"running_relays"`

	// BandwidthWeights counts `w` lines carrying Measured. Votes only.
	BandwidthWeights int `json:"bandwidth_weights,omitempty"`

	// AuthorityVersions maps authority nicknames to the version strings they
	// report in their relay entries.
	AuthorityVersions map[string]string `json:"authority_versions,omitempty"`

	// FetchTime is when the document was retrieved.
	FetchTime time.Time `json:"fetch_time"`

	// RawText is the unparsed document as retrieved.
	RawText string `json:"-"`
}

// LinkVote attaches a vote to this consensus. Used only by the linker.
func (d *StatusDocument) LinkVote(vote *StatusDocument) {
	d.LinkedVotes = append(d.LinkedVotes, vote)
}

// Download is one fetch result handed to the parser: the raw response body
// of a consensus or vote together with retrieval metadata.
type Download struct {
	// Authority identifies the directory authority the document was
	// retrieved from. Set for consensus downloads; empty for votes, whose
	// source authority is recovered from the document's own dir-source line.
	Authority string

	// Response is the raw document text.
	Response string

	// FetchTime is when the response was received.
	FetchTime time.Time
}
