package model

import "fmt"

// Warning identifies an anomaly category produced by the external comparator
// that inspects parsed consensuses and votes.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and map keys. The String() method provides
// the stable names used in the warnings input file.
type Warning int

const (
	// NoConsensusKnown means no current consensus could be determined at all.
	// This category is permanently suppressed from both report artifacts.
	NoConsensusKnown Warning = iota

	// ConsensusDownloadTimeout means one or more authorities did not return
	// a consensus within the download timeout.
	ConsensusDownloadTimeout

	// ConsensusNotFresh means one or more authorities published a consensus
	// that is more than an hour old.
	ConsensusNotFresh

	// ConsensusMethodNotSupported means one or more authorities do not
	// support the consensus method the consensus uses.
	ConsensusMethodNotSupported

	// DifferentRecommendedClientVersions means one or more authorities
	// recommend client versions that differ from the consensus.
	DifferentRecommendedClientVersions

	// DifferentRecommendedServerVersions means one or more authorities
	// recommend server versions that differ from the consensus.
	DifferentRecommendedServerVersions

	// ConflictingOrInvalidConsensusParams means one or more authorities set
	// conflicting or invalid consensus parameters.
	ConflictingOrInvalidConsensusParams

	// CertificateExpiresSoon means one or more authority certificates expire
	// within the next 14 days.
	CertificateExpiresSoon

	// VotesMissing means votes from one or more authorities are missing.
	VotesMissing

	// BandwidthScannerResultsMissing means one or more authorities are not
	// reporting bandwidth scanner results.
	BandwidthScannerResultsMissing

	// ConsensusMissingVotes means consensuses downloaded from some
	// authorities lack votes present in consensuses from other authorities.
	ConsensusMissingVotes

	// ConsensusMissingSignatures means consensuses downloaded from some
	// authorities lack signatures from previously voting authorities.
	ConsensusMissingSignatures
)

// warningNames maps each category to its stable name. The names double as
// the keys accepted in the warnings input file.
var warningNames = map[Warning]string{
	NoConsensusKnown:                    "NoConsensusKnown",
	ConsensusDownloadTimeout:            "ConsensusDownloadTimeout",
	ConsensusNotFresh:                   "ConsensusNotFresh",
	ConsensusMethodNotSupported:         "ConsensusMethodNotSupported",
	DifferentRecommendedClientVersions:  "DifferentRecommendedClientVersions",
	DifferentRecommendedServerVersions:  "DifferentRecommendedServerVersions",
	ConflictingOrInvalidConsensusParams: "ConflictingOrInvalidConsensusParams",
	CertificateExpiresSoon:              "CertificateExpiresSoon",
	VotesMissing:                        "VotesMissing",
	BandwidthScannerResultsMissing:      "BandwidthScannerResultsMissing",
	ConsensusMissingVotes:               "ConsensusMissingVotes",
	ConsensusMissingSignatures:          "ConsensusMissingSignatures",
}

// warningValues is the reverse of warningNames, built once at init.
var warningValues = func() map[string]Warning {
	m := make(map[string]Warning, len(warningNames))
	for w, name := range warningNames {
		m[name] = w
	}
	return m
}()

// String returns the stable name of the category.
func (w Warning) String() string {
	if name, ok := warningNames[w]; ok {
		return name
	}
	return fmt.Sprintf("Warning(%d)", int(w))
}

// ParseWarning converts a category name into a Warning. It returns an error
// for names that are not known categories, so callers can skip them with a
// diagnostic instead of silently misfiling input.
func ParseWarning(name string) (Warning, error) {
	if w, ok := warningValues[name]; ok {
		return w, nil
	}
	return 0, fmt.Errorf("unknown warning category %q", name)
}
