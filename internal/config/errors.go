package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoInput is returned when neither document directories nor a
	// warnings file are configured, leaving the run nothing to do.
	ErrNoInput = errors.New("no input specified: provide --consensus-dir, --votes-dir, or --warnings")

	// ErrNoArtifactPath is returned when one of the two report artifact
	// destinations is empty.
	ErrNoArtifactPath = errors.New("missing report destination: both the all-warnings and new-warnings paths are required")

	// ErrSameArtifactPath is returned when both artifacts point at the
	// same file; they would overwrite each other.
	ErrSameArtifactPath = errors.New("conflicting report destinations: all-warnings and new-warnings must be different files")

	// ErrNoStateFile is returned when the cooldown state file path is
	// empty; without it rate limiting cannot survive restarts.
	ErrNoStateFile = errors.New("missing state file: a cooldown state path is required")
)
