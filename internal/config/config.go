package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values. The artifact names match what downstream
// monitoring historically consumed; the state and archive locations follow
// the XDG Base Directory Specification instead of the original hard-coded
// relative paths.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "doctor"

	// DefaultAllWarningsFile receives every currently applicable warning,
	// one rendered message per line, overwritten every run.
	DefaultAllWarningsFile = "all-warnings"

	// DefaultNewWarningsFile receives only the warnings that newly qualify
	// under their category's cooldown, overwritten every run.
	DefaultNewWarningsFile = "new-warnings"

	// StateFileName is the cooldown state file name under the XDG state
	// directory.
	StateFileName = "last-warned"
)

// Config holds all configuration options for doctor.
// This struct is populated from the optional YAML config file and CLI
// flags and passed through the application via dependency injection rather
// than global state.
//
// Design decision: We use a single flat struct instead of nested structs.
// The number of options is manageable, and nesting would add complexity
// without significant benefit.
type Config struct {
	// ConsensusDir is a directory of downloaded consensus documents, one
	// file per authority; the file's base name identifies the authority it
	// was retrieved from and its modification time is the fetch timestamp.
	ConsensusDir string

	// VotesDir is a directory of downloaded vote documents. The voting
	// authority is recovered from each document's own dir-source line.
	VotesDir string

	// WarningsFile is the YAML file carrying the comparator's output:
	// a mapping from anomaly category name to detail text.
	WarningsFile string

	// StateFile is the cooldown state file recording when each warning
	// message was last emitted.
	StateFile string

	// AllWarningsFile and NewWarningsFile are the two report artifact
	// destinations, fully overwritten every run.
	AllWarningsFile string
	NewWarningsFile string

	// DBDir is the directory for the SQLite consensus archive.
	// When empty, nothing is archived.
	DBDir string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONLog switches log output from text to JSON.
	JSONLog bool

	// ConfigFilePath is the path to the configuration file. If empty, the
	// tool searches for .doctor in the current directory and then in the
	// user's home directory.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because several defaults are non-zero paths. This also
// serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		StateFile:       DefaultStateFile(),
		AllWarningsFile: DefaultAllWarningsFile,
		NewWarningsFile: DefaultNewWarningsFile,
		DBDir:           XDGDataDir(),
	}
}

// DefaultStateFile returns the default cooldown state file location under
// the XDG state directory.
// On Linux: ~/.local/state/doctor/last-warned
func DefaultStateFile() string {
	return filepath.Join(xdg.StateHome, AppName, StateFileName)
}

// XDGDataDir returns the XDG data directory for doctor, used for the
// consensus archive.
// On Linux: ~/.local/share/doctor
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for doctor.
// On Linux: ~/.config/doctor
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate once after CLI parsing, before any work
// begins, and return the first error found: fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	// Without documents or comparator output there is nothing to do.
	if c.ConsensusDir == "" && c.VotesDir == "" && c.WarningsFile == "" {
		return ErrNoInput
	}

	// Both artifacts are overwritten every run and must have destinations.
	if c.AllWarningsFile == "" || c.NewWarningsFile == "" {
		return ErrNoArtifactPath
	}
	if c.AllWarningsFile == c.NewWarningsFile {
		return ErrSameArtifactPath
	}

	// The cooldown state must live somewhere across runs.
	if c.StateFile == "" {
		return ErrNoStateFile
	}

	return nil
}
