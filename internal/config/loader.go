package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".doctor"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File mirrors the YAML configuration file. Every field is optional;
// values set here lose against explicit CLI flags.
type File struct {
	ConsensusDir    string `yaml:"consensus_dir"`
	VotesDir        string `yaml:"votes_dir"`
	WarningsFile    string `yaml:"warnings_file"`
	StateFile       string `yaml:"state_file"`
	AllWarningsFile string `yaml:"all_warnings_file"`
	NewWarningsFile string `yaml:"new_warnings_file"`
	DBDir           string `yaml:"db_dir"`
	Verbose         bool   `yaml:"verbose"`
}

// LoadConfigFile loads configuration from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound. Callers should
// handle this error based on whether the path was explicitly specified by
// the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Apply copies every non-zero file value into fields of c that are still
// at their zero value or default, so flag-provided values keep priority.
func (f *File) Apply(c *Config) {
	if f.ConsensusDir != "" && c.ConsensusDir == "" {
		c.ConsensusDir = f.ConsensusDir
	}
	if f.VotesDir != "" && c.VotesDir == "" {
		c.VotesDir = f.VotesDir
	}
	if f.WarningsFile != "" && c.WarningsFile == "" {
		c.WarningsFile = f.WarningsFile
	}
	if f.StateFile != "" && c.StateFile == DefaultStateFile() {
		c.StateFile = f.StateFile
	}
	if f.AllWarningsFile != "" && c.AllWarningsFile == DefaultAllWarningsFile {
		c.AllWarningsFile = f.AllWarningsFile
	}
	if f.NewWarningsFile != "" && c.NewWarningsFile == DefaultNewWarningsFile {
		c.NewWarningsFile = f.NewWarningsFile
	}
	if f.DBDir != "" && c.DBDir == XDGDataDir() {
		c.DBDir = f.DBDir
	}
	if f.Verbose {
		c.Verbose = true
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .doctor in the current directory
// 3. Look for .doctor in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if
// not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
