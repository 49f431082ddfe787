// Package config provides configuration structures and utilities for doctor.
// It defines the input locations (downloaded consensuses, votes, and the
// comparator's warnings file), the report artifact destinations, and the
// cooldown state and archive paths.
package config
