// Package model defines the core data structures used throughout doctor.
//
// This package contains the following main types:
//   - StatusDocument: A parsed network status consensus or vote
//   - StatusEntry: A single relay row from a status document
//   - Download: The raw fetch result a parser consumes
//   - Warning: The anomaly categories produced by the comparator
//   - CheckRun: The mutable carrier threaded through a check pipeline
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (parser, report, database, pipeline) need to
// use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for database storage.
package model
