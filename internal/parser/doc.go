// Package parser turns downloaded network status documents into structured
// records and links votes to their consensuses.
//
// A status document is a line-oriented text format. The parser makes a
// single forward pass and dispatches on recognized line prefixes; relay rows
// arrive as adjacent `r`/`s` line pairs and are reconstructed through an
// explicit three-state machine instead of implicit look-back fields. A
// document with an unparsable valid-after or dir-key-expires timestamp, or
// with relay lines out of order, is dropped as a whole and never returned
// partially parsed.
//
// Design decision: Parsing and linking live in one package because linking
// is meaningless on anything but this package's output, and batch parsing
// (ParseAll) needs both.
package parser
