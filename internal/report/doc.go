// Package report renders the comparator's anomaly categories into the two
// warning artifacts and rate-limits re-emission of identical messages.
//
// The reporter keeps a category-specific cooldown per rendered message,
// persisted across runs by the CooldownStore as one
// "<epoch-millis>: <message>" record per line. Every run fully overwrites
// both destination files; a run where nothing newly qualifies writes two
// empty files and leaves the store untouched.
//
// Design decision: The category → (template, cooldown) switch of the
// original checker is a declarative table here, so new categories are a
// table entry rather than new control flow, and the table can be verified
// on its own.
package report
