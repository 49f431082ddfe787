// Package main provides the entry point for the doctor CLI.
//
// doctor checks the health of the Tor directory consensus process: it
// parses downloaded consensus and vote documents, links votes to their
// consensuses, and turns detected anomalies into rate-limited warning
// files. It is designed to run once per invocation under an external
// scheduler.
//
// Usage:
//
//	doctor check --consensus-dir statuses/consensuses --votes-dir statuses/votes --warnings warnings.yml
//	doctor history moria1
//
// See --help for all available options.
package main

// main is the entry point for doctor.
func main() {
	Execute()
}
