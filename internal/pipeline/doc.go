// Package pipeline provides a framework for executing the steps of one
// check run in sequence.
//
// A check run flows through three stages: parsing the downloaded
// consensuses and votes, evaluating and writing the rate-limited warning
// report, and archiving consensus summaries. Each stage is implemented as a
// Step that receives the current CheckRun and can modify it.
//
// Design decision: We use a pipeline pattern instead of direct function
// calls because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context
//
// The failure policy favors availability: with continue-on-error enabled a
// failed step records its reason on the run and the remaining steps still
// execute, matching the rule that no I/O failure in this tool is
// process-fatal.
package pipeline
