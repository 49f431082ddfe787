package model

// CheckRun carries the state of one check invocation through the pipeline.
// Steps read the inputs, fill in the outputs, and record non-fatal problems
// in Errors instead of aborting the run.
//
// Design decision: A single mutable carrier mirrors how the scan pipeline
// accumulates results. The failure policy here favors availability: a step
// that cannot do its work records the reason and the remaining steps still
// execute.
type CheckRun struct {
	// Consensuses holds the per-authority consensus fetch results.
	Consensuses []Download

	// Votes holds the vote fetch results. The source authority of each vote
	// is recovered from the document itself during parsing.
	Votes []Download

	// Warnings is the comparator's output: at most one detail text per
	// anomaly category for this run.
	Warnings map[Warning]string

	// Parsed maps the retrieving authority's nickname to its parsed
	// consensus, votes linked. Filled by the parse step.
	Parsed map[string]*StatusDocument

	// AllWarnings and NewWarnings are the rendered report artifacts.
	// Filled by the report step; both empty when nothing newly qualifies.
	AllWarnings string
	NewWarnings string

	// Errors collects non-fatal problems encountered during the run.
	Errors []string
}

// AddError records a non-fatal problem for the run summary.
func (r *CheckRun) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
