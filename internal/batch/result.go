package batch

import (
	"errors"
	"fmt"
	"io"

	"github.com/ah-its-andy/towebp/internal/converter"
)

// Failure is one job that did not convert.
type Failure struct {
	Input string
	Err   error
}

// Result summarises a finished batch. It is derived from the outcomes and
// never stored as-is.
type Result struct {
	BatchID      string
	Total        int
	Succeeded    int
	Failures     []Failure
	Deleted      int
	DeleteErrors int
	Outcomes     []converter.Outcome
}

// Failed is the number of failed jobs.
func (r *Result) Failed() int { return len(r.Failures) }

// Partition splits outcomes into a success count and the ordered failures.
func Partition(outcomes []converter.Outcome) *Result {
	res := &Result{Total: len(outcomes), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.OK() {
			res.Succeeded++
			continue
		}
		res.Failures = append(res.Failures, Failure{Input: o.Job.Input, Err: o.Err})
	}
	return res
}

// CauseChain lists err's message followed by each wrapped cause.
func CauseChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		err = errors.Unwrap(err)
	}
	return chain
}

// ReportError prints a top-level error and its causes.
func ReportError(w io.Writer, err error) {
	chain := CauseChain(err)
	if len(chain) == 0 {
		return
	}
	fmt.Fprintf(w, "Error: %s\n", chain[0])
	for _, cause := range chain[1:] {
		fmt.Fprintf(w, "Caused by: %s\n", cause)
	}
}

// ReportFailures prints every failed job with its causes.
func ReportFailures(w io.Writer, failures []Failure) {
	for i, f := range failures {
		chain := CauseChain(f.Err)
		if len(chain) == 0 {
			continue
		}
		fmt.Fprintf(w, "Error %d: %s: %s\n", i+1, f.Input, chain[0])
		for _, cause := range chain[1:] {
			fmt.Fprintf(w, "  Caused by: %s\n", cause)
		}
	}
}
