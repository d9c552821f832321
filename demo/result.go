package demo

import "fmt"

// Result is the outcome of one independent operation.
type Result struct {
	Label  string
	Output string
	Err    error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Report collects the results of a session run, grouped by step.
type Report struct {
	Listings []Result
	Tools    []Result
	Reads    []Result
}

// All returns every result in execution order.
func (r *Report) All() []Result {
	out := make([]Result, 0, len(r.Listings)+len(r.Tools)+len(r.Reads))
	out = append(out, r.Listings...)
	out = append(out, r.Tools...)
	return append(out, r.Reads...)
}

// Failed returns the failed results in execution order.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.All() {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Summary renders "<ok>/<total> succeeded" for results.
func Summary(results []Result) string {
	ok := 0
	for _, r := range results {
		if r.OK() {
			ok++
		}
	}
	return fmt.Sprintf("%d/%d succeeded", ok, len(results))
}
