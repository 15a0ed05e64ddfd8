// Package report collects per-key outcomes for a batch operation.
package report

import (
	"sort"

	"sceneflow/internal/services"
)

// Outcome classifies what happened to one key.
type Outcome int

const (
	Pending Outcome = iota
	Skipped
	Succeeded
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Skipped:
		return "skipped"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the recorded outcome for one key.
type Result struct {
	Key     string
	Outcome Outcome
	Reason  string
}

// Report accumulates results keyed by key name. The zero value is not usable;
// call New.
type Report struct {
	order   []string
	results map[string]Result
}

func New() *Report {
	return &Report{results: make(map[string]Result)}
}

func (r *Report) record(key string, outcome Outcome, reason string) {
	if _, seen := r.results[key]; !seen {
		r.order = append(r.order, key)
	}
	r.results[key] = Result{Key: key, Outcome: outcome, Reason: reason}
}

// Succeed marks a key as fully processed.
func (r *Report) Succeed(key string) {
	r.record(key, Succeeded, "")
}

// Skip marks a key as intentionally untouched, with the reason shown in
// summaries.
func (r *Report) Skip(key, reason string) {
	r.record(key, Skipped, reason)
}

// Fail marks a key as failed with the causing error's message.
func (r *Report) Fail(key string, err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	r.record(key, Failed, reason)
}

// Record classifies err for a key: nil succeeds, skip-class sentinels skip,
// anything else fails.
func (r *Report) Record(key string, err error) {
	if err == nil {
		r.Succeed(key)
		return
	}
	if reason, ok := services.SkipReason(err); ok {
		r.Skip(key, reason)
		return
	}
	r.Fail(key, err)
}

// Result returns the recorded result for a key.
func (r *Report) Result(key string) (Result, bool) {
	res, ok := r.results[key]
	return res, ok
}

// Results returns every result in recording order.
func (r *Report) Results() []Result {
	out := make([]Result, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.results[key])
	}
	return out
}

// Successful returns the sorted keys that succeeded.
func (r *Report) Successful() []string {
	var keys []string
	for _, res := range r.results {
		if res.Outcome == Succeeded {
			keys = append(keys, res.Key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Counts returns how many keys landed in each outcome.
func (r *Report) Counts() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, res := range r.results {
		counts[res.Outcome]++
	}
	return counts
}

// AllSucceeded reports whether every recorded key succeeded or skipped.
func (r *Report) AllSucceeded() bool {
	for _, res := range r.results {
		if res.Outcome == Failed {
			return false
		}
	}
	return true
}

// Len returns how many keys have results.
func (r *Report) Len() int {
	return len(r.results)
}
