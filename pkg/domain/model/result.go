package model

// BatchResult aggregates per-repository outcomes of a versioning or mirror
// operation. Partial failure is a valid, reported outcome; Success applies
// the majority rule of the engines.
type BatchResult struct {
	Total        int           `json:"total"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Skipped      int           `json:"skipped"`
	Errors       []string      `json:"errors,omitempty"`
	PullRequests []PullRequest `json:"pullRequests,omitempty"`
}

// AddSuccess records a successful repository outcome, optionally with the
// Pull Request it produced.
func (b *BatchResult) AddSuccess(pr *PullRequest) {
	b.Total++
	b.Succeeded++
	if pr != nil {
		b.PullRequests = append(b.PullRequests, *pr)
	}
}

// AddSkip records a repository that was already consistent.
func (b *BatchResult) AddSkip() {
	b.Total++
	b.Succeeded++
	b.Skipped++
}

// AddFailure records a failed repository outcome.
func (b *BatchResult) AddFailure(err error) {
	b.Total++
	b.Failed++
	if err != nil {
		b.Errors = append(b.Errors, err.Error())
	}
}

// Success reports the overall outcome: false when more than half of the
// targeted repositories errored, even if some succeeded.
func (b *BatchResult) Success() bool {
	return b.Failed*2 <= b.Total
}

// SyncReport summarizes one synchronization pass.
type SyncReport struct {
	Repositories int      `json:"repositories"`
	Discovered   int      `json:"discovered"`
	Updated      int      `json:"updated"`
	Skipped      int      `json:"skipped"`
	Pruned       int      `json:"pruned"`
	Operations   int      `json:"operations"`
	Failed       int      `json:"failed"`
	Errors       []string `json:"errors,omitempty"`
}

// TooManyErrors reports whether more than half of the sync operations in the
// pass failed. Pruning is suppressed in that case: errors are presumed
// transient, not evidence of deletion.
func (s *SyncReport) TooManyErrors() bool {
	return s.Failed*2 > s.Operations
}
