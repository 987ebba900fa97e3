package harness

// TraceEvent records one executed request.
type TraceEvent struct {
	Seq    int      `json:"seq"`
	Step   string   `json:"step"`
	Method string   `json:"method"`
	Path   string   `json:"path"`
	Status int      `json:"status"`
	IDs    []string `json:"ids,omitempty"` // record or edge ids in the response body
	Body   any      `json:"body,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an executed request to the trace.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}
