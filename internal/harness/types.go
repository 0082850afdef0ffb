package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step   int    `json:"step"`
	Op     string `json:"op"`
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`
	Rows   int64  `json:"rows"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause matched and no step failed
	// unexpectedly.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
