package harness

import (
	"github.com/roach88/txledger/internal/engine"
	"github.com/roach88/txledger/internal/ledger"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation matched.
	Pass bool `json:"pass"`

	// Errors contains failed expectations, one message each.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Output is the CSV the run emitted, or "error: KIND" when it failed.
	// Golden files compare against it.
	Output []byte `json:"-"`

	// RunErr is the error returned by the pipeline, if any.
	RunErr error `json:"-"`

	Accounts []ledger.Account                         `json:"-"`
	Records  map[ledger.TxID]ledger.TransactionRecord `json:"-"`
	Stats    engine.Stats                             `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
