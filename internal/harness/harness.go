package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/txledger/internal/csvio"
	"github.com/roach88/txledger/internal/engine"
	"github.com/roach88/txledger/internal/ledger"
)

// Harness runs scenarios through the real pipeline.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger routes pipeline logs to logger. By default they are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// Run executes a scenario and evaluates its expectations.
//
// Every scenario gets a fresh pipeline with the fixed run id
// "scenario-<name>", so output is reproducible. A pipeline failure is not a
// harness error: it is compared against expect.error. The returned error is
// reserved for scenarios that cannot be executed at all.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	instructions, err := scenario.instructions()
	if err != nil {
		return nil, fmt.Errorf("failed to build instructions: %w", err)
	}

	var out bytes.Buffer
	p := engine.NewPipeline(
		engine.WithLogger(h.logger.With("scenario", scenario.Name)),
		engine.WithRunIDGenerator(engine.NewFixedGenerator("scenario-"+scenario.Name)),
	)
	res, runErr := p.Run(ctx, engine.NewSliceSource(instructions), csvio.NewCSVWriter(&out))

	result := NewResult()
	result.RunErr = runErr
	result.Accounts = res.Accounts
	result.Records = res.Records
	result.Stats = res.Stats
	if runErr != nil {
		result.Output = []byte(fmt.Sprintf("error: %s\n", errorLabel(runErr)))
	} else {
		result.Output = out.Bytes()
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}

	return result, nil
}

// errorLabel is the stable golden-file label of a run error.
func errorLabel(err error) string {
	if kind := engine.KindOf(err); kind != "" {
		return string(kind)
	}
	return err.Error()
}

// accountsByClient indexes accounts for lookups.
func accountsByClient(accounts []ledger.Account) map[ledger.ClientID]ledger.Account {
	m := make(map[ledger.ClientID]ledger.Account, len(accounts))
	for _, a := range accounts {
		m[a.Client] = a
	}
	return m
}
