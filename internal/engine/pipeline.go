package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/txledger/internal/ledger"
)

// Stage names used in logs and errors.
const (
	stageDecode = "decode"
	stageRecord = "record"
	stageApply  = "apply"
	stageEmit   = "emit"
)

// Source yields decoded instructions in input order.
// Next returns io.EOF once the input is exhausted.
type Source interface {
	Next() (ledger.Instruction, error)
}

// Sink receives the final account state of a run, sorted by client id.
// Emit is called at most once per run, and never after a fatal error.
type Sink interface {
	Emit(ctx context.Context, runID string, accounts []ledger.Account) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, runID string, accounts []ledger.Account) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, runID string, accounts []ledger.Account) error {
	return f(ctx, runID, accounts)
}

// SliceSource is a Source over an in-memory list of instructions.
type SliceSource struct {
	items []ledger.Instruction
	pos   int
}

// NewSliceSource returns a source yielding items in order.
func NewSliceSource(items []ledger.Instruction) *SliceSource {
	return &SliceSource{items: items}
}

// Next implements Source.
func (s *SliceSource) Next() (ledger.Instruction, error) {
	if s.pos >= len(s.items) {
		return ledger.Instruction{}, io.EOF
	}
	in := s.items[s.pos]
	s.pos++
	return in, nil
}

// Result describes a completed run.
type Result struct {
	RunID    string
	Accounts []ledger.Account
	Records  map[ledger.TxID]ledger.TransactionRecord
	Stats    Stats
}

// Pipeline wires decode → Recorder → Applier → emit for one batch.
//
// Each Run builds a fresh ledger; nothing is shared between runs.
type Pipeline struct {
	logger *slog.Logger
	runIDs RunIDGenerator
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRunIDGenerator sets the run id generator. Default: UUIDv7Generator.
func WithRunIDGenerator(gen RunIDGenerator) Option {
	return func(p *Pipeline) {
		p.runIDs = gen
	}
}

// NewPipeline creates a pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: slog.Default(),
		runIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every instruction from src and hands the final account
// state to sink.
//
// All four stages run concurrently and are connected by unbounded FIFO
// queues. The first fatal error cancels the others; the error returned is
// the root cause (see rootCause), and sink is not called.
func (p *Pipeline) Run(ctx context.Context, src Source, sink Sink) (Result, error) {
	runID := p.runIDs.Generate()
	logger := p.logger.With("run_id", runID)

	l := ledger.New()
	decoded := NewQueue()
	forwarded := NewQueue()
	ready := NewReady()

	recorder := NewRecorder(l, decoded, forwarded, logger)
	applier := NewApplier(l, forwarded, ready, logger)

	var (
		decodedCount int
		accounts     []ledger.Account
		errs         [4]error
	)

	logger.Info("run starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		decodedCount, errs[0] = decode(gctx, src, decoded)
		return errs[0]
	})
	g.Go(func() error {
		errs[1] = recorder.Run(gctx)
		return errs[1]
	})
	g.Go(func() error {
		errs[2] = applier.Run(gctx)
		return errs[2]
	})
	g.Go(func() error {
		accounts, errs[3] = emit(gctx, ready, l, sink, runID)
		return errs[3]
	})
	_ = g.Wait()

	result := Result{RunID: runID}
	if err := rootCause(errs[:]); err != nil {
		logger.Error("run failed", "kind", KindOf(err), "error", err)
		return result, err
	}

	result.Accounts = accounts
	result.Records = l.Records()
	result.Stats = newStats()
	result.Stats.Decoded = decodedCount
	result.Stats.Recorded = recorder.recorded
	result.Stats.Overwritten = recorder.overwritten
	for t, n := range applier.applied {
		result.Stats.Applied[t] = n
	}
	for t, n := range applier.ignored {
		result.Stats.Ignored[t] = n
	}

	logger.Info("run complete", "accounts", len(accounts), "stats", result.Stats)
	return result, nil
}

// decode pulls instructions from src into out until src is exhausted.
func decode(ctx context.Context, src Source, out *Queue) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			out.Close(err)
			return n, err
		}

		in, err := src.Next()
		if errors.Is(err, io.EOF) {
			out.Close(nil)
			return n, nil
		}
		if err != nil {
			var pe *PipelineError
			if !errors.As(err, &pe) {
				pe = NewDecodeError(0, err)
			}
			out.Close(pe)
			return n, pe
		}

		n++
		if !out.Push(in) {
			return n, NewForwardingError(stageDecode, in.Seq)
		}
	}
}

// emit waits for the ready signal and hands a snapshot of the accounts to
// sink. It gives up without emitting if ctx ends first.
func emit(ctx context.Context, ready *Ready, l *ledger.Ledger, sink Sink, runID string) ([]ledger.Account, error) {
	select {
	case <-ready.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	accounts := l.Accounts()
	if err := sink.Emit(ctx, runID, accounts); err != nil {
		return nil, NewEmissionError(err)
	}
	return accounts, nil
}

// rootCause picks the error to report from the per-stage errors, given in
// pipeline order.
//
// A forwarding failure is only a symptom of the downstream stage dying, and
// a context error only a symptom of some stage failing, so the first
// PipelineError of any other kind wins, then the first forwarding failure,
// then whatever else was returned.
func rootCause(errs []error) error {
	var forwarding, other error
	for _, err := range errs {
		if err == nil {
			continue
		}
		switch KindOf(err) {
		case "":
			if other == nil {
				other = err
			}
		case KindForwarding:
			if forwarding == nil {
				forwarding = err
			}
		default:
			return err
		}
	}
	if forwarding != nil {
		return forwarding
	}
	return other
}
