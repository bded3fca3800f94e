package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/txledger/internal/ledger"
)

// Recorder is the first stage: it stores a TransactionRecord for every
// deposit and withdrawal and forwards every instruction, unchanged and in
// arrival order, to the Applier.
//
// Recorder runs in exactly one goroutine.
type Recorder struct {
	ledger *ledger.Ledger
	in     *Queue
	out    *Queue
	logger *slog.Logger

	recorded    int
	overwritten int
}

// NewRecorder creates a recorder reading from in and forwarding to out.
func NewRecorder(l *ledger.Ledger, in, out *Queue, logger *slog.Logger) *Recorder {
	return &Recorder{
		ledger: l,
		in:     in,
		out:    out,
		logger: logger.With("stage", stageRecord),
	}
}

// Run consumes the input queue until it ends.
//
// A clean end of input closes the output cleanly. An aborted input, a
// cancelled context, or a failure of the Recorder itself aborts the output
// so the Applier stops without signalling readiness.
func (r *Recorder) Run(ctx context.Context) error {
	r.logger.Debug("stage starting")

	for {
		in, err := r.in.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			r.out.Close(nil)
			r.logger.Debug("stage finished", "recorded", r.recorded, "overwritten", r.overwritten)
			return nil
		case errors.Is(err, ErrStreamAborted):
			r.out.Close(err)
			return nil
		case err != nil:
			r.out.Close(err)
			return err
		}

		if err := r.process(in); err != nil {
			r.logger.Error("stage aborted", "seq", in.Seq, "error", err)
			r.in.Close(err)
			r.out.Close(err)
			return err
		}
	}
}

func (r *Recorder) process(in ledger.Instruction) error {
	switch {
	case in.Type.Recordable():
		if r.ledger.PutRecord(in.Tx, ledger.NewTransactionRecord(in)) {
			r.overwritten++
			r.logger.Debug("transaction id reused, record overwritten",
				"seq", in.Seq,
				"tx", in.Tx,
				"client", in.Client,
			)
		}
		r.recorded++

	case in.Type.Known():
		// dispute, resolve, chargeback: pass through

	default:
		return NewInvalidTypeError(stageRecord, in.Seq, string(in.Type))
	}

	if !r.out.Push(in) {
		return NewForwardingError(stageRecord, in.Seq)
	}
	return nil
}
