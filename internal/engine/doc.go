// Package engine implements the two-stage batch pipeline that applies an
// instruction stream to the ledger.
//
// ARCHITECTURE:
//
//	Source --decode--> [Queue] --Recorder--> [Queue] --Applier--> Ready --emit--> Sink
//
// Every stage runs in its own goroutine and is single-threaded over its input
// queue, so there is no intra-stage race. The only shared mutable state is
// the two ledger tables (see package ledger).
//
// Ordering:
// Queues are unbounded and strictly FIFO. Dispute, resolve and chargeback
// must observe the TransactionRecord created by an earlier deposit or
// withdrawal; the Recorder stores a record before forwarding the instruction
// that created it, and the Applier sees instructions in the same order.
//
// Termination:
// A stage blocks on its input queue and stops only when the queue is closed.
// Close(nil) is a clean end-of-stream: the stage drains, closes its own
// output cleanly, and the Applier fires the one-shot Ready signal. Close(err)
// is an abort: downstream stages stop without emitting. There is no polling
// and no timing dependence.
//
// Errors:
// Fatal errors are PipelineError values (DECODE_ERROR,
// INVALID_TRANSACTION_TYPE, FORWARDING_FAILURE, EMISSION_ERROR). None is
// retried. Business-rule violations are not errors: the Applier counts them
// as ignored and moves on.
package engine
