package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/roach88/txledger/internal/ledger"
)

// Applier is the second stage: it applies each forwarded instruction to the
// account table, consulting the transaction table for dispute, resolve and
// chargeback, and fires the ready signal once the stream has ended cleanly.
//
// Refused instructions are silent no-ops. They are counted in Stats and
// logged at debug level; they never stop the run.
//
// Applier runs in exactly one goroutine.
type Applier struct {
	ledger *ledger.Ledger
	in     *Queue
	ready  *Ready
	logger *slog.Logger

	applied map[ledger.InstructionType]int
	ignored map[ledger.InstructionType]int
}

// NewApplier creates an applier reading from in and firing ready when done.
func NewApplier(l *ledger.Ledger, in *Queue, ready *Ready, logger *slog.Logger) *Applier {
	return &Applier{
		ledger:  l,
		in:      in,
		ready:   ready,
		logger:  logger.With("stage", stageApply),
		applied: make(map[ledger.InstructionType]int),
		ignored: make(map[ledger.InstructionType]int),
	}
}

// Run consumes the input queue until it ends.
//
// The ready signal fires only after a clean end of input. When the input is
// aborted upstream, Run returns nil without firing: the upstream stage owns
// the error.
func (a *Applier) Run(ctx context.Context) error {
	a.logger.Debug("stage starting")

	for {
		in, err := a.in.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			a.logger.Debug("stage finished")
			a.ready.Fire()
			return nil
		case errors.Is(err, ErrStreamAborted):
			return nil
		case err != nil:
			a.in.Close(err)
			return err
		}

		if err := a.apply(in); err != nil {
			a.logger.Error("stage aborted", "seq", in.Seq, "error", err)
			a.in.Close(err)
			return err
		}
	}
}

func (a *Applier) apply(in ledger.Instruction) error {
	var applied bool

	switch in.Type {
	case ledger.TypeDeposit:
		applied = a.deposit(in)
	case ledger.TypeWithdrawal:
		applied = a.withdrawal(in)
	case ledger.TypeDispute:
		applied = a.dispute(in)
	case ledger.TypeResolve:
		applied = a.resolve(in)
	case ledger.TypeChargeback:
		applied = a.chargeback(in)
	default:
		return NewInvalidTypeError(stageApply, in.Seq, string(in.Type))
	}

	if applied {
		a.applied[in.Type]++
		return nil
	}

	a.ignored[in.Type]++
	a.logger.Debug("instruction ignored",
		"seq", in.Seq,
		"type", in.Type,
		"client", in.Client,
		"tx", in.Tx,
	)
	return nil
}

// deposit creates the account if needed and credits it unless locked.
func (a *Applier) deposit(in ledger.Instruction) bool {
	amount := in.Value()
	return a.ledger.WithAccount(in.Client, func(acct *ledger.Account) bool {
		return acct.Deposit(amount)
	})
}

// withdrawal creates the account if needed and debits it unless locked or
// short of funds.
func (a *Applier) withdrawal(in ledger.Instruction) bool {
	amount := in.Value()
	return a.ledger.WithAccount(in.Client, func(acct *ledger.Account) bool {
		return acct.Withdraw(amount)
	})
}

// dispute holds the recorded amount. The record must belong to the client;
// the record is marked only if the hold succeeds. A record that is already
// disputed is held again when available funds allow.
func (a *Applier) dispute(in ledger.Instruction) bool {
	return a.ledger.WithRecordAndAccount(in.Tx, func(rec *ledger.TransactionRecord, acct *ledger.Account) bool {
		if !rec.OwnedBy(in.Client) {
			return false
		}
		if !acct.Hold(rec.Amount) {
			return false
		}
		rec.MarkDisputed()
		return true
	})
}

// resolve releases a disputed amount back to available.
func (a *Applier) resolve(in ledger.Instruction) bool {
	return a.ledger.WithRecordAndAccount(in.Tx, func(rec *ledger.TransactionRecord, acct *ledger.Account) bool {
		if !rec.OwnedBy(in.Client) || !rec.Disputed {
			return false
		}
		if !acct.Release(rec.Amount) {
			return false
		}
		rec.ClearDispute()
		return true
	})
}

// chargeback removes a disputed amount from held and locks the account.
func (a *Applier) chargeback(in ledger.Instruction) bool {
	return a.ledger.WithRecordAndAccount(in.Tx, func(rec *ledger.TransactionRecord, acct *ledger.Account) bool {
		if !rec.OwnedBy(in.Client) || !rec.Disputed {
			return false
		}
		if !acct.Chargeback(rec.Amount) {
			return false
		}
		rec.ClearDispute()
		return true
	})
}
