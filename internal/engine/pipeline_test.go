package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txledger/internal/ledger"
)

func TestPipeline_DepositThenWithdrawal(t *testing.T) {
	res, sink, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "10.00"),
		ins(ledger.TypeWithdrawal, 1, 2, "5.00"),
	)
	require.NoError(t, err)

	require.Len(t, res.Accounts, 1)
	assertAccount(t, res.Accounts[0], "5", "0", "5", false)
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, "run-test", sink.runID)
	assert.Equal(t, res.Accounts, sink.got)
}

func TestPipeline_DisputeHoldsFunds(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 2, 3, "20.00"),
		ins(ledger.TypeDispute, 2, 3, ""),
	)
	require.NoError(t, err)
	assertAccount(t, findAccount(t, res.Accounts, 2), "0", "20", "20", false)

	rec, ok := res.Records[3]
	require.True(t, ok)
	assert.True(t, rec.Disputed)
	assert.Equal(t, ledger.ClientID(2), rec.Client)
}

func TestPipeline_ChargebackLocksAccount(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 2, 3, "20.00"),
		ins(ledger.TypeDispute, 2, 3, ""),
		ins(ledger.TypeChargeback, 2, 3, ""),
		ins(ledger.TypeDeposit, 2, 4, "5.00"),
	)
	require.NoError(t, err)

	assertAccount(t, findAccount(t, res.Accounts, 2), "0", "0", "0", true)
	assert.Equal(t, 1, res.Stats.Ignored[ledger.TypeDeposit], "deposit into locked account is ignored")
}

func TestPipeline_WithdrawalWithoutFundsCreatesAccount(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeWithdrawal, 3, 5, "100.00"),
	)
	require.NoError(t, err)

	require.Len(t, res.Accounts, 1)
	assertAccount(t, res.Accounts[0], "0", "0", "0", false)
	assert.Equal(t, 1, res.Stats.Ignored[ledger.TypeWithdrawal])
}

func TestPipeline_ResolveUnknownTransaction(t *testing.T) {
	res, sink, err := runPipeline(t,
		ins(ledger.TypeResolve, 4, 99, ""),
	)
	require.NoError(t, err)

	assert.Empty(t, res.Accounts, "dispute-class instructions never create accounts")
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, 1, res.Stats.Ignored[ledger.TypeResolve])
}

func TestPipeline_EmptyInput(t *testing.T) {
	res, sink, err := runPipeline(t)
	require.NoError(t, err)

	assert.Empty(t, res.Accounts)
	assert.Equal(t, 1, sink.calls, "empty input still emits")
	assert.Equal(t, 0, res.Stats.Decoded)
}

func TestPipeline_DisputeResolveCycle(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "1.5"),
		ins(ledger.TypeDispute, 1, 1, ""),
		ins(ledger.TypeResolve, 1, 1, ""),
		ins(ledger.TypeDispute, 1, 1, ""),
		ins(ledger.TypeResolve, 1, 1, ""),
	)
	require.NoError(t, err)

	assertAccount(t, res.Accounts[0], "1.5", "0", "1.5", false)
	assert.Equal(t, 2, res.Stats.Applied[ledger.TypeDispute])
	assert.Equal(t, 2, res.Stats.Applied[ledger.TypeResolve])
}

func TestPipeline_RepeatedDisputeHoldsAgain(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "10"),
		ins(ledger.TypeDeposit, 1, 2, "10"),
		ins(ledger.TypeDispute, 1, 1, ""),
		ins(ledger.TypeDispute, 1, 1, ""),
	)
	require.NoError(t, err)

	assertAccount(t, res.Accounts[0], "0", "20", "20", false)
	assert.Equal(t, 2, res.Stats.Applied[ledger.TypeDispute])
	assert.True(t, res.Records[1].Disputed)
}

func TestPipeline_RepeatedDisputeWithoutFunds(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "10"),
		ins(ledger.TypeDispute, 1, 1, ""),
		ins(ledger.TypeDispute, 1, 1, ""),
	)
	require.NoError(t, err)

	assertAccount(t, res.Accounts[0], "0", "10", "10", false)
	assert.Equal(t, 1, res.Stats.Applied[ledger.TypeDispute])
	assert.Equal(t, 1, res.Stats.Ignored[ledger.TypeDispute])
	assert.True(t, res.Records[1].Disputed)
}

func TestPipeline_ForeignClientCannotDispute(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "10"),
		ins(ledger.TypeDeposit, 2, 2, "10"),
		ins(ledger.TypeDispute, 2, 1, ""),
		ins(ledger.TypeChargeback, 2, 1, ""),
	)
	require.NoError(t, err)

	assertAccount(t, findAccount(t, res.Accounts, 1), "10", "0", "10", false)
	assertAccount(t, findAccount(t, res.Accounts, 2), "10", "0", "10", false)
}

func TestPipeline_ResolveWithoutDispute(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "10"),
		ins(ledger.TypeResolve, 1, 1, ""),
		ins(ledger.TypeChargeback, 1, 1, ""),
	)
	require.NoError(t, err)

	assertAccount(t, res.Accounts[0], "10", "0", "10", false)
	assert.Equal(t, 2, res.Stats.TotalIgnored())
}

func TestPipeline_DisputeAfterWithdrawalNeedsFunds(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "10"),
		ins(ledger.TypeWithdrawal, 1, 2, "8"),
		ins(ledger.TypeDispute, 1, 1, ""),
	)
	require.NoError(t, err)

	assertAccount(t, res.Accounts[0], "2", "0", "2", false)
	assert.Equal(t, 1, res.Stats.Ignored[ledger.TypeDispute], "hold needs available >= amount")
}

func TestPipeline_DuplicateTxOverwritesRecord(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "10"),
		ins(ledger.TypeDeposit, 1, 1, "3"),
		ins(ledger.TypeDispute, 1, 1, ""),
	)
	require.NoError(t, err)

	// The dispute holds the amount of the latest record.
	assertAccount(t, res.Accounts[0], "10", "3", "13", false)
	assert.Equal(t, 2, res.Stats.Recorded)
	assert.Equal(t, 1, res.Stats.Overwritten)
}

func TestPipeline_LockIsPermanent(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "10"),
		ins(ledger.TypeDeposit, 1, 2, "5"),
		ins(ledger.TypeDispute, 1, 1, ""),
		ins(ledger.TypeChargeback, 1, 1, ""),
		ins(ledger.TypeWithdrawal, 1, 3, "1"),
		ins(ledger.TypeDispute, 1, 2, ""),
		ins(ledger.TypeDeposit, 1, 4, "100"),
	)
	require.NoError(t, err)

	assertAccount(t, res.Accounts[0], "5", "0", "5", true)
	assert.Equal(t, 3, res.Stats.TotalIgnored())
}

func TestPipeline_AccountsSortedByClient(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 30, 1, "1"),
		ins(ledger.TypeDeposit, 2, 2, "1"),
		ins(ledger.TypeDeposit, 7, 3, "1"),
	)
	require.NoError(t, err)

	var clients []ledger.ClientID
	for _, a := range res.Accounts {
		clients = append(clients, a.Client)
	}
	assert.Equal(t, []ledger.ClientID{2, 7, 30}, clients)
}

func TestPipeline_ExactDecimalOverManyCycles(t *testing.T) {
	var items []ledger.Instruction
	for i := 0; i < 1000; i++ {
		tx := ledger.TxID(2 * i)
		items = append(items,
			ins(ledger.TypeDeposit, 1, tx, "0.1"),
			ins(ledger.TypeWithdrawal, 1, tx+1, "0.0999"),
		)
	}
	res, _, err := runPipeline(t, items...)
	require.NoError(t, err)

	assertAccount(t, res.Accounts[0], "0.1", "0", "0.1", false)
	assert.Equal(t, 2000, res.Stats.Decoded)
}

func TestPipeline_Stats(t *testing.T) {
	res, _, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "10"),
		ins(ledger.TypeWithdrawal, 1, 2, "20"),
		ins(ledger.TypeDispute, 1, 1, ""),
		ins(ledger.TypeResolve, 1, 77, ""),
	)
	require.NoError(t, err)

	assert.Equal(t, "run-test", res.RunID)
	assert.Equal(t, 4, res.Stats.Decoded)
	assert.Equal(t, 2, res.Stats.Recorded)
	assert.Equal(t, 0, res.Stats.Overwritten)
	assert.Equal(t, 1, res.Stats.Applied[ledger.TypeDeposit])
	assert.Equal(t, 1, res.Stats.Applied[ledger.TypeDispute])
	assert.Equal(t, 1, res.Stats.Ignored[ledger.TypeWithdrawal])
	assert.Equal(t, 1, res.Stats.Ignored[ledger.TypeResolve])
	assert.Equal(t, 2, res.Stats.TotalIgnored())
}

func TestPipeline_InvalidTypeAbortsRun(t *testing.T) {
	res, sink, err := runPipeline(t,
		ins(ledger.TypeDeposit, 1, 1, "10"),
		ins("transfer", 1, 2, "5"),
		ins(ledger.TypeDeposit, 1, 3, "10"),
	)
	require.Error(t, err)

	assert.True(t, IsInvalidTypeError(err), "got %v", err)
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, stageRecord, pe.Stage)
	assert.Equal(t, int64(2), pe.Seq)

	assert.Zero(t, sink.calls, "sink must not be called after a fatal error")
	assert.Nil(t, res.Accounts)
}

// failingSource yields its items, then fails.
type failingSource struct {
	items []ledger.Instruction
	err   error
}

func (s *failingSource) Next() (ledger.Instruction, error) {
	if len(s.items) == 0 {
		return ledger.Instruction{}, s.err
	}
	in := s.items[0]
	s.items = s.items[1:]
	return in, nil
}

func TestPipeline_DecodeErrorAbortsRun(t *testing.T) {
	src := &failingSource{
		items: numbered(ins(ledger.TypeDeposit, 1, 1, "10")),
		err:   NewDecodeError(2, errors.New("bad amount")),
	}
	sink := &captureSink{}

	p := NewPipeline(WithLogger(quietLogger()), WithRunIDGenerator(NewFixedGenerator("r")))
	_, err := p.Run(context.Background(), src, sink)

	require.Error(t, err)
	assert.True(t, IsDecodeError(err), "got %v", err)
	assert.Zero(t, sink.calls)
}

func TestPipeline_SourceErrorBecomesDecodeError(t *testing.T) {
	src := &failingSource{err: fmt.Errorf("read input: %w", io.ErrUnexpectedEOF)}
	sink := &captureSink{}

	p := NewPipeline(WithLogger(quietLogger()), WithRunIDGenerator(NewFixedGenerator("r")))
	_, err := p.Run(context.Background(), src, sink)

	assert.True(t, IsDecodeError(err), "got %v", err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Zero(t, sink.calls)
}

func TestPipeline_EmissionError(t *testing.T) {
	sink := &captureSink{err: errors.New("disk full")}

	p := NewPipeline(WithLogger(quietLogger()), WithRunIDGenerator(NewFixedGenerator("r")))
	_, err := p.Run(context.Background(),
		NewSliceSource(numbered(ins(ledger.TypeDeposit, 1, 1, "1"))), sink)

	require.Error(t, err)
	assert.True(t, IsEmissionError(err), "got %v", err)
	assert.Equal(t, 1, sink.calls)
}

func TestPipeline_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &captureSink{}

	p := NewPipeline(WithLogger(quietLogger()), WithRunIDGenerator(NewFixedGenerator("r")))
	_, err := p.Run(ctx, NewSliceSource(numbered(ins(ledger.TypeDeposit, 1, 1, "1"))), sink)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sink.calls)
}

func TestPipeline_RunsAreIndependent(t *testing.T) {
	p := NewPipeline(WithLogger(quietLogger()), WithRunIDGenerator(NewFixedGenerator("a", "b")))
	src := func() Source {
		return NewSliceSource(numbered(ins(ledger.TypeDeposit, 1, 1, "5")))
	}

	first, err := p.Run(context.Background(), src(), SinkFunc(func(context.Context, string, []ledger.Account) error { return nil }))
	require.NoError(t, err)
	second, err := p.Run(context.Background(), src(), SinkFunc(func(context.Context, string, []ledger.Account) error { return nil }))
	require.NoError(t, err)

	assert.Equal(t, "a", first.RunID)
	assert.Equal(t, "b", second.RunID)
	assertAccount(t, second.Accounts[0], "5", "0", "5", false)
}
