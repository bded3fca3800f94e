package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txledger/internal/ledger"
)

// quietLogger discards all output so test runs stay readable.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ins builds an instruction; amount "" means absent.
func ins(typ ledger.InstructionType, client ledger.ClientID, tx ledger.TxID, amount string) ledger.Instruction {
	in := ledger.Instruction{Type: typ, Client: client, Tx: tx}
	if amount != "" {
		in.Amount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	return in
}

// numbered assigns row numbers the way the decoder would.
func numbered(items ...ledger.Instruction) []ledger.Instruction {
	for i := range items {
		items[i].Seq = int64(i + 1)
	}
	return items
}

// captureSink records every Emit call.
type captureSink struct {
	mu    sync.Mutex
	calls int
	runID string
	got   []ledger.Account
	err   error
}

func (s *captureSink) Emit(_ context.Context, runID string, accounts []ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.runID = runID
	s.got = accounts
	return s.err
}

func runPipeline(t *testing.T, items ...ledger.Instruction) (Result, *captureSink, error) {
	t.Helper()
	sink := &captureSink{}
	p := NewPipeline(
		WithLogger(quietLogger()),
		WithRunIDGenerator(NewFixedGenerator("run-test")),
	)
	res, err := p.Run(context.Background(), NewSliceSource(numbered(items...)), sink)
	return res, sink, err
}

func findAccount(t *testing.T, accounts []ledger.Account, client ledger.ClientID) ledger.Account {
	t.Helper()
	for _, a := range accounts {
		if a.Client == client {
			return a
		}
	}
	require.Failf(t, "account not found", "client %d", client)
	return ledger.Account{}
}

func assertAccount(t *testing.T, a ledger.Account, available, held, total string, locked bool) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(available).Equal(a.Available), "available: want %s, got %s", available, a.Available)
	assert.True(t, decimal.RequireFromString(held).Equal(a.Held), "held: want %s, got %s", held, a.Held)
	assert.True(t, decimal.RequireFromString(total).Equal(a.Total), "total: want %s, got %s", total, a.Total)
	assert.Equal(t, locked, a.Locked, "locked")
	assert.True(t, a.Balanced(), "total must equal available + held")
}
