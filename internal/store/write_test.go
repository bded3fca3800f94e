package store

import (
	"context"
	"testing"

	"github.com/roach88/txledger/internal/ledger"
	"github.com/roach88/txledger/internal/testutil"
)

func TestEmit_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := []ledger.Account{
		createTestAccount(1, "1.5", "0", false),
		createTestAccount(2, "0", "20.1234", false),
		createTestAccount(3, "0", "0", true),
	}

	if err := s.Emit(ctx, "run-1", want); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}

	got, err := s.Accounts(ctx, "run-1")
	if err != nil {
		t.Fatalf("Accounts() failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d accounts, want %d", len(got), len(want))
	}

	for i := range want {
		w, g := want[i], got[i]
		if g.Client != w.Client {
			t.Errorf("[%d] client = %d, want %d", i, g.Client, w.Client)
		}
		if !g.Available.Equal(w.Available) || !g.Held.Equal(w.Held) || !g.Total.Equal(w.Total) {
			t.Errorf("[%d] amounts = %s/%s/%s, want %s/%s/%s", i,
				g.Available, g.Held, g.Total, w.Available, w.Held, w.Total)
		}
		if g.Locked != w.Locked {
			t.Errorf("[%d] locked = %v, want %v", i, g.Locked, w.Locked)
		}
	}
}

func TestEmit_StoresFourDecimalPlaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Emit(ctx, "run-1", []ledger.Account{createTestAccount(1, "2", "0", false)}); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}

	var available string
	if err := s.db.QueryRow("SELECT available FROM account_snapshots WHERE run_id = 'run-1'").Scan(&available); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if available != "2.0000" {
		t.Errorf("available = %q, want 2.0000", available)
	}
}

func TestEmit_EmptyRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.Emit(ctx, "empty", nil); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}

	got, err := s.Accounts(ctx, "empty")
	if err != nil {
		t.Fatalf("Accounts() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Accounts() = %v, want empty non-nil slice", got)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs() failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "empty" || runs[0].AccountCount != 0 {
		t.Errorf("Runs() = %+v, want one empty run", runs)
	}
}

func TestEmit_DuplicateRunIsAtomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := []ledger.Account{createTestAccount(1, "1", "0", false)}
	if err := s.Emit(ctx, "run-1", first); err != nil {
		t.Fatalf("Emit() failed: %v", err)
	}

	second := []ledger.Account{
		createTestAccount(1, "9", "0", false),
		createTestAccount(2, "9", "0", false),
	}
	if err := s.Emit(ctx, "run-1", second); err == nil {
		t.Fatal("expected error for duplicate run id, got nil")
	}

	got, err := s.Accounts(ctx, "run-1")
	if err != nil {
		t.Fatalf("Accounts() failed: %v", err)
	}
	if len(got) != 1 || got[0].Available.String() != "1" {
		t.Errorf("snapshot changed after failed emit: %+v", got)
	}
}

func TestEmit_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Emit(ctx, "run-1", []ledger.Account{createTestAccount(1, "1", "0", false)}); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}

	runs, err := s.Runs(context.Background())
	if err != nil {
		t.Fatalf("Runs() failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs after cancelled emit, want 0", len(runs))
	}
}

func TestRuns_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "c"} {
		if err := s.Emit(ctx, id, nil); err != nil {
			t.Fatalf("Emit(%s) failed: %v", id, err)
		}
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs() failed: %v", err)
	}

	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
		if r.CreatedAt.Before(testutil.Epoch) {
			t.Errorf("run %s created_at = %v, want clock time", r.ID, r.CreatedAt)
		}
	}
	if len(ids) != 3 || ids[0] != "b" || ids[1] != "a" || ids[2] != "c" {
		t.Errorf("run order = %v, want [b a c] (creation order)", ids)
	}
}

func TestAccounts_UnknownRun(t *testing.T) {
	s := createTestStore(t)

	got, err := s.Accounts(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Accounts() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d accounts for unknown run, want 0", len(got))
	}
}
