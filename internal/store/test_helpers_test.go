package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/txledger/internal/ledger"
	"github.com/roach88/txledger/internal/testutil"
)

// createTestStore creates a new SQLite store in a temp dir with a fixed clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	s.now = testutil.NewTickingClock(time.Second).Now
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestAccount builds a balanced account from decimal strings.
func createTestAccount(client ledger.ClientID, available, held string, locked bool) ledger.Account {
	a := ledger.Account{
		Client:    client,
		Available: decimal.RequireFromString(available),
		Held:      decimal.RequireFromString(held),
		Locked:    locked,
	}
	a.Total = a.Available.Add(a.Held)
	return a
}
