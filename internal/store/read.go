package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/txledger/internal/ledger"
)

// Run is a stored run header.
type Run struct {
	ID           string
	CreatedAt    time.Time
	AccountCount int
}

// Accounts returns the account snapshot of a run, ordered by client id.
//
// Returns an empty slice (not nil) if the run has no accounts or does not
// exist.
func (s *Store) Accounts(ctx context.Context, runID string) ([]ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT client, available, held, total, locked
		FROM account_snapshots
		WHERE run_id = %s
		ORDER BY client ASC
	`, s.dialect.bind(1)), runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	accounts := []ledger.Account{}
	for rows.Next() {
		var (
			client int64
			a      ledger.Account
		)
		if err := rows.Scan(&client, &a.Available, &a.Held, &a.Total, &a.Locked); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		a.Client = ledger.ClientID(client)
		accounts = append(accounts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return accounts, nil
}

// Runs returns every stored run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, account_count
		FROM runs
		ORDER BY created_at ASC, run_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.AccountCount); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
