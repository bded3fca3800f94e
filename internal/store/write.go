package store

import (
	"context"
	"fmt"

	"github.com/roach88/txledger/internal/ledger"
)

// Emit writes the run and its account snapshot inside one transaction.
// Either the whole snapshot is stored or none of it is.
//
// A run id can be written only once; a second Emit for the same run fails.
func (s *Store) Emit(ctx context.Context, runID string, accounts []ledger.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	b := s.dialect.bind
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO runs (run_id, created_at, account_count) VALUES (%s, %s, %s)`, b(1), b(2), b(3)),
		runID,
		s.now().UTC(),
		len(accounts),
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO account_snapshots
		(run_id, client, available, held, total, locked)
		VALUES (%s, %s, %s, %s, %s, %s)
	`, b(1), b(2), b(3), b(4), b(5), b(6)))
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range accounts {
		_, err := stmt.ExecContext(ctx,
			runID,
			int64(a.Client),
			ledger.FormatAmount(a.Available),
			ledger.FormatAmount(a.Held),
			ledger.FormatAmount(a.Total),
			a.Locked,
		)
		if err != nil {
			return fmt.Errorf("write snapshot of client %d: %w", a.Client, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}
