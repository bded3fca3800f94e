// Package ledger holds the state entities of a batch run and the two tables
// that own them.
//
// # Entities
//
//   - Instruction: one decoded input row (type, client, tx, optional amount).
//     Immutable once created.
//   - TransactionRecord: the recorded amount and owner of a deposit or
//     withdrawal, plus its dispute flag.
//   - Account: per-client balances (available, held, total) and the lock flag.
//
// # Invariants
//
// Every Account mutation keeps:
//   - Total == Available + Held
//   - Available >= 0 and Held >= 0
//   - Locked never reverts to false once set
//
// Mutations that would break an invariant are refused and reported as
// "not applied" (false). They are never errors: one disallowed instruction
// must not halt processing of the rest of the batch.
//
// # Tables and Locking
//
// Ledger holds two maps, each behind its own mutex:
//   - transactions: TransactionRecord by transaction id
//   - accounts: Account by client id
//
// Operations touching both tables acquire the transaction lock first, then
// the account lock. No lock is held while a caller waits on anything else.
//
// # Money
//
// All amounts are shopspring/decimal values rounded to four fractional
// digits at ingestion (see RoundAmount). Binary floating point is never used.
package ledger
