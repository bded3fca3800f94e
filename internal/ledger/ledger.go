package ledger

import (
	"sort"
	"sync"
)

// Ledger owns the transaction table and the account table of one run.
//
// Each table has its own mutex. Methods that need both take the transaction
// lock first and the account lock second.
//
// Ledger is safe for concurrent use. Callbacks passed to the With* methods
// run with the relevant locks held and must not call back into the Ledger.
type Ledger struct {
	txMu         sync.Mutex
	transactions map[TxID]*TransactionRecord

	accountMu sync.Mutex
	accounts  map[ClientID]*Account
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		transactions: make(map[TxID]*TransactionRecord),
		accounts:     make(map[ClientID]*Account),
	}
}

// PutRecord upserts the record stored under tx.
// Returns true when an existing record was overwritten.
func (l *Ledger) PutRecord(tx TxID, rec TransactionRecord) (replaced bool) {
	l.txMu.Lock()
	defer l.txMu.Unlock()

	_, replaced = l.transactions[tx]
	r := rec
	l.transactions[tx] = &r
	return replaced
}

// Record returns a copy of the record stored under tx.
func (l *Ledger) Record(tx TxID) (TransactionRecord, bool) {
	l.txMu.Lock()
	defer l.txMu.Unlock()

	r, ok := l.transactions[tx]
	if !ok {
		return TransactionRecord{}, false
	}
	return *r, true
}

// Records returns a copy of the transaction table.
func (l *Ledger) Records() map[TxID]TransactionRecord {
	l.txMu.Lock()
	defer l.txMu.Unlock()

	out := make(map[TxID]TransactionRecord, len(l.transactions))
	for tx, r := range l.transactions {
		out[tx] = *r
	}
	return out
}

// RecordCount returns the number of recorded transactions.
func (l *Ledger) RecordCount() int {
	l.txMu.Lock()
	defer l.txMu.Unlock()
	return len(l.transactions)
}

// WithAccount runs fn on the account of client, creating an empty one first
// when it does not exist yet. Returns fn's result.
func (l *Ledger) WithAccount(client ClientID, fn func(*Account) bool) bool {
	l.accountMu.Lock()
	defer l.accountMu.Unlock()

	return fn(l.accountLocked(client))
}

// WithRecordAndAccount runs fn on the record stored under tx and the account
// of the record's owner. Neither is created: when the record or the account
// does not exist, fn is not called and false is returned.
//
// Lock order: transactions, then accounts.
func (l *Ledger) WithRecordAndAccount(tx TxID, fn func(*TransactionRecord, *Account) bool) bool {
	l.txMu.Lock()
	defer l.txMu.Unlock()

	rec, ok := l.transactions[tx]
	if !ok {
		return false
	}

	l.accountMu.Lock()
	defer l.accountMu.Unlock()

	acct, ok := l.accounts[rec.Client]
	if !ok {
		return false
	}

	return fn(rec, acct)
}

// Account returns a copy of the account of client.
func (l *Ledger) Account(client ClientID) (Account, bool) {
	l.accountMu.Lock()
	defer l.accountMu.Unlock()

	a, ok := l.accounts[client]
	if !ok {
		return Account{}, false
	}
	return *a, true
}

// Accounts returns a copy of every account, sorted by client id.
func (l *Ledger) Accounts() []Account {
	l.accountMu.Lock()
	out := make([]Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, *a)
	}
	l.accountMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Client < out[j].Client
	})
	return out
}

// accountLocked returns the account of client, creating it if needed.
// Caller must hold accountMu.
func (l *Ledger) accountLocked(client ClientID) *Account {
	a, ok := l.accounts[client]
	if !ok {
		a = NewAccount(client)
		l.accounts[client] = a
	}
	return a
}
