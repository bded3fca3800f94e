package ledger

import "github.com/shopspring/decimal"

// TransactionRecord is the stored form of a deposit or withdrawal that
// dispute, resolve and chargeback refer back to.
//
// Lifecycle:
//
//	Recorded --dispute--> Disputed --resolve----> Recorded
//	                               --chargeback-> Recorded (owning account locked)
type TransactionRecord struct {
	Amount   decimal.Decimal
	Client   ClientID
	Disputed bool
}

// NewTransactionRecord builds the record for a recordable instruction.
func NewTransactionRecord(in Instruction) TransactionRecord {
	return TransactionRecord{
		Amount: in.Value(),
		Client: in.Client,
	}
}

// OwnedBy reports whether the record belongs to client.
func (r *TransactionRecord) OwnedBy(client ClientID) bool {
	return r.Client == client
}

// MarkDisputed moves the record into the disputed state.
func (r *TransactionRecord) MarkDisputed() {
	r.Disputed = true
}

// ClearDispute moves the record back to the recorded state.
func (r *TransactionRecord) ClearDispute() {
	r.Disputed = false
}
