package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClientID identifies a client account.
type ClientID uint16

// TxID identifies a transaction.
type TxID uint32

// InstructionType is the type tag of an instruction.
//
// Tags outside the five known values are carried as-is so that the stages,
// not the decoder, decide they are invalid.
type InstructionType string

const (
	TypeDeposit    InstructionType = "deposit"
	TypeWithdrawal InstructionType = "withdrawal"
	TypeDispute    InstructionType = "dispute"
	TypeResolve    InstructionType = "resolve"
	TypeChargeback InstructionType = "chargeback"
)

// Known reports whether t is one of the five supported tags.
func (t InstructionType) Known() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeDispute, TypeResolve, TypeChargeback:
		return true
	}
	return false
}

// Recordable reports whether instructions of this type create a
// TransactionRecord (deposit and withdrawal).
func (t InstructionType) Recordable() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

// Instruction is one decoded input record.
type Instruction struct {
	// Seq is the 1-based data row the instruction was decoded from.
	// Zero when the instruction was built in code.
	Seq int64

	Type   InstructionType
	Client ClientID
	Tx     TxID

	// Amount is invalid (absent) when the input field was empty.
	Amount decimal.NullDecimal
}

// Value returns the fixed-point amount carried by the instruction:
// zero when absent, otherwise rounded to AmountScale digits.
func (in Instruction) Value() decimal.Decimal {
	if !in.Amount.Valid {
		return decimal.Zero
	}
	return RoundAmount(in.Amount.Decimal)
}

// String renders the instruction for logs and error messages.
func (in Instruction) String() string {
	if in.Amount.Valid {
		return fmt.Sprintf("%s(client=%d, tx=%d, amount=%s)", in.Type, in.Client, in.Tx, in.Amount.Decimal.String())
	}
	return fmt.Sprintf("%s(client=%d, tx=%d)", in.Type, in.Client, in.Tx)
}
