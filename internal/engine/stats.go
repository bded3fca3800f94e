package engine

import (
	"log/slog"

	"github.com/roach88/txledger/internal/ledger"
)

// Stats counts what happened to the instructions of one run.
//
// Ignored instructions are business-rule no-ops (insufficient funds, locked
// account, unknown or foreign transaction). They are counted for the audit
// log, never reported as errors.
type Stats struct {
	Decoded     int
	Recorded    int
	Overwritten int
	Applied     map[ledger.InstructionType]int
	Ignored     map[ledger.InstructionType]int
}

func newStats() Stats {
	return Stats{
		Applied: make(map[ledger.InstructionType]int),
		Ignored: make(map[ledger.InstructionType]int),
	}
}

// TotalIgnored returns the number of ignored instructions of every type.
func (s Stats) TotalIgnored() int {
	n := 0
	for _, c := range s.Ignored {
		n += c
	}
	return n
}

// LogValue groups the counters for slog.
func (s Stats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("decoded", s.Decoded),
		slog.Int("recorded", s.Recorded),
		slog.Int("overwritten", s.Overwritten),
	}
	for _, t := range knownTypes {
		if n := s.Applied[t]; n > 0 {
			attrs = append(attrs, slog.Int(string(t)+"_applied", n))
		}
		if n := s.Ignored[t]; n > 0 {
			attrs = append(attrs, slog.Int(string(t)+"_ignored", n))
		}
	}
	return slog.GroupValue(attrs...)
}

// knownTypes fixes the order counters are logged in.
var knownTypes = []ledger.InstructionType{
	ledger.TypeDeposit,
	ledger.TypeWithdrawal,
	ledger.TypeDispute,
	ledger.TypeResolve,
	ledger.TypeChargeback,
}
