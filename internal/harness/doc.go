// Package harness runs ledger scenarios through the real pipeline and checks
// their outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: dispute_then_chargeback
//	description: "A charged-back deposit locks the account"
//	instructions:
//	  - {type: deposit, client: 2, tx: 3, amount: "20.00"}
//	  - {type: dispute, client: 2, tx: 3}
//	  - {type: chargeback, client: 2, tx: 3}
//	expect:
//	  accounts:
//	    - {client: 2, available: "0", held: "0", total: "0", locked: true}
//	  records:
//	    - {tx: 3, client: 2, amount: "20", disputed: false}
//	  ignored: {deposit: 0}
//
// Unknown keys are rejected.
//
// # Expectations
//
//   - error: the PipelineError kind the run must fail with; empty means success
//   - accounts: the complete account table (every account must be listed)
//   - records: a subset of the transaction table
//   - ignored: per-type counts of ignored (no-op) instructions
//
// Amounts compare numerically, so "20" matches "20.0000".
//
// # Golden Files
//
// Result.Output holds the CSV the run emitted, or "error: KIND" when it
// failed. RunWithGolden compares it with testdata/golden/<name>.golden using
// goldie. Each scenario runs with the fixed run id "scenario-<name>".
package harness
