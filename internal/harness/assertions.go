package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/txledger/internal/engine"
	"github.com/roach88/txledger/internal/ledger"
)

// Expectation types, used to categorize AssertionErrors.
const (
	AssertError    = "error"
	AssertAccounts = "accounts"
	AssertAccount  = "account"
	AssertRecord   = "record"
	AssertIgnored  = "ignored"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Expectation type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateExpectations checks result against expect.
// Returns one message per failed expectation.
func EvaluateExpectations(result *Result, expect Expectation) []string {
	var errs []error

	if err := assertError(result.RunErr, expect.Error); err != nil {
		// Nothing else is meaningful once the run went the wrong way.
		return []string{err.Error()}
	}

	if result.RunErr == nil {
		errs = append(errs, assertAccounts(result.Accounts, expect.Accounts)...)
		errs = append(errs, assertRecords(result.Records, expect.Records)...)
		errs = append(errs, assertIgnored(result.Stats, expect.Ignored)...)
	}

	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

func assertError(runErr error, want string) error {
	got := ""
	if runErr != nil {
		got = string(engine.KindOf(runErr))
		if got == "" {
			got = runErr.Error()
		}
	}
	if got == want {
		return nil
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: orNone(want),
		Actual:   orNone(got),
	}
}

func assertAccounts(actual []ledger.Account, expected []AccountExpect) []error {
	var errs []error

	byClient := accountsByClient(actual)
	for _, want := range expected {
		got, ok := byClient[want.Client]
		if !ok {
			errs = append(errs, &AssertionError{
				Type:     AssertAccount,
				Expected: formatExpectedAccount(want),
				Actual:   fmt.Sprintf("no account for client %d", want.Client),
			})
			continue
		}
		if !accountMatches(got, want) {
			errs = append(errs, &AssertionError{
				Type:     AssertAccount,
				Expected: formatExpectedAccount(want),
				Actual:   formatAccount(got),
			})
		}
		delete(byClient, want.Client)
	}

	if len(byClient) > 0 {
		extra := make([]int, 0, len(byClient))
		for c := range byClient {
			extra = append(extra, int(c))
		}
		sort.Ints(extra)
		errs = append(errs, &AssertionError{
			Type:     AssertAccounts,
			Expected: fmt.Sprintf("%d account(s)", len(expected)),
			Actual:   fmt.Sprintf("unexpected account(s) for client(s) %v", extra),
		})
	}

	return errs
}

func assertRecords(actual map[ledger.TxID]ledger.TransactionRecord, expected []RecordExpect) []error {
	var errs []error
	for _, want := range expected {
		got, ok := actual[want.Tx]
		if !ok {
			errs = append(errs, &AssertionError{
				Type:     AssertRecord,
				Expected: formatExpectedRecord(want),
				Actual:   fmt.Sprintf("no record for tx %d", want.Tx),
			})
			continue
		}
		if got.Client != want.Client || !amountEqual(got.Amount, want.Amount) || got.Disputed != want.Disputed {
			errs = append(errs, &AssertionError{
				Type:     AssertRecord,
				Expected: formatExpectedRecord(want),
				Actual: fmt.Sprintf("tx=%d client=%d amount=%s disputed=%t",
					want.Tx, got.Client, ledger.FormatAmount(got.Amount), got.Disputed),
			})
		}
	}
	return errs
}

func assertIgnored(stats engine.Stats, expected map[string]int) []error {
	types := make([]string, 0, len(expected))
	for t := range expected {
		types = append(types, t)
	}
	sort.Strings(types)

	var errs []error
	for _, t := range types {
		got := stats.Ignored[ledger.InstructionType(t)]
		if got != expected[t] {
			errs = append(errs, &AssertionError{
				Type:     AssertIgnored,
				Expected: fmt.Sprintf("%d ignored %s", expected[t], t),
				Actual:   fmt.Sprintf("%d ignored %s", got, t),
			})
		}
	}
	return errs
}

func accountMatches(got ledger.Account, want AccountExpect) bool {
	return amountEqual(got.Available, want.Available) &&
		amountEqual(got.Held, want.Held) &&
		amountEqual(got.Total, want.Total) &&
		got.Locked == want.Locked
}

// amountEqual compares numerically, so "20", "20.0" and "20.0000" all match.
func amountEqual(got decimal.Decimal, want string) bool {
	w, err := decimal.NewFromString(strings.TrimSpace(want))
	if err != nil {
		return false
	}
	return got.Equal(w)
}

func formatAccount(a ledger.Account) string {
	return fmt.Sprintf("client=%d available=%s held=%s total=%s locked=%t",
		a.Client, ledger.FormatAmount(a.Available), ledger.FormatAmount(a.Held), ledger.FormatAmount(a.Total), a.Locked)
}

func formatExpectedAccount(a AccountExpect) string {
	return fmt.Sprintf("client=%d available=%s held=%s total=%s locked=%t",
		a.Client, a.Available, a.Held, a.Total, a.Locked)
}

func formatExpectedRecord(r RecordExpect) string {
	return fmt.Sprintf("tx=%d client=%d amount=%s disputed=%t", r.Tx, r.Client, r.Amount, r.Disputed)
}

func orNone(s string) string {
	if s == "" {
		return "success"
	}
	return s
}
