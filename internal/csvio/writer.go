package csvio

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/roach88/txledger/internal/ledger"
)

// AccountHeader is the header row written by CSVWriter.
var AccountHeader = []string{"client", "available", "held", "total", "locked"}

// CSVWriter writes account state as CSV. It implements engine.Sink.
type CSVWriter struct {
	w io.Writer
}

// NewCSVWriter creates a CSV sink writing to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

// Emit writes the header and one row per account, in the order given.
func (c *CSVWriter) Emit(_ context.Context, _ string, accounts []ledger.Account) error {
	cw := csv.NewWriter(c.w)
	if err := cw.Write(AccountHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, a := range accounts {
		row := []string{
			strconv.FormatUint(uint64(a.Client), 10),
			ledger.FormatAmount(a.Available),
			ledger.FormatAmount(a.Held),
			ledger.FormatAmount(a.Total),
			strconv.FormatBool(a.Locked),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write client %d: %w", a.Client, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// AccountJSON is the JSON form of an account. Amounts are strings so no
// precision is lost to float conversion.
type AccountJSON struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// ToAccountJSON converts an account.
func ToAccountJSON(a ledger.Account) AccountJSON {
	return AccountJSON{
		Client:    uint16(a.Client),
		Available: ledger.FormatAmount(a.Available),
		Held:      ledger.FormatAmount(a.Held),
		Total:     ledger.FormatAmount(a.Total),
		Locked:    a.Locked,
	}
}

// JSONWriter writes account state as an indented JSON array.
// It implements engine.Sink.
type JSONWriter struct {
	w io.Writer
}

// NewJSONWriter creates a JSON sink writing to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

// Emit writes accounts as a JSON array. An empty run writes [].
func (j *JSONWriter) Emit(_ context.Context, _ string, accounts []ledger.Account) error {
	out := make([]AccountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, ToAccountJSON(a))
	}

	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	return nil
}
