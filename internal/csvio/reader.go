// Package csvio decodes instruction CSV into the engine's instruction stream
// and renders final account state as CSV or JSON.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/txledger/internal/engine"
	"github.com/roach88/txledger/internal/ledger"
)

// Column names of the instruction CSV header.
const (
	ColumnType   = "type"
	ColumnClient = "client"
	ColumnTx     = "tx"
	ColumnAmount = "amount"
)

// columns holds the field index of each header column; -1 when absent.
type columns struct {
	typ, client, tx, amount int
}

// Reader decodes instructions from header-bearing CSV.
//
// Fields are whitespace-trimmed and rows may omit the trailing amount field.
// Every failure is an engine DECODE_ERROR carrying the data row number.
// Reader implements engine.Source.
type Reader struct {
	csv  *csv.Reader
	cols columns
	row  int64

	headerRead bool
	done       bool
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	return &Reader{csv: cr}
}

// Next returns the next instruction, or io.EOF at end of input.
// After the first error every later call returns io.EOF.
func (r *Reader) Next() (ledger.Instruction, error) {
	if r.done {
		return ledger.Instruction{}, io.EOF
	}

	if !r.headerRead {
		if err := r.readHeader(); err != nil {
			r.done = true
			return ledger.Instruction{}, err
		}
	}

	record, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		r.done = true
		return ledger.Instruction{}, io.EOF
	}
	r.row++
	if err != nil {
		r.done = true
		return ledger.Instruction{}, engine.NewDecodeError(r.row, fmt.Errorf("read row: %w", err))
	}

	in, err := r.decode(record)
	if err != nil {
		r.done = true
		return ledger.Instruction{}, engine.NewDecodeError(r.row, err)
	}
	return in, nil
}

func (r *Reader) readHeader() error {
	r.headerRead = true

	header, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	if err != nil {
		return engine.NewDecodeError(0, fmt.Errorf("read header: %w", err))
	}

	r.cols = columns{typ: -1, client: -1, tx: -1, amount: -1}
	for i, name := range header {
		switch normalize(name) {
		case ColumnType:
			r.cols.typ = i
		case ColumnClient:
			r.cols.client = i
		case ColumnTx:
			r.cols.tx = i
		case ColumnAmount:
			r.cols.amount = i
		}
	}

	var missing []string
	if r.cols.typ < 0 {
		missing = append(missing, ColumnType)
	}
	if r.cols.client < 0 {
		missing = append(missing, ColumnClient)
	}
	if r.cols.tx < 0 {
		missing = append(missing, ColumnTx)
	}
	if len(missing) > 0 {
		return engine.NewDecodeError(0, fmt.Errorf("header missing column(s) %s", strings.Join(missing, ", ")))
	}
	return nil
}

func (r *Reader) decode(record []string) (ledger.Instruction, error) {
	in := ledger.Instruction{Seq: r.row}

	typ, ok := field(record, r.cols.typ)
	if !ok || typ == "" {
		return in, errors.New("missing type")
	}
	in.Type = ledger.InstructionType(normalize(typ))

	raw, _ := field(record, r.cols.client)
	client, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return in, fmt.Errorf("parse client %q: %w", raw, err)
	}
	in.Client = ledger.ClientID(client)

	raw, _ = field(record, r.cols.tx)
	tx, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return in, fmt.Errorf("parse tx %q: %w", raw, err)
	}
	in.Tx = ledger.TxID(tx)

	if raw, ok := field(record, r.cols.amount); ok {
		in.Amount, err = ledger.ParseAmount(raw)
		if err != nil {
			return in, err
		}
	}

	return in, nil
}

// field returns the trimmed value at idx, reporting false when the row is
// too short or the column does not exist.
func field(record []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(record) {
		return "", false
	}
	return strings.TrimSpace(record[idx]), true
}

// normalize folds a header name or type tag into its canonical form.
// A leading byte order mark is dropped.
func normalize(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return norm.NFC.String(strings.TrimSpace(s))
}
