package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/txledger/internal/engine"
	"github.com/roach88/txledger/internal/ledger"
)

// Scenario defines a ledger test scenario: an instruction stream and the
// outcome it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Instructions is the input stream, in order. Row numbers are assigned
	// from 1 as the CSV decoder would.
	Instructions []Step `yaml:"instructions"`

	// Expect describes the outcome.
	Expect Expectation `yaml:"expect"`
}

// Step is one instruction of a scenario.
type Step struct {
	Type   string          `yaml:"type"`
	Client ledger.ClientID `yaml:"client"`
	Tx     ledger.TxID     `yaml:"tx"`

	// Amount is a decimal string; empty means absent.
	Amount string `yaml:"amount,omitempty"`
}

// Expectation is the expected outcome of a scenario.
type Expectation struct {
	// Error is the expected PipelineError kind (e.g. INVALID_TRANSACTION_TYPE).
	// Empty means the run must succeed.
	Error string `yaml:"error,omitempty"`

	// Accounts is the complete expected account table of a successful run,
	// in any order. Omitting it expects no accounts at all.
	Accounts []AccountExpect `yaml:"accounts,omitempty"`

	// Records lists transaction records to check. Records not listed are
	// not checked.
	Records []RecordExpect `yaml:"records,omitempty"`

	// Ignored maps instruction types to the expected number of ignored
	// instructions of that type. Types not listed are not checked.
	Ignored map[string]int `yaml:"ignored,omitempty"`
}

// AccountExpect is the expected state of one account.
type AccountExpect struct {
	Client    ledger.ClientID `yaml:"client"`
	Available string          `yaml:"available"`
	Held      string          `yaml:"held"`
	Total     string          `yaml:"total"`
	Locked    bool            `yaml:"locked"`
}

// RecordExpect is the expected state of one transaction record.
type RecordExpect struct {
	Tx       ledger.TxID     `yaml:"tx"`
	Client   ledger.ClientID `yaml:"client"`
	Amount   string          `yaml:"amount"`
	Disputed bool            `yaml:"disputed"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "instruction:" vs "instructions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	// An empty stream is a valid batch, but an absent key is more likely a typo.
	if s.Instructions == nil {
		return fmt.Errorf("instructions list is required (use [] for an empty batch)")
	}

	for i, step := range s.Instructions {
		if step.Type == "" {
			return fmt.Errorf("instructions[%d]: type is required", i)
		}
		if _, err := ledger.ParseAmount(step.Amount); err != nil {
			return fmt.Errorf("instructions[%d]: %w", i, err)
		}
	}

	switch engine.ErrorKind(s.Expect.Error) {
	case "", engine.KindDecode, engine.KindInvalidType, engine.KindForwarding, engine.KindEmission:
	default:
		return fmt.Errorf("expect.error: unknown error kind %q", s.Expect.Error)
	}

	if s.Expect.Error != "" && len(s.Expect.Accounts) > 0 {
		return fmt.Errorf("expect.accounts cannot be combined with expect.error: failed runs emit nothing")
	}

	seen := make(map[ledger.ClientID]bool)
	for i, a := range s.Expect.Accounts {
		if seen[a.Client] {
			return fmt.Errorf("expect.accounts[%d]: duplicate client %d", i, a.Client)
		}
		seen[a.Client] = true
		for _, v := range []string{a.Available, a.Held, a.Total} {
			if err := requireAmount(v); err != nil {
				return fmt.Errorf("expect.accounts[%d]: %w", i, err)
			}
		}
	}

	for i, r := range s.Expect.Records {
		if err := requireAmount(r.Amount); err != nil {
			return fmt.Errorf("expect.records[%d]: %w", i, err)
		}
	}

	for typ := range s.Expect.Ignored {
		if !ledger.InstructionType(typ).Known() {
			return fmt.Errorf("expect.ignored: unknown instruction type %q", typ)
		}
	}

	return nil
}

// requireAmount checks that an expected amount is present and parses.
func requireAmount(raw string) error {
	amount, err := ledger.ParseAmount(raw)
	if err != nil {
		return err
	}
	if !amount.Valid {
		return fmt.Errorf("amount is required")
	}
	return nil
}

// instructions converts the scenario steps into numbered instructions.
func (s *Scenario) instructions() ([]ledger.Instruction, error) {
	out := make([]ledger.Instruction, 0, len(s.Instructions))
	for i, step := range s.Instructions {
		amount, err := ledger.ParseAmount(step.Amount)
		if err != nil {
			return nil, fmt.Errorf("instructions[%d]: %w", i, err)
		}
		out = append(out, ledger.Instruction{
			Seq:    int64(i + 1),
			Type:   ledger.InstructionType(step.Type),
			Client: step.Client,
			Tx:     step.Tx,
			Amount: amount,
		})
	}
	return out, nil
}
