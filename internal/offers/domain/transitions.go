package domain

import (
	"fmt"
	"io"
	"os"

	"flyttbas_backend/platform/apperr"

	"gopkg.in/yaml.v3"
)

// Transition modes.
const (
	ModeFree   = "free"
	ModeStrict = "strict"
)

// strictTable allows forward moves plus cancellation.
var strictTable = map[JobStatus][]JobStatus{
	JobConfirmed:  {JobScheduled, JobInProgress, JobCompleted, JobCancelled},
	JobScheduled:  {JobInProgress, JobCompleted, JobCancelled},
	JobInProgress: {JobCompleted, JobCancelled},
}

// TransitionPolicy decides which job status changes are allowed. A nil table
// allows any move between distinct states. Terminal states never have exits.
type TransitionPolicy struct {
	table map[JobStatus]map[JobStatus]bool
}

// FreePolicy allows any non-terminal job to move to any other state.
func FreePolicy() *TransitionPolicy {
	return &TransitionPolicy{}
}

// StrictPolicy allows forward-only moves plus cancellation.
func StrictPolicy() *TransitionPolicy {
	p, _ := policyFromTable(strictTable)
	return p
}

// NewTransitionPolicy builds the policy for mode. A non-empty file replaces
// the table with the YAML document it holds.
func NewTransitionPolicy(mode, file string) (*TransitionPolicy, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open job transition policy: %w", err)
		}
		defer func() { _ = f.Close() }()
		return LoadTransitionPolicy(f)
	}

	switch mode {
	case "", ModeFree:
		return FreePolicy(), nil
	case ModeStrict:
		return StrictPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown job transition mode %q", mode)
	}
}

type policyDocument struct {
	Transitions map[string][]string `yaml:"transitions"`
}

// LoadTransitionPolicy reads a YAML table of the form
//
//	transitions:
//	  confirmed: [scheduled, cancelled]
//	  scheduled: [in_progress, cancelled]
func LoadTransitionPolicy(r io.Reader) (*TransitionPolicy, error) {
	var doc policyDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode job transition policy: %w", err)
	}

	table := make(map[JobStatus][]JobStatus, len(doc.Transitions))
	for from, targets := range doc.Transitions {
		src, err := ParseJobStatus(from)
		if err != nil {
			return nil, err
		}
		for _, to := range targets {
			dst, err := ParseJobStatus(to)
			if err != nil {
				return nil, err
			}
			table[src] = append(table[src], dst)
		}
	}
	return policyFromTable(table)
}

func policyFromTable(table map[JobStatus][]JobStatus) (*TransitionPolicy, error) {
	p := &TransitionPolicy{table: make(map[JobStatus]map[JobStatus]bool, len(table))}
	for from, targets := range table {
		if from.IsTerminal() {
			return nil, fmt.Errorf("job status %s is terminal and cannot have transitions", from)
		}
		p.table[from] = make(map[JobStatus]bool, len(targets))
		for _, to := range targets {
			p.table[from][to] = true
		}
	}
	return p, nil
}

// Validate returns a Validation error when from → to is not allowed.
func (p *TransitionPolicy) Validate(from, to JobStatus) error {
	if from == to {
		return apperr.Validationf("job is already %s", to)
	}
	if from.IsTerminal() {
		return apperr.Validationf("job is %s", from)
	}
	if p == nil || p.table == nil {
		return nil
	}
	if !p.table[from][to] {
		return apperr.Validationf("job cannot move from %s to %s", from, to)
	}
	return nil
}
