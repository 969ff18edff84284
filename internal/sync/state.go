package sync

import "github.com/schaermu/rulesync/internal/git"

// Action is the decision taken for a single file
type Action string

const (
	ActionAdded     Action = "added"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
)

// Decision records what happened to one file of an asset directory
type Decision struct {
	Name   string
	Action Action
}

// Outcome summarizes a single directory sync. It is computed fresh on every
// run and never persisted.
type Outcome struct {
	Label     string
	Added     int
	Updated   int
	Unchanged int
	Decisions []Decision // in processing order
}

func (o *Outcome) record(name string, action Action) {
	switch action {
	case ActionAdded:
		o.Added++
	case ActionUpdated:
		o.Updated++
	case ActionUnchanged:
		o.Unchanged++
	}
	o.Decisions = append(o.Decisions, Decision{Name: name, Action: action})
}

// Changed reports whether any file was added or updated
func (o Outcome) Changed() bool {
	return o.Added > 0 || o.Updated > 0
}

// Disposition is the result of the config guard
type Disposition string

const (
	Copied               Disposition = "copied"
	SkippedExisting      Disposition = "skipped-existing"
	SkippedMissingSource Disposition = "skipped-missing-source"
	// Disabled means no config file is configured, so the guard never ran.
	Disabled Disposition = "disabled"
)

// State is a step of the run state machine
type State string

const (
	StateInit           State = "init"
	StateVersionChecked State = "version-checked"
	StatePropagating    State = "propagating"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// Report aggregates everything a run did
type Report struct {
	State    State
	Version  git.Advance
	UpToDate bool // true when the run stopped because the source had not moved
	DryRun   bool
	Outcomes []Outcome // in execution order
	Config   ConfigResult
}

// ConfigResult is the guard's disposition for the config singleton
type ConfigResult struct {
	Target      string
	Disposition Disposition
}

// Added returns the number of files added across all directories
func (r *Report) Added() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Added
	}
	return n
}

// Updated returns the number of files updated across all directories
func (r *Report) Updated() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Updated
	}
	return n
}

// Unchanged returns the number of unchanged files across all directories
func (r *Report) Unchanged() int {
	n := 0
	for _, o := range r.Outcomes {
		n += o.Unchanged
	}
	return n
}
