// Package ledger keeps a yaml record of the review files created across runs
// so ID allocation never reuses a number handed out earlier.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultMaxHistory = 500

// CreatedRecord is one review file written (or declined) by a run.
type CreatedRecord struct {
	ID        int       `yaml:"id"`
	EntryID   string    `yaml:"entry_id"`
	Journal   string    `yaml:"journal"`
	JournalID string    `yaml:"journal_id"`
	Path      string    `yaml:"path,omitempty"`
	Accepted  bool      `yaml:"accepted"`
	CreatedAt time.Time `yaml:"created_at"`
}

// State is the ledger file contents.
type State struct {
	LastID     int             `yaml:"last_id"`
	Records    []CreatedRecord `yaml:"records"`
	MaxHistory int             `yaml:"max_history"`
	path       string
}

// Open loads the ledger at path. A missing file yields an empty ledger that
// is created on the first save.
func Open(path string) (*State, error) {
	state := &State{MaxHistory: DefaultMaxHistory, path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	if err := yaml.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("failed to parse ledger: %w", err)
	}
	if state.MaxHistory <= 0 {
		state.MaxHistory = DefaultMaxHistory
	}
	state.path = path
	return state, nil
}

// Save writes the ledger through a temp file, keeping the previous version
// as .bak.
func (s *State) Save() error {
	if _, err := os.Stat(s.path); err == nil {
		if err := os.Rename(s.path, s.path+".bak"); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Record appends rec and saves. Accepted records must not go backwards.
func (s *State) Record(rec CreatedRecord) error {
	if rec.Accepted {
		if rec.ID <= s.LastID {
			return fmt.Errorf("id going backwards: %d <= last id %d", rec.ID, s.LastID)
		}
		s.LastID = rec.ID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.Records = append(s.Records, rec)
	if len(s.Records) > s.MaxHistory {
		s.Records = s.Records[len(s.Records)-s.MaxHistory:]
	}
	return s.Save()
}

// Find returns the most recent record for id.
func (s *State) Find(id int) (*CreatedRecord, bool) {
	for i := len(s.Records) - 1; i >= 0; i-- {
		if s.Records[i].ID == id {
			return &s.Records[i], true
		}
	}
	return nil, false
}
