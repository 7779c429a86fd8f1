package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
)

// RecordWriter persists new review records.
type RecordWriter interface {
	Path(id string) string
	Write(id, xml string) (string, error)
}

// NoteSink collects update notes for the BP editors.
type NoteSink interface {
	Append(line string) error
}

// DirWriter writes <Dir>/<id>.xml.
type DirWriter struct {
	Dir string
}

// Path is where the record with id would be written.
func (w DirWriter) Path(id string) string {
	return filepath.Join(w.Dir, id+".xml")
}

// Write creates Dir if needed and stores xml as <id>.xml.
func (w DirWriter) Write(id, xml string) (string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := w.Path(id)
	if err := os.WriteFile(path, []byte(xml), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// FileNotes appends one line per note to a text file.
type FileNotes struct {
	Path string
}

func (n FileNotes) Append(line string) error {
	f, err := os.OpenFile(n.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open updates file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append update note: %w", err)
	}
	return nil
}

// IDCounter hands out sequential record IDs above a seed.
type IDCounter struct {
	last atomic.Int64
}

// NewIDCounter starts handing out IDs at seed+1.
func NewIDCounter(seed int) *IDCounter {
	c := &IDCounter{}
	c.last.Store(int64(seed))
	return c
}

// Next allocates the next ID.
func (c *IDCounter) Next() string {
	return strconv.FormatInt(c.last.Add(1), 10)
}

// Last is the most recently allocated ID, or the seed.
func (c *IDCounter) Last() int {
	return int(c.last.Load())
}
