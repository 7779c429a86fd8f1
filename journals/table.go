// Package journals resolves free-text journal abbreviations to canonical
// biblio IDs using a reference table.
package journals

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is the journal lookup resource: short and long titles keyed to IDs.
type Table struct {
	Short map[string]string
	Long  map[string]string
}

func NewTable() *Table {
	return &Table{Short: make(map[string]string), Long: make(map[string]string)}
}

// Add records one row. Blank keys are skipped and the first occurrence of a
// key wins.
func (t *Table) Add(short, id, long string) {
	short, id, long = strings.TrimSpace(short), strings.TrimSpace(id), strings.TrimSpace(long)
	if id == "" {
		return
	}
	if short != "" {
		if _, ok := t.Short[short]; !ok {
			t.Short[short] = id
		}
	}
	if long != "" {
		if _, ok := t.Long[long]; !ok {
			t.Long[long] = id
		}
	}
}

func (t *Table) Len() int {
	return len(t.Short) + len(t.Long)
}

// Loader produces a lookup table.
type Loader interface {
	Load() (*Table, error)
}

// FileLoader reads a .csv or .xlsx table from disk.
type FileLoader struct {
	Path string
}

func (l FileLoader) Load() (*Table, error) {
	switch strings.ToLower(filepath.Ext(l.Path)) {
	case ".xlsx":
		return l.loadWorkbook()
	default:
		f, err := os.Open(l.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal table: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	}
}

func (l FileLoader) loadWorkbook() (*Table, error) {
	f, err := excelize.OpenFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("journal workbook %s has no sheets", l.Path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return fromRows(rows), nil
}

// ReadCSV builds a table from name,id or short,id,long rows.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal csv: %w", err)
	}
	return fromRows(rows), nil
}

func fromRows(rows [][]string) *Table {
	t := NewTable()
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[1]), "id") {
			continue
		}
		long := ""
		if len(row) > 2 {
			long = row[2]
		}
		t.Add(row[0], row[1], long)
	}
	return t
}
