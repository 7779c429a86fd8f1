// Package biblio holds the bibliography data model (entries, structured
// reviews, parsed CR citations) and the TEI corpus I/O around it.
package biblio

import (
	"fmt"
	"strings"
)

// Field is one of the typed free-text fields of a bibliography entry.
type Field int

const (
	FieldName Field = iota
	FieldInternet
	FieldPublication
	FieldResume
	FieldTitle
	FieldIndex
	FieldIndexBis
	FieldCR
	FieldSBSeg
	FieldAnnee
	FieldBPNumber
)

var allFields = []Field{
	FieldName, FieldInternet, FieldPublication, FieldResume, FieldTitle,
	FieldIndex, FieldIndexBis, FieldCR, FieldSBSeg, FieldAnnee, FieldBPNumber,
}

var fieldLabels = map[Field]string{
	FieldName:        "Name",
	FieldInternet:    "Internet",
	FieldPublication: "Publication",
	FieldResume:      "Resume",
	FieldTitle:       "Title",
	FieldIndex:       "Index",
	FieldIndexBis:    "Index Bis",
	FieldCR:          "CR",
	FieldSBSeg:       "SB & SEG",
	FieldAnnee:       "Annee",
	FieldBPNumber:    "BP Number",
}

func (f Field) String() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// segFields maps the seg/@subtype values of a TEI bibl to entry fields.
var segFields = map[string]Field{
	"nom":         FieldName,
	"internet":    FieldInternet,
	"publication": FieldPublication,
	"resume":      FieldResume,
	"titre":       FieldTitle,
	"index":       FieldIndex,
	"indexBis":    FieldIndexBis,
	"cr":          FieldCR,
	"sbSeg":       FieldSBSeg,
}

// Entry is one bibliography record of the corpus (one TEI file).
type Entry struct {
	ID         string
	Path       string
	TitleLevel string
	IsReview   bool

	// CRMarkup is the inner markup of the CR seg, kept for link discovery.
	CRMarkup string

	// ReviewRecord is set when the file itself is a review (bibl type="review").
	ReviewRecord *Review

	// Reviews are the structured reviews pointing at this entry and Citations
	// the reviews parsed from its CR text.
	Reviews   []*Review
	Citations []*Citation

	fields map[Field]string
}

// NewEntry returns an empty entry read from path.
func NewEntry(path string) *Entry {
	return &Entry{Path: path, fields: make(map[Field]string)}
}

// Set stores a field value, XML-escaping &, < and >.
func (e *Entry) Set(f Field, value string) {
	if e.fields == nil {
		e.fields = make(map[Field]string)
	}
	// an empty name counts as no name
	if f == FieldName && value == "" {
		delete(e.fields, f)
		return
	}
	e.fields[f] = escapeText(value)
}

// Get returns the escaped value of f and whether it is set.
func (e *Entry) Get(f Field) (string, bool) {
	v, ok := e.fields[f]
	return v, ok
}

// Has reports whether f is set.
func (e *Entry) Has(f Field) bool {
	_, ok := e.fields[f]
	return ok
}

// CR returns the raw CR citation text, or "" when the entry has none.
func (e *Entry) CR() string {
	return e.fields[FieldCR]
}

// BPNumber returns the idno bp value, if any.
func (e *Entry) BPNumber() (string, bool) {
	return e.Get(FieldBPNumber)
}

// AnyMatch reports whether any field populated on both entries is equal.
func (e *Entry) AnyMatch(other *Entry) bool {
	for _, f := range allFields {
		a, okA := e.Get(f)
		b, okB := other.Get(f)
		if okA && okB && a == b {
			return true
		}
	}
	return false
}

// FullMatch reports whether every field agrees: both absent, or both present
// and equal.
func (e *Entry) FullMatch(other *Entry) bool {
	for _, f := range allFields {
		a, okA := e.Get(f)
		b, okB := other.Get(f)
		if okA != okB || a != b {
			return false
		}
	}
	return true
}

// DisplayString lists the populated fields one per line.
func (e *Entry) DisplayString() string {
	var sb strings.Builder
	for _, f := range allFields {
		if v, ok := e.Get(f); ok {
			sb.WriteString(f.String())
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (e *Entry) String() string {
	bp, ok := e.BPNumber()
	if !ok {
		bp = "No BP Value"
	}
	return fmt.Sprintf("PN %s (BP %s) @ %s", e.ID, bp, e.Path)
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string {
	return textEscaper.Replace(s)
}
